/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package relay implements the turn and elimination rules of a word relay.
//
// Participants take turns submitting words. A word must start with the last
// character of the previously accepted word, and may not repeat any word
// already accepted. Breaking either rule eliminates the submitter. Play skips
// eliminated participants until exactly one remains, who wins.
//
// An Engine is not safe for concurrent use; callers serialize Submit.
package relay

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrSetup      = errors.New("at least one participant is required")
	ErrEmptyInput = errors.New("word must not be empty")
	ErrGameOver   = errors.New("game is already over")
)

// Reason explains why a participant was eliminated.
type Reason string

const (
	ReasonDuplicate     Reason = "duplicate word"
	ReasonRuleViolation Reason = "rule violation"
)

// Kind tags the outcome of a submission.
type Kind int

const (
	Accepted Kind = iota
	Eliminated
	GameWon
)

func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Eliminated:
		return "eliminated"
	case GameWon:
		return "game_won"
	default:
		return "unknown"
	}
}

type Participant struct {
	Name   string
	Active bool
}

// Entry is one accepted word and who played it.
type Entry struct {
	Word string
	Name string
}

// Result is returned by Submit. Index and Name always identify the
// submitter; Winner is -1 unless Kind is GameWon.
type Result struct {
	Kind   Kind
	Word   string
	Index  int
	Name   string
	Reason Reason
	Winner int
}

func (r Result) String() string {
	switch r.Kind {
	case Accepted:
		return fmt.Sprintf("%s played %q", r.Name, r.Word)
	case Eliminated:
		return fmt.Sprintf("%s was eliminated (%s)", r.Name, r.Reason)
	case GameWon:
		return fmt.Sprintf("%s was eliminated (%s); game won", r.Name, r.Reason)
	default:
		return r.Kind.String()
	}
}

type Engine struct {
	roster  []Participant
	used    map[string]struct{}
	history []Entry
	current string
	turn    int
}

// New starts a game with one active participant per name, in order.
func New(names []string) (*Engine, error) {
	if len(names) == 0 {
		return nil, ErrSetup
	}

	roster := make([]Participant, len(names))
	for i, name := range names {
		roster[i] = Participant{Name: name, Active: true}
	}

	return &Engine{
		roster: roster,
		used:   make(map[string]struct{}),
	}, nil
}

// PlaceholderName is the name given to the participant at 1-based position n
// when none was provided.
func PlaceholderName(n int) string {
	return "Participant " + strconv.Itoa(n)
}

// Names returns count names taken from raw in order, trimmed, with blank or
// missing entries replaced by their placeholder.
func Names(count int, raw []string) []string {
	if count < 0 {
		count = 0
	}

	names := make([]string, count)
	for i := range names {
		var name string
		if i < len(raw) {
			name = strings.TrimSpace(raw[i])
		}
		if name == "" {
			name = PlaceholderName(i + 1)
		}
		names[i] = name
	}

	return names
}

// NextActiveIndex scans cyclically from from+1 through from+n and returns the
// first active index, or from when no other participant is active.
func (e *Engine) NextActiveIndex(from int) int {
	n := len(e.roster)
	for step := 1; step <= n; step++ {
		idx := (from + step) % n
		if e.roster[idx].Active {
			return idx
		}
	}
	return from
}

// CurrentParticipant returns whose turn it is, first moving the turn
// forward if it rests on an eliminated participant.
func (e *Engine) CurrentParticipant() (int, Participant) {
	e.normalizeTurn()
	return e.turn, e.roster[e.turn]
}

func (e *Engine) normalizeTurn() {
	if !e.roster[e.turn].Active {
		e.turn = e.NextActiveIndex(e.turn)
	}
}

// Submit evaluates candidate for the current participant. Blank input is
// rejected; otherwise the word is judged exactly as given.
func (e *Engine) Submit(candidate string) (Result, error) {
	if strings.TrimSpace(candidate) == "" {
		return Result{}, ErrEmptyInput
	}
	if e.Finished() {
		return Result{}, ErrGameOver
	}

	e.normalizeTurn()
	idx := e.turn
	res := Result{
		Word:   candidate,
		Index:  idx,
		Name:   e.roster[idx].Name,
		Winner: -1,
	}

	switch {
	case e.Used(candidate):
		res.Kind, res.Reason = Eliminated, ReasonDuplicate
	case e.current == "" || chains(e.current, candidate):
		e.current = candidate
		e.used[candidate] = struct{}{}
		e.history = append(e.history, Entry{Word: candidate, Name: res.Name})
		res.Kind = Accepted
	default:
		res.Kind, res.Reason = Eliminated, ReasonRuleViolation
	}

	if res.Kind == Eliminated {
		e.eliminate(idx)
		if e.ActiveCount() == 1 {
			e.turn = e.NextActiveIndex(idx)
			res.Kind, res.Winner = GameWon, e.turn
			return res, nil
		}
	}

	e.turn = e.NextActiveIndex(idx)

	return res, nil
}

// chains reports whether next starts with the last character of prev.
func chains(prev, next string) bool {
	last, _ := utf8.DecodeLastRuneInString(prev)
	first, _ := utf8.DecodeRuneInString(next)
	return last == first
}

func (e *Engine) eliminate(idx int) {
	if idx < 0 || idx >= len(e.roster) || !e.roster[idx].Active {
		return
	}
	e.roster[idx].Active = false
}

func (e *Engine) ActiveCount() int {
	count := 0
	for _, p := range e.roster {
		if p.Active {
			count++
		}
	}
	return count
}

// Finished reports whether fewer than two participants remain active.
func (e *Engine) Finished() bool {
	return e.ActiveCount() <= 1
}

// Winner returns the last active participant once the game is finished.
func (e *Engine) Winner() (int, Participant, bool) {
	if !e.Finished() {
		return -1, Participant{}, false
	}
	for i, p := range e.roster {
		if p.Active {
			return i, p, true
		}
	}
	return -1, Participant{}, false
}

// Roster returns a copy of the participants in turn order.
func (e *Engine) Roster() []Participant {
	out := make([]Participant, len(e.roster))
	copy(out, e.roster)
	return out
}

// CurrentWord returns the last accepted word, if any.
func (e *Engine) CurrentWord() (string, bool) {
	return e.current, e.current != ""
}

func (e *Engine) Used(word string) bool {
	_, ok := e.used[word]
	return ok
}

// History returns accepted words in the order they were played.
func (e *Engine) History() []Entry {
	out := make([]Entry, len(e.history))
	copy(out, e.history)
	return out
}
