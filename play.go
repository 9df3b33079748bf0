package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Paul2341268/word-relay/relay"
)

// playLocal runs a whole game on one terminal, prompting each participant
// in turn. Running out of input ends the game without error.
func playLocal(cfg *Config, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	count := cfg.players
	if count <= 0 {
		fmt.Fprint(out, "How many participants? ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || n <= 0 {
			return fmt.Errorf("enter a valid number of participants: %w", relay.ErrSetup)
		}
		count = n
	}

	raw := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		fmt.Fprintf(out, "Name of participant %d (blank for %q): ", i, relay.PlaceholderName(i))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		raw = append(raw, scanner.Text())
	}

	engine, err := relay.New(relay.Names(count, raw))
	if err != nil {
		return err
	}

	logf(cfg, "GAMES: Started local game with %d players", count)

	for !engine.Finished() {
		idx, p := engine.CurrentParticipant()

		if word, ok := engine.CurrentWord(); ok {
			fmt.Fprintf(out, "[%d] %s, continue from %q: ", idx+1, p.Name, word)
		} else {
			fmt.Fprintf(out, "[%d] %s, start with any word: ", idx+1, p.Name)
		}

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		res, err := engine.Submit(strings.TrimSpace(scanner.Text()))
		if errors.Is(err, relay.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}

		switch res.Kind {
		case relay.Accepted:
			fmt.Fprintf(out, "Accepted: %s\n", res.Word)
		case relay.Eliminated, relay.GameWon:
			fmt.Fprintf(out, "%s is out: %s\n", res.Name, res.Reason)
		}
	}

	_, winner, _ := engine.Winner()
	fmt.Fprintf(out, "%s wins!\n", winner.Name)

	if history := engine.History(); len(history) > 0 {
		fmt.Fprintln(out, "Words played:")
		for _, entry := range history {
			fmt.Fprintf(out, "  %s: %s\n", entry.Name, entry.Word)
		}
	}

	return nil
}
