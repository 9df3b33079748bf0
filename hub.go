// Word Relay
//
// Participants join a game in their browser, one after another, and the first
// connection to a game becomes its host. Once the host starts the game, the
// joined names are frozen into a roster in join order and participants take
// turns submitting words.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - Host can lock/unlock the lobby and kick players before the game starts
// - Players identified by cookie (playerID)
// - Duplicate usernames prevented across players; blank names get placeholders
// - Only the participant holding the turn may submit a word
// - Every outcome (accepted, eliminated, game won) is broadcast to all clients
// - Games auto-reaped after configurable idle timeout
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Paul2341268/word-relay/relay"
)

// Player holds the data we store server-side
type Player struct {
	PlayerID string
	Username string
}

// Messages coming from clients
type ClientMessage struct {
	Type           string `json:"type"`                      // "join", "lock_lobby", "kick", "start_game", "submit"
	Username       string `json:"username,omitempty"`        // join
	Word           string `json:"word,omitempty"`            // submit
	Lock           *bool  `json:"lock,omitempty"`            // lock_lobby
	TargetUsername string `json:"target_username,omitempty"` // kick
}

// PlayersMessage lists joined usernames in join order.
type PlayersMessage struct {
	Type    string   `json:"type"` // "players"
	Players []string `json:"players"`
}

// Sent to a single client when their username is taken
type CollisionMessage struct {
	Type    string `json:"type"`    // "collision"
	Field   string `json:"field"`   // "username"
	Message string `json:"message"` // user-facing text
}

// SimpleMessage is for generic notifications ("kicked", "not_your_turn", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// LobbyStateMessage informs clients about lock/unlock changes.
type LobbyStateMessage struct {
	Type   string `json:"type"` // "lobby_state"
	Locked bool   `json:"locked"`
}

// SessionInfoMessage is sent immediately on connect so the client knows
// whether the lobby is locked and what role this cookie has.
type SessionInfoMessage struct {
	Type        string `json:"type"`               // "session_info"
	LobbyLocked bool   `json:"lobby_locked"`       // current lobby lock state
	IsExisting  bool   `json:"is_existing"`        // true if this cookie already has a player
	IsHost      bool   `json:"is_host"`            // true if this cookie is the host
	Username    string `json:"username,omitempty"` // known username for this cookie, if any
	Started     bool   `json:"started"`            // true once the roster is frozen
}

type RosterEntry struct {
	Username string `json:"username"`
	Active   bool   `json:"active"`
}

type UsedWord struct {
	Word     string `json:"word"`
	Username string `json:"username"`
}

// GameStateMessage broadcasts the roster, whose turn it is and the words played.
type GameStateMessage struct {
	Type        string        `json:"type"`                   // "game_state"
	Started     bool          `json:"started"`                // game started or not
	Roster      []RosterEntry `json:"roster"`                 // turn order with elimination status
	CurrentWord string        `json:"current_word,omitempty"` // last accepted word
	CurrentTurn string        `json:"current_turn,omitempty"` // username whose turn it is
	TurnNumber  int           `json:"turn_number,omitempty"`  // 1-based roster position of CurrentTurn
	Used        []UsedWord    `json:"used"`                   // accepted words in play order
	Winner      string        `json:"winner,omitempty"`       // winner username when game over
}

// WordResultMessage informs everyone about the outcome of a submission.
type WordResultMessage struct {
	Type     string `json:"type"`             // "word_result"
	Result   string `json:"result"`           // "accepted", "eliminated" or "game_won"
	Word     string `json:"word"`             // submitted word
	Username string `json:"username"`         // submitter
	Reason   string `json:"reason,omitempty"` // why the submitter was eliminated
	Winner   string `json:"winner,omitempty"` // set when Result is "game_won"
	Message  string `json:"message"`          // human-readable summary
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type joinRequest struct {
	client *Client
	msg    ClientMessage
}

type hostCommand struct {
	client *Client
	msg    ClientMessage
}

type submitRequest struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool
	players []Player

	register chan *Client
	unreg    chan *Client
	joins    chan joinRequest
	hosts    chan hostCommand
	submits  chan submitRequest
	done     chan struct{}

	mu sync.RWMutex

	createdAt    time.Time
	lastActive   time.Time
	lobbyLocked  bool
	hostPlayerID string // cookie/playerID of the first connection

	engine *relay.Engine // nil until the host starts the game
	seats  []string      // roster index -> PlayerID
}

func newHub(gameID string) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		joins:      make(chan joinRequest),
		hosts:      make(chan hostCommand),
		submits:    make(chan submitRequest),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unreg:
			h.handleUnregister(cfg, c)

		case jr := <-h.joins:
			h.handleJoin(cfg, jr)

		case cmd := <-h.hosts:
			h.handleHostCommand(cfg, cmd)

		case sr := <-h.submits:
			h.handleSubmit(cfg, sr)
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	// First connection becomes host
	if h.hostPlayerID == "" {
		h.hostPlayerID = c.playerID
	}

	h.clients[c] = true

	h.sendLocked(c, h.sessionInfoLocked(c.playerID))
	h.sendLocked(c, h.playersMessageLocked())
	h.sendLocked(c, h.gameStateLocked())
}

func (h *Hub) sessionInfoLocked(playerID string) SessionInfoMessage {
	info := SessionInfoMessage{
		Type:        "session_info",
		LobbyLocked: h.lobbyLocked,
		IsHost:      h.hostPlayerID == playerID,
		Started:     h.engine != nil,
	}
	if p := h.playerLocked(playerID); p != nil {
		info.IsExisting = true
		info.Username = p.Username
	}
	return info
}

func (h *Hub) handleUnregister(cfg *Config, c *Client) {
	h.mu.Lock()
	h.lastActive = time.Now()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	playerID := c.playerID
	isHost := playerID == h.hostPlayerID
	h.mu.Unlock()

	// The host leaving does not erase their seat.
	if playerID != "" && !isHost {
		go h.scheduleRemoval(playerID, cfg.playerTimeout)
	}
}

// sendLocked queues msg for c, dropping the client if its buffer is full.
// Clients already dropped are ignored; their send channel is closed.
func (h *Hub) sendLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

func (h *Hub) playerLocked(playerID string) *Player {
	for i := range h.players {
		if h.players[i].PlayerID == playerID {
			return &h.players[i]
		}
	}
	return nil
}

func (h *Hub) playersMessageLocked() PlayersMessage {
	names := make([]string, 0, len(h.players))
	for _, p := range h.players {
		names = append(names, p.Username)
	}
	return PlayersMessage{
		Type:    "players",
		Players: names,
	}
}

// gameStateLocked snapshots the lobby before the game starts and the
// engine afterwards.
func (h *Hub) gameStateLocked() GameStateMessage {
	msg := GameStateMessage{
		Type: "game_state",
		Used: []UsedWord{},
	}

	if h.engine == nil {
		msg.Roster = make([]RosterEntry, 0, len(h.players))
		for _, p := range h.players {
			msg.Roster = append(msg.Roster, RosterEntry{Username: p.Username, Active: true})
		}
		return msg
	}

	msg.Started = true

	roster := h.engine.Roster()
	msg.Roster = make([]RosterEntry, 0, len(roster))
	for _, p := range roster {
		msg.Roster = append(msg.Roster, RosterEntry{Username: p.Name, Active: p.Active})
	}

	for _, entry := range h.engine.History() {
		msg.Used = append(msg.Used, UsedWord{Word: entry.Word, Username: entry.Name})
	}

	msg.CurrentWord, _ = h.engine.CurrentWord()

	if _, winner, ok := h.engine.Winner(); ok {
		msg.Winner = winner.Name
		return msg
	}

	idx, current := h.engine.CurrentParticipant()
	msg.CurrentTurn = current.Name
	msg.TurnNumber = idx + 1

	return msg
}

// scheduleRemoval waits for d, and if no client with this playerID is
// connected and the game has not started, removes that player.
func (h *Hub) scheduleRemoval(playerID string, d time.Duration) {
	select {
	case <-time.After(d):
	case <-h.done:
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeIdleLocked(playerID)
}

func (h *Hub) removeIdleLocked(playerID string) {
	if h.engine != nil {
		return
	}

	for client := range h.clients {
		if client.playerID == playerID {
			return
		}
	}

	if !h.removePlayerLocked(playerID) {
		return
	}

	h.lastActive = time.Now()

	h.broadcastLocked(h.playersMessageLocked())
	h.broadcastLocked(h.gameStateLocked())
}

func (h *Hub) removePlayerLocked(playerID string) bool {
	dst := h.players[:0]
	changed := false

	for _, p := range h.players {
		if p.PlayerID == playerID {
			changed = true
			continue
		}
		dst = append(dst, p)
	}
	h.players = dst

	return changed
}

// placeholderLocked returns a placeholder name no current player holds.
func (h *Hub) placeholderLocked() string {
	for n := len(h.players) + 1; ; n++ {
		name := relay.PlaceholderName(n)
		taken := false
		for _, p := range h.players {
			if p.Username == name {
				taken = true
				break
			}
		}
		if !taken {
			return name
		}
	}
}

// handleJoin processes "join" messages.
func (h *Hub) handleJoin(cfg *Config, jr joinRequest) {
	msg := jr.msg
	c := jr.client

	if c.playerID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	existing := h.playerLocked(c.playerID)

	if h.engine != nil {
		h.sendLocked(c, SimpleMessage{
			Type:    "game_started",
			Message: "The game has already started; names can no longer change.",
		})
		return
	}

	if h.lobbyLocked && existing == nil {
		h.sendLocked(c, SimpleMessage{
			Type:    "lobby_locked",
			Message: "The lobby is locked; no new players may join.",
		})
		return
	}

	username := strings.TrimSpace(msg.Username)
	if username == "" {
		if existing != nil {
			username = existing.Username
		} else {
			username = h.placeholderLocked()
		}
	}

	for _, p := range h.players {
		if p.PlayerID != c.playerID && p.Username == username {
			h.sendLocked(c, CollisionMessage{
				Type:    "collision",
				Field:   "username",
				Message: "That username is already taken. Please choose a different username.",
			})
			return
		}
	}

	if existing != nil {
		existing.Username = username
	} else {
		h.players = append(h.players, Player{
			PlayerID: c.playerID,
			Username: username,
		})
		logf(cfg, "GAMES: Player %q joined %s", username, h.id)
	}

	h.sendLocked(c, h.sessionInfoLocked(c.playerID))
	h.broadcastLocked(h.playersMessageLocked())
	h.broadcastLocked(h.gameStateLocked())
}

// handleHostCommand processes host commands: lock/unlock lobby, kick users,
// start the game.
func (h *Hub) handleHostCommand(cfg *Config, cmd hostCommand) {
	c := cmd.client
	msg := cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	// Only the host may issue these commands
	if h.hostPlayerID == "" || c.playerID != h.hostPlayerID {
		h.sendLocked(c, SimpleMessage{
			Type:    "not_host",
			Message: "Only the host can do that.",
		})
		return
	}

	switch msg.Type {
	case "lock_lobby":
		h.lobbyLocked = msg.Lock != nil && *msg.Lock

		h.broadcastLocked(LobbyStateMessage{
			Type:   "lobby_state",
			Locked: h.lobbyLocked,
		})

	case "kick":
		if h.engine != nil || msg.TargetUsername == "" {
			return
		}

		var kickedPlayerID string
		for _, p := range h.players {
			if p.Username == msg.TargetUsername {
				kickedPlayerID = p.PlayerID
				break
			}
		}
		if kickedPlayerID == "" || !h.removePlayerLocked(kickedPlayerID) {
			return
		}

		logf(cfg, "GAMES: Player %q kicked from %s", msg.TargetUsername, h.id)

		for client := range h.clients {
			if client.playerID == kickedPlayerID {
				h.sendLocked(client, SimpleMessage{
					Type:    "kicked",
					Message: "You have been removed by the host.",
				})
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					close(client.send)
				}
			}
		}

		h.broadcastLocked(h.playersMessageLocked())
		h.broadcastLocked(h.gameStateLocked())

	case "start_game":
		h.startGameLocked(cfg, c)
	}
}

// startGameLocked freezes the joined players, in join order, into the roster.
func (h *Hub) startGameLocked(cfg *Config, c *Client) {
	if h.engine != nil {
		return
	}

	names := make([]string, 0, len(h.players))
	seats := make([]string, 0, len(h.players))
	for _, p := range h.players {
		names = append(names, p.Username)
		seats = append(seats, p.PlayerID)
	}

	engine, err := relay.New(names)
	if err != nil {
		h.sendLocked(c, SimpleMessage{
			Type:    "setup_error",
			Message: "At least one player must join before the game can start.",
		})
		return
	}

	h.engine = engine
	h.seats = seats
	h.lobbyLocked = true

	logf(cfg, "GAMES: Started %s with %d players", h.id, len(names))

	h.broadcastLocked(LobbyStateMessage{
		Type:   "lobby_state",
		Locked: true,
	})
	h.broadcastLocked(h.gameStateLocked())
}

// handleSubmit runs one turn for the client holding it.
func (h *Hub) handleSubmit(cfg *Config, sr submitRequest) {
	c := sr.client
	msg := sr.msg

	if c.playerID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if h.engine == nil {
		h.sendLocked(c, SimpleMessage{
			Type:    "not_started",
			Message: "The game has not started yet.",
		})
		return
	}

	if h.engine.Finished() {
		h.sendLocked(c, SimpleMessage{
			Type:    "game_over",
			Message: "The game is over.",
		})
		return
	}

	idx, _ := h.engine.CurrentParticipant()
	if h.seats[idx] != c.playerID {
		h.sendLocked(c, SimpleMessage{
			Type:    "not_your_turn",
			Message: "It is not your turn.",
		})
		return
	}

	res, err := h.engine.Submit(strings.TrimSpace(msg.Word))
	switch {
	case errors.Is(err, relay.ErrEmptyInput):
		h.sendLocked(c, SimpleMessage{
			Type:    "empty_word",
			Message: "Please enter a word.",
		})
		return
	case errors.Is(err, relay.ErrGameOver):
		h.sendLocked(c, SimpleMessage{
			Type:    "game_over",
			Message: "The game is over.",
		})
		return
	case err != nil:
		logf(cfg, "ERROR: Submit in %s: %v", h.id, err)
		return
	}

	result := WordResultMessage{
		Type:     "word_result",
		Result:   res.Kind.String(),
		Word:     res.Word,
		Username: res.Name,
		Reason:   string(res.Reason),
		Message:  res.String(),
	}
	if res.Kind == relay.GameWon {
		winner := h.engine.Roster()[res.Winner].Name
		result.Winner = winner
		result.Message = res.Name + " was eliminated (" + string(res.Reason) + "). " + winner + " wins!"
		logf(cfg, "GAMES: %q won %s", winner, h.id)
	}

	logf(cfg, "GAMES: %s in %s", res.String(), h.id)

	h.broadcastLocked(result)
	h.broadcastLocked(h.gameStateLocked())
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
	default:
		close(h.done)
	}

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}
