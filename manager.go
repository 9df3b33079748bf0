package main

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated game.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

func newGameManager(idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

const (
	gameIDLength = 8
	// Omits look-alike characters (0/O, 1/l/I).
	gameIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

// getHub returns the relay for gameID, opening it on first use.
func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]
	if !ok {
		hub = newHub(gameID)
		gm.hubs[gameID] = hub
		go hub.run(cfg)

		logf(cfg, "GAMES: Opened relay %s (%d running)", gameID, len(gm.hubs))
	}

	return hub
}

func randomGameID() (string, error) {
	id := make([]byte, gameIDLength)
	if _, err := rand.Read(id); err != nil {
		return "", fmt.Errorf("generate game id: %w", err)
	}
	for i, b := range id {
		id[i] = gameIDAlphabet[int(b)%len(gameIDAlphabet)]
	}
	return string(id), nil
}

// newGameID returns a random game ID not used by any running relay.
func (gm *GameManager) newGameID() (string, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for {
		id, err := randomGameID()
		if err != nil {
			return "", err
		}
		if _, taken := gm.hubs[id]; !taken {
			return id, nil
		}
	}
}

// reap removes hubs that have been idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
			reaped++
		}
	}
	return reaped
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.stop:
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

// Close stops the reaper and ends every game.
func (gm *GameManager) Close() {
	gm.stopOnce.Do(func() {
		close(gm.stop)
	})

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func getIndexHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	serve := serveAsset(cfg, "assets/relay/index.html", errs)

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		_ = getOrSetPlayerID(w, r)

		serve(w, r, ps)
	}
}

// redirectNewGame sends GET $path to a fresh relay at $path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID, err := gm.newGameID()
		if err != nil {
			errs <- err
			http.Error(w, "could not create game", http.StatusInternalServerError)
			return
		}
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerRelayGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerRelayGame(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) *GameManager {
	gm := newGameManager(cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm, errs))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg, errs))

	mux.GET(cfg.prefix+"/assets/relay/app.css", serveAsset(cfg, "assets/relay/app.css", errs))
	mux.GET(cfg.prefix+"/assets/relay/app.js", serveAsset(cfg, "assets/relay/app.js", errs))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))

	return gm
}
