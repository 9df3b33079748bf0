package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestRouter(t *testing.T, cfg *Config) (http.Handler, *GameManager) {
	t.Helper()
	errs := make(chan error, 64)
	mux, gm := newRouter(cfg, errs)
	t.Cleanup(gm.Close)
	return mux, gm
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestStaticRoutes(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{})

	tests := []struct {
		path        string
		wantCode    int
		wantType    string
		wantContain string
	}{
		{path: "/healthz", wantCode: http.StatusOK, wantType: "text/plain", wantContain: "Ok"},
		{path: "/version", wantCode: http.StatusOK, wantType: "text/plain", wantContain: releaseVersion},
		{path: "/robots.txt", wantCode: http.StatusOK, wantType: "text/plain", wantContain: "Disallow"},
		{path: "/assets/relay/app.js", wantCode: http.StatusOK, wantType: "text/javascript", wantContain: "WebSocket"},
		{path: "/assets/relay/app.css", wantCode: http.StatusOK, wantType: "text/css", wantContain: ".inactive"},
		{path: "/relay/abcd1234", wantCode: http.StatusOK, wantType: "text/html", wantContain: "Word Relay"},
	}
	for _, test := range tests {
		w := get(t, mux, test.path)
		if w.Code != test.wantCode {
			t.Errorf("GET %s: code = %d, want %d", test.path, w.Code, test.wantCode)
			continue
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, test.wantType) {
			t.Errorf("GET %s: content type = %q, want %q", test.path, ct, test.wantType)
		}
		if !strings.Contains(w.Body.String(), test.wantContain) {
			t.Errorf("GET %s: body missing %q", test.path, test.wantContain)
		}
		if w.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("GET %s: missing security headers", test.path)
		}
	}
}

func TestPrefixedAssets(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{prefix: "/game/"})

	page := get(t, mux, "/game/relay/abcd1234")
	if page.Code != http.StatusOK {
		t.Fatalf("GET game page: code = %d, want 200", page.Code)
	}

	// Asset links are relative to the game page, so they resolve under the prefix.
	base, _ := url.Parse("http://example.test/game/relay/abcd1234")
	for _, ref := range []string{"../assets/relay/app.css", "../assets/relay/app.js"} {
		if !strings.Contains(page.Body.String(), `"`+ref+`"`) {
			t.Errorf("game page does not link %s", ref)
			continue
		}
		u, err := base.Parse(ref)
		if err != nil {
			t.Fatalf("parse %s: %v", ref, err)
		}
		if w := get(t, mux, u.Path); w.Code != http.StatusOK {
			t.Errorf("GET %s: code = %d, want 200", u.Path, w.Code)
		}
	}
}

func TestClientScript(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{})
	js := get(t, mux, "/assets/relay/app.js").Body.String()

	for _, want := range []string{"type: 'kick'", "target_username", "type: 'lock_lobby'", "type: 'start_game'"} {
		if !strings.Contains(js, want) {
			t.Errorf("app.js never sends %s", want)
		}
	}

	// The player's own name comes only from the server's session_info.
	if n := len(regexp.MustCompile(`(?m)^\s+me = `).FindAllString(js, -1)); n != 1 {
		t.Errorf("app.js assigns me %d times, want once", n)
	}
}

func TestIndexSetsPlayerCookie(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{})

	w := get(t, mux, "/relay/abcd1234")
	if !strings.Contains(w.Header().Get("Set-Cookie"), playerCookieName+"=") {
		t.Errorf("Set-Cookie = %q, want %s", w.Header().Get("Set-Cookie"), playerCookieName)
	}

	r := httptest.NewRequest(http.MethodGet, "/relay/abcd1234", nil)
	r.AddCookie(playerCookie("known"))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Header().Get("Set-Cookie") != "" {
		t.Errorf("cookie reissued for known player: %q", w.Header().Get("Set-Cookie"))
	}
}

func TestNewGameRedirect(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{prefix: "/games/"})

	w := get(t, mux, "/games/relay")
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("code = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/games/relay/") || len(strings.TrimPrefix(loc, "/games/relay/")) != 8 {
		t.Errorf("Location = %q, want /games/relay/<8 chars>", loc)
	}

	w = get(t, mux, "/games/")
	if w.Code != http.StatusTemporaryRedirect || w.Header().Get("Location") != "/games/relay" {
		t.Errorf("home redirect = %d %q, want /games/relay", w.Code, w.Header().Get("Location"))
	}
}

func TestQRCode(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{})

	w := get(t, mux, "/relay/abcd1234/qr")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestProfileRoutes(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{})
	if w := get(t, mux, "/pprof/heap"); w.Code != http.StatusNotFound {
		t.Errorf("pprof without --profile: code = %d, want 404", w.Code)
	}

	mux, _ = newTestRouter(t, &Config{profile: true})
	if w := get(t, mux, "/pprof/heap"); w.Code != http.StatusOK {
		t.Errorf("pprof with --profile: code = %d, want 200", w.Code)
	}
}

func TestHumanReadableSize(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		999:     "999 B",
		1000:    "1.0 kB",
		1500000: "1.5 MB",
	}
	for in, want := range tests {
		if got := humanReadableSize(in); got != want {
			t.Errorf("humanReadableSize(%d) = %q, want %q", in, got, want)
		}
	}
}

// readUntil skips messages until one of type typ satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, match func(map[string]any) bool) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg["type"] == typ && (match == nil || match(msg)) {
			return msg
		}
	}
}

func TestWebSocketGame(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/relay/abcd1234/ws"

	hostConn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer hostConn.Close()

	if !strings.Contains(resp.Header.Get("Set-Cookie"), playerCookieName+"=") {
		t.Error("handshake did not assign a player cookie")
	}

	info := readUntil(t, hostConn, "session_info", nil)
	if info["is_host"] != true {
		t.Fatalf("session_info = %v, want host", info)
	}

	if err := hostConn.WriteJSON(ClientMessage{Type: "join", Username: "alpha"}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	players := readUntil(t, hostConn, "players", func(msg map[string]any) bool {
		list, _ := msg["players"].([]any)
		return len(list) > 0
	})
	if list, _ := players["players"].([]any); len(list) != 1 || list[0] != "alpha" {
		t.Fatalf("players = %v, want [alpha]", players["players"])
	}

	if err := hostConn.WriteJSON(ClientMessage{Type: "start_game"}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	state := readUntil(t, hostConn, "game_state", func(msg map[string]any) bool {
		return msg["started"] == true
	})
	if state["winner"] != "alpha" {
		t.Errorf("single player game_state = %v, want alpha as winner", state)
	}

	if err := hostConn.WriteJSON(ClientMessage{Type: "submit", Word: "apple"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	readUntil(t, hostConn, "game_over", nil)
}
