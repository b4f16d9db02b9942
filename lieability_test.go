package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/lieability/games/lieability"
	"github.com/Seednode/lieability/games/questions"
)

const waitFor = 2 * time.Second

type recordingRelay struct {
	mu     sync.Mutex
	events []lieability.EventType
}

func (r *recordingRelay) Publish(gameID string, ev lieability.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev.Type)
}

func (r *recordingRelay) seen(t lieability.EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events {
		if e == t {
			return true
		}
	}

	return false
}

type testServer struct {
	*httptest.Server
	gm *GameManager
}

func newTestServer(t *testing.T, clock clockwork.Clock, rl eventRelay, configure func(*Config)) *testServer {
	t.Helper()

	cfg := parseFlags(t)
	cfg.sessionTimeout = 0
	cfg.playerTimeout = 0
	if configure != nil {
		configure(cfg)
	}

	lib, err := questions.Builtin(zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	gm, err := newGameManager(ctx, cfg, lib, rl, clock)
	require.NoError(t, err)

	mux := httprouter.New()
	registerLieAbility(cfg, "/lieability", mux, gm)
	mux.GET("/healthz", serveHealthCheck(cfg, gm))
	mux.GET("/packs", servePacks(cfg, lib, gm.defaultPack))

	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		cancel()
		gm.closeAll()
		srv.Close()
	})

	return &testServer{Server: srv, gm: gm}
}

func (s *testServer) dial(t *testing.T, game, cookie string) *websocket.Conn {
	t.Helper()

	u := "ws" + strings.TrimPrefix(s.URL, "http") + "/lieability/" + game + "/ws"

	header := http.Header{}
	header.Set("Cookie", playerCookieName+"="+cookie)

	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	require.NoError(t, err)
	_ = resp.Body.Close()

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func (s *testServer) state(t *testing.T, game string) lieability.State {
	t.Helper()

	resp, err := http.Get(s.URL + "/lieability/" + game + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st lieability.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))

	return st
}

type frame map[string]any

func (f frame) str(key string) string {
	s, _ := f[key].(string)

	return s
}

func (f frame) obj(key string) frame {
	m, _ := f[key].(map[string]any)

	return m
}

// expect reads frames until one of type typ arrives.
func expect(t *testing.T, conn *websocket.Conn, typ string) frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}

		if f.str("type") == typ {
			return f
		}
	}
}

// refute fails if a frame of type typ arrives within d.
func refute(t *testing.T, conn *websocket.Conn, typ string, d time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(d)))

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			var netErr interface{ Timeout() bool }
			require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "unexpected read error: %v", err)

			return
		}

		require.NotEqual(t, typ, f.str("type"))
	}
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))
}

func join(t *testing.T, conn *websocket.Conn, name string) frame {
	t.Helper()

	send(t, conn, ClientMessage{Type: "join", PlayerName: name})

	return expect(t, conn, "joined").obj("player")
}

func TestConnectSendsObserverState(t *testing.T) {
	srv := newTestServer(t, clockwork.NewRealClock(), nil, nil)

	conn := srv.dial(t, "g1", "alice")

	st := expect(t, conn, "game_state_update").obj("data")
	assert.Equal(t, "g1", st.str("gameId"))
	assert.Equal(t, "lobby", st.str("phase"))

	view := expect(t, conn, "host_sub_step_info").obj("data")
	assert.Empty(t, view.str("playerId"))
}

func TestActionsRequireJoining(t *testing.T) {
	srv := newTestServer(t, clockwork.NewRealClock(), nil, nil)

	conn := srv.dial(t, "g1", "alice")

	send(t, conn, ClientMessage{Type: "start_game"})

	f := expect(t, conn, "error")
	assert.Equal(t, "not_found", f.str("code"))
}

func TestJoinAndStart(t *testing.T) {
	rl := &recordingRelay{}
	srv := newTestServer(t, clockwork.NewRealClock(), rl, nil)

	alice := srv.dial(t, "g1", "alice")
	bob := srv.dial(t, "g1", "bob")

	p := join(t, alice, "Alice")
	assert.Equal(t, "Alice", p.str("name"))
	assert.NotEmpty(t, p.str("id"))

	expect(t, alice, "sub_step_info")

	join(t, bob, "Bob")

	st := srv.state(t, "g1")
	require.Len(t, st.Players, 2)
	assert.Equal(t, "Alice", st.Players[0].Name)
	assert.Equal(t, "Bob", st.Players[1].Name)

	send(t, alice, ClientMessage{Type: "start_game"})

	started := expect(t, bob, "game_started").obj("data")
	assert.EqualValues(t, 2, started["totalPlayers"])

	expect(t, alice, "game_started")
	expect(t, alice, "category_selection_start")

	assert.Equal(t, lieability.PhaseCategorySelection, srv.state(t, "g1").Phase)
	assert.True(t, rl.seen(lieability.EventGameStarted))
	assert.True(t, rl.seen(lieability.EventPlayerJoined))
}

func TestJoinErrorsOnlyReachTheSender(t *testing.T) {
	srv := newTestServer(t, clockwork.NewRealClock(), nil, nil)

	alice := srv.dial(t, "g1", "alice")
	bob := srv.dial(t, "g1", "bob")

	join(t, alice, "Alice")

	send(t, bob, ClientMessage{Type: "join", PlayerName: "ALICE"})
	assert.Equal(t, "name_taken", expect(t, bob, "error").str("code"))

	send(t, bob, ClientMessage{Type: "join", PlayerName: "B"})
	assert.Equal(t, "invalid_input", expect(t, bob, "error").str("code"))

	refute(t, alice, "error", 200*time.Millisecond)
}

func TestReconnectKeepsParticipant(t *testing.T) {
	srv := newTestServer(t, clockwork.NewRealClock(), nil, nil)

	alice := srv.dial(t, "g1", "alice")
	bob := srv.dial(t, "g1", "bob")

	id := join(t, alice, "Alice").str("id")
	join(t, bob, "Bob")

	require.NoError(t, alice.Close())

	require.Eventually(t, func() bool {
		return srv.state(t, "g1").Players[0].Status == lieability.StatusDisconnected
	}, waitFor, 10*time.Millisecond)

	expect(t, bob, "game_state_update")

	again := srv.dial(t, "g1", "alice")

	f := expect(t, again, "joined")
	assert.Equal(t, true, f["reconnected"])
	assert.Equal(t, id, f.obj("player").str("id"))

	st := srv.state(t, "g1")
	require.Len(t, st.Players, 2)
	assert.Equal(t, lieability.StatusConnected, st.Players[0].Status)

	view := expect(t, again, "sub_step_info").obj("data")
	assert.Equal(t, id, view.str("playerId"))
}

func TestDisconnectedPlayersAreRemovedAfterTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	srv := newTestServer(t, clock, nil, func(cfg *Config) {
		cfg.playerTimeout = time.Minute
	})

	alice := srv.dial(t, "g1", "alice")
	bob := srv.dial(t, "g1", "bob")

	join(t, alice, "Alice")
	join(t, bob, "Bob")

	require.NoError(t, alice.Close())

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(time.Minute)

	left := expect(t, bob, "player_left").obj("data")
	assert.Equal(t, "Alice", left.str("playerName"))

	require.Eventually(t, func() bool {
		return len(srv.state(t, "g1").Players) == 1
	}, waitFor, 10*time.Millisecond)

	again := srv.dial(t, "g1", "alice")
	expect(t, again, "host_sub_step_info")
}

func TestLeaveGameUnbindsCookie(t *testing.T) {
	srv := newTestServer(t, clockwork.NewRealClock(), nil, nil)

	alice := srv.dial(t, "g1", "alice")
	join(t, alice, "Alice")

	send(t, alice, ClientMessage{Type: "leave_game"})
	expect(t, alice, "left_game")

	assert.Empty(t, srv.state(t, "g1").Players)

	send(t, alice, ClientMessage{Type: "update_name", Name: "Alicia"})
	assert.Equal(t, "not_found", expect(t, alice, "error").str("code"))
}

func TestLobbyCustomisation(t *testing.T) {
	srv := newTestServer(t, clockwork.NewRealClock(), nil, nil)

	alice := srv.dial(t, "g1", "alice")
	id := join(t, alice, "Alice").str("id")

	send(t, alice, ClientMessage{Type: "update_avatar", Emoji: "🦊", Color: "#123ABC"})
	avatar := expect(t, alice, "player_avatar_updated").obj("data")
	assert.Equal(t, id, avatar.str("playerId"))

	send(t, alice, ClientMessage{Type: "update_name", Name: "Alicia"})
	expect(t, alice, "player_name_updated")

	send(t, alice, ClientMessage{Type: "change_question_pack", PackName: "no such pack"})
	assert.Equal(t, "not_found", expect(t, alice, "error").str("code"))

	st := srv.state(t, "g1")
	require.Len(t, st.Players, 1)
	assert.Equal(t, "Alicia", st.Players[0].Name)
	assert.Equal(t, "#123ABC", st.Players[0].Avatar.Color)
}

func TestHTTPRoutes(t *testing.T) {
	srv := newTestServer(t, clockwork.NewRealClock(), nil, nil)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	t.Run("new game redirects", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/lieability")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

		loc := resp.Header.Get("Location")
		require.True(t, strings.HasPrefix(loc, "/lieability/"))
		assert.Len(t, strings.TrimPrefix(loc, "/lieability/"), 8)
	})

	t.Run("join info sets cookie", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/lieability/abc")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var info JoinInfo
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
		assert.Equal(t, "/lieability/abc/ws", info.WebSocket)

		var found bool
		for _, c := range resp.Cookies() {
			found = found || (c.Name == playerCookieName && c.Value != "")
		}
		assert.True(t, found)
	})

	t.Run("unknown game state", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/lieability/missing/state")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("game id with subject separators", func(t *testing.T) {
		for _, id := range []string{"abc.def", "abc*", "abc%3E"} {
			resp, err := client.Get(srv.URL + "/lieability/" + id)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, id)
		}
	})

	t.Run("qr code", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/lieability/abc/qr")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	})

	t.Run("packs", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/packs")
		require.NoError(t, err)
		defer resp.Body.Close()

		var list PackList
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		assert.Contains(t, list.Packs, list.Default)
	})

	t.Run("health", func(t *testing.T) {
		srv.dial(t, "h1", "someone")

		require.Eventually(t, func() bool {
			_, connections := srv.gm.stats()
			return connections == 1
		}, waitFor, 10*time.Millisecond)

		resp, err := client.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		var h HealthStatus
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
		assert.Equal(t, "ok", h.Status)
		assert.Equal(t, 1, h.Games)
		assert.Equal(t, 1, h.Connections)
	})
}

func TestReaperEndsIdleGames(t *testing.T) {
	clock := clockwork.NewFakeClock()
	srv := newTestServer(t, clock, nil, func(cfg *Config) {
		cfg.sessionTimeout = time.Hour
	})

	hub, err := srv.gm.getHub("idle")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(time.Hour)
	clock.Advance(time.Hour)

	require.Eventually(t, func() bool {
		_, ok := srv.gm.lookup("idle")
		return !ok
	}, waitFor, 10*time.Millisecond)

	select {
	case <-hub.session.Done():
	case <-time.After(waitFor):
		t.Fatal("session still running after reap")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{lieability.ErrPhaseMismatch, "phase_mismatch"},
		{fmt.Errorf("%w: wrong actor", lieability.ErrUnauthorized), "unauthorized"},
		{lieability.ErrNameTaken, "name_taken"},
		{lieability.ErrCapacityExceeded, "capacity_exceeded"},
		{lieability.ErrNotReady, "not_ready"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, errorCode(tt.err), tt.err.Error())
	}
}

func TestValidGameID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"g1", true},
		{"Ab3dEf7H", true},
		{strings.Repeat("a", maxGameIDLength), true},
		{"", false},
		{strings.Repeat("a", maxGameIDLength+1), false},
		{"abc.def", false},
		{"abc.*", false},
		{"abc.>", false},
		{"abc def", false},
		{"abc-def", false},
		{"äbc", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, validGameID(tt.id), tt.id)
	}

	gm := &GameManager{hubs: make(map[string]*Hub)}
	for range 50 {
		id := gm.newGameID()
		assert.True(t, validGameID(id), id)
	}
}

func TestOriginAllowed(t *testing.T) {
	open := &Config{}
	assert.True(t, originAllowed(open, "https://anywhere.example"))

	locked := &Config{corsOrigins: []string{"https://party.example"}}
	assert.True(t, originAllowed(locked, "https://PARTY.example"))
	assert.True(t, originAllowed(locked, ""))
	assert.False(t, originAllowed(locked, "https://evil.example"))
}
