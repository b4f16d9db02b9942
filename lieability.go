// Lie-Ability websocket front end
//
// Every game ID gets a Hub owning one lieability.Session actor. The hub
// turns client frames into session calls and delivers the session's events
// back out over each client's websocket.
//
// Routes:
//   - $path                  → redirects to a new random game (8-char ID)
//   - $path/:gameid          → join info for that game, sets the player cookie
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
//   - $path/:gameid/state    → public game state as JSON
//
// Players are identified by cookie. A cookie bound to a participant rejoins
// it on reconnect; a participant with no open socket is marked disconnected
// and removed after --player-timeout.

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/lieability/games/lieability"
	"github.com/Seednode/lieability/games/questions"
)

const (
	playerCookieName = "lieability_id"
	maxGameIDLength  = 32
	clientBuffer     = 64
	callTimeout      = 5 * time.Second
)

// Messages coming from clients
type ClientMessage struct {
	Type          string `json:"type"`
	PlayerName    string `json:"playerName,omitempty"`    // join
	CategoryID    *int   `json:"categoryId,omitempty"`    // select_category
	Lie           string `json:"lie,omitempty"`           // submit_lie
	OptionID      string `json:"optionId,omitempty"`      // select_option
	LikedPlayerID string `json:"likedPlayerId,omitempty"` // like_lie
	Emoji         string `json:"emoji,omitempty"`         // update_avatar
	Color         string `json:"color,omitempty"`         // update_avatar
	Name          string `json:"name,omitempty"`          // update_name
	PackName      string `json:"packName,omitempty"`      // change_question_pack
}

// SimpleMessage is for acknowledgements and errors sent to one client.
type SimpleMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// JoinedMessage tells a client which participant it now controls.
type JoinedMessage struct {
	Type        string            `json:"type"` // "joined"
	Player      lieability.Player `json:"player"`
	Reconnected bool              `json:"reconnected"`
}

// JoinInfo is returned by GET $path/:gameid.
type JoinInfo struct {
	GameID    string `json:"gameId"`
	WebSocket string `json:"websocket"`
	QRCode    string `json:"qrCode"`
	State     string `json:"state"`
}

// eventRelay mirrors broadcast events somewhere outside the process.
type eventRelay interface {
	Publish(gameID string, ev lieability.Event)
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	cookieID string
	playerID string // guarded by Hub.mu
}

type Hub struct {
	id            string
	session       *lieability.Session
	cancel        context.CancelFunc
	relay         eventRelay
	clock         clockwork.Clock
	playerTimeout time.Duration
	log           zerolog.Logger

	mu       sync.RWMutex
	clients  map[*Client]bool
	bindings map[string]string          // cookie -> participant id
	removals map[string]clockwork.Timer // participant id -> pending removal

	createdAt  time.Time
	lastActive time.Time
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = h.clock.Now()
	h.mu.Unlock()
}

// Broadcast implements lieability.Broadcaster.
func (h *Hub) Broadcast(ev lieability.Event) {
	h.mu.Lock()
	for c := range h.clients {
		h.sendLocked(c, ev)
	}
	h.mu.Unlock()

	if h.relay != nil {
		h.relay.Publish(h.id, ev)
	}
}

// SendTo implements lieability.Broadcaster.
func (h *Hub) SendTo(playerID string, ev lieability.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.playerID == playerID {
			h.sendLocked(c, ev)
		}
	}
}

// sendLocked never blocks. A client too slow to drain its buffer is dropped.
func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn().Str("player_id", c.playerID).Msg("Dropping slow client")
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) send(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c] {
		h.sendLocked(c, msg)
	}
}

func (h *Hub) sendError(c *Client, err error) {
	h.send(c, SimpleMessage{
		Type:    string(lieability.EventError),
		Code:    errorCode(err),
		Message: err.Error(),
	})
}

func (h *Hub) playerFor(c *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return c.playerID
}

// bind ties every socket holding c's cookie to participant id.
func (h *Hub) bind(c *Client, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.bindings[c.cookieID] = id
	for other := range h.clients {
		if other.cookieID == c.cookieID {
			other.playerID = id
		}
	}
	c.playerID = id

	h.cancelRemovalLocked(id)
}

func (h *Hub) unbind(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for cookie, bound := range h.bindings {
		if bound == id {
			delete(h.bindings, cookie)
		}
	}
	for c := range h.clients {
		if c.playerID == id {
			c.playerID = ""
		}
	}

	h.cancelRemovalLocked(id)
}

func (h *Hub) cancelRemovalLocked(id string) {
	if t, ok := h.removals[id]; ok {
		t.Stop()
		delete(h.removals, id)
	}
}

func (h *Hub) register(ctx context.Context, c *Client) {
	h.mu.Lock()
	h.lastActive = h.clock.Now()
	h.clients[c] = true
	c.playerID = h.bindings[c.cookieID]
	pid := c.playerID
	h.cancelRemovalLocked(pid)
	h.mu.Unlock()

	if pid != "" {
		if !h.session.Reconnect(ctx, pid) {
			h.unbind(pid)
		} else if p, ok := h.player(ctx, pid); ok {
			h.send(c, JoinedMessage{Type: "joined", Player: p, Reconnected: true})
		}
	}

	h.sendState(ctx, c)
}

func (h *Hub) unregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	h.lastActive = h.clock.Now()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}

	pid := c.playerID
	still := false
	for other := range h.clients {
		if other.playerID == pid {
			still = true
			break
		}
	}
	h.mu.Unlock()

	if pid == "" || still {
		return
	}

	if h.session.Disconnect(ctx, pid) {
		h.scheduleRemoval(pid)
	}
}

// scheduleRemoval removes participant id once the player timeout passes
// without any socket rebinding it.
func (h *Hub) scheduleRemoval(id string) {
	if h.playerTimeout <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cancelRemovalLocked(id)
	h.removals[id] = h.clock.AfterFunc(h.playerTimeout, func() {
		h.mu.Lock()
		if _, pending := h.removals[id]; !pending {
			h.mu.Unlock()
			return
		}
		delete(h.removals, id)
		for c := range h.clients {
			if c.playerID == id {
				h.mu.Unlock()
				return
			}
		}
		h.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		err := h.session.Leave(ctx, id)
		switch {
		case err == nil:
			h.log.Info().Str("player_id", id).Msg("Removed disconnected player")
		case errors.Is(err, lieability.ErrNotFound), errors.Is(err, lieability.ErrClosed):
		default:
			h.log.Warn().Err(err).Str("player_id", id).Msg("Failed to remove disconnected player")
		}

		h.unbind(id)
	})
}

func (h *Hub) player(ctx context.Context, id string) (lieability.Player, bool) {
	st, err := h.session.Snapshot(ctx)
	if err != nil {
		return lieability.Player{}, false
	}

	i := slices.IndexFunc(st.Players, func(p lieability.Player) bool { return p.ID == id })
	if i < 0 {
		return lieability.Player{}, false
	}

	return st.Players[i], true
}

// sendState gives one client the public state and, if it controls a
// participant, that participant's view.
func (h *Hub) sendState(ctx context.Context, c *Client) {
	st, err := h.session.Snapshot(ctx)
	if err != nil {
		h.sendError(c, err)
		return
	}
	h.send(c, lieability.Event{Type: lieability.EventGameStateUpdate, Data: st})

	pid := h.playerFor(c)

	kind := lieability.EventSubStepInfo
	if pid == "" {
		kind = lieability.EventHostSubStepInfo
	}

	view, err := h.session.View(ctx, pid)
	if err != nil {
		return
	}
	h.send(c, lieability.Event{Type: kind, Data: view})
}

// handle runs one client frame against the session.
func (h *Hub) handle(ctx context.Context, c *Client, msg ClientMessage) {
	h.touch()

	pid := h.playerFor(c)

	if msg.Type != "join" && msg.Type != "request_game_state" && pid == "" {
		if msg.Type != "" {
			h.sendError(c, fmt.Errorf("%w: join the game first", lieability.ErrNotFound))
		}
		return
	}

	var err error

	switch msg.Type {
	case "join":
		h.handleJoin(ctx, c, pid, msg)

	case "leave_game":
		if err = h.session.Leave(ctx, pid); err == nil {
			h.unbind(pid)
			h.send(c, SimpleMessage{Type: "left_game", Message: "You have left the game."})
		}

	case "start_game":
		err = h.session.Start(ctx)

	case "select_category":
		if msg.CategoryID == nil {
			err = fmt.Errorf("%w: missing category", lieability.ErrInvalidInput)
			break
		}
		err = h.session.ChooseCategory(ctx, pid, *msg.CategoryID)

	case "submit_lie":
		if err = h.session.SubmitLie(ctx, pid, msg.Lie); err == nil {
			h.send(c, SimpleMessage{Type: "lie_submitted", Message: msg.Lie})
		}

	case "auto_lie":
		var lie string
		if lie, err = h.session.SubmitAutoLie(ctx, pid); err == nil {
			h.send(c, SimpleMessage{Type: "lie_submitted", Message: lie})
		}

	case "select_option":
		if err = h.session.CastVote(ctx, pid, msg.OptionID); err == nil {
			h.send(c, SimpleMessage{Type: "option_selected", Message: msg.OptionID})
		}

	case "like_lie":
		err = h.session.Like(ctx, pid, msg.LikedPlayerID)

	case "update_avatar":
		err = h.session.UpdateAvatar(ctx, pid, msg.Emoji, msg.Color)

	case "update_name":
		err = h.session.Rename(ctx, pid, msg.Name)

	case "change_question_pack":
		err = h.session.ChangePack(ctx, msg.PackName)

	case "request_game_state":
		h.sendState(ctx, c)

	default:
		// ignore unknown types
	}

	if err != nil {
		h.log.Debug().Err(err).Str("player_id", pid).Str("type", msg.Type).Msg("Rejected client message")
		h.sendError(c, err)
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, pid string, msg ClientMessage) {
	if pid != "" {
		if h.session.Reconnect(ctx, pid) {
			if p, ok := h.player(ctx, pid); ok {
				h.send(c, JoinedMessage{Type: "joined", Player: p, Reconnected: true})
			}
			h.sendState(ctx, c)
			return
		}
		h.unbind(pid)
	}

	p, err := h.session.Join(ctx, msg.PlayerName)
	if err != nil {
		h.sendError(c, err)
		return
	}

	h.bind(c, p.ID)
	h.log.Info().Str("player_id", p.ID).Str("name", p.Name).Msg("Player joined")

	h.send(c, JoinedMessage{Type: "joined", Player: p})
	h.sendState(ctx, c)
}

// close ends the session and disconnects all clients of this hub.
func (h *Hub) close() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id := range h.removals {
		h.cancelRemovalLocked(id)
	}

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// errorCode is the machine-readable name of a session error.
func errorCode(err error) string {
	switch {
	case errors.Is(err, lieability.ErrPhaseMismatch):
		return "phase_mismatch"
	case errors.Is(err, lieability.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, lieability.ErrNotFound):
		return "not_found"
	case errors.Is(err, lieability.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, lieability.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, lieability.ErrNameTaken):
		return "name_taken"
	case errors.Is(err, lieability.ErrNotReady):
		return "not_ready"
	case errors.Is(err, lieability.ErrClosed):
		return "closed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}

	return "internal"
}

func newUpgrader(cfg *Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(cfg, r.Header.Get("Origin"))
		},
	}
}

func originAllowed(cfg *Config, origin string) bool {
	if len(cfg.corsOrigins) == 0 || origin == "" {
		return true
	}

	return slices.ContainsFunc(cfg.corsOrigins, func(o string) bool {
		return o == "*" || strings.EqualFold(o, origin)
	})
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Error().Err(err).Msg("Failed to generate player cookie")
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	mu   sync.Mutex
	hubs map[string]*Hub

	ctx           context.Context
	idleTimeout   time.Duration
	playerTimeout time.Duration
	rules         lieability.Rules
	packs         map[string]lieability.QuestionSource
	defaultPack   string
	relay         eventRelay
	clock         clockwork.Clock
}

func newGameManager(ctx context.Context, cfg *Config, lib *questions.Library, relay eventRelay, clock clockwork.Clock) (*GameManager, error) {
	def, err := lib.Default(cfg.pack)
	if err != nil {
		return nil, err
	}

	packs := make(map[string]lieability.QuestionSource)
	for _, name := range lib.Names() {
		p, _ := lib.Pack(name)
		packs[name] = p
	}

	gm := &GameManager{
		hubs:          make(map[string]*Hub),
		ctx:           ctx,
		idleTimeout:   cfg.sessionTimeout,
		playerTimeout: cfg.playerTimeout,
		rules:         cfg.rules(),
		packs:         packs,
		defaultPack:   def.Name,
		relay:         relay,
		clock:         clock,
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop(ctx)
	}

	return gm, nil
}

func (gm *GameManager) lookup(gameID string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]

	return hub, ok
}

func (gm *GameManager) getHub(gameID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	logger := log.With().Str("game_id", gameID).Logger()
	now := gm.clock.Now()

	hub := &Hub{
		id:            gameID,
		relay:         gm.relay,
		clock:         gm.clock,
		playerTimeout: gm.playerTimeout,
		log:           logger,
		clients:       make(map[*Client]bool),
		bindings:      make(map[string]string),
		removals:      make(map[string]clockwork.Timer),
		createdAt:     now,
		lastActive:    now,
	}

	session, err := lieability.New(gameID, gm.rules, hub, lieability.Settings{
		Clock:       gm.clock,
		Logger:      &logger,
		Packs:       gm.packs,
		DefaultPack: gm.defaultPack,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(gm.ctx)
	hub.session = session
	hub.cancel = cancel
	gm.hubs[gameID] = hub

	go func() {
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Session stopped")
		}
	}()
	<-session.Ready()

	logger.Info().Msg("Created game")

	return hub, nil
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		if _, exists := gm.lookup(id); !exists {
			return id
		}
	}
}

// reaperLoop periodically ends hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop(ctx context.Context) {
	ticker := gm.clock.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		cutoff := gm.clock.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for id, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, id)
				hub.log.Info().Msg("Reaped idle game")
				go hub.close()
			}
		}
		gm.mu.Unlock()
	}
}

// stats reports the number of live games and open sockets.
func (gm *GameManager) stats() (games, connections int) {
	gm.mu.Lock()
	hubs := make([]*Hub, 0, len(gm.hubs))
	for _, hub := range gm.hubs {
		hubs = append(hubs, hub)
	}
	gm.mu.Unlock()

	for _, hub := range hubs {
		connections += hub.connections()
	}

	return len(hubs), connections
}

func (gm *GameManager) closeAll() {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.close()
	}
}

// validGameID accepts a bounded run of ASCII letters and digits. Game IDs
// become a single NATS subject token, so separators and wildcards are out.
func validGameID(id string) bool {
	if id == "" || len(id) > maxGameIDLength {
		return false
	}

	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}

	return true
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	upgrader := newUpgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		cookieID := getOrSetPlayerID(w, r)
		if cookieID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub, err := gm.getHub(gameID)
		if err != nil {
			log.Error().Err(err).Str("game_id", gameID).Msg("Failed to create game")
			http.Error(w, "unable to create game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			log.Debug().Err(err).Str("ip", realIP(r)).Msg("Websocket upgrade failed")
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, clientBuffer),
			cookieID: cookieID,
		}

		go client.writePump()
		client.readPump(r.Context(), hub)
	}
}

func (c *Client) readPump(ctx context.Context, h *Hub) {
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), callTimeout)
		defer cancel()

		h.unregister(ctx, c)
		_ = c.conn.Close()
	}()

	call := func(fn func(context.Context)) {
		ctx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		fn(ctx)
	}

	call(func(ctx context.Context) { h.register(ctx, c) })

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		call(func(ctx context.Context) { h.handle(ctx, c, msg) })
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func requestScheme(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validGameID(ps.ByName("gameid")) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := requestScheme(r) + "://" + r.Host + path

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		securityHeaders(cfg, w)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func serveJoinInfo(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		_ = getOrSetPlayerID(w, r)

		base := cfg.prefix + path + "/" + gameID

		writeJSON(cfg, w, http.StatusOK, JoinInfo{
			GameID:    gameID,
			WebSocket: base + "/ws",
			QRCode:    base + "/qr",
			State:     base + "/state",
		})
	}
}

func serveGameState(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := gm.lookup(ps.ByName("gameid"))
		if !ok {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
		defer cancel()

		st, err := hub.session.Snapshot(ctx)
		if err != nil {
			http.Error(w, "game unavailable", http.StatusServiceUnavailable)
			return
		}

		writeJSON(cfg, w, http.StatusOK, st)
	}
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	securityHeaders(cfg, w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		log.Debug().Str("ip", realIP(r)).Str("game_id", gameID).Msg("Assigned new game")
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

func registerLieAbility(cfg *Config, path string, mux *httprouter.Router, gm *GameManager) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", serveJoinInfo(cfg, path))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))

	mux.GET(cfg.prefix+path+"/:gameid/state", serveGameState(cfg, gm))
}
