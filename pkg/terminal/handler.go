// Package terminal serves the BASIC interpreter to remote terminals over
// WebSocket. Each connection gets its own interpreter.
package terminal

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/antibyte/c64basic/pkg/auth"
	"github.com/antibyte/c64basic/pkg/basic"
	"github.com/antibyte/c64basic/pkg/configuration"
	"github.com/antibyte/c64basic/pkg/logger"
	"github.com/antibyte/c64basic/pkg/resources"

	"github.com/gorilla/websocket"
)

// Config holds the [Network] settings of the WebSocket endpoint.
type Config struct {
	WriteWait         time.Duration
	PongWait          time.Duration
	MaxMessageSize    int64
	SendBuffer        int
	MaxInputLength    int
	MaxConnsPerMinute int
	AllowedOrigins    []string
}

// PingPeriod is how often the server pings; it must stay below PongWait.
func (c Config) PingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// ConfigFromSettings reads [Network].
func ConfigFromSettings() Config {
	var origins []string
	for _, o := range strings.Split(configuration.GetString("Network", "allowed_origins", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		WriteWait:         configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second),
		PongWait:          configuration.GetDuration("Network", "pong_timeout", 60*time.Second),
		MaxMessageSize:    int64(configuration.GetInt("Network", "max_message_size_kb", 16) * 1024),
		SendBuffer:        configuration.GetInt("Network", "max_channel_buffer", 256),
		MaxInputLength:    configuration.GetInt("Network", "max_input_length", 255),
		MaxConnsPerMinute: configuration.GetInt("Network", "max_connections_per_minute", 30),
		AllowedOrigins:    origins,
	}
}

// StoreFactory returns the program store of one session owner.
type StoreFactory func(owner string) basic.Persistence

// Handler verwaltet WebSocket-Verbindungen und ihre Interpreter
type Handler struct {
	sessions *resources.SessionManager
	stores   StoreFactory
	opts     basic.Options
	cfg      Config
	upgrader websocket.Upgrader
	limiter  *rateLimiter

	mu      sync.Mutex
	clients map[string]*Client // SessionID -> Client
}

// NewHandler creates the /ws handler. stores may be nil (LOAD/SAVE then fail).
func NewHandler(sessions *resources.SessionManager, stores StoreFactory, opts basic.Options, cfg Config) *Handler {
	h := &Handler{
		sessions: sessions,
		stores:   stores,
		opts:     opts,
		cfg:      cfg,
		limiter:  newRateLimiter(cfg.MaxConnsPerMinute, time.Minute),
		clients:  make(map[string]*Client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	sessions.OnRemove(h.disconnect)
	return h
}

// checkOrigin accepts clients without Origin (non-browser), configured
// origins and same-host origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	if strings.EqualFold(host, r.Host) {
		return true
	}
	logger.SecurityWarn("WebSocket request from disallowed origin rejected: %s", origin)
	return false
}

// ServeHTTP upgrades an authenticated request. Wrap it with
// auth.RequireSessionToken.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	claims, ok := auth.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.limiter.Allow(ip) {
		logger.SecurityWarn("Connection rate limit exceeded for %s", ip)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	// Token kann einen Server-Neustart überlebt haben
	session, err := h.sessions.Register(claims.SessionID, claims.Name, ip)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WebSocketWarn("WebSocket upgrade failed for %s: %v", ip, err)
		return
	}

	var store basic.Persistence
	if h.stores != nil {
		store = h.stores(session.Name)
	}
	client := newClient(h, conn, session, store)

	h.mu.Lock()
	old := h.clients[session.ID]
	h.clients[session.ID] = client
	h.mu.Unlock()
	if old != nil {
		logger.WebSocketInfo("Replacing connection of session %s", session.ID)
		old.close()
	}

	logger.WebSocketInfo("Client connected: %s (session %s, %s)", ip, session.ID, session.Name)
	client.start()
}

// disconnect closes the connection of a removed session.
func (h *Handler) disconnect(sessionID string) {
	h.mu.Lock()
	client := h.clients[sessionID]
	delete(h.clients, sessionID)
	h.mu.Unlock()
	if client != nil {
		client.close()
	}
}

// release forgets client if it is still the connection of its session.
func (h *Handler) release(client *Client) {
	h.mu.Lock()
	if h.clients[client.session.ID] == client {
		delete(h.clients, client.session.ID)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of open connections.
func (h *Handler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Handler) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// clientIP ermittelt die IP-Adresse des Clients
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}

// rateLimiter counts connection attempts per IP in fixed windows.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*rateEntry
}

type rateEntry struct {
	count int
	reset time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*rateEntry),
	}
}

// Allow records one attempt from ip. A limit <= 0 allows everything.
func (rl *rateLimiter) Allow(ip string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.entries[ip]
	if !ok || now.After(e.reset) {
		// abgelaufene Einträge gleich mit aufräumen
		for k, old := range rl.entries {
			if now.After(old.reset) {
				delete(rl.entries, k)
			}
		}
		e = &rateEntry{reset: now.Add(rl.window)}
		rl.entries[ip] = e
	}
	e.count++
	return e.count <= rl.limit
}
