package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"yiyi-hq/gateway/pkg/chat"
	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/telemetry/logging"
	"yiyi-hq/gateway/pkg/telemetry/metrics"
)

// Frame directions used in metrics.
const (
	directionIn  = "in"
	directionOut = "out"
)

var errConnClosed = errors.New("connection closed")

// Chatter runs chat turns. *chat.Service implements it.
type Chatter interface {
	Chat(ctx context.Context, turn chat.Turn) (<-chan chat.Event, error)
	DeleteSession(id string)
}

// WebSocketOptions configures a WebSocketHandler.
type WebSocketOptions struct {
	// Config supplies the gateway settings for new connections. Defaults
	// to config.GetConfig.
	Config func() *config.Config

	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// WebSocketHandler upgrades requests to WebSocket and runs the relay
// protocol on each connection. Every connection owns one session whose ID
// is generated at upgrade and discarded when the connection closes.
//
// Origins are not checked; the gateway has no authentication and binds to
// localhost by default.
type WebSocketHandler struct {
	service  Chatter
	config   func() *config.Config
	metrics  *metrics.Collector
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*relayConn]struct{}
	wg    sync.WaitGroup
}

// NewWebSocketHandler creates the relay handler.
func NewWebSocketHandler(service Chatter, opts WebSocketOptions) *WebSocketHandler {
	h := &WebSocketHandler{
		service: service,
		config:  opts.Config,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*relayConn]struct{}),
	}
	if h.config == nil {
		h.config = config.GetConfig
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "relay")
	return h
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	rc := newRelayConn(r.Context(), conn, h.service, gatewaySettings(h.config()), h.metrics, h.logger)

	h.mu.Lock()
	h.conns[rc] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, rc)
		h.mu.Unlock()
		h.wg.Done()
	}()

	rc.serve()
}

// ActiveConnections returns the number of open relay connections.
func (h *WebSocketHandler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown sends a going-away close frame to every connection and waits
// for them to finish cleanup or for ctx to end.
func (h *WebSocketHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	for rc := range h.conns {
		rc.shutdown()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settings are the per-connection limits read at upgrade time.
type settings struct {
	maxMessageBytes int64
	pingInterval    time.Duration
	writeTimeout    time.Duration
	framesPerSecond float64
	frameBurst      int
}

func gatewaySettings(cfg *config.Config) settings {
	s := settings{
		maxMessageBytes: config.DefaultMaxMessageBytes,
		pingInterval:    config.DefaultPingInterval,
		writeTimeout:    config.DefaultWriteTimeout,
		framesPerSecond: config.DefaultFramesPerSecond,
		frameBurst:      config.DefaultFrameBurst,
	}
	if cfg == nil {
		return s
	}

	g := cfg.Gateway
	if g.MaxMessageBytes > 0 {
		s.maxMessageBytes = g.MaxMessageBytes
	}
	if g.PingInterval > 0 {
		s.pingInterval = g.PingInterval
	}
	if g.WriteTimeout > 0 {
		s.writeTimeout = g.WriteTimeout
	}
	if g.FramesPerSecond > 0 {
		s.framesPerSecond = g.FramesPerSecond
	}
	if g.FrameBurst > 0 {
		s.frameBurst = g.FrameBurst
	}
	return s
}

// relayConn is one client connection and its session.
type relayConn struct {
	conn      *websocket.Conn
	service   Chatter
	settings  settings
	sessionID string
	started   time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// writeMu serializes frame writes; closed is guarded by it
	writeMu sync.Mutex
	closed  bool

	turns   sync.WaitGroup
	limiter *rate.Limiter
	metrics *metrics.Collector
	logger  *slog.Logger
}

func newRelayConn(parent context.Context, conn *websocket.Conn, service Chatter, s settings, m *metrics.Collector, logger *slog.Logger) *relayConn {
	sessionID := uuid.NewString()

	ctx, cancel := context.WithCancel(parent)
	ctx = logging.WithConnectionID(ctx, sessionID)
	ctx = logging.WithSessionID(ctx, sessionID)

	return &relayConn{
		conn:      conn,
		service:   service,
		settings:  s,
		sessionID: sessionID,
		started:   time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		limiter:   rate.NewLimiter(rate.Limit(s.framesPerSecond), s.frameBurst),
		metrics:   m,
		logger:    logger.With("session_id", sessionID),
	}
}

func (c *relayConn) serve() {
	c.metrics.ConnectionOpened()
	c.logger.InfoContext(c.ctx, "connection opened", "remote_addr", c.conn.RemoteAddr().String())

	pongWait := 2 * c.settings.pingInterval
	c.conn.SetReadLimit(c.settings.maxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.keepalive()
	c.readLoop(pongWait)
	c.close()
}

func (c *relayConn) readLoop(pongWait time.Duration) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.WarnContext(c.ctx, "connection read failed", "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		frame, err := parseClientFrame(data)
		if err != nil {
			c.metrics.RecordFrame(directionIn, "invalid")
			c.logger.DebugContext(c.ctx, "invalid client frame", "error", err)
			c.writeFrame(errorFrame(UnknownRequestID, &chat.ErrorPayload{
				Code:    chat.CodeInvalidRequest,
				Message: err.Error(),
			}))
			continue
		}

		// over-limit requests still terminate under their own id
		if !c.limiter.Allow() {
			c.metrics.RecordFrame(directionIn, "rejected")
			c.logger.DebugContext(c.ctx, "client frame rejected by rate limit", "request", frame.ID)
			c.writeFrame(errorFrame(frame.ID, &chat.ErrorPayload{
				Code:    chat.CodeInvalidRequest,
				Message: "too many frames, slow down",
			}))
			continue
		}
		c.metrics.RecordFrame(directionIn, frame.Type)

		c.turns.Add(1)
		go c.runTurn(frame)
	}
}

// runTurn relays one request's events, tagged with its id.
func (c *relayConn) runTurn(frame *ClientFrame) {
	defer c.turns.Done()

	ctx := logging.WithRequestID(c.ctx, frame.ID)
	events, err := c.service.Chat(ctx, chat.Turn{SessionID: c.sessionID, Content: frame.Content})
	if err != nil {
		c.logger.WarnContext(ctx, "chat turn rejected", "request", frame.ID, "error", err)
		c.writeFrame(errorFrame(frame.ID, chat.ToErrorPayload(err)))
		return
	}

	// drained to the end even after close so the turn can finish
	for ev := range events {
		_ = c.writeFrame(eventFrame(frame.ID, ev))
	}
}

func (c *relayConn) keepalive() {
	ticker := time.NewTicker(c.settings.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(c.settings.writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.DebugContext(c.ctx, "ping failed", "error", err)
				_ = c.conn.Close()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// writeFrame sends one frame. Frames written after close are dropped.
func (c *relayConn) writeFrame(frame ServerFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return errConnClosed
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.settings.writeTimeout))
	if err := c.conn.WriteJSON(frame); err != nil {
		c.logger.DebugContext(c.ctx, "frame write failed", "type", frame.Type, "error", err)
		c.closed = true
		c.cancel()
		_ = c.conn.Close()
		return err
	}
	c.metrics.RecordFrame(directionOut, frame.Type)
	return nil
}

// shutdown asks the client to go away; the read loop then ends.
func (c *relayConn) shutdown() {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		_ = c.conn.Close()
	}
	// unblock the read loop if the client never answers
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
}

// close cancels in-flight turns, waits for them, and discards the session.
func (c *relayConn) close() {
	c.cancel()

	c.writeMu.Lock()
	c.closed = true
	c.writeMu.Unlock()

	c.turns.Wait()
	c.service.DeleteSession(c.sessionID)
	_ = c.conn.Close()

	duration := time.Since(c.started)
	c.metrics.ConnectionClosed(duration)
	c.logger.InfoContext(c.ctx, "connection closed", "duration_ms", duration.Milliseconds())
}
