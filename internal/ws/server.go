// Package ws serves the web widget. It upgrades HTTP connections to
// WebSocket, gives every connection its own chat session and widget loop,
// dispatches incoming frames to that widget and pushes every new view back.
package ws

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/cleanchat/cleanchat/internal/chat"
	"github.com/cleanchat/cleanchat/internal/metrics"
	"github.com/cleanchat/cleanchat/internal/moderation"
	"github.com/cleanchat/cleanchat/internal/protocol"
	"github.com/cleanchat/cleanchat/internal/session"
)

// MaxFrameBytes bounds a single client data message.
const MaxFrameBytes = 8192

var errPeerClosed = errors.New("ws: peer closed connection")

// ServerConfig holds tunable parameters for the WebSocket server.
type ServerConfig struct {
	ListenAddr     string          // address to listen on, e.g. ":8080"
	MaxConnections int             // hard cap on total connections
	ReadTimeout    time.Duration   // timeout for reading the upgrade request
	WriteTimeout   time.Duration   // timeout for WebSocket write operations
	Heartbeat      HeartbeatConfig // dead connection detection
	TimeFormat     string          // layout for message timestamps
	CallTimeout    time.Duration   // per moderation call, 0 for none
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:     ":8080",
		MaxConnections: 10000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		Heartbeat:      DefaultHeartbeatConfig(),
		TimeFormat:     chat.DefaultTimeFormat,
	}
}

// Registry records live sessions. *session.Store implements it.
type Registry interface {
	Create(ctx context.Context, sessionID string) error
	UpdateStatus(ctx context.Context, sessionID string, status session.Status, filtered int) error
	Delete(ctx context.Context, sessionID string) error
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry records sessions in r.
func WithRegistry(r Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithPage serves h on "/".
func WithPage(h http.Handler) Option {
	return func(s *Server) { s.page = h }
}

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// Server hosts one independent widget per WebSocket connection.
type Server struct {
	config     ServerConfig
	conns      *ConnectionManager
	classifier moderation.Classifier
	registry   Registry
	page       http.Handler
	dispatcher *MessageDispatcher
	log        zerolog.Logger
	handler    http.Handler
	httpServer *http.Server
	startedAt  time.Time // for uptime reporting

	ctx       context.Context // parent of every connection context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewServer creates a Server that moderates messages with classifier.
func NewServer(config ServerConfig, classifier moderation.Classifier, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:     config,
		conns:      NewConnectionManager(),
		classifier: classifier,
		log:        zerolog.Nop(),
		startedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "ws").Logger()

	s.dispatcher = NewMessageDispatcher(s.log)
	s.dispatcher.Register(protocol.TypeDraft, s.handleDraft)
	s.dispatcher.Register(protocol.TypeSend, s.handleSend)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", s.handlePage)
	s.handler = mux

	return s
}

// Handler returns the HTTP handler serving the page, /ws, /health and
// /metrics.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the heartbeat and blocks serving HTTP on the configured
// address until Shutdown is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "ws: listen %s", s.config.ListenAddr)
	}
	return s.Serve(ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadTimeout,
	}

	StartHeartbeat(s, s.config.Heartbeat)

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Int("max_conns", s.config.MaxConnections).
		Msg("server listening")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "ws: http server error")
	}
	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.page == nil {
		http.NotFound(w, r)
		return
	}
	s.page.ServeHTTP(w, r)
}

// handleUpgrade upgrades the request to a WebSocket, creates the session and
// its widget, and starts the widget loop and the read loop.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxConnections > 0 && s.conns.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.log.Debug().Err(err).Msg("upgrade failed")
		return
	}

	sessionID := uuid.NewString()
	ctx, cancel := context.WithCancel(s.ctx)
	c := &Connection{
		ID:           sessionID,
		Conn:         conn,
		CreatedAt:    time.Now(),
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: s.config.WriteTimeout,
	}
	c.Touch()

	log := s.log.With().Str("session", sessionID).Logger()
	c.widget = chat.NewWidget(
		chat.NewSession(chat.WithTimeFormat(s.config.TimeFormat)),
		s.classifier,
		s.viewSink(c, log),
		chat.WithLogger(log),
		chat.WithHooks(s.hooks(c, log)),
		chat.WithCallTimeout(s.config.CallTimeout),
	)

	s.conns.Add(c)
	metrics.Connections.Inc()

	if s.registry != nil {
		regCtx, regCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := s.registry.Create(regCtx, sessionID); err != nil {
			log.Warn().Err(err).Msg("registry create failed")
		}
		regCancel()
	}

	created, err := protocol.NewServerMessage(protocol.TypeSessionCreated, protocol.SessionCreatedMsg{
		SessionID:     sessionID,
		MaxDraftChars: chat.MaxDraftChars,
	})
	if err != nil {
		log.Error().Err(err).Msg("build session_created")
	} else if err := c.WriteMessage(created); err != nil {
		log.Debug().Err(err).Msg("send session_created")
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		_ = c.widget.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.readLoop(c)
	}()

	log.Info().Int("total", s.conns.Count()).Msg("new connection")
}

// readLoop reads frames until the connection fails or the client closes it.
// Control frames are answered here; data frames go to the dispatcher.
func (s *Server) readLoop(c *Connection) {
	defer s.RemoveConnection(c)

	control := func(hdr ws.Header, r io.Reader) error {
		return s.handleControl(c, hdr, r)
	}
	rd := &wsutil.Reader{
		Source:         c.Conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: control,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return
		}
		c.Touch()

		if hdr.OpCode.IsControl() {
			if err := control(hdr, rd); err != nil {
				return
			}
			continue
		}

		data, err := io.ReadAll(io.LimitReader(rd, MaxFrameBytes+1))
		if err != nil {
			return
		}
		if len(data) > MaxFrameBytes {
			if err := rd.Discard(); err != nil {
				return
			}
			sendError(s.log, c, protocol.CodeTooLarge, "message too large")
			continue
		}
		if len(data) == 0 {
			continue
		}

		s.dispatcher.Dispatch(c, data)
	}
}

func (s *Server) handleControl(c *Connection, hdr ws.Header, r io.Reader) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	switch hdr.OpCode {
	case ws.OpPing:
		return c.writeFrame(ws.NewPongFrame(payload))
	case ws.OpClose:
		_ = c.writeFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
		return errPeerClosed
	}
	return nil
}

func (s *Server) handleDraft(c *Connection, msg interface{}) {
	m := msg.(protocol.DraftMsg)
	s.post(c, chat.Input{Kind: chat.InputDraft, Text: m.Text})
}

func (s *Server) handleSend(c *Connection, msg interface{}) {
	m := msg.(protocol.SendMsg)
	in := chat.Input{Kind: chat.InputSend}
	if m.Text != nil {
		in.Text = *m.Text
		in.HasText = true
	}
	s.post(c, in)
}

func (s *Server) post(c *Connection, in chat.Input) {
	if err := c.widget.Post(c.ctx, in); err != nil {
		s.log.Debug().Err(err).Str("session", c.ID).Msg("input dropped")
	}
}

func (s *Server) viewSink(c *Connection, log zerolog.Logger) chat.Sink {
	return func(v chat.View) {
		data, err := protocol.NewView(v)
		if err != nil {
			log.Error().Err(err).Msg("build view")
			return
		}
		if err := c.WriteMessage(data); err != nil {
			log.Debug().Err(err).Msg("send view")
		}
	}
}

// hooks feed metrics and the registry. They run on the widget loop.
func (s *Server) hooks(c *Connection, log zerolog.Logger) chat.Hooks {
	filtered := 0
	return chat.Hooks{
		OnSubmit: func(chat.Ticket) {
			metrics.MessagesTotal.WithLabelValues(metrics.OutcomeSubmitted).Inc()
			s.updateStatus(c, log, session.StatusAwaiting, filtered)
		},
		OnReject: func(error) {
			metrics.MessagesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		},
		OnSettle: func(st chat.Settlement) {
			outcome := metrics.OutcomeClean
			switch {
			case st.Err != nil:
				outcome = metrics.OutcomeFailed
			case st.Verdict.Flagged:
				outcome = metrics.OutcomeFlagged
			}
			metrics.MessagesTotal.WithLabelValues(outcome).Inc()
			metrics.ModerationLatency.Observe(st.Took.Seconds())

			filtered = st.Filtered
			s.updateStatus(c, log, session.StatusIdle, filtered)
		},
	}
}

func (s *Server) updateStatus(c *Connection, log zerolog.Logger, status session.Status, filtered int) {
	if s.registry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.registry.UpdateStatus(ctx, c.ID, status, filtered); err != nil {
		log.Warn().Err(err).Msg("registry update failed")
	}
}

// handleHealth responds with the server's health status as JSON, including the
// current connection count and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Connections: s.conns.Count(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// RemoveConnection closes a connection, cancels its widget (and any in-flight
// moderation call) and deletes its registry entry. Repeated calls are no-ops.
func (s *Server) RemoveConnection(c *Connection) {
	if !s.conns.Remove(c.ID) {
		return
	}
	metrics.Connections.Dec()

	if s.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.registry.Delete(ctx, c.ID); err != nil {
			s.log.Warn().Err(err).Str("session", c.ID).Msg("registry delete failed")
		}
	}

	s.log.Info().Str("session", c.ID).Int("total", s.conns.Count()).Msg("connection closed")
}

// Connections returns the ConnectionManager.
func (s *Server) Connections() *ConnectionManager {
	return s.conns
}

// Shutdown stops the HTTP listener and the heartbeat, closes every connection
// and waits for their goroutines, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down server")

	s.closeOnce.Do(func() { close(s.done) })

	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = errors.Wrap(shutdownErr, "ws: http shutdown")
		}
	}

	for _, c := range s.conns.All() {
		s.RemoveConnection(c)
	}
	s.cancel()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		if err == nil {
			err = errors.Wrap(ctx.Err(), "ws: waiting for connections")
		}
	}

	s.log.Info().Msg("server stopped")
	return err
}
