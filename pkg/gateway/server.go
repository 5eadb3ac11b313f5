package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/internal/tracing"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/orchestrator"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Dispatcher routes a chat command into the orchestration pipeline.
type Dispatcher func(ctx context.Context, sessionID, userID, text string) orchestrator.Result

// Server bridges the orchestrator's progress bus to WebSocket observers.
// Each connected client follows one session's event feed; a client may also
// submit chat turns and receive the final result on the same connection.
type Server struct {
	port         int
	sharedSecret string
	server       *http.Server
	upgrader     websocket.Upgrader
	clients      *registry
	bus          *orchestrator.ProgressBus
	dispatcher   Dispatcher
	logger       zerolog.Logger

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlight       sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	Port         int
	SharedSecret string
	Bus          *orchestrator.ProgressBus
	Dispatcher   Dispatcher
	Logger       zerolog.Logger
}

// NewServer creates a gateway server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("progress bus is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	return &Server{
		port:         cfg.Port,
		sharedSecret: cfg.SharedSecret,
		clients:      newRegistry(),
		bus:          cfg.Bus,
		dispatcher:   cfg.Dispatcher,
		logger:       cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}, nil
}

// Start starts the gateway server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Int("port", s.port).Msg("Starting gateway server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Handler returns the gateway's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Stop gracefully stops the gateway server.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")

	// Wait for in-flight dispatches with timeout
	done := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.clients.each(func(client *Client) {
		client.unfollow()
		client.Conn.Close()
	})

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Gateway server stopped")
	return nil
}

// handleWebSocket upgrades the connection and starts the client's read loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShuttingDown {
		s.shutdownMu.RUnlock()
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.shutdownMu.RUnlock()

	if s.sharedSecret != "" {
		secret := r.Header.Get("X-Forge-Secret")
		if secret == "" {
			secret = r.URL.Query().Get("secret")
		}
		if secret != s.sharedSecret {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	client := &Client{
		ID:           clientID,
		Conn:         conn,
		ConnectedAt:  time.Now(),
		LastActivity: time.Now(),
		IPAddress:    r.RemoteAddr,
	}
	s.clients.add(client)

	s.logger.Info().
		Str("clientId", clientID).
		Str("ip", r.RemoteAddr).
		Msg("Client connected")

	go s.handleClient(client)
}

// handleClient reads commands from a client until the connection drops.
func (s *Server) handleClient(client *Client) {
	defer func() {
		client.unfollow()
		client.Conn.Close()
		s.clients.remove(client.ID)
		s.logger.Info().Str("clientId", client.ID).Msg("Client disconnected")
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Error().Err(err).Str("clientId", client.ID).Msg("WebSocket error")
			}
			return
		}

		s.clients.touch(client.ID)
		s.handleCommand(client, message)
	}
}

// handleCommand processes one client command.
func (s *Server) handleCommand(client *Client, message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.sendError(client, "malformed command")
		return
	}

	switch cmd.Type {
	case CmdSubscribe:
		s.handleSubscribe(client, cmd)
	case CmdUnsubscribe:
		client.unfollow()
	case CmdChat:
		s.handleChat(client, cmd)
	default:
		s.sendError(client, fmt.Sprintf("unknown command: %s", cmd.Type))
	}
}

// handleSubscribe attaches the client to a session's progress feed. A write
// failure on delivery drops the client.
func (s *Server) handleSubscribe(client *Client, cmd Command) {
	if cmd.SessionID == "" {
		s.sendError(client, "session_id is required")
		return
	}

	unsubscribe := s.bus.Subscribe(cmd.SessionID, func(ev orchestrator.Event) {
		if err := client.send(Frame{Type: FrameEvent, SessionID: ev.SessionID, Event: ev}); err != nil {
			s.logger.Warn().
				Err(err).
				Str("clientId", client.ID).
				Str("session_id", ev.SessionID).
				Msg("Dropping client after failed delivery")
			client.unfollow()
			client.Conn.Close()
		}
	})
	client.follow(cmd.SessionID, unsubscribe)

	if err := client.send(Frame{Type: FrameSubscribed, SessionID: cmd.SessionID}); err != nil {
		s.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Failed to confirm subscription")
	}
}

// handleChat dispatches a turn and sends the final result back on the same
// connection. Progress events flow through the subscription, if any.
func (s *Server) handleChat(client *Client, cmd Command) {
	if cmd.SessionID == "" || cmd.Text == "" {
		s.sendError(client, "session_id and text are required")
		return
	}

	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Done()

		ctx := tracing.WithTraceID(context.Background(), tracing.NewTraceID())
		logger := tracing.LoggerFromContext(ctx, s.logger)
		logger.Info().
			Str("clientId", client.ID).
			Str("session_id", cmd.SessionID).
			Msg("Dispatching chat turn")

		result := s.dispatcher(ctx, cmd.SessionID, cmd.UserID, cmd.Text)

		if err := client.send(Frame{Type: FrameResult, SessionID: cmd.SessionID, Result: result}); err != nil {
			logger.Error().
				Err(err).
				Str("clientId", client.ID).
				Msg("Failed to send chat result")
		}
	}()
}

func (s *Server) sendError(client *Client, message string) {
	if err := client.send(Frame{Type: FrameError, Message: message}); err != nil {
		s.logger.Error().
			Err(err).
			Str("clientId", client.ID).
			Msg("Failed to send error frame")
	}
}

// GetConnectedClients returns information about all connected clients
func (s *Server) GetConnectedClients() []ClientInfo {
	return s.clients.snapshot()
}
