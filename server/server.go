package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/greenfelt/holdem/config"
	"github.com/greenfelt/holdem/domain"
	"github.com/greenfelt/holdem/server/connection"
	"github.com/greenfelt/holdem/server/events"
	"github.com/greenfelt/holdem/server/handlers"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	maxMessageSize = 4096
	sendBufferSize = 256
)

// Server exposes the table registry over websocket plus a small
// lobby HTTP API.
type Server struct {
	cfg      config.ServerConfig
	log      zerolog.Logger
	registry *domain.Registry

	connMgr    *connection.Manager
	cmdRouter  *handlers.CommandRouter
	dispatcher *events.Dispatcher
	upgrader   websocket.Upgrader

	httpServer *http.Server
}

// New wires the server. It registers the event dispatcher on the
// registry, so it must be called before the registry creates tables.
func New(cfg config.ServerConfig, log zerolog.Logger, registry *domain.Registry) *Server {
	connMgr := connection.NewManager(log)
	dispatcher := events.NewDispatcher(connMgr, log)
	cmdRouter := handlers.NewCommandRouter(registry, connMgr, log)

	registry.RegisterEventHandler(dispatcher.HandleEvent)

	allowed := cfg.AllowedOrigin
	return &Server{
		cfg:        cfg,
		log:        log,
		registry:   registry,
		connMgr:    connMgr,
		cmdRouter:  cmdRouter,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return allowed == "" || r.Header.Get("Origin") == allowed
			},
		},
	}
}

// Start serves until the context is cancelled, then drains
// connections and returns.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.HTTPAddr).Msg("server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.corsMiddleware)

	router.Get("/healthz", s.handleHealth)
	router.Get("/api/tables", s.handleGetTables)
	router.Post("/api/tables/create", s.handleCreateTable)
	router.Get("/ws", s.handleWebSocket)
	return router
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.cfg.AllowedOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &connection.Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
	}
	s.log.Info().Str("client", client.ID).Str("remote", r.RemoteAddr).Msg("client connected")

	s.connMgr.Add(client)

	go s.writePump(client)
	go s.readPump(client)
}

// readPump reads client commands until the connection drops, then
// treats the disconnect as the player leaving their tables.
func (s *Server) readPump(client *connection.Client) {
	defer func() {
		s.cmdRouter.HandleDisconnect(client)
		s.connMgr.Remove(client)
		client.Conn.Close()
		s.log.Info().Str("client", client.ID).Msg("client disconnected")
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Str("client", client.ID).Msg("unexpected close")
			}
			return
		}
		if err := s.cmdRouter.HandleCommand(client, message); err != nil {
			s.log.Warn().Err(err).Str("client", client.ID).Msg("dropping malformed message")
		}
	}
}

// writePump drains the client's send buffer and keeps the connection
// alive with pings.
func (s *Server) writePump(client *connection.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// CreateTableRequest is the lobby HTTP request to open a private
// table.
type CreateTableRequest struct {
	Name     string `json:"name"`
	Tier     string `json:"tier"`
	Passcode string `json:"passcode"`
}

func (s *Server) handleGetTables(w http.ResponseWriter, r *http.Request) {
	tier := r.URL.Query().Get("tier")
	s.writeJSON(w, http.StatusOK, s.registry.List(tier))
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "table name is required", http.StatusBadRequest)
		return
	}
	if req.Passcode == "" {
		http.Error(w, "passcode is required", http.StatusBadRequest)
		return
	}
	stakes, ok := domain.StakesForTier(req.Tier)
	if !ok {
		http.Error(w, "unknown stake tier", http.StatusBadRequest)
		return
	}

	table := s.registry.CreatePrivateTable(req.Name, req.Passcode, stakes)
	info := domain.TableInfo{
		ID:         table.ID,
		Name:       table.Name,
		Tier:       table.Stakes.Tier,
		SmallBlind: table.Stakes.SmallBlind,
		BigBlind:   table.Stakes.BigBlind,
		MinBuyIn:   table.Stakes.MinBuyIn,
		Capacity:   domain.NumSeats,
		Private:    true,
	}
	s.writeJSON(w, http.StatusCreated, info)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Msg("failed to write response")
	}
}
