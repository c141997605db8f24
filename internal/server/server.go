// Package server streams engine updates to WebSocket clients and accepts
// z-order commands from them.
//
// Every connected client receives a hello message with the session, the
// surface metadata and the current stacking order, then one update message
// per engine update. Clients may send commands:
//
//	{"command": "front", "id": "title"}
//
// Commands run against the engine; their effects reach every client through
// the regular update stream. Only failures are answered directly.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/roach88/canvasync/internal/engine"
	"github.com/roach88/canvasync/internal/model"
)

// MessageType defines the type of server message.
type MessageType string

const (
	// MessageTypeHello is sent once when a client connects.
	MessageTypeHello MessageType = "hello"
	// MessageTypeUpdate carries one engine.Update.
	MessageTypeUpdate MessageType = "update"
	// MessageTypeError answers a command that could not run.
	MessageTypeError MessageType = "error"
)

// Message is the server-to-client envelope.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// HelloData is the payload of a hello message.
type HelloData struct {
	Session  string                `json:"session"`
	Metadata model.SurfaceMetadata `json:"metadata"`
	Order    []string              `json:"order"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Command string `json:"command,omitempty"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Command is the client-to-server message.
type Command struct {
	Command string `json:"command"` // front | back | forward | backward
	ID      string `json:"id"`
}

// Engine is the part of engine.Engine the server drives.
type Engine interface {
	Session() string
	Metadata() model.SurfaceMetadata
	Order() []string
	Subscribe(fn func(engine.Update))
	BringToFront(id string) (float64, bool)
	SendToBack(id string) (float64, bool)
	BringForward(id string) (float64, bool)
	SendBackward(id string) (float64, bool)
}

// Config holds server configuration.
type Config struct {
	// Addr to listen on (default ":8080"). Use port 0 for a random port.
	Addr string
}

const (
	writeTimeout   = 5 * time.Second
	broadcastDepth = 256
)

// Server manages WebSocket connections and broadcasts engine updates.
type Server struct {
	addr     string
	engine   Engine
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server for eng and subscribes it to eng's updates.
func New(cfg Config, eng Engine) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:      cfg.Addr,
		engine:    eng,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, broadcastDepth),
		ctx:       ctx,
		cancel:    cancel,
	}
	eng.Subscribe(s.publish)
	return s
}

// Handler returns the HTTP routes: /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		slog.Info("server listening", "addr", ln.Addr().String(), "session", s.engine.Session())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	return nil
}

// Stop closes every client and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	}

	s.wg.Wait()
	slog.Info("server stopped")
	return nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// publish is the engine subscriber. It never blocks the engine.
func (s *Server) publish(u engine.Update) {
	msg, err := envelope(MessageTypeUpdate, u)
	if err != nil {
		slog.Warn("update not broadcast", "seq", u.Seq, "error", err)
		return
	}
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		slog.Warn("broadcast channel full, dropping update", "seq", u.Seq, "kind", u.Kind)
	}
}

func envelope(t MessageType, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s: %w", t, err)
	}
	return Message{Type: t, Data: data}, nil
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Warn("marshal message failed", "error", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				if err := s.write(conn, data); err != nil {
					slog.Debug("send to client failed", "error", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) send(conn *websocket.Conn, t MessageType, payload any) error {
	msg, err := envelope(t, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.write(conn, data)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	hello := HelloData{
		Session:  s.engine.Session(),
		Metadata: s.engine.Metadata(),
		Order:    s.engine.Order(),
	}
	if hello.Order == nil {
		hello.Order = []string{}
	}
	if err := s.send(conn, MessageTypeHello, hello); err != nil {
		slog.Debug("hello failed", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "hello failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()
	slog.Info("client connected", "clients", count)

	s.readLoop(conn)
}

// readLoop runs commands until the client disconnects.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, data, err := conn.Read(s.ctx)
		if err != nil {
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			_ = s.send(conn, MessageTypeError, ErrorData{Message: "malformed command: " + err.Error()})
			continue
		}
		if err := s.run(cmd); err != nil {
			_ = s.send(conn, MessageTypeError, ErrorData{Command: cmd.Command, ID: cmd.ID, Message: err.Error()})
		}
	}
}

func (s *Server) run(cmd Command) error {
	var op func(string) (float64, bool)
	switch cmd.Command {
	case "front":
		op = s.engine.BringToFront
	case "back":
		op = s.engine.SendToBack
	case "forward":
		op = s.engine.BringForward
	case "backward":
		op = s.engine.SendBackward
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}

	if _, ok := op(cmd.ID); !ok {
		return engine.NewNotMaterializedError(cmd.ID)
	}
	slog.Debug("command applied", "command", cmd.Command, "id", cmd.ID)
	return nil
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		count := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		slog.Info("client disconnected", "clients", count)
		return
	}
	s.clientsMu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"session": s.engine.Session(),
		"clients": s.ClientCount(),
	})
}
