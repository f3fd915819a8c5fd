// Package dashboard provides a real-time WebSocket view of sync runs.
//
// The server broadcasts run lifecycle events to connected clients and keeps
// the latest run report available over a JSON status endpoint, so a browser
// or monitoring probe can follow a long migration without tailing logs.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/ledgerbridge/tallysync/internal/syncer"
)

// MessageType defines the type of dashboard message.
type MessageType string

const (
	// MessageTypeRunStarted indicates a sync run began.
	MessageTypeRunStarted MessageType = "run_started"

	// MessageTypeTableSynced indicates one table finished its tier.
	MessageTypeTableSynced MessageType = "table_synced"

	// MessageTypeRunComplete indicates a run finished, successfully or not.
	MessageTypeRunComplete MessageType = "run_complete"
)

// Message is one dashboard broadcast.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RunStartedData announces a new run.
type RunStartedData struct {
	Source  string `json:"source"` // http or spool
	Company string `json:"company,omitempty"`
}

// TableSyncedData carries one table's counts as its tier finishes.
type TableSyncedData struct {
	Table            string `json:"table"`
	Attempted        int    `json:"attempted"`
	Applied          int    `json:"applied"`
	Unchanged        int    `json:"unchanged"`
	ResolutionFailed int    `json:"resolution_failed"`
	ApplyFailed      int    `json:"apply_failed"`
}

// RunCompleteData summarizes a finished run.
type RunCompleteData struct {
	Applied  int           `json:"applied"`
	Failed   int           `json:"failed"`
	Warnings int           `json:"warnings"`
	Fatal    string        `json:"fatal,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Server manages WebSocket connections and run-event broadcasting.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	// lastReport holds the most recent run report for /status.
	lastReport   *syncer.RunReport
	lastReportMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Port to listen on (default: 8080).
	Port int

	// Logger for server activity (default: log.Default()).
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:   8080,
		Logger: log.Default(),
	}
}

// NewServer creates a dashboard server.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Dashboard server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard shutdown error: %w", err)
	}

	s.wg.Wait()
	return nil
}

// RunStarted broadcasts the start of a sync run.
func (s *Server) RunStarted(source, company string) {
	s.publish(MessageTypeRunStarted, RunStartedData{Source: source, Company: company})
}

// TableSynced broadcasts one table's counts. Wired as the syncer's Progress
// callback.
func (s *Server) TableSynced(table string, rep syncer.TableReport) {
	s.publish(MessageTypeTableSynced, TableSyncedData{
		Table:            table,
		Attempted:        rep.Attempted,
		Applied:          rep.Applied,
		Unchanged:        rep.Unchanged,
		ResolutionFailed: rep.ResolutionFailed,
		ApplyFailed:      rep.ApplyFailed,
	})
}

// RunComplete records the finished run for /status and broadcasts its
// summary.
func (s *Server) RunComplete(rep *syncer.RunReport) {
	s.lastReportMu.Lock()
	s.lastReport = rep
	s.lastReportMu.Unlock()

	s.publish(MessageTypeRunComplete, RunCompleteData{
		Applied:  rep.TotalApplied(),
		Failed:   rep.TotalFailed(),
		Warnings: len(rep.Warnings),
		Fatal:    rep.Fatal,
		Duration: rep.Duration,
	})
}

func (s *Server) publish(mt MessageType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("Failed to marshal %s payload: %v", mt, err)
		return
	}
	msg := Message{Type: mt, Timestamp: time.Now(), Data: raw}
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
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
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Writes happen outside the lock so a slow client can't
			// stall new registrations.
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Dashboard client connected (total: %d)", clientCount)

	go s.readLoop(conn)
}

// readLoop keeps the connection alive and detects client disconnects.
// Client messages are ignored; the dashboard is broadcast-only.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Dashboard client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleStatus serves the last completed run report as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.lastReportMu.RLock()
	rep := s.lastReport
	s.lastReportMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if rep == nil {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "no runs yet"})
		return
	}
	_ = json.NewEncoder(w).Encode(rep)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>TallySync Dashboard</title>
</head>
<body>
    <h1>TallySync Dashboard</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Last run report: <a href="/status">/status</a></p>
    <p>Connect a WebSocket client to follow sync runs in real time.</p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address.
func (s *Server) GetAddr() string {
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
