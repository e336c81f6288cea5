// Package mockserver provides a mock Bybit realtime server for testing.
// It accepts trade subscriptions over WebSocket, answers with an ack and then replays scripted
// messages or streams generated trades.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/trade-sampler/internal/types"
	"github.com/rxtech-lab/trade-sampler/mocks"
)

// RealtimePath is the path the stream is served on.
const RealtimePath = "/realtime"

// ServerConfig holds configuration for the mock server.
type ServerConfig struct {
	// Script is sent to every connection after the ack, one message per entry.
	Script []string
	// ConnectionScripts replaces Script for the connection with the given arrival index.
	ConnectionScripts map[int][]string
	// RefuseConnections lists arrival indexes whose handshake is refused.
	RefuseConnections []int
	// CloseAfterScript closes the connection once its script was sent.
	CloseAfterScript bool
	// SkipAck sends no ack after the subscription request.
	SkipAck bool
	// RejectSubscription answers the subscription with success=false.
	RejectSubscription bool
	// Generator streams generated trade batches after the script when set.
	Generator *mocks.GeneratorConfig
	// Seed seeds the generator.
	Seed int64
	// EventsPerBatch is the number of generated trades per message.
	EventsPerBatch int
	// StreamInterval is the interval between generated messages.
	StreamInterval time.Duration
}

// MockBybitServer provides a mock Bybit realtime server.
type MockBybitServer struct {
	mu sync.Mutex

	// HTTP server
	httpServer *http.Server
	listener   net.Listener

	// WebSocket upgrader
	upgrader websocket.Upgrader

	config        ServerConfig
	connections   int
	subscriptions []types.SubscriptionRequest
	sent          map[int][]types.TradeBatch

	// WebSocket connections
	wsConnections map[*websocket.Conn]bool
	wsMu          sync.Mutex

	stopStreaming chan struct{}
}

// NewMockBybitServer creates a new mock Bybit server.
func NewMockBybitServer(config ServerConfig) *MockBybitServer {
	if config.StreamInterval == 0 {
		config.StreamInterval = 50 * time.Millisecond
	}

	if config.EventsPerBatch == 0 {
		config.EventsPerBatch = 1
	}

	return &MockBybitServer{
		mu:         sync.Mutex{},
		httpServer: nil,
		listener:   nil,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		config:        config,
		connections:   0,
		subscriptions: make([]types.SubscriptionRequest, 0),
		sent:          make(map[int][]types.TradeBatch),
		wsConnections: make(map[*websocket.Conn]bool),
		wsMu:          sync.Mutex{},
		stopStreaming: make(chan struct{}),
	}
}

// Start starts the mock server on the given address.
// If address is empty or ":0", a random available port is used.
func (s *MockBybitServer) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc(RealtimePath, s.handleWebSocket)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop stops the mock server and closes every open connection.
func (s *MockBybitServer) Stop() error {
	close(s.stopStreaming)

	s.wsMu.Lock()
	for conn := range s.wsConnections {
		conn.Close()
	}

	s.wsConnections = make(map[*websocket.Conn]bool)
	s.wsMu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Address returns the address the server is listening on.
func (s *MockBybitServer) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// URL returns the WebSocket URL of the realtime stream.
func (s *MockBybitServer) URL() string {
	return "ws://" + s.Address() + RealtimePath
}

// Connections returns how many handshakes were attempted, refused ones included.
func (s *MockBybitServer) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connections
}

// Subscriptions returns every subscription request received, in arrival order.
func (s *MockBybitServer) Subscriptions() []types.SubscriptionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.subscriptions)
}

// SentBatches returns the generated batches written to the connection with the given arrival index.
func (s *MockBybitServer) SentBatches(index int) []types.TradeBatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.sent[index])
}

// handleWebSocket serves one subscriber.
func (s *MockBybitServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	index := s.connections
	s.connections++
	s.mu.Unlock()

	if slices.Contains(s.config.RefuseConnections, index) {
		http.Error(w, "connection refused", http.StatusServiceUnavailable)

		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.wsMu.Lock()
	s.wsConnections[conn] = true
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	if err := s.handshake(conn); err != nil {
		return
	}

	// Drain client frames so close frames are processed; closed signals the client went away.
	closed := make(chan struct{})

	go func() {
		defer close(closed)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	script := s.config.Script
	if connectionScript, ok := s.config.ConnectionScripts[index]; ok {
		script = connectionScript
	}

	for _, msg := range script {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
	}

	if s.config.CloseAfterScript {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

		return
	}

	if s.config.Generator != nil {
		s.streamTrades(conn, index, closed)

		return
	}

	select {
	case <-closed:
	case <-s.stopStreaming:
	}
}

// handshake reads the subscription request and answers it with an ack.
func (s *MockBybitServer) handshake(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}

	_ = conn.SetReadDeadline(time.Time{})

	var request types.SubscriptionRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return err
	}

	s.mu.Lock()
	s.subscriptions = append(s.subscriptions, request)
	s.mu.Unlock()

	if s.config.SkipAck {
		return nil
	}

	success := !s.config.RejectSubscription && request.Op == types.OpSubscribe
	retMsg := ""

	if !success {
		retMsg = "error:handler not found"
	}

	return conn.WriteJSON(types.SubscriptionAck{
		Success: &success,
		RetMsg:  &retMsg,
		ConnID:  uuid.NewString(),
		Request: request,
	})
}

// streamTrades writes generated batches until the client goes away or the server stops.
func (s *MockBybitServer) streamTrades(conn *websocket.Conn, index int, closed <-chan struct{}) {
	config := *s.config.Generator
	generator := mocks.NewTradeGenerator(s.config.Seed+int64(index), config)

	ticker := time.NewTicker(s.config.StreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopStreaming:
			return
		case <-closed:
			return
		case <-ticker.C:
			batch := generator.NextBatch(config, s.config.EventsPerBatch)
			if err := conn.WriteJSON(batch); err != nil {
				return
			}

			s.mu.Lock()
			s.sent[index] = append(s.sent[index], batch)
			s.mu.Unlock()
		}
	}
}
