// ABOUTME: Streaming server for resampled audio
// ABOUTME: Manages WebSocket clients, status and metrics endpoints
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Resonate-Protocol/resonate-resampler/internal/discovery"
	"github.com/Resonate-Protocol/resonate-resampler/internal/metrics"
	"github.com/Resonate-Protocol/resonate-resampler/internal/protocol"
	"github.com/Resonate-Protocol/resonate-resampler/internal/version"
	"github.com/Resonate-Protocol/resonate-resampler/pkg/audio"
)

const (
	// DefaultBufferAhead is how far ahead of the server clock chunks are stamped
	DefaultBufferAhead = 500 * time.Millisecond

	sendBufferSize = 100
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
)

var ErrSendBufferFull = errors.New("client send buffer full")

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	UseTUI     bool
	AudioFile  string // file to stream (MP3, FLAC, WAV, Ogg). Empty = test tone
	Loop       bool   // restart the file after end of stream

	Output         audio.Track // stage output and stream format
	Codec          string      // "pcm" or "opus"
	BitDepth       int         // pcm sample width
	QueueThreshold int

	// Realtime paces source frames by their timestamps
	Realtime    bool
	BufferAhead time.Duration

	Logger *slog.Logger
}

// Server represents the streaming server
type Server struct {
	config   Config
	serverID string
	logger   *slog.Logger

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Client management
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// Server clock (monotonic microseconds)
	clockStart time.Time

	engine  *Engine
	metrics *metrics.Stage

	// mDNS discovery
	mdnsManager *discovery.Manager

	// TUI
	tui       *ServerTUI
	startTime time.Time

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client represents a connected client
type Client struct {
	ID   string
	Name string
	Conn *websocket.Conn

	// Output channel for messages
	sendChan chan interface{}

	connected time.Time
}

// New creates a new server instance
func New(config Config) (*Server, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BufferAhead == 0 {
		config.BufferAhead = DefaultBufferAhead
	}
	if err := config.Output.Validate(); err != nil {
		return nil, fmt.Errorf("invalid output track: %w", err)
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		logger:   config.Logger.With("component", "server"),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Trusted local networks only; any origin is accepted
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[string]*Client),
		clockStart: time.Now(),
		startTime:  time.Now(),
		metrics:    metrics.New(),
		stopChan:   make(chan struct{}),
	}

	engine, err := NewEngine(s)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio engine: %w", err)
	}
	s.engine = engine

	s.mux.HandleFunc("/stream", s.handleWebSocket)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	return s, nil
}

// Handler returns the HTTP handler serving all endpoints
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server and blocks until Stop, a TUI quit or an HTTP error
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = NewServerTUI(s.config.Name, s.config.Port)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(); err != nil {
				s.logger.Error("TUI error", "error", err)
			}
		}()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.refreshTUI()
		}()
	}

	s.logger.Info("Server starting", "name", s.config.Name, "id", s.serverID, "version", version.Version)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			TXT: []string{
				"codec=" + s.config.Codec,
				"rate=" + strconv.Itoa(s.config.Output.SampleRate),
			},
			Logger: s.logger,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			s.logger.Error("Failed to start mDNS advertisement", "error", err)
		}
	}

	// Start audio streaming
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.engine.Start()
	}()

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info("WebSocket server listening", "addr", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		s.logger.Info("Server shutting down")
	case <-tuiQuitChan:
		s.logger.Info("TUI quit requested, shutting down")
		s.Stop()
	case err := <-errChan:
		s.logger.Error("HTTP server error", "error", err)
		serverErr = err
		s.Stop()
	}

	// Mark server as shutting down to reject new connections
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.tui != nil {
		s.tui.Stop()
	}

	s.engine.Stop()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.wg.Wait()
	s.logger.Info("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade error", "error", err)
		return
	}

	s.logger.Debug("New WebSocket connection", "remote", r.RemoteAddr)

	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		s.logger.Info("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	hello, err := s.readHello(conn)
	if err != nil {
		s.logger.Error("Handshake failed", "error", err)
		return
	}

	if len(hello.Codecs) > 0 && !slices.Contains(hello.Codecs, s.config.Codec) {
		s.logger.Info("Rejecting client without a common codec",
			"client", hello.Name, "codecs", hello.Codecs, "codec", s.config.Codec)
		writeError(conn, "unsupported_codec", "Server streams "+s.config.Codec)
		return
	}

	client := &Client{
		ID:        hello.ClientID,
		Name:      hello.Name,
		Conn:      conn,
		sendChan:  make(chan interface{}, sendBufferSize),
		connected: time.Now(),
	}

	// Check for duplicate client ID and register atomically
	s.clientsMu.Lock()
	if existing, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		s.logger.Info("Rejecting duplicate client ID", "id", client.ID, "name", existing.Name)
		writeError(conn, "duplicate_client_id", "Client ID already connected")
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	s.logger.Info("Client connected", "client", client.Name, "id", client.ID)
	s.updateTUI()

	defer func() {
		s.engine.RemoveClient(client)

		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		close(client.sendChan)
		s.logger.Info("Client disconnected", "client", client.Name)

		s.updateTUI()
	}()

	serverHello := protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
		Product:  version.String(),
	}
	if err := s.sendMessage(client, protocol.TypeServerHello, serverHello); err != nil {
		s.logger.Error("Error sending server hello", "error", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	s.engine.AddClient(client)

	// Clients send nothing after hello; reading detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket read error", "client", client.Name, "error", err)
			}
			return
		}
	}
}

// readHello waits for and validates client/hello
func (s *Server) readHello(conn *websocket.Conn) (*protocol.ClientHello, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("error reading hello: %w", err)
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("error unmarshaling message: %w", err)
	}
	if msg.Type != protocol.TypeClientHello {
		return nil, fmt.Errorf("expected %s, got %s", protocol.TypeClientHello, msg.Type)
	}

	var hello protocol.ClientHello
	if err := protocol.DecodePayload(msg.Payload, &hello); err != nil {
		return nil, err
	}
	if err := hello.Validate(); err != nil {
		return nil, err
	}
	return &hello, nil
}

func writeError(conn *websocket.Conn, code, message string) {
	data, err := json.Marshal(protocol.Message{
		Type:    protocol.TypeServerError,
		Payload: protocol.ServerError{Error: code, Message: message},
	})
	if err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}

// clientWriter sends queued messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			switch v := msg.(type) {
			case []byte:
				if err := client.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					s.logger.Debug("Error writing binary message", "client", client.Name, "error", err)
					return
				}
			default:
				if err := client.Conn.WriteJSON(v); err != nil {
					s.logger.Debug("Error writing text message", "client", client.Name, "error", err)
					return
				}
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// statusResponse is the JSON body of /status
type statusResponse struct {
	ServerID string        `json:"server_id"`
	Name     string        `json:"name"`
	Version  string        `json:"version"`
	Uptime   string        `json:"uptime"`
	Clients  int           `json:"clients"`
	Source   string        `json:"source"`
	Output   string        `json:"output"`
	Codec    string        `json:"codec"`
	Chunks   uint64        `json:"chunks"`
	Stage    stageResponse `json:"stage"`
}

type stageResponse struct {
	State             string `json:"state"`
	Queued            uint64 `json:"queued"`
	Dropped           uint64 `json:"dropped"`
	Fed               uint64 `json:"fed"`
	FeedErrors        uint64 `json:"feed_errors"`
	Emitted           uint64 `json:"emitted"`
	DrainErrors       uint64 `json:"drain_errors"`
	QueueDepth        int    `json:"queue_depth"`
	ThresholdExceeded uint64 `json:"threshold_exceeded"`
	Failed            bool   `json:"failed"`
}

// handleStatus reports server and stage state as JSON
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	es := s.engine.Stats()

	s.clientsMu.RLock()
	clients := len(s.clients)
	s.clientsMu.RUnlock()

	resp := statusResponse{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  version.Version,
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		Clients:  clients,
		Source:   es.Source,
		Output:   s.config.Output.String(),
		Codec:    s.config.Codec,
		Chunks:   es.Chunks,
		Stage: stageResponse{
			State:             es.Stage.State.String(),
			Queued:            es.Stage.Queued,
			Dropped:           es.Stage.Dropped,
			Fed:               es.Stage.Fed,
			FeedErrors:        es.Stage.FeedErrors,
			Emitted:           es.Stage.Emitted,
			DrainErrors:       es.Stage.DrainErrors,
			QueueDepth:        es.Stage.QueueDepth,
			ThresholdExceeded: es.Stage.ThresholdExceeded,
			Failed:            es.Stage.Failed,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Error writing status", "error", err)
	}
}

// sendMessage queues a JSON message for a client
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// sendBinary queues binary data for a client
func (s *Server) sendBinary(client *Client, data []byte) error {
	select {
	case client.sendChan <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// clockMicros returns the server clock in microseconds
func (s *Server) clockMicros() int64 {
	return time.Since(s.clockStart).Microseconds()
}
