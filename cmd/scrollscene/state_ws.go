package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// State WebSocket: hub, clients and the HTTP upgrade handler
// ============================================================================
//
// Every client gets its own buffered send queue and write pump, so one slow
// client never stalls the others; a client whose queue is full when a
// broadcast arrives is disconnected.
//
// The daemon goroutine stays the single owner of DaemonState: the initial
// state_init goes through a RequestStateSnapshot round-trip and everything
// after it comes from reducer broadcasts (see RunBroadcaster).
//
// Clients may also send input: text frames holding an event envelope
// ({"type":"wheel","data":{"delta_y":120}}) are queued to the daemon.
// ============================================================================

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	wsSnapshotTimeout = time.Second

	// Inbound frames are single input events.
	wsMaxInboundBytes = 4096

	defaultClientSendBuf = 32
	defaultHubQueueBuf   = 128
)

// ============================================================================
// Hub
// ============================================================================

// Hub tracks connected clients and fans serialized frames out to them.
type Hub struct {
	logger *slog.Logger

	broadcast  chan []byte
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size (default 32).
	SendBuf int
	// BroadcastBuf is the hub's inbound frame queue size (default 128).
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if cfg.SendBuf <= 0 {
		cfg.SendBuf = defaultClientSendBuf
	}
	if cfg.BroadcastBuf <= 0 {
		cfg.BroadcastBuf = defaultHubQueueBuf
	}
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, cfg.BroadcastBuf),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    cfg.SendBuf,
	}
}

// Run serves unregistrations and broadcasts until ctx is canceled, then
// disconnects every client. Clients are added synchronously with add.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")
	defer h.closeAllClients()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping")
			return
		case c := <-h.unregister:
			h.removeClient(c, "unregister")
		case msg := <-h.broadcast:
			for _, c := range h.fanOut(msg) {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

// add registers a client. The upgrade handler calls it before the pumps start
// so state_init can be enqueued right away.
func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)
}

// fanOut offers msg to every client without blocking and returns the clients
// whose queue was full.
func (h *Hub) fanOut(msg []byte) (slow []*Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	return slow
}

// enqueue offers msg to one client. It reports false if the client is not
// registered or its queue is full. A registered client's send channel is
// never closed while mu is held, so this cannot race with removal.
func (h *Hub) enqueue(c *Client, msg []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

// BroadcastBytes queues a serialized frame for every client. It never blocks;
// when the hub queue is full the frame is dropped.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

// Client is one WebSocket connection. conn may be nil in tests that never
// reach the pumps.
type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	// events receives input decoded from inbound frames. May be nil.
	events chan<- Event

	remoteAddr string
	logger     *slog.Logger

	closeOnce sync.Once
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, events chan<- Event, logger *slog.Logger) *Client {
	sendBuf := defaultClientSendBuf
	if hub != nil {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		events:     events,
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

// close drops the connection and ends the write pump. Only the hub calls it.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		close(c.send)
	})
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// writePump drains the send queue and keeps the connection alive with pings.
// It exits when the hub closes send or a write fails.
func (c *Client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		var err error
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, nil)
				return
			}
			err = c.write(websocket.TextMessage, msg)
		case <-ping.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			c.logPumpExit("write", err)
			// Unblocks readPump, which unregisters us.
			_ = c.conn.Close()
			return
		}
	}
}

// readPump forwards inbound input frames and detects disconnects. On exit it
// unregisters the client.
func (c *Client) readPump() {
	if c.hub != nil {
		defer func() { c.hub.unregister <- c }()
	}

	c.conn.SetReadLimit(wsMaxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logPumpExit("read", err)
			return
		}
		if mt == websocket.TextMessage {
			c.handleInbound(data)
		}
	}
}

func (c *Client) logPumpExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.logger.Info("ws client closed", "remote_addr", c.remoteAddr, "pump", pump, "code", ce.Code, "reason", ce.Text)
		return
	}
	c.logger.Info("ws pump exiting", "remote_addr", c.remoteAddr, "pump", pump, "error", err)
}

// handleInbound decodes one client frame into an input event. Malformed frames
// and unsupported types are logged and ignored; a full event queue drops input.
func (c *Client) handleInbound(data []byte) {
	if c.events == nil {
		return
	}
	ev, err := UnmarshalEvent(data)
	if err != nil {
		c.logger.Debug("ws inbound frame ignored", "remote_addr", c.remoteAddr, "error", err)
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event queue full, dropping ws input", "remote_addr", c.remoteAddr)
	}
}

// ============================================================================
// HTTP handler
// ============================================================================

// Server owns the hub and the upgrade handler. events carries both snapshot
// requests and inbound client input to the daemon.
type Server struct {
	logger *slog.Logger
	hub    *Hub
	events chan<- Event
}

type ServerConfig struct {
	Hub HubConfig
}

// NewServer builds the WS components. Register the handler on a mux, then run
// Hub().Run and RunBroadcaster.
func NewServer(logger *slog.Logger, events chan<- Event, cfg ServerConfig) *Server {
	return &Server{
		logger: logger,
		hub:    NewHub(logger, cfg.Hub),
		events: events,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register mounts the WS handler at path.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	// Clients are local viewers and debug tools; origin is not checked.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleStateWS upgrades the connection, registers the client and sends it
// state_init.
func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.events, s.logger)
	// Registered synchronously so state_init can be enqueued below.
	s.hub.add(client)

	// The pumps must not use r.Context(): net/http cancels it when this
	// handler returns, which would drop the connection with code 1006.
	go client.writePump()
	go client.readPump()

	if s.events == nil {
		return
	}

	snap, err := requestSnapshot(r.Context(), s.events, wsSnapshotTimeout)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("ws snapshot request failed", "remote_addr", r.RemoteAddr, "error", err)
		}
		return
	}

	msg, err := wsOutboundEvent{Type: wsTypeStateInit, Data: snapshotPayload(snap)}.marshal()
	if err != nil {
		s.logger.Warn("ws state_init marshal failed", "error", err)
		return
	}
	if !s.hub.enqueue(client, msg) {
		s.hub.unregister <- client
	}
}
