package apihttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"streampilot/internal/domain"
	"streampilot/internal/metrics"
)

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wsOutbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PlayerEventSink receives device-reported player events decoded from the
// websocket. Implemented by sink.Remote.
type PlayerEventSink interface {
	Feed(ev domain.PlayerEvent)
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans outbound messages to every connected device and routes inbound
// player events into the media sink. The TV client keeps one connection
// open for its whole lifetime.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	logger     *slog.Logger

	mu     sync.RWMutex
	events PlayerEventSink
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// SetEventSink wires the destination for inbound player events. Must be
// called before the first client connects.
func (h *Hub) SetEventSink(sink PlayerEventSink) {
	h.mu.Lock()
	h.events = sink
	h.mu.Unlock()
}

func (h *Hub) eventSink() PlayerEventSink {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.events
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				_ = client.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(2*time.Second),
				)
				close(client.send)
				delete(h.clients, client)
			}
			metrics.WebsocketClients.Set(0)
			h.logger.Debug("ws hub stopped, all clients disconnected")
			return
		case client := <-h.register:
			h.clients[client] = true
			metrics.WebsocketClients.Set(float64(len(h.clients)))
			h.logger.Debug("ws client connected", slog.Int("total", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.WebsocketClients.Set(float64(len(h.clients)))
				h.logger.Debug("ws client disconnected", slog.Int("total", len(h.clients)))
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Close signals the hub to stop and disconnect all clients.
func (h *Hub) Close() {
	close(h.done)
}

func (h *Hub) ClientCount() int {
	return len(h.clients)
}

// Broadcast sends a typed JSON message to all connected clients. Satisfies
// both the command-sender and the session notifier signatures.
func (h *Hub) Broadcast(msgType string, data any) {
	msg := wsOutbound{Type: msgType, Data: data}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("ws marshal failed", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

// Send is the command channel to the device player.
func (h *Hub) Send(msgType string, data any) {
	h.Broadcast(msgType, data)
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleUpgrade upgrades the request and registers the client with the hub.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register <- client
	go client.writePump()
	go client.readPump()
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.hub.dispatch(raw)
	}
}

// dispatch routes one inbound message. Only player events are expected;
// anything else is logged and dropped.
func (h *Hub) dispatch(raw []byte) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Debug("ws inbound decode failed", slog.String("error", err.Error()))
		return
	}
	switch msg.Type {
	case "player_event":
		sink := h.eventSink()
		if sink == nil {
			return
		}
		var ev domain.PlayerEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			h.logger.Debug("player event decode failed", slog.String("error", err.Error()))
			return
		}
		sink.Feed(ev)
	default:
		h.logger.Debug("ws inbound ignored", slog.String("type", msg.Type))
	}
}
