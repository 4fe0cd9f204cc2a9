package brackets

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/gorilla/websocket"
)

// RoomGlobal receives every event; per-run rooms receive only their own.
const RoomGlobal = "runs"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one websocket subscriber attached to a room.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	isClosed bool
	mu       sync.Mutex
}

// Hub fans events out to room subscribers. Producers call Publish; run
// events land both in the run's own room and in RoomGlobal.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.mu.Unlock()
			h.logger.Debug("ws client registered", slog.String("room", client.Room))

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.mu.Lock()
					if !client.isClosed {
						close(client.Send)
						client.isClosed = true
					}
					client.mu.Unlock()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("ws client unregistered", slog.String("room", client.Room))
		}
	}
}

// Publish broadcasts an event to a room and, when the room is not the
// global one, mirrors it there. Slow clients are skipped, never blocked on.
func (h *Hub) Publish(room string, event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal hub event", slog.String("type", event.Type), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.sendToRoomLocked(room, payload)
	if room != RoomGlobal {
		h.sendToRoomLocked(RoomGlobal, payload)
	}
}

func (h *Hub) sendToRoomLocked(room string, payload []byte) {
	for client := range h.rooms[room] {
		client.mu.Lock()
		if client.isClosed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("ws client send buffer full, dropping event", slog.String("room", room))
		}
		client.mu.Unlock()
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Inbound messages are ignored; the stream is one-way.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
