package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/AdamBeresnev/op-tournament/internal/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room uuid.UUID
}

// Hub keeps one room of websocket clients per tournament and forwards every
// tournament event to the matching room.
type Hub struct {
	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*client]bool

	upgrader websocket.Upgrader
}

func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		rooms:      make(map[uuid.UUID]map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[c.room]; !ok {
				h.rooms[c.room] = make(map[*client]bool)
			}
			h.rooms[c.room][c] = true
			slog.Debug("live client joined", "tournament_id", c.room, "clients", len(h.rooms[c.room]))
			h.mu.Unlock()

		case c := <-h.unregister:
			h.remove(c)

		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for c := range clients {
					close(c.send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[c.room]
	if !ok || !clients[c] {
		return
	}
	close(c.send)
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, c.room)
	}
}

// Clients returns the number of clients watching a tournament.
func (h *Hub) Clients(tournamentID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tournamentID])
}

func (h *Hub) Name() string { return "live" }

// Handle broadcasts the event to the tournament's room. Slow clients miss
// messages instead of holding up the others.
func (h *Hub) Handle(_ context.Context, e events.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[e.TournamentID]
	if !ok {
		return nil
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	for c := range clients {
		select {
		case c.send <- body:
		default:
			slog.Warn("live client send buffer full", "tournament_id", e.TournamentID)
		}
	}
	return nil
}

// ServeWS upgrades the request and subscribes the connection to a tournament.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, tournamentID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), room: tournamentID}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return fmt.Errorf("live hub stopped")
	}

	go c.writePump()
	go c.readPump()
	return nil
}

// Incoming messages are ignored; reading keeps the pong handler running.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("live client closed unexpectedly", "tournament_id", c.room, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("live client write failed", "tournament_id", c.room, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
