// Package realtime pushes parking events to connected admin dashboards over
// WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iliyamo/parking-lot-billing/internal/queue"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one dashboard connection.  lots == nil receives every lot.
type client struct {
	conn *websocket.Conn
	send chan []byte
	lots map[uint64]bool
}

func (c *client) wants(lotID uint64) bool {
	return c.lots == nil || c.lots[lotID]
}

// Hub tracks dashboard connections and broadcasts events to them.  A
// client that cannot keep up is disconnected rather than allowed to block
// the broadcast.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan queue.ParkingEvent
	done       chan struct{}
}

// NewHub returns a hub; Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan queue.ParkingEvent, 64),
		done:       make(chan struct{}),
	}
}

// Run dispatches registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("realtime: dashboard connected, total %d", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("realtime: dashboard disconnected, total %d", n)

		case ev := <-h.broadcast:
			msg, err := json.Marshal(ev)
			if err != nil {
				log.Printf("realtime: marshal event failed: %v", err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				if !c.wants(ev.LotID) {
					continue
				}
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Notify queues ev for broadcast and drops it when the hub is saturated.
// It satisfies billing.Notifier.
func (h *Hub) Notify(_ context.Context, ev queue.ParkingEvent) {
	select {
	case h.broadcast <- ev:
	default:
		log.Printf("realtime: broadcast queue full, dropping %s", ev.Type)
	}
}

// ClientCount returns the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and streams events of lots to it.  A nil lots
// slice subscribes to every lot.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, lots []uint64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if lots != nil {
		c.lots = make(map[uint64]bool, len(lots))
		for _, id := range lots {
			c.lots[id] = true
		}
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return errors.New("realtime: hub stopped")
	}
	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// readPump discards inbound messages and notices disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("realtime: read error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
