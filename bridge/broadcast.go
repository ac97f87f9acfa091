package bridge

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

const sendBuffer = 64

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Broadcaster fans events out to connected WebSocket clients. A client
// whose buffer is full is disconnected rather than blocking the publisher.
type Broadcaster struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]bool
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{logger: logger, clients: make(map[*client]bool)}
}

// AddClient registers conn and queues greeting as its first message.
func (b *Broadcaster) AddClient(conn *websocket.Conn, greeting Event) *client {
	c := newClient(conn)
	if data, err := json.Marshal(greeting); err == nil {
		c.send <- data
	}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()
	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

// Publish sends ev to every client without blocking.
func (b *Broadcaster) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		if b.logger != nil {
			b.logger.Error("event marshal failed", "type", ev.Type, "error", err)
		}
		return
	}

	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		if b.logger != nil {
			b.logger.Warn("ws client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
		}
		b.RemoveClient(c)
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// CloseAll disconnects every client.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	for c := range b.clients {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}
