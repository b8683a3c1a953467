// Package ws keeps the live websocket connections the socket channel writes to.
package ws

import (
	"net/http"
	"sync"
	"time"

	"actionhub/internal/metrics"
	"actionhub/internal/utils/logger"

	"github.com/gorilla/websocket"
)

var log = logger.New("WS")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Connection is one socket owned by a user. Writes are serialised per
// connection since gorilla allows a single concurrent writer.
type Connection struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

func (c *Connection) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub maps user ids to their open connections.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{}
	upgrader    websocket.Upgrader
}

func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		connections: make(map[string]map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Hub) add(userID string, conn *websocket.Conn) *Connection {
	c := &Connection{conn: conn, userID: userID}
	h.mu.Lock()
	if _, ok := h.connections[userID]; !ok {
		h.connections[userID] = make(map[*Connection]struct{})
	}
	h.connections[userID][c] = struct{}{}
	total := len(h.connections[userID])
	h.mu.Unlock()

	metrics.SocketConnections.Inc()
	log.Debug("connected: %s (total=%d)", userID, total)
	return c
}

func (h *Hub) remove(c *Connection) {
	h.mu.Lock()
	conns, ok := h.connections[c.userID]
	if ok {
		if _, present := conns[c]; !present {
			ok = false
		}
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.connections, c.userID)
		}
	}
	h.mu.Unlock()

	_ = c.conn.Close()
	if ok {
		metrics.SocketConnections.Dec()
		log.Debug("disconnected: %s", c.userID)
	}
}

func (h *Hub) snapshot(userID string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Connection, 0, len(h.connections[userID]))
	for c := range h.connections[userID] {
		conns = append(conns, c)
	}
	return conns
}

// Connected reports how many sockets userID has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// SendJSON writes v to every connection of userID. A user with no open
// connection is not an error. Connections that fail to write are dropped
// and the last write error is returned.
func (h *Hub) SendJSON(userID string, v interface{}) error {
	var lastErr error
	for _, c := range h.snapshot(userID) {
		if err := c.writeJSON(v); err != nil {
			log.Warn("failed send to %s: %v", userID, err)
			lastErr = err
			go h.remove(c)
		}
	}
	return lastErr
}

// Serve upgrades the request and registers the socket for userID until the
// client goes away. Incoming frames are read and discarded.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := h.add(userID, conn)
	defer h.remove(c)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
