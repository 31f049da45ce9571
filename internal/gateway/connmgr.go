package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn represents a single WebSocket connection.
type Conn struct {
	ID          string
	WS          *websocket.Conn
	writeMu     sync.Mutex
	ConnectedAt time.Time
}

// Send writes a text frame to the WebSocket connection (thread-safe).
func (c *Conn) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.WS.WriteMessage(websocket.TextMessage, payload)
}

func (c *Conn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.WS.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// ConnManager tracks all active WebSocket connections and doubles as the
// processor's real-time publisher.
type ConnManager struct {
	mu    sync.RWMutex
	conns map[string]*Conn // connID → conn
}

func NewConnManager() *ConnManager {
	return &ConnManager{conns: make(map[string]*Conn)}
}

// Add registers a new connection.
func (m *ConnManager) Add(conn *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[conn.ID] = conn
}

// Remove unregisters a connection.
func (m *ConnManager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, connID)
}

// Get returns a connection by ID.
func (m *ConnManager) Get(connID string) *Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conns[connID]
}

// Count returns the number of live connections.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Publish delivers one payload to the named connection.
func (m *ConnManager) Publish(connectionID string, payload []byte) error {
	conn := m.Get(connectionID)
	if conn == nil {
		return fmt.Errorf("no such connection: %s", connectionID)
	}
	return conn.Send(payload)
}

// Sweep pings every connection and drops the ones that no longer answer.
// Returns the number of dropped connections.
func (m *ConnManager) Sweep() int {
	m.mu.RLock()
	conns := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	dropped := 0
	for _, c := range conns {
		if err := c.ping(); err != nil {
			c.WS.Close()
			m.Remove(c.ID)
			dropped++
		}
	}
	return dropped
}
