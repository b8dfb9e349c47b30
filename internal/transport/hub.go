package transport

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/services/broadcast"
)

// Conn is the outbound side of one player connection.
// Writes are serialized so concurrent sends never interleave bytes.
type Conn struct {
	id           model.ConnID
	conn         net.Conn
	writeTimeout time.Duration
	connectedAt  time.Time

	mu sync.Mutex
}

func newConn(id model.ConnID, conn net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		id:           id,
		conn:         conn,
		writeTimeout: writeTimeout,
		connectedAt:  time.Now(),
	}
}

// ID returns the connection handle
func (c *Conn) ID() model.ConnID {
	return c.id
}

// Write sends payload, bounded by the write timeout
func (c *Conn) Write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(payload)
	return err
}

// Close closes the underlying socket
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Hub maps connection handles to live connections
type Hub struct {
	mu     sync.RWMutex
	conns  map[model.ConnID]*Conn
	logger *slog.Logger
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[model.ConnID]*Conn),
		logger: logger.With(slog.String("component", "hub")),
	}
}

// Ensure Hub can serve as the broadcast sender
var _ broadcast.Sender = (*Hub)(nil)

// Register adds a connection to the hub
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	count := len(h.conns)
	h.mu.Unlock()

	h.logger.Debug("connection registered",
		slog.String("conn_id", string(c.id)),
		slog.Int("total_connections", count))
}

// Unregister removes a connection. Unknown handles are ignored.
func (h *Hub) Unregister(id model.ConnID) {
	h.mu.Lock()
	c, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
	}
	count := len(h.conns)
	h.mu.Unlock()

	if ok {
		h.logger.Debug("connection unregistered",
			slog.String("conn_id", string(id)),
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int("total_connections", count))
	}
}

// Send writes payload to one connection
func (h *Hub) Send(id model.ConnID, payload []byte) error {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()

	if !ok {
		return model.ErrUnknownConnection
	}
	return c.Write(payload)
}

// Count returns the number of registered connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
