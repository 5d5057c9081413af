package game

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is one live client connection: the socket, an identity assigned at
// registration, and a buffered outbound queue drained by its own write pump.
type Conn struct {
	id        string
	sock      WebsocketConnection
	outbox    chan []byte
	pingChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(sock WebsocketConnection) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		sock:     sock,
		outbox:   make(chan []byte, 64),
		pingChan: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (c *Conn) Id() string { return c.id }

// WritePump serializes all socket writes for one connection. A slow or dead
// socket only ever stalls its own pump.
func (c *Conn) WritePump() {
	for {
		select {
		case data := <-c.outbox:
			if err := c.sock.Write(data); err != nil {
				return
			}
		case <-c.pingChan:
			if err := c.sock.Ping(); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// send enqueues without blocking; a full queue means the recipient is not
// keeping up and the message is dropped.
func (c *Conn) send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbox <- data:
		return true
	default:
		return false
	}
}

func (c *Conn) requestPing() {
	select {
	case c.pingChan <- struct{}{}:
	default:
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Registry tracks live connections by id and fans outbound messages out to
// them. Sends are best effort and independent per recipient.
type Registry struct {
	locker   sync.RWMutex
	conns    map[string]*Conn
	maxConns int
	logger   *slog.Logger
}

func NewRegistry(maxConns int, logger *slog.Logger) *Registry {
	return &Registry{
		conns:    make(map[string]*Conn),
		maxConns: maxConns,
		logger:   logger,
	}
}

func (r *Registry) Register(sock WebsocketConnection) (*Conn, error) {
	conn := newConn(sock)

	r.locker.Lock()
	if r.maxConns > 0 && len(r.conns) >= r.maxConns {
		r.locker.Unlock()
		return nil, ErrServerFull
	}
	r.conns[conn.id] = conn
	r.locker.Unlock()

	go conn.WritePump()
	return conn, nil
}

func (r *Registry) Unregister(connId string) {
	r.locker.Lock()
	conn, exists := r.conns[connId]
	delete(r.conns, connId)
	r.locker.Unlock()

	if exists {
		conn.close()
		conn.sock.Close("")
	}
}

func (r *Registry) Lookup(connId string) (*Conn, bool) {
	r.locker.RLock()
	conn, exists := r.conns[connId]
	r.locker.RUnlock()
	return conn, exists
}

func (r *Registry) Broadcast(connIds []string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("failed to marshal outbound message", "action", msg.Action, "error", err)
		return
	}

	r.locker.RLock()
	recipients := make([]*Conn, 0, len(connIds))
	for _, id := range connIds {
		if conn, exists := r.conns[id]; exists {
			recipients = append(recipients, conn)
		}
	}
	r.locker.RUnlock()

	for _, conn := range recipients {
		if !conn.send(data) {
			r.logger.Warn("dropped outbound message", "conn_id", conn.id, "action", msg.Action)
		}
	}
}

// PingLoop keeps idle sockets alive. Runs until the process exits.
func (r *Registry) PingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		r.locker.RLock()
		conns := make([]*Conn, 0, len(r.conns))
		for _, conn := range r.conns {
			conns = append(conns, conn)
		}
		r.locker.RUnlock()

		for _, conn := range conns {
			conn.requestPing()
		}
	}
}
