package homeworks

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/homeworks/internal/coarsetime"
)

var (
	ErrConnectionClosed = errors.New("homeworks: connection closed")
)

// writeDeadliner is implemented by transports that support write timeouts (net.Conn).
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Connection represents a single transport to a controller.
// Reads belong to the attempt's reader goroutine; writes are serialized so a
// command always leaves in one piece.
type Connection struct {
	addr  string
	rw    io.ReadWriteCloser
	stats *clientStatsCollector

	closed   atomic.Bool
	lastRead atomic.Int64 // unix nanos, coarse

	mu       sync.Mutex // serializes writes
	lastUsed time.Time
}

// NewConnection wraps an open transport.
func NewConnection(addr string, rw io.ReadWriteCloser, stats *clientStatsCollector) *Connection {
	if stats == nil {
		stats = newClientStatsCollector()
	}
	now := coarsetime.Now()
	c := &Connection{
		addr:     addr,
		rw:       rw,
		stats:    stats,
		lastUsed: now,
	}
	c.lastRead.Store(now.UnixNano())
	return c
}

// Read reads controller output.
func (c *Connection) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)
	if n > 0 {
		c.stats.recordRead(n)
		c.lastRead.Store(coarsetime.Now().UnixNano())
	}
	return n, err
}

// Write writes p with a single call to the transport.
func (c *Connection) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return 0, ErrConnectionClosed
	}

	n, err := c.rw.Write(p)
	c.stats.recordWrite(n)
	c.lastUsed = coarsetime.Now()
	return n, err
}

// WithWriteDeadline runs fn with the transport write deadline taken from ctx.
// Transports without deadlines run fn unchanged.
func (c *Connection) WithWriteDeadline(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wd, ok := c.rw.(writeDeadliner)
	deadline, hasDeadline := ctx.Deadline()
	if !ok || !hasDeadline {
		return fn()
	}

	_ = wd.SetWriteDeadline(deadline)
	defer wd.SetWriteDeadline(time.Time{})
	return fn()
}

// LastUsed returns when the connection was last written to
func (c *Connection) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// LastRead returns when controller output was last received
func (c *Connection) LastRead() time.Time {
	return time.Unix(0, c.lastRead.Load())
}

// IsClosed returns whether the connection is closed
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Addr returns the controller address
func (c *Connection) Addr() string {
	return c.addr
}

// Close closes the transport, unblocking a pending Read or Write.
// Calling it more than once is a no-op.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.rw.Close()
}
