package homeworks

import (
	"context"

	"github.com/jackc/puddle/v2"
)

// transportPool owns the lifecycle of the controller transport.
// A controller accepts a single monitoring session, so the pool holds at most
// one Connection: the constructor dials and the destructor closes.
type transportPool struct {
	pool  *puddle.Pool[*Connection]
	stats *clientStatsCollector
}

// newTransportPool creates a single-transport pool around the given dialer.
func newTransportPool(constructor func(ctx context.Context) (*Connection, error), stats *clientStatsCollector) (*transportPool, error) {
	p := &transportPool{stats: stats}

	poolConfig := &puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			conn, err := constructor(ctx)
			if err == nil {
				p.stats.recordCreate()
			}
			return conn, err
		},
		Destructor: func(c *Connection) {
			p.stats.recordDestroy()
			_ = c.Close()
		},
		MaxSize: 1,
	}

	pool, err := puddle.NewPool(poolConfig)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// Acquire returns the transport, dialing it if none is open.
func (p *transportPool) Acquire(ctx context.Context) (*puddle.Resource[*Connection], error) {
	return p.pool.Acquire(ctx)
}

// Open reports how many transports exist, in use or being constructed.
func (p *transportPool) Open() int32 {
	return p.pool.Stat().TotalResources()
}

// Close destroys the transport. It waits for an acquired transport to be
// released or destroyed first.
func (p *transportPool) Close() {
	p.pool.Close()
}
