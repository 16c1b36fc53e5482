package homeworks

import (
	"sync/atomic"
)

// ClientStats contains statistics about a client and its connection attempts.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: BytesRead, BytesWritten, Lines, Events, Warnings, CommandsSent
//   - Counters: Connects, Disconnects, DialErrors, AuthFailures
//   - Counters: CreatedTransports, DestroyedTransports
type ClientStats struct {
	// Traffic counters
	BytesRead    uint64 // Bytes received from the controller
	BytesWritten uint64 // Bytes written to the controller, credentials included
	Lines        uint64 // Non-empty lines framed
	Events       uint64 // Lines decoded into events
	Warnings     uint64 // Malformed lines and undecodable chunks
	CommandsSent uint64 // Commands written through Send

	// Connection lifecycle counters
	Connects            uint64 // Transports opened
	Disconnects         uint64 // Attempts ended after a transport was opened
	DialErrors          uint64 // Failed dials, including dials refused by the circuit breaker
	AuthFailures        uint64 // Attempts ended by a rejected or missing login
	CreatedTransports   uint64 // Transports constructed by the pool
	DestroyedTransports uint64 // Transports destroyed by the pool
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - client updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordRead(n int) {
	atomic.AddUint64(&c.stats.BytesRead, uint64(n))
}

func (c *clientStatsCollector) recordWrite(n int) {
	atomic.AddUint64(&c.stats.BytesWritten, uint64(n))
}

func (c *clientStatsCollector) recordLine() {
	atomic.AddUint64(&c.stats.Lines, 1)
}

func (c *clientStatsCollector) recordEvent() {
	atomic.AddUint64(&c.stats.Events, 1)
}

func (c *clientStatsCollector) recordWarning() {
	atomic.AddUint64(&c.stats.Warnings, 1)
}

func (c *clientStatsCollector) recordCommand() {
	atomic.AddUint64(&c.stats.CommandsSent, 1)
}

func (c *clientStatsCollector) recordConnect() {
	atomic.AddUint64(&c.stats.Connects, 1)
}

func (c *clientStatsCollector) recordDisconnect() {
	atomic.AddUint64(&c.stats.Disconnects, 1)
}

func (c *clientStatsCollector) recordDialError() {
	atomic.AddUint64(&c.stats.DialErrors, 1)
}

func (c *clientStatsCollector) recordAuthFailure() {
	atomic.AddUint64(&c.stats.AuthFailures, 1)
}

func (c *clientStatsCollector) recordCreate() {
	atomic.AddUint64(&c.stats.CreatedTransports, 1)
}

func (c *clientStatsCollector) recordDestroy() {
	atomic.AddUint64(&c.stats.DestroyedTransports, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		BytesRead:           atomic.LoadUint64(&c.stats.BytesRead),
		BytesWritten:        atomic.LoadUint64(&c.stats.BytesWritten),
		Lines:               atomic.LoadUint64(&c.stats.Lines),
		Events:              atomic.LoadUint64(&c.stats.Events),
		Warnings:            atomic.LoadUint64(&c.stats.Warnings),
		CommandsSent:        atomic.LoadUint64(&c.stats.CommandsSent),
		Connects:            atomic.LoadUint64(&c.stats.Connects),
		Disconnects:         atomic.LoadUint64(&c.stats.Disconnects),
		DialErrors:          atomic.LoadUint64(&c.stats.DialErrors),
		AuthFailures:        atomic.LoadUint64(&c.stats.AuthFailures),
		CreatedTransports:   atomic.LoadUint64(&c.stats.CreatedTransports),
		DestroyedTransports: atomic.LoadUint64(&c.stats.DestroyedTransports),
	}
}
