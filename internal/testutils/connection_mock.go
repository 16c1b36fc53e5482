package testutils

import (
	"bytes"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// ConnectionMock is a mock implementation of net.Conn for testing.
// Reads are served from pre-configured controller output; every Write call is
// recorded separately so tests can check that a command went out in one call.
type ConnectionMock struct {
	mu       sync.Mutex
	readBuf  *bytes.Buffer
	writes   []string
	writeErr error
	closed   int
}

// NewConnectionMock creates a new mock connection with pre-configured controller output
func NewConnectionMock(output ...string) *ConnectionMock {
	return &ConnectionMock{
		readBuf: bytes.NewBufferString(strings.Join(output, "")),
	}
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed > 0 {
		return 0, net.ErrClosed
	}
	if m.readBuf.Len() == 0 {
		return 0, io.EOF
	}
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	if m.closed > 0 {
		return 0, net.ErrClosed
	}
	m.writes = append(m.writes, string(b))
	return len(b), nil
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// FailWrites makes every following Write return err.
func (m *ConnectionMock) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4003}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// Writes returns the payload of every Write call, in order
func (m *ConnectionMock) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// Written returns all bytes written to the mock connection
func (m *ConnectionMock) Written() string {
	return strings.Join(m.Writes(), "")
}

// CloseCount returns how many times Close was called
func (m *ConnectionMock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
