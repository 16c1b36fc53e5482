package homeworks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
	"github.com/ziutek/telnet"
)

// Transport schemes accepted in an address.
const (
	SchemeTCP    = "tcp"
	SchemeTelnet = "telnet"
	SchemeSerial = "serial"
)

const (
	defaultTelnetPort = "23"
	defaultBaudRate   = 9600

	// serialPollInterval bounds a blocked serial read, so a closed port is
	// noticed by the reader.
	serialPollInterval = time.Second
)

// Endpoint is a parsed controller address.
//
// Address forms:
//   - host:port or tcp://host:port: raw TCP, e.g. a serial-to-network bridge
//   - telnet://host[:port]: terminal server speaking telnet option negotiation
//   - serial:///dev/ttyS0?baud=9600: local RS232 port
type Endpoint struct {
	Scheme string
	Host   string // host:port for network schemes
	Device string // device path for serial
	Baud   int
}

// ParseAddress parses a controller address.
func ParseAddress(addr string) (Endpoint, error) {
	if addr == "" {
		return Endpoint{}, fmt.Errorf("homeworks: empty address")
	}

	if !strings.Contains(addr, "://") {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return Endpoint{}, fmt.Errorf("homeworks: invalid address %q: %w", addr, err)
		}
		return Endpoint{Scheme: SchemeTCP, Host: addr}, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("homeworks: invalid address %q: %w", addr, err)
	}

	switch u.Scheme {
	case SchemeTCP:
		if _, _, err := net.SplitHostPort(u.Host); err != nil {
			return Endpoint{}, fmt.Errorf("homeworks: invalid address %q: %w", addr, err)
		}
		return Endpoint{Scheme: SchemeTCP, Host: u.Host}, nil

	case SchemeTelnet:
		if u.Hostname() == "" {
			return Endpoint{}, fmt.Errorf("homeworks: invalid address %q: missing host", addr)
		}
		port := u.Port()
		if port == "" {
			port = defaultTelnetPort
		}
		return Endpoint{Scheme: SchemeTelnet, Host: net.JoinHostPort(u.Hostname(), port)}, nil

	case SchemeSerial:
		device := u.Path
		if device == "" {
			device = u.Opaque
		}
		if device == "" {
			return Endpoint{}, fmt.Errorf("homeworks: invalid address %q: missing device", addr)
		}

		baud := defaultBaudRate
		if b := u.Query().Get("baud"); b != "" {
			baud, err = strconv.Atoi(b)
			if err != nil || baud <= 0 {
				return Endpoint{}, fmt.Errorf("homeworks: invalid baud rate %q", b)
			}
		}
		return Endpoint{Scheme: SchemeSerial, Device: device, Baud: baud}, nil

	default:
		return Endpoint{}, fmt.Errorf("homeworks: unsupported scheme %q", u.Scheme)
	}
}

func (e Endpoint) String() string {
	switch e.Scheme {
	case SchemeSerial:
		return fmt.Sprintf("serial://%s?baud=%d", e.Device, e.Baud)
	default:
		return e.Scheme + "://" + e.Host
	}
}

// Dial opens the transport described by e.
func (e Endpoint) Dial(ctx context.Context, timeout time.Duration) (io.ReadWriteCloser, error) {
	switch e.Scheme {
	case SchemeTCP:
		dialer := &net.Dialer{Timeout: timeout}
		return dialer.DialContext(ctx, "tcp", e.Host)

	case SchemeTelnet:
		dialer := &net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", e.Host)
		if err != nil {
			return nil, err
		}
		tc, err := telnet.NewConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return tc, nil

	case SchemeSerial:
		port, err := serial.OpenPort(&serial.Config{
			Name:        e.Device,
			Baud:        e.Baud,
			ReadTimeout: serialPollInterval,
		})
		if err != nil {
			return nil, err
		}
		return newPollingPort(port), nil

	default:
		return nil, fmt.Errorf("homeworks: unsupported scheme %q", e.Scheme)
	}
}

// pollingPort wraps a serial port opened with a read timeout. The port
// reports an expired timeout as (0, io.EOF); while the port is open that is
// an empty read, not the end of the stream.
type pollingPort struct {
	port   io.ReadWriteCloser
	closed atomic.Bool
}

func newPollingPort(port io.ReadWriteCloser) *pollingPort {
	return &pollingPort{port: port}
}

func (p *pollingPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) && !p.closed.Load() {
		return 0, nil
	}
	return n, err
}

func (p *pollingPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *pollingPort) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.port.Close()
}
