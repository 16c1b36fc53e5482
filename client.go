package homeworks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/pior/homeworks/protocol"
	"github.com/sony/gobreaker/v2"
)

var (
	ErrClientClosed   = errors.New("homeworks: client closed")
	ErrAlreadyRunning = errors.New("homeworks: client already running")
	ErrNotReady       = errors.New("homeworks: controller not ready")
)

const (
	// DefaultSettleDelay is the pause between readiness and the subscription
	// commands. Some bridges drop bytes sent right after the login exchange.
	DefaultSettleDelay = 200 * time.Millisecond

	// DefaultRetryInterval is the wait between connection attempts.
	DefaultRetryInterval = time.Second

	DefaultDialTimeout = 5 * time.Second

	readBufferSize = 1024
)

// Config holds configuration for a controller client.
type Config struct {
	// Address of the controller, see ParseAddress.
	// Required.
	Address string

	// Credentials are sent when the controller asks for a login, typically
	// "user,password". Empty means no login is expected.
	Credentials string

	// ReadinessDelay is how long to wait for a prompt or login banner before
	// assuming the controller is ready.
	// Zero means protocol.DefaultReadinessDelay.
	ReadinessDelay time.Duration

	// SettleDelay is the pause between readiness and subscription.
	// Zero means DefaultSettleDelay.
	SettleDelay time.Duration

	// RetryInterval is the wait before reconnecting after an attempt ends.
	// Zero means DefaultRetryInterval.
	RetryInterval time.Duration

	// DialTimeout bounds each dial.
	// Zero means DefaultDialTimeout.
	DialTimeout time.Duration

	// WarnWindow is how many distinct malformed lines are logged at warn level
	// before repeats are demoted to debug.
	// Zero means protocol.DefaultWarnWindow, negative disables deduplication.
	WarnWindow int

	// Logger receives diagnostics. If nil, nothing is logged.
	Logger *slog.Logger

	// CircuitBreakerSettings guards dials. If nil, no circuit breaker is used.
	// See NewCircuitBreakerSettings.
	CircuitBreakerSettings *gobreaker.Settings

	// for testing purposes only
	dial  func(ctx context.Context) (io.ReadWriteCloser, error)
	clock protocol.Clock
}

// attempt is one connection: a transport and the session speaking over it.
type attempt struct {
	id      int
	conn    *Connection
	session *protocol.Session
}

// Client keeps a monitoring connection to a Homeworks controller.
//
// Run dials the controller, performs the login handshake, subscribes to
// keypad, scene, dimmer and LED reports, and reconnects whenever the
// connection is lost. Decoded events are read with Next or Events; they are
// queued across reconnects.
//
// Thread Safety:
// All methods are safe for concurrent use. Run must be called once.
type Client struct {
	config   Config
	endpoint Endpoint
	logger   *slog.Logger

	sink    *protocol.Sink
	pool    *transportPool
	breaker *dialBreaker
	stats   *clientStatsCollector
	clock   protocol.Clock

	state atomic.Int32

	mu         sync.Mutex
	current    *attempt
	ready      chan struct{} // closed while the current attempt is subscribed
	subscribed bool
	running    bool

	sendMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// NewClient creates a client for the controller at config.Address.
// Nothing is dialed until Run is called.
func NewClient(config Config) (*Client, error) {
	endpoint, err := ParseAddress(config.Address)
	if err != nil {
		return nil, err
	}

	if config.ReadinessDelay <= 0 {
		config.ReadinessDelay = protocol.DefaultReadinessDelay
	}
	if config.SettleDelay <= 0 {
		config.SettleDelay = DefaultSettleDelay
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultRetryInterval
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.WarnWindow == 0 {
		config.WarnWindow = protocol.DefaultWarnWindow
	}

	clock := config.clock
	if clock == nil {
		clock = protocol.SystemClock
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dial := config.dial
	if dial == nil {
		dial = func(ctx context.Context) (io.ReadWriteCloser, error) {
			return endpoint.Dial(ctx, config.DialTimeout)
		}
	}

	c := &Client{
		config:   config,
		endpoint: endpoint,
		logger:   logger.With("address", endpoint.String()),
		sink:     protocol.NewSink(),
		breaker:  newDialBreaker(config.CircuitBreakerSettings),
		stats:    newClientStatsCollector(),
		clock:    clock,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	c.state.Store(int32(protocol.StateConnecting))

	c.pool, err = newTransportPool(func(ctx context.Context) (*Connection, error) {
		rw, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		return NewConnection(endpoint.String(), rw, c.stats), nil
	}, c.stats)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Run maintains the connection until ctx is done or Close is called.
// It returns nil after Close and ctx.Err() when ctx ends first.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return ErrClientClosed
	default:
	}
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()

	defer close(c.stopped)
	defer c.shutdown()

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for id := 1; ; id++ {
		err := c.runAttempt(ctx, id)
		if ctx.Err() != nil {
			break
		}

		c.logger.Warn("connection attempt ended", "attempt", id, "err", err, "retry_in", c.config.RetryInterval)
		if !sleep(ctx, c.config.RetryInterval) {
			break
		}
	}

	c.logger.Info("client stopped")
	return parent.Err()
}

func (c *Client) runAttempt(ctx context.Context, id int) error {
	c.state.Store(int32(protocol.StateConnecting))

	res, err := c.acquire(ctx)
	if err != nil {
		c.stats.recordDialError()
		return fmt.Errorf("homeworks: dial %s: %w", c.endpoint, err)
	}

	conn := res.Value()
	c.stats.recordConnect()

	logger := c.logger.With("attempt", id)
	logger.Info("connected")

	a := &attempt{
		id:      id,
		conn:    conn,
		session: protocol.NewSession(conn, c.sink, c.sessionOptions(logger)...),
	}
	c.setCurrent(a)

	readerDone := make(chan struct{})
	a.session.Connected()
	go func() {
		defer close(readerDone)
		readLoop(conn, a.session)
	}()

	err = c.serve(ctx, a)

	c.clearCurrent(a)
	_ = conn.Close()
	<-readerDone
	res.Destroy()

	c.stats.recordDisconnect()
	if protocol.IsAuthError(err) {
		c.stats.recordAuthFailure()
	}
	return err
}

// serve waits for readiness, subscribes and then waits for the connection to
// be lost.
func (c *Client) serve(ctx context.Context, a *attempt) error {
	if err := a.session.Ready().Wait(ctx); err != nil {
		return err
	}

	if err := c.subscribe(ctx, a); err != nil {
		return err
	}
	c.markSubscribed(a)

	select {
	case <-a.session.Lost().Done():
		return a.session.Lost().Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// subscribe sends the monitoring commands once the handshake has settled.
// A login banner arriving after the readiness delay puts the session back in
// StateLoggingIn: the commands wait for the login to complete.
func (c *Client) subscribe(ctx context.Context, a *attempt) error {
	for {
		if err := c.settle(ctx, a); err != nil {
			return err
		}

		state := a.session.State()
		if state == protocol.StateReady {
			break
		}
		if state != protocol.StateLoggingIn {
			// Lost: the reader reports why once it stops
			if err := a.session.Lost().Wait(ctx); err != nil {
				return err
			}
			return protocol.ErrConnectionLost
		}

		c.logger.Debug("login in progress, delaying subscription", "attempt", a.id)
		if err := a.session.Login().Wait(ctx); err != nil {
			return err
		}
	}

	for _, cmd := range protocol.SubscribeCommands {
		if err := c.send(ctx, a, cmd); err != nil {
			return fmt.Errorf("homeworks: subscribe: %w", err)
		}
	}
	return nil
}

// settle waits SettleDelay on the client clock.
func (c *Client) settle(ctx context.Context, a *attempt) error {
	elapsed := make(chan struct{})
	timer := c.clock.AfterFunc(c.config.SettleDelay, func() { close(elapsed) })
	defer timer.Stop()

	select {
	case <-elapsed:
		return nil
	case <-a.session.Lost().Done():
		return a.session.Lost().Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) acquire(ctx context.Context) (*puddle.Resource[*Connection], error) {
	if c.breaker == nil {
		return c.pool.Acquire(ctx)
	}
	return c.breaker.Execute(func() (*puddle.Resource[*Connection], error) {
		return c.pool.Acquire(ctx)
	})
}

func (c *Client) sessionOptions(logger *slog.Logger) []protocol.Option {
	opts := []protocol.Option{
		protocol.WithCredentials(c.config.Credentials),
		protocol.WithLogger(logger),
		protocol.WithReadinessDelay(c.config.ReadinessDelay),
		protocol.WithWarnWindow(c.config.WarnWindow),
		protocol.WithHooks(protocol.Hooks{
			OnStateChange: func(_, to protocol.State) {
				c.state.Store(int32(to))
			},
			OnLine: func(string) {
				c.stats.recordLine()
			},
			OnEvent: func(protocol.Event) {
				c.stats.recordEvent()
			},
			OnWarning: func(error) {
				c.stats.recordWarning()
			},
		}),
	}
	return append(opts, protocol.WithClock(c.clock))
}

// readLoop feeds the session until the transport fails.
func readLoop(conn *Connection, session *protocol.Session) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			session.Receive(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			session.Closed(err)
			return
		}
	}
}

func (c *Client) send(ctx context.Context, a *attempt, cmd string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	err := a.conn.WithWriteDeadline(ctx, func() error {
		return a.session.Send(cmd)
	})
	if err != nil {
		return err
	}
	c.stats.recordCommand()
	return nil
}

// Send writes a raw command to the controller.
// It returns ErrNotReady when no connection is ready.
func (c *Client) Send(ctx context.Context, cmd string) error {
	a := c.currentAttempt()
	if a == nil || a.session.State() != protocol.StateReady {
		return ErrNotReady
	}
	return c.send(ctx, a, cmd)
}

// FadeDim fades the dimmer at address to intensity (0-100) over fadeTime
// seconds, starting after delayTime seconds.
func (c *Client) FadeDim(ctx context.Context, intensity, fadeTime, delayTime int, address string) error {
	return c.Send(ctx, protocol.FadeDim(intensity, fadeTime, delayTime, address))
}

// RequestDimmerLevel asks the controller to report the level of the dimmer at
// address. The answer arrives as a KindLightLevelChanged event.
func (c *Client) RequestDimmerLevel(ctx context.Context, address string) error {
	return c.Send(ctx, protocol.RequestDimmerLevel(address))
}

// WaitReady blocks until a connection is ready and subscribed.
func (c *Client) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next event, waiting until one is available.
// It returns protocol.ErrSinkClosed once the client stopped and every queued
// event was returned.
func (c *Client) Next(ctx context.Context) (protocol.Event, error) {
	return c.sink.Take(ctx)
}

// Events yields events until ctx is done or the client stopped.
func (c *Client) Events(ctx context.Context) iter.Seq[protocol.Event] {
	return func(yield func(protocol.Event) bool) {
		for {
			ev, err := c.sink.Take(ctx)
			if err != nil {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// State returns the handshake state of the current connection attempt.
func (c *Client) State() protocol.State {
	return protocol.State(c.state.Load())
}

// LastActivity returns when the controller last sent anything on the current
// connection. It is zero while disconnected.
func (c *Client) LastActivity() time.Time {
	a := c.currentAttempt()
	if a == nil {
		return time.Time{}
	}
	return a.conn.LastRead()
}

// CircuitBreakerState returns the dial breaker state, false when no breaker
// is configured.
func (c *Client) CircuitBreakerState() (gobreaker.State, bool) {
	if c.breaker == nil {
		return gobreaker.StateClosed, false
	}
	return c.breaker.State(), true
}

// Endpoint returns the parsed controller address.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// Close stops Run, closes the transport and waits for the client to stop.
// Queued events can still be read with Next.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.done)
		running := c.running
		c.mu.Unlock()

		if running {
			<-c.stopped
		} else {
			c.shutdown()
		}
	})
	return nil
}

func (c *Client) shutdown() {
	c.pool.Close()
	c.sink.Close()
}

func (c *Client) currentAttempt() *attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Client) setCurrent(a *attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = a
}

func (c *Client) markSubscribed(a *attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != a || c.subscribed {
		return
	}
	c.subscribed = true
	close(c.ready)
}

func (c *Client) clearCurrent(a *attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != a {
		return
	}
	c.current = nil
	if c.subscribed {
		c.subscribed = false
		c.ready = make(chan struct{})
	}
}

// sleep waits for d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
