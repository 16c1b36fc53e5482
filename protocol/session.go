package protocol

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// Handshake events driving the state table.
const (
	evConnect = "connect"
	evLogin   = "login"
	evReady   = "ready"
	evLose    = "lose"
)

var transitions = fsm.Events{
	{Name: evConnect, Src: []string{StateConnecting.String()}, Dst: StateAwaitingReadiness.String()},
	{Name: evLogin, Src: []string{StateAwaitingReadiness.String(), StateReady.String()}, Dst: StateLoggingIn.String()},
	{Name: evReady, Src: []string{StateAwaitingReadiness.String(), StateLoggingIn.String()}, Dst: StateReady.String()},
	{Name: evLose, Src: []string{
		StateConnecting.String(),
		StateAwaitingReadiness.String(),
		StateLoggingIn.String(),
		StateReady.String(),
	}, Dst: StateLost.String()},
}

// Hooks observe a session. They run synchronously while the session is
// locked and must not call back into it.
type Hooks struct {
	OnStateChange func(from, to State)
	OnLine        func(line string)
	OnEvent       func(ev Event)
	OnWarning     func(err error)
}

// Option configures a Session.
type Option func(*Session)

// WithCredentials sets the login sent when the controller shows its banner,
// typically "user,password".
func WithCredentials(credentials string) Option {
	return func(s *Session) {
		if credentials != "" {
			s.credentials = []byte(credentials)
		}
	}
}

// WithLogger sets the diagnostics sink.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the clock used for the readiness timer.
func WithClock(clock Clock) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithReadinessDelay sets how long to wait for a prompt before assuming
// the controller is interactive.
func WithReadinessDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithHooks installs observation callbacks.
func WithHooks(h Hooks) Option {
	return func(s *Session) {
		s.hooks = h
	}
}

// WithWarnWindow sets how many distinct malformed lines are logged at warn
// level before repeats are demoted to debug. Zero disables deduplication.
func WithWarnWindow(n int) Option {
	return func(s *Session) {
		s.warnWindow = n
	}
}

// Session runs the login handshake and line dispatch for one connection
// attempt. It is independent of how I/O is scheduled: the driver reports
// Connected, Receive and Closed, and the Session writes to the transport.
//
// Thread Safety:
// All entry points serialize on an internal mutex, so the driver and the
// readiness timer may call in from different goroutines.
type Session struct {
	mu sync.Mutex

	transport io.WriteCloser
	publisher Publisher

	credentials []byte
	logger      *slog.Logger
	clock       Clock
	delay       time.Duration
	hooks       Hooks
	warnWindow  int
	warn        *warnFilter

	machine *fsm.FSM
	current State
	buf     Accumulator

	timer        Timer
	timerArmed   bool
	readyByTimer bool
	loginSent    bool
	closePending bool

	ready *Result
	login *Result
	lost  *Result
}

// NewSession creates a session in StateConnecting that writes to transport
// and publishes decoded events to pub.
func NewSession(transport io.WriteCloser, pub Publisher, opts ...Option) *Session {
	s := &Session{
		transport:  transport,
		publisher:  pub,
		logger:     slog.New(slog.DiscardHandler),
		clock:      SystemClock,
		delay:      DefaultReadinessDelay,
		warnWindow: DefaultWarnWindow,
		current:    StateConnecting,
		ready:      NewResult(),
		login:      NewResult(),
		lost:       NewResult(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.warn = newWarnFilter(s.warnWindow)
	s.machine = fsm.NewFSM(StateConnecting.String(), transitions, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			s.entered(parseState(e.Src), parseState(e.Dst))
		},
	})

	return s
}

// Ready is resolved with nil once the controller accepts commands, or with
// the error that ended the attempt first.
func (s *Session) Ready() *Result {
	return s.ready
}

// Login is resolved with nil when the controller accepts the credentials,
// or with the error that ended the attempt first. It stays pending while no
// login banner was seen.
func (s *Session) Login() *Result {
	return s.login
}

// Lost is resolved with a *ConnectionLostError when the transport closes.
func (s *Session) Lost() *Result {
	return s.lost
}

// State returns the current handshake state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Connected starts the handshake: the session waits for a prompt, a login
// banner or any line, and falls back to ready after the readiness delay.
func (s *Session) Connected() {
	s.mu.Lock()
	if !s.fire(evConnect) {
		s.mu.Unlock()
		return
	}
	s.timerArmed = true
	s.timer = s.clock.AfterFunc(s.delay, s.readinessTimeout)

	// Bytes may have arrived before the driver reported the connection
	s.process()
	s.unlockAndFlush()
}

// Receive feeds bytes read from the transport.
func (s *Session) Receive(p []byte) {
	s.mu.Lock()

	if s.current == StateLost {
		s.mu.Unlock()
		return
	}

	if err := checkASCII(p); err != nil {
		s.logger.Warn("dropping undecodable chunk", "err", err, "len", len(p))
		if s.hooks.OnWarning != nil {
			s.hooks.OnWarning(err)
		}
		s.mu.Unlock()
		return
	}

	s.buf.Write(p)
	s.process()
	s.unlockAndFlush()
}

// Closed reports that the transport is gone. reason may be nil.
func (s *Session) Closed(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimer()
	s.fire(evLose)
	s.buf.Reset()

	err := &ConnectionLostError{Cause: reason}
	if s.ready.Resolve(err) {
		s.logger.Info("connection lost before ready", "err", reason)
	}
	s.login.Resolve(err)
	s.lost.Resolve(err)
}

// Send writes cmd and the line terminator to the transport in one call.
func (s *Session) Send(cmd string) error {
	if s.State() == StateLost {
		if err := s.lost.Err(); err != nil {
			return err
		}
		return ErrConnectionLost
	}

	s.logger.Debug("send", "cmd", cmd)
	return WriteCommand(s.transport, cmd)
}

// Close closes the transport. The driver still reports Closed once its
// reader stops.
func (s *Session) Close() error {
	return s.transport.Close()
}

// process consumes the buffer until no rule makes progress. Rules are tried
// in a fixed order: login banner, connection prompts, framed lines.
func (s *Session) process() {
	for s.step() {
	}
}

func (s *Session) step() bool {
	switch s.current {
	case StateConnecting, StateLost:
		return false
	}

	if s.acceptsLogin() && s.buf.TrimPrefix(LoginPrompt) {
		s.loginPrompt()
		return true
	}

	for _, prompt := range ConnectionPrompts {
		if s.buf.TrimPrefix(prompt) {
			s.prompt()
			return true
		}
	}

	raw, ok := s.buf.Next()
	if !ok {
		return false
	}
	s.line(string(raw))
	return true
}

// acceptsLogin reports whether a login banner is expected. A banner showing up
// after the readiness timer already fired is still answered.
func (s *Session) acceptsLogin() bool {
	switch s.current {
	case StateAwaitingReadiness, StateLoggingIn:
		return true
	case StateReady:
		return s.readyByTimer && !s.loginSent
	default:
		return false
	}
}

func (s *Session) loginPrompt() {
	s.stopTimer()

	if s.loginSent {
		// The controller asks again: the credentials were not accepted
		s.fail(ErrInvalidCredentials)
		return
	}

	if s.credentials == nil {
		s.fail(ErrMissingCredentials)
		return
	}

	s.loginSent = true
	s.logger.Debug("login requested, sending credentials")
	if _, err := s.transport.Write(AppendCommand(nil, string(s.credentials))); err != nil {
		s.logger.Warn("sending credentials failed", "err", err)
	}
	s.fire(evLogin)
}

func (s *Session) prompt() {
	if s.current == StateReady {
		return
	}
	s.stopTimer()
	s.fire(evReady)
	s.ready.Resolve(nil)
}

func (s *Session) line(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}

	s.logger.Debug("raw", "line", line)
	if s.hooks.OnLine != nil {
		s.hooks.OnLine(line)
	}

	switch line {
	case LoginSuccessful:
		s.markReady()
		return
	case LoginIncorrect:
		s.fail(ErrInvalidCredentials)
		return
	}

	// Any traffic proves the link is live. Once ready this is a no-op.
	s.markReady()
	s.dispatch(line)
}

func (s *Session) markReady() {
	switch s.current {
	case StateAwaitingReadiness, StateLoggingIn:
		s.stopTimer()
		s.fire(evReady)
	}
	s.ready.Resolve(nil)
}

func (s *Session) dispatch(line string) {
	ev, err := Parse(line)
	if err != nil {
		if s.warn.first(line) {
			s.logger.Warn("not handling line", "err", err)
		} else {
			s.logger.Debug("not handling line", "err", err)
		}
		if s.hooks.OnWarning != nil {
			s.hooks.OnWarning(err)
		}
		return
	}

	if s.publisher != nil {
		s.publisher.Put(ev)
	}
	if s.hooks.OnEvent != nil {
		s.hooks.OnEvent(ev)
	}
}

// fail ends the attempt on a login problem. The transport is closed once the
// session lock is released.
func (s *Session) fail(err error) {
	s.stopTimer()
	if !s.ready.Resolve(err) {
		s.logger.Error("login failed after ready", "err", err)
	} else {
		s.logger.Error("login failed", "err", err)
	}
	s.login.Resolve(err)
	s.fire(evLose)
	s.buf.Reset()
	s.closePending = true
}

func (s *Session) readinessTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.timerArmed || s.current != StateAwaitingReadiness {
		return
	}
	s.timerArmed = false
	s.readyByTimer = true
	s.logger.Debug("no prompt received, assuming ready", "delay", s.delay)
	s.fire(evReady)
	s.ready.Resolve(nil)
}

func (s *Session) stopTimer() {
	if !s.timerArmed {
		return
	}
	s.timerArmed = false
	if s.timer != nil {
		s.timer.Stop()
	}
}

// fire applies a handshake event if the current state allows it.
func (s *Session) fire(event string) bool {
	if !s.machine.Can(event) {
		return false
	}
	if err := s.machine.Event(context.Background(), event); err != nil {
		s.logger.Error("invalid handshake transition", "event", event, "err", err)
		return false
	}
	return true
}

func (s *Session) entered(from, to State) {
	s.current = to
	if from == StateLoggingIn && to == StateReady {
		s.login.Resolve(nil)
	}
	s.logger.Debug("session state", "from", from, "to", to)
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(from, to)
	}
}

func (s *Session) unlockAndFlush() {
	closeNow := s.closePending
	s.closePending = false
	s.mu.Unlock()

	if closeNow {
		if err := s.transport.Close(); err != nil {
			s.logger.Debug("closing transport", "err", err)
		}
	}
}

func checkASCII(p []byte) error {
	for i, b := range p {
		if b >= 0x80 {
			return &DecodeError{Offset: i, Byte: b}
		}
	}
	return nil
}
