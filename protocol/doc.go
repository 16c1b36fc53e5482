// Package protocol implements the line protocol spoken by Lutron Homeworks
// Series 4/8 controllers, independent of how the byte stream is carried.
//
// The package turns a chunked byte stream into typed events. It does not
// dial, read or schedule anything itself: a driver owns the transport and
// reports what happens to a Session.
//
// # Core Types
//
//   - Accumulator: splits the receive buffer into CRLF-delimited lines and
//     strips unterminated prompts from its front
//   - Session: the per-connection login handshake and line dispatch
//   - Event: a decoded status line (button press, dimmer level, LED state...)
//   - Sink: unbounded FIFO of events shared with the consumer
//   - Result: resolve-once cell used for readiness and connection loss
//
// # Driving a Session
//
//	sink := protocol.NewSink()
//	s := protocol.NewSession(conn, sink, protocol.WithCredentials("user,password"))
//	s.Connected()
//	go func() {
//	    buf := make([]byte, 1024)
//	    for {
//	        n, err := conn.Read(buf)
//	        if n > 0 {
//	            s.Receive(buf[:n])
//	        }
//	        if err != nil {
//	            s.Closed(err)
//	            return
//	        }
//	    }
//	}()
//	if err := s.Ready().Wait(ctx); err != nil {
//	    return err
//	}
//	for _, cmd := range protocol.SubscribeCommands {
//	    s.Send(cmd)
//	}
//
// # Handshake
//
// Controllers may print a "LOGIN: " banner, a "LNET> " or "L232> " prompt, or
// nothing at all. None of these are line terminated, so they are matched as
// prefixes of the buffer before line framing. A session becomes ready on a
// prompt, on "login successful", on any other line, or when the readiness
// delay passes without a prompt or banner.
//
// # Error Handling
//
// Readiness and connection loss are the only failure surface for handshake
// and transport problems:
//
//   - *ConnectionLostError: transport closed, reconnect
//   - ErrMissingCredentials, ErrInvalidCredentials (*AuthError): login failed
//
// Malformed lines (*LineError) and non-ASCII chunks (*DecodeError) are
// reported to the logger and hooks, and never interrupt event delivery.
package protocol
