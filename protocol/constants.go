package protocol

import "time"

// State is the handshake state of a single connection attempt.
type State int

const (
	StateConnecting State = iota
	StateAwaitingReadiness
	StateLoggingIn
	StateReady
	StateLost
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingReadiness:
		return "awaiting-readiness"
	case StateLoggingIn:
		return "logging-in"
	case StateReady:
		return "ready"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

func parseState(s string) State {
	switch s {
	case "connecting":
		return StateConnecting
	case "awaiting-readiness":
		return StateAwaitingReadiness
	case "logging-in":
		return StateLoggingIn
	case "ready":
		return StateReady
	default:
		return StateLost
	}
}

// Protocol delimiters
const (
	// CRLF terminates every status line and every command sent to the controller.
	CRLF = "\r\n"

	// FieldSeparator splits a status line into its tag and fields.
	FieldSeparator = ", "
)

// Prompts are sent by the controller without a line terminator, so they are
// matched as prefixes of the receive buffer rather than as lines.
const (
	LoginPrompt = "LOGIN: "
	LNETPrompt  = "LNET> "
	L232Prompt  = "L232> "
)

// ConnectionPrompts are checked in this order after the login banner.
var ConnectionPrompts = []string{LNETPrompt, L232Prompt}

// Login outcome lines, CRLF terminated.
const (
	LoginSuccessful = "login successful"
	LoginIncorrect  = "login incorrect"
)

// Monitoring commands
const (
	CmdPromptOff = "PROMPTOFF" // disable prompt echo
	CmdKBMon     = "KBMON"     // keypad button monitoring
	CmdGSMon     = "GSMON"     // GRAFIK Eye scene monitoring
	CmdDLMon     = "DLMON"     // dimmer level monitoring
	CmdKLMon     = "KLMON"     // keypad LED monitoring
)

// Application commands
const (
	CmdFadeDim            = "FADEDIM"
	CmdRequestDimmerLevel = "RDL"
)

// SubscribeCommands is sent, in order, once the connection is ready.
// Every command is idempotent, so the sequence is reissued after each reconnect.
var SubscribeCommands = []string{
	CmdPromptOff,
	CmdKBMon,
	CmdGSMon,
	CmdDLMon,
	CmdKLMon,
}

// DefaultReadinessDelay is how long a session waits for a prompt or a login
// banner before assuming the controller is already interactive.
const DefaultReadinessDelay = 200 * time.Millisecond
