package protocol

import "fmt"

// Kind identifies what an Event reports.
type Kind int

const (
	KindButtonPressed Kind = iota + 1
	KindButtonReleased
	KindButtonHeld
	KindButtonDoubleTapped
	KindKeypadEnableChanged
	KindKeypadLEDChanged
	KindLightLevelChanged
)

// Kinds lists every event kind.
var Kinds = []Kind{
	KindButtonPressed,
	KindButtonReleased,
	KindButtonHeld,
	KindButtonDoubleTapped,
	KindKeypadEnableChanged,
	KindKeypadLEDChanged,
	KindLightLevelChanged,
}

func (k Kind) String() string {
	switch k {
	case KindButtonPressed:
		return "button_pressed"
	case KindButtonReleased:
		return "button_released"
	case KindButtonHeld:
		return "button_hold"
	case KindButtonDoubleTapped:
		return "button_double_tap"
	case KindKeypadEnableChanged:
		return "keypad_enable_changed"
	case KindKeypadLEDChanged:
		return "keypad_led_changed"
	case KindLightLevelChanged:
		return "light_changed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a decoded status line.
// Only the fields named by the action of Tag are set; Args returns them in
// wire order.
type Event struct {
	Kind Kind
	Tag  string // Wire tag, e.g. "KBP" or "DL"

	Address string // Device address, e.g. "[01:01:00:03:02]"
	Button  int
	Level   int
	Enabled bool
	LEDs    []int

	Raw string // The line the event was parsed from
}

// Args returns the parsed arguments in the order they appear on the wire.
func (e Event) Args() []any {
	a, ok := lookupAction(e.Tag)
	if !ok {
		return nil
	}

	args := make([]any, 0, len(a.fields))
	for _, f := range a.fields {
		switch f {
		case FieldAddress:
			args = append(args, e.Address)
		case FieldButton:
			args = append(args, e.Button)
		case FieldLevel:
			args = append(args, e.Level)
		case FieldEnabled:
			args = append(args, e.Enabled)
		case FieldLEDState:
			args = append(args, e.LEDs)
		}
	}
	return args
}

func (e Event) String() string {
	return fmt.Sprintf("%s %v", e.Kind, e.Args())
}
