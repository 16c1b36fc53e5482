package protocol

import (
	"errors"
	"slices"
	"strconv"
	"strings"
)

// Field identifies the parser applied to one positional field of a status line.
type Field int

const (
	FieldAddress  Field = iota + 1 // device address, kept verbatim
	FieldButton                    // button number
	FieldEnabled                   // "enabled" or "disabled"
	FieldLevel                     // dimmer level, 0-100
	FieldLEDState                  // one digit per keypad LED
)

type action struct {
	kind   Kind
	fields []Field
}

func buttonAction(k Kind) action {
	return action{kind: k, fields: []Field{FieldAddress, FieldButton}}
}

// actions maps a status line tag to its event kind and field layout.
// Keypad (KB*), dimmer (DB*) and seeTouch/vareo (SVB*) buttons share kinds.
var actions = map[string]action{
	"KBP":   buttonAction(KindButtonPressed),
	"KBR":   buttonAction(KindButtonReleased),
	"KBH":   buttonAction(KindButtonHeld),
	"KBDT":  buttonAction(KindButtonDoubleTapped),
	"DBP":   buttonAction(KindButtonPressed),
	"DBR":   buttonAction(KindButtonReleased),
	"DBH":   buttonAction(KindButtonHeld),
	"DBDT":  buttonAction(KindButtonDoubleTapped),
	"SVBP":  buttonAction(KindButtonPressed),
	"SVBR":  buttonAction(KindButtonReleased),
	"SVBH":  buttonAction(KindButtonHeld),
	"SVBDT": buttonAction(KindButtonDoubleTapped),
	"KLS":   {kind: KindKeypadLEDChanged, fields: []Field{FieldAddress, FieldLEDState}},
	"DL":    {kind: KindLightLevelChanged, fields: []Field{FieldAddress, FieldLevel}},
	"KES":   {kind: KindKeypadEnableChanged, fields: []Field{FieldAddress, FieldEnabled}},
}

func lookupAction(tag string) (action, bool) {
	a, ok := actions[tag]
	return a, ok
}

// Tags returns the tags that decode into events of kind k, sorted.
func Tags(k Kind) []string {
	var tags []string
	for tag, a := range actions {
		if a.kind == k {
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)
	return tags
}

var (
	errNotDigit       = errors.New("not a digit")
	errUnknownLiteral = errors.New("unexpected literal")
	errEmptyField     = errors.New("empty field")
)

// apply parses raw into the Event field selected by f.
func (f Field) apply(raw string, ev *Event) error {
	raw = strings.TrimSpace(raw)

	switch f {
	case FieldAddress:
		if raw == "" {
			return errEmptyField
		}
		ev.Address = raw
	case FieldButton:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		ev.Button = n
	case FieldLevel:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		ev.Level = n
	case FieldEnabled:
		switch raw {
		case "enabled":
			ev.Enabled = true
		case "disabled":
			ev.Enabled = false
		default:
			return errUnknownLiteral
		}
	case FieldLEDState:
		if raw == "" {
			return errEmptyField
		}
		leds := make([]int, len(raw))
		for i := 0; i < len(raw); i++ {
			c := raw[i]
			if c < '0' || c > '9' {
				return errNotDigit
			}
			leds[i] = int(c - '0')
		}
		ev.LEDs = leds
	}
	return nil
}

// Parse decodes one status line into an Event.
//
// Line format: <tag>, <field>, <field>...
//
// The returned error is always a *LineError: the tag is unknown, the field
// count does not match the tag, or a field does not parse.
func Parse(line string) (Event, error) {
	parts := strings.Split(line, FieldSeparator)
	tag := parts[0]

	a, ok := lookupAction(tag)
	if !ok {
		return Event{}, &LineError{Line: line, Reason: ReasonUnknownTag}
	}

	if len(parts)-1 != len(a.fields) {
		return Event{}, &LineError{Line: line, Reason: ReasonArity}
	}

	ev := Event{Kind: a.kind, Tag: tag, Raw: line}
	for i, f := range a.fields {
		if err := f.apply(parts[i+1], &ev); err != nil {
			return Event{}, &LineError{Line: line, Reason: ReasonField, Field: i + 1, Err: err}
		}
	}

	return ev, nil
}
