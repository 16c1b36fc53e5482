package protocol

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"
)

// AppendCommand appends cmd and the line terminator to dst.
func AppendCommand(dst []byte, cmd string) []byte {
	dst = append(dst, cmd...)
	return append(dst, CRLF...)
}

var commandBuffers = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 64))
	},
}

// WriteCommand writes cmd followed by CRLF to w with a single Write call,
// so concurrent writers never interleave within a line.
func WriteCommand(w io.Writer, cmd string) error {
	buf := commandBuffers.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		commandBuffers.Put(buf)
	}()

	buf.WriteString(cmd)
	buf.WriteString(CRLF)
	_, err := w.Write(buf.Bytes())
	return err
}

// FormatCommand joins a command and its arguments with the field separator.
func FormatCommand(cmd string, args ...string) string {
	if len(args) == 0 {
		return cmd
	}
	return cmd + FieldSeparator + strings.Join(args, FieldSeparator)
}

// FadeDim builds the command that fades a dimmer to intensity (0-100)
// over fadeTime seconds after delayTime seconds.
//
// Wire format: FADEDIM, <intensity>, <fade>, <delay>, <address>
func FadeDim(intensity, fadeTime, delayTime int, address string) string {
	return FormatCommand(CmdFadeDim,
		strconv.Itoa(intensity),
		strconv.Itoa(fadeTime),
		strconv.Itoa(delayTime),
		address,
	)
}

// RequestDimmerLevel builds the command asking the controller to report the
// current level of a dimmer. The answer arrives as a DL status line.
//
// Wire format: RDL, <address>
func RequestDimmerLevel(address string) string {
	return FormatCommand(CmdRequestDimmerLevel, address)
}

// BracketAddress returns address in the bracketed form used on the wire:
// "01:01:00:02:04" becomes "[01:01:00:02:04]". Surrounding spaces are
// trimmed and an already bracketed address is returned unchanged.
func BracketAddress(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, "[") && strings.HasSuffix(address, "]") {
		return address
	}
	return "[" + strings.Trim(address, "[]") + "]"
}
