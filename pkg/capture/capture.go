// Package capture reads and writes walk transcripts: the framed stream of
// (applied, observed) pairs produced by a walk, in raw binary, ASCII hex or
// ASCII binary encoding.
package capture

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Encoding identifies how the trial pairs are laid out in a transcript.
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingRaw              // little-endian uint32 pairs after a BYTES header
	EncodingHex              // "%07x %07x" lines after a LINES header
	EncodingBinary           // colon grouped bit strings after a LINES header
)

func (e Encoding) String() string {
	switch e {
	case EncodingRaw:
		return "raw"
	case EncodingHex:
		return "hex"
	case EncodingBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// ParseEncoding converts a user supplied encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "raw":
		return EncodingRaw, nil
	case "hex", "":
		return EncodingHex, nil
	case "binary", "bin":
		return EncodingBinary, nil
	}
	return EncodingUnknown, errors.Errorf("unknown encoding %q (want raw, hex or binary)", s)
}

// Stream markers.
const (
	bytesMarker = "---- BYTES="
	linesMarker = "---- LINES="
	endMarker   = "---- END ----"
	abortMarker = "^C Abort"

	// headerScanLines bounds how far into a transcript the start marker
	// is searched for.
	headerScanLines = 100
)

// ErrNoHeader is returned when no start marker precedes the payload.
var ErrNoHeader = errors.New("could not find start marker")

// Warning is a non-fatal problem found while reading a transcript.
type Warning struct {
	Line int // transcript line, 0 when not tied to a line
	Msg  string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Msg)
	}
	return w.Msg
}

// Capture is a decoded transcript.
type Capture struct {
	Encoding Encoding
	Expected int // trials announced by the header
	Received int // payload records seen, including any beyond Expected
	Aborted  bool
	Trials   []pld.Trial
	Warnings []Warning
}

// Short reports whether fewer trials arrived than the header announced.
func (c *Capture) Short() bool {
	return c.Received < c.Expected
}

// Complete reports whether the walk ran to its end marker with every
// announced trial present.
func (c *Capture) Complete() bool {
	return !c.Aborted && c.Received == c.Expected
}

func (c *Capture) warnf(line int, format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, Warning{Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (c *Capture) add(t pld.Trial) {
	if c.Received < c.Expected {
		c.Trials = append(c.Trials, t)
	}
	c.Received++
}
