package capture

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Writer emits a transcript in the framing Read understands. It is the
// recording side of a walk: every trial handed to WriteTrial is final, and
// an aborted walk ends with Abort instead of Close so readers can tell the
// two apart.
type Writer struct {
	w        *bufio.Writer
	enc      Encoding
	expected int
	count    int
	done     bool
}

// NewWriter writes the start marker for a walk of expected trials.
func NewWriter(w io.Writer, enc Encoding, expected int) (*Writer, error) {
	cw := &Writer{w: bufio.NewWriter(w), enc: enc, expected: expected}

	var err error
	switch enc {
	case EncodingRaw:
		_, err = fmt.Fprintf(cw.w, "%s0x%x ----\n", bytesMarker, expected*8)
	case EncodingHex, EncodingBinary:
		_, err = fmt.Fprintf(cw.w, "%s0x%x ----\n", linesMarker, expected)
	default:
		return nil, errors.Errorf("cannot write %s encoding", enc)
	}
	if err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	return cw, nil
}

// Count returns the number of trials written so far.
func (cw *Writer) Count() int {
	return cw.count
}

// WriteTrial appends one trial.
func (cw *Writer) WriteTrial(t pld.Trial) error {
	if cw.done {
		return errors.New("write after end of transcript")
	}
	var err error
	switch cw.enc {
	case EncodingRaw:
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[0:4], uint32(t.Applied))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(t.Observed))
		_, err = cw.w.Write(buf[:])
	case EncodingBinary:
		_, err = fmt.Fprintf(cw.w, "%s %s\n", t.Applied.Binary(), t.Observed.Binary())
	default:
		_, err = fmt.Fprintf(cw.w, "%07x %07x\n", uint32(t.Applied), uint32(t.Observed))
	}
	if err != nil {
		return errors.Wrap(err, "write trial")
	}
	cw.count++
	return nil
}

// Flush pushes buffered trials to the underlying writer.
func (cw *Writer) Flush() error {
	return cw.w.Flush()
}

// Close writes the end marker and flushes.
func (cw *Writer) Close() error {
	return cw.finish(endMarker)
}

// Abort flushes the trials written so far and marks the transcript as
// cancelled.
func (cw *Writer) Abort() error {
	return cw.finish(abortMarker)
}

func (cw *Writer) finish(marker string) error {
	if cw.done {
		return nil
	}
	cw.done = true
	if _, err := fmt.Fprintf(cw.w, "%s\n", marker); err != nil {
		return errors.Wrap(err, "write end marker")
	}
	return cw.w.Flush()
}
