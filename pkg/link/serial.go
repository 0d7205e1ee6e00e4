// Package link talks to a tester board over its USB serial console. It
// sends "pld walk" commands and records the console output verbatim, so
// the transcript can be fed to capture.Read.
package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// ErrTimeout is returned when the board goes quiet before the walk ends.
var ErrTimeout = errors.New("link: timeout waiting for board")

const (
	endMarker   = "---- END ----"
	abortMarker = "^C Abort"
	ctrlC       = 0x03

	// tail keeps enough of the stream to spot a marker split across reads.
	tailSize = 64
)

// Config controls the serial connection.
type Config struct {
	Port    string        // device path, e.g. /dev/ttyACM0 or COM3
	Baud    int           // line rate (default: 115200)
	Timeout time.Duration // longest silence tolerated from the board (default: 10s)
	Poll    time.Duration // read timeout per poll (default: 100ms)
}

// DefaultConfig returns the settings the board firmware uses.
func DefaultConfig() *Config {
	return &Config{
		Baud:    115200,
		Timeout: 10 * time.Second,
		Poll:    100 * time.Millisecond,
	}
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("link: no serial port given")
	}
	if c.Baud <= 0 {
		c.Baud = 115200
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Poll <= 0 {
		c.Poll = 100 * time.Millisecond
	}
	return nil
}

// Port is the part of serial.Port the link needs.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Link is an open console connection to a board.
type Link struct {
	port Port
	cfg  *Config
}

// Open opens the serial port named in cfg at 8N1.
func Open(cfg *Config) (*Link, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("link: open %s: %w", cfg.Port, err)
	}
	return New(p, cfg), nil
}

// New wraps an already open port.
func New(p Port, cfg *Config) *Link {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Link{port: p, cfg: cfg}
}

// Close closes the port.
func (l *Link) Close() error {
	return l.port.Close()
}

// Status describes how a recorded walk ended.
type Status struct {
	Bytes   int  // bytes recorded
	Ended   bool // end marker seen
	Aborted bool // abort marker seen
}

// Walk sends "pld walk" with args and copies the console output to out
// until the walk finishes.
//
// A walk recording values finishes at the end or abort marker. A walk
// that analyzes prints its report after the end marker, or with no marker
// at all, and finishes when the board goes quiet. Cancelling ctx sends
// Ctrl-C and waits for the board to confirm the abort.
func (l *Link) Walk(ctx context.Context, args []string, out io.Writer) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	if err := l.port.SetReadTimeout(l.cfg.Poll); err != nil {
		return nil, fmt.Errorf("link: set read timeout: %w", err)
	}
	if err := l.port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("link: reset input: %w", err)
	}
	cmd := "pld walk " + strings.Join(args, " ") + "\r\n"
	glog.V(1).Infof("link: sending %q", strings.TrimSpace(cmd))
	if _, err := io.WriteString(l.port, cmd); err != nil {
		return nil, fmt.Errorf("link: send command: %w", err)
	}

	marker := hasWord(args, "values", "raw")
	analyze := hasWord(args, "analyze", "deep")
	st := &Status{}
	buf := make([]byte, 4096)
	var tail []byte
	last := time.Now()
	interrupted := false

	for {
		if !interrupted {
			select {
			case <-ctx.Done():
				glog.V(1).Infof("link: interrupting walk after %d bytes", st.Bytes)
				if _, err := l.port.Write([]byte{ctrlC}); err != nil {
					return st, fmt.Errorf("link: send interrupt: %w", err)
				}
				interrupted = true
				last = time.Now()
			default:
			}
		}

		n, err := l.port.Read(buf)
		if err != nil {
			return st, fmt.Errorf("link: read: %w", err)
		}
		if n == 0 {
			if time.Since(last) < l.cfg.Timeout {
				continue
			}
			switch {
			case interrupted:
				return st, fmt.Errorf("link: no abort confirmation: %w", ctx.Err())
			case !marker && st.Bytes > 0:
				return st, nil
			default:
				return st, ErrTimeout
			}
		}
		last = time.Now()
		if _, err := out.Write(buf[:n]); err != nil {
			return st, fmt.Errorf("link: record: %w", err)
		}
		st.Bytes += n

		tail = append(tail, buf[:n]...)
		switch {
		case bytes.Contains(tail, []byte(abortMarker)):
			st.Aborted = true
			if interrupted {
				return st, fmt.Errorf("link: %w", ctx.Err())
			}
			return st, nil
		case !st.Ended && bytes.Contains(tail, []byte(endMarker)):
			st.Ended = true
			if !analyze {
				return st, nil
			}
			// The affect table follows the transcript.
			marker = false
		}
		if len(tail) > tailSize {
			tail = append(tail[:0], tail[len(tail)-tailSize:]...)
		}
	}
}

// hasWord reports whether any walk argument is an abbreviation of one of
// words. A lone "a" means auto, not analyze.
func hasWord(args []string, words ...string) bool {
	for _, a := range args {
		if a == "" || a == "a" {
			continue
		}
		for _, w := range words {
			if strings.HasPrefix(w, a) {
				return true
			}
		}
	}
	return false
}
