package capture

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// maxPrealloc caps the trial slice allocated up front from the header
// count; a corrupt header must not cause a huge allocation.
const maxPrealloc = 1 << 20

// ReadFile decodes the transcript stored at path.
func ReadFile(path string) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s for read", path)
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Read decodes a transcript. Anything before the start marker (terminal
// noise, the walk command echo) is skipped, so captures need no manual
// trimming. The encoding is detected from the marker and, for LINES
// transcripts, from the first payload line. A short or aborted transcript
// is not an error: the trials read so far are returned together with a
// warning.
func Read(r io.Reader) (*Capture, error) {
	br := bufio.NewReader(r)
	c := &Capture{}

	lineNum := 0
	for c.Encoding == EncodingUnknown {
		if lineNum >= headerScanLines {
			return nil, ErrNoHeader
		}
		line, err := br.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				return nil, ErrNoHeader
			}
			return nil, errors.Wrap(err, "read header")
		}
		lineNum++

		if i := strings.Index(line, bytesMarker); i >= 0 {
			n, perr := parseCount(line[i+len(bytesMarker):])
			if perr != nil {
				return nil, errors.Wrapf(perr, "line %d: bad byte count", lineNum)
			}
			c.Encoding = EncodingRaw
			c.Expected = int(n / 8)
		} else if i := strings.Index(line, linesMarker); i >= 0 {
			n, perr := parseCount(line[i+len(linesMarker):])
			if perr != nil {
				return nil, errors.Wrapf(perr, "line %d: bad line count", lineNum)
			}
			// Hex or binary is decided by the first payload line.
			c.Encoding = EncodingHex
			c.Expected = int(n)
			if err := readASCII(br, c, lineNum); err != nil {
				return nil, err
			}
			c.finish()
			return c, nil
		}
	}

	if err := readRaw(br, c); err != nil {
		return nil, err
	}
	c.finish()
	return c, nil
}

func (c *Capture) finish() {
	if c.Received != c.Expected {
		c.warnf(0, "Read %d lines of data, but expected %d lines", c.Received, c.Expected)
	}
}

// parseCount reads the hex count following a marker, with or without a
// 0x prefix.
func parseCount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if end := strings.IndexAny(s, " \t\r\n-"); end >= 0 {
		s = s[:end]
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 32)
}

var (
	rawEnd   = []byte(endMarker[:8])
	rawAbort = []byte(abortMarker)
)

func readRaw(br *bufio.Reader, c *Capture) error {
	c.Trials = make([]pld.Trial, 0, min(c.Expected, maxPrealloc))

	var buf [8]byte
	for {
		n, err := io.ReadFull(br, buf[:])
		if err == io.EOF {
			return nil
		}
		if err == io.ErrUnexpectedEOF {
			c.warnf(0, "ignoring %d trailing bytes", n)
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read raw pair")
		}
		if bytes.Equal(buf[:], rawEnd) {
			return nil
		}
		if bytes.Equal(buf[:], rawAbort) {
			c.Aborted = true
			return nil
		}
		c.add(pld.Trial{
			Applied:  pld.Mask(binary.LittleEndian.Uint32(buf[0:4])),
			Observed: pld.Mask(binary.LittleEndian.Uint32(buf[4:8])),
		})
	}
}

func readASCII(br *bufio.Reader, c *Capture, lineNum int) error {
	c.Trials = make([]pld.Trial, 0, min(c.Expected, maxPrealloc))

	detected := false
	dataLines := 0
	for dataLines < c.Expected {
		line, err := br.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "read payload")
		}
		lineNum++

		text := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		if strings.Contains(text, endMarker) {
			return nil
		}
		if strings.Contains(text, abortMarker) {
			c.Aborted = true
			return nil
		}
		if !detected {
			if strings.Count(text, ":") >= 2 {
				c.Encoding = EncodingBinary
			}
			detected = true
		}
		dataLines++

		var t pld.Trial
		var ok bool
		if c.Encoding == EncodingBinary {
			t, ok = parseBinaryLine(text)
		} else {
			t, ok = parseHexLine(text)
		}
		if !ok {
			c.warnf(lineNum, "line invalid: %q", text)
			continue
		}
		c.add(t)
	}
	return nil
}

func parseHexLine(s string) (pld.Trial, bool) {
	f := strings.Fields(s)
	if len(f) < 2 {
		return pld.Trial{}, false
	}
	a, err := strconv.ParseUint(f[0], 16, 32)
	if err != nil {
		return pld.Trial{}, false
	}
	o, err := strconv.ParseUint(f[1], 16, 32)
	if err != nil {
		return pld.Trial{}, false
	}
	return pld.Trial{Applied: pld.Mask(a), Observed: pld.Mask(o)}, true
}

func parseBinaryLine(s string) (pld.Trial, bool) {
	f := strings.Fields(s)
	if len(f) < 2 {
		return pld.Trial{}, false
	}
	a, ok := parseBinaryMask(f[0])
	if !ok {
		return pld.Trial{}, false
	}
	o, ok := parseBinaryMask(f[1])
	if !ok {
		return pld.Trial{}, false
	}
	return pld.Trial{Applied: a, Observed: o}, true
}

// parseBinaryMask decodes "xxxx:xxxxxxxx:xxxxxxxx:xxxxxxxx".
func parseBinaryMask(s string) (pld.Mask, bool) {
	groups := strings.Split(s, ":")
	if len(groups) != 4 {
		return 0, false
	}
	digits := strings.Join(groups, "")
	if digits == "" || len(digits) > pld.NumBits {
		return 0, false
	}
	v, err := strconv.ParseUint(digits, 2, 32)
	if err != nil {
		return 0, false
	}
	return pld.Mask(v), true
}
