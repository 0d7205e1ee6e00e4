package walk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/capture"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/footprint"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/socket"
)

// Help describes the walk arguments accepted by ParseIgnore.
const Help = `walk options
  <spin>-<epin>  - specify a range of pins to walk; range 1-28
  <pin1>,<pin2>  - specify multiple individual pins (-pin removes it)
  analyze        - perform a quick analysis
  auto           - automatically probe to select device pins
  binary         - show binary instead of hex
  deep           - perform a deep analysis (takes a lot longer)
  dip            - select standard DIP 22V10 pins
  invert         - invert ignored pins (make them 1 instead of 0)
  plcc           - select standard PLCC 22V10 pins
  raw            - dump raw values (not ASCII)
  values         - report values (ASCII hex or binary)
  zero           - perform walking zeros instead of walking ones
`

// ErrHelp is returned for a "?" argument.
var ErrHelp = errors.New("walk: help requested")

// ProbeFunc looks at the socket for the auto preset.
type ProbeFunc func() (socket.Probe, error)

// ParseIgnore builds a walk configuration from command words.
//
// Keywords may be abbreviated to any prefix; the first letter picks the
// candidates ("a" is auto, "an" analyze, "d" deep, "di" dip). Pin lists
// are comma separated numbers and ranges in either order, 1 to 28. A list
// starting with '-' adds the pins to the ignore set, which starts empty;
// a plain list removes them from an ignore set that starts full. The
// first list or preset decides the starting set and later ones edit it.
//
// probe is only called for auto and may be nil otherwise.
func ParseIgnore(args []string, probe ProbeFunc) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Values = false
	var ignore pld.Mask
	initialized := false
	binary, raw := false, false

	for _, arg := range args {
		if arg == "" {
			continue
		}
		switch arg[0] {
		case '?':
			return nil, ErrHelp
		case 'a':
			if strings.HasPrefix("auto", arg) {
				m, err := autoIgnore(probe)
				if err != nil {
					return nil, err
				}
				ignore, initialized = m, true
				continue
			}
			if !strings.HasPrefix("analyze", arg) {
				return nil, invalid(arg)
			}
			cfg.Analyze = true
			continue
		case 'b':
			if !strings.HasPrefix("binary", arg) {
				return nil, invalid(arg)
			}
			binary = true
			continue
		case 'd':
			if strings.HasPrefix("deep", arg) {
				cfg.Deep, cfg.Analyze = true, true
				continue
			}
			if !strings.HasPrefix("dip", arg) {
				return nil, invalid(arg)
			}
			ignore, initialized = footprint.DIP22V10Ignore, true
			continue
		case 'i':
			if !strings.HasPrefix("invert", arg) {
				return nil, invalid(arg)
			}
			cfg.InvertIgnored = true
			continue
		case 'p':
			if !strings.HasPrefix("plcc", arg) {
				return nil, invalid(arg)
			}
			ignore, initialized = footprint.PLCC22V10Ignore, true
			continue
		case 'r':
			if !strings.HasPrefix("raw", arg) {
				return nil, invalid(arg)
			}
			raw, cfg.Values = true, true
			continue
		case 'v':
			if !strings.HasPrefix("values", arg) {
				return nil, invalid(arg)
			}
			cfg.Values = true
			continue
		case 'z':
			if !strings.HasPrefix("zero", arg) {
				return nil, invalid(arg)
			}
			cfg.WalkZeros, cfg.InvertIgnored = true, true
			continue
		case '-':
			if !initialized {
				ignore, initialized = 0, true
			}
			set, err := parsePins(arg[1:])
			if err != nil {
				return nil, err
			}
			ignore |= set
		default:
			if !initialized {
				ignore, initialized = ^pld.Mask(0), true
			}
			set, err := parsePins(arg)
			if err != nil {
				return nil, err
			}
			ignore &^= set
		}
	}

	if !initialized {
		return nil, fmt.Errorf("walk: you must specify a pin range or part type (dip / plcc / auto) or ? for help")
	}
	cfg.Ignore = ignore

	switch {
	case raw:
		cfg.Encoding = capture.EncodingRaw
	case binary:
		cfg.Encoding = capture.EncodingBinary
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(arg string) error {
	return fmt.Errorf("walk: invalid argument '%s'", arg)
}

// autoIgnore ignores every position without a device lead plus the supply
// jumpers. A fully populated PLCC28 socket uses the PLCC 22V10 preset.
func autoIgnore(probe ProbeFunc) (pld.Mask, error) {
	if probe == nil {
		return 0, fmt.Errorf("walk: auto needs a socket that can probe")
	}
	p, err := probe()
	supplies := err == nil
	if err != nil && !errors.Is(err, socket.ErrNotImplemented) {
		return 0, fmt.Errorf("walk: probe: %w", err)
	}
	f, presence := footprint.Detect(p.Present)
	switch {
	case f == footprint.PLCC28 && presence == footprint.PresenceExact:
		return footprint.PLCC22V10Ignore, nil
	case p.Present == 0:
		return 0, fmt.Errorf("walk: no device found in socket")
	}
	m := ^p.Present
	if supplies {
		m |= p.VCC | p.GND
	}
	return m, nil
}

// parsePins parses a comma separated list of pin numbers and ranges into
// socket bits.
func parsePins(s string) (pld.Mask, error) {
	var m pld.Mask
	for _, item := range strings.Split(s, ",") {
		lo, rest, ok := leadingPin(item)
		if !ok {
			return 0, invalid(s)
		}
		hi := lo
		if rest != "" {
			if rest[0] != '-' {
				return 0, fmt.Errorf("walk: invalid argument '%s' at '%s'", s, rest)
			}
			var tail string
			hi, tail, ok = leadingPin(rest[1:])
			if !ok || tail != "" {
				return 0, fmt.Errorf("walk: invalid argument '%s' at '%s'", s, rest[1:])
			}
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		m |= (pld.Bit(hi) - 1) ^ (pld.Bit(lo-1) - 1)
	}
	return m, nil
}

// leadingPin reads a pin number in 1..28 from the front of s.
func leadingPin(s string) (int, string, bool) {
	n, i := 0, 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		if n > pld.SocketPins {
			return 0, s, false
		}
		i++
	}
	if i == 0 || n < 1 {
		return 0, s, false
	}
	return n, s[i:], true
}
