package walk

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/capture"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/footprint"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/socket"
)

func pins(ps ...int) pld.Mask {
	var m pld.Mask
	for _, p := range ps {
		m |= pld.Bit(p - 1)
	}
	return m
}

func TestParseIgnoreMasks(t *testing.T) {
	tests := []struct {
		args string
		want pld.Mask
	}{
		{"1-3 v", ^pins(1, 2, 3)},
		{"3-1 v", ^pins(1, 2, 3)},
		{"1,2,5 v", ^pins(1, 2, 5)},
		{"1-4,7 v", ^pins(1, 2, 3, 4, 7)},
		{"1-4 -2 v", ^pins(1, 3, 4)},
		{"-5 v", pins(5) | pld.ReservedMask},
		{"-5,24-28 v", pins(5, 24, 25, 26, 27, 28) | pld.ReservedMask},
		{"dip v", footprint.DIP22V10Ignore},
		{"di v", footprint.DIP22V10Ignore},
		{"plcc v", footprint.PLCC22V10Ignore},
		{"p v", footprint.PLCC22V10Ignore},
		{"dip 12 v", footprint.DIP22V10Ignore &^ pins(12)},
		{"dip -1 v", footprint.DIP22V10Ignore | pins(1)},
		{"1-28 v", pld.ReservedMask},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			cfg, err := ParseIgnore(strings.Fields(tt.args), nil)
			if err != nil {
				t.Fatalf("ParseIgnore(%q) failed: %v", tt.args, err)
			}
			if cfg.Ignore != tt.want {
				t.Errorf("Expected ignore %08x, got %08x", tt.want, cfg.Ignore)
			}
		})
	}
}

func TestParseIgnoreFlags(t *testing.T) {
	tests := []struct {
		args    string
		analyze bool
		deep    bool
		values  bool
		zeros   bool
		invert  bool
		enc     capture.Encoding
	}{
		{"1-3 values", false, false, true, false, false, capture.EncodingHex},
		{"1-3 a v", false, false, true, false, false, capture.EncodingHex},
		{"1-3 an", true, false, false, false, false, capture.EncodingHex},
		{"1-3 analyze", true, false, false, false, false, capture.EncodingHex},
		{"1-3 d", true, true, false, false, false, capture.EncodingHex},
		{"1-3 deep v", true, true, true, false, false, capture.EncodingHex},
		{"1-3 b v", false, false, true, false, false, capture.EncodingBinary},
		{"1-3 raw", false, false, true, false, false, capture.EncodingRaw},
		{"1-3 raw binary", false, false, true, false, false, capture.EncodingRaw},
		{"1-3 z v", false, false, true, true, true, capture.EncodingHex},
		{"1-3 i v", false, false, true, false, true, capture.EncodingHex},
	}
	probe := func() (socket.Probe, error) {
		return socket.Probe{Present: footprint.DIP24.Present}, nil
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			cfg, err := ParseIgnore(strings.Fields(tt.args), probe)
			if err != nil {
				t.Fatalf("ParseIgnore(%q) failed: %v", tt.args, err)
			}
			got := fmt.Sprintf("analyze=%v deep=%v values=%v zeros=%v invert=%v enc=%s",
				cfg.Analyze, cfg.Deep, cfg.Values, cfg.WalkZeros, cfg.InvertIgnored, cfg.Encoding)
			want := fmt.Sprintf("analyze=%v deep=%v values=%v zeros=%v invert=%v enc=%s",
				tt.analyze, tt.deep, tt.values, tt.zeros, tt.invert, tt.enc)
			if got != want {
				t.Errorf("Expected %s, got %s", want, got)
			}
		})
	}
}

func TestParseIgnoreAuto(t *testing.T) {
	dip24 := footprint.DIP24.Present
	tests := []struct {
		name  string
		probe socket.Probe
		err   error
		want  pld.Mask
	}{
		{
			name:  "plcc",
			probe: socket.Probe{Present: footprint.PLCC28.Present},
			want:  footprint.PLCC22V10Ignore,
		},
		{
			name:  "dip24 with supplies",
			probe: socket.Probe{Present: dip24, VCC: pins(24), GND: pins(12)},
			want:  ^dip24 | pins(12, 24),
		},
		{
			name:  "dip24 without supply sensing",
			probe: socket.Probe{Present: dip24, VCC: pins(24), GND: pins(12)},
			err:   fmt.Errorf("gpio: %w", socket.ErrNotImplemented),
			want:  ^dip24,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := func() (socket.Probe, error) { return tt.probe, tt.err }
			cfg, err := ParseIgnore([]string{"auto", "values"}, probe)
			if err != nil {
				t.Fatalf("ParseIgnore failed: %v", err)
			}
			if cfg.Ignore != tt.want|pld.ReservedMask {
				t.Errorf("Expected ignore %08x, got %08x", tt.want|pld.ReservedMask, cfg.Ignore)
			}
		})
	}
}

func TestParseIgnoreErrors(t *testing.T) {
	empty := func() (socket.Probe, error) { return socket.Probe{}, nil }
	failing := func() (socket.Probe, error) { return socket.Probe{}, errors.New("usb reset") }
	tests := []struct {
		args  string
		probe ProbeFunc
		want  string
	}{
		{"values", nil, "must specify a pin range"},
		{"1-3", nil, "walk requires one of"},
		{"0 v", nil, "invalid argument '0'"},
		{"29 v", nil, "invalid argument '29'"},
		{"1-29 v", nil, "invalid argument '1-29' at '29'"},
		{"1:3 v", nil, "invalid argument '1:3' at ':3'"},
		{"1-3x v", nil, "invalid argument '1-3x' at '3x'"},
		{"-x v", nil, "invalid argument 'x'"},
		{"1-3 analyzer", nil, "invalid argument 'analyzer'"},
		{"1-3 dog", nil, "invalid argument 'dog'"},
		{"1-3 zap", nil, "invalid argument 'zap'"},
		{"auto v", nil, "needs a socket that can probe"},
		{"auto v", empty, "no device found"},
		{"auto v", failing, "usb reset"},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			_, err := ParseIgnore(strings.Fields(tt.args), tt.probe)
			if err == nil {
				t.Fatalf("Expected error for %q", tt.args)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestParseIgnoreHelp(t *testing.T) {
	if _, err := ParseIgnore([]string{"1-3", "?"}, nil); !errors.Is(err, ErrHelp) {
		t.Errorf("Expected ErrHelp, got %v", err)
	}
	if !strings.Contains(Help, "walking zeros") {
		t.Error("Expected help to describe walking zeros")
	}
}
