// Package footprint maps socket bit positions to device pin numbers for the
// package types the tester accepts, and classifies presence probes.
package footprint

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Footprint describes how a package sits in the 28 position socket.
type Footprint struct {
	Name    string
	Present pld.Mask // socket bits with a device pin when inserted

	// bitToPin holds the device pin number for each socket bit, 0 when the
	// bit has no pin.
	bitToPin [pld.SocketPins]uint8
}

// PinNumber returns the device pin number at a socket bit, or 0.
func (f *Footprint) PinNumber(bit int) int {
	if f == nil {
		return bit + 1
	}
	if bit < 0 || bit >= pld.SocketPins {
		return 0
	}
	return int(f.bitToPin[bit])
}

// Bit returns the socket bit for a device pin number. A nil footprint uses
// the identity mapping (pin n on bit n-1).
func (f *Footprint) Bit(pin int) (int, bool) {
	if f == nil {
		if pin < 1 || pin > pld.SocketPins {
			return 0, false
		}
		return pin - 1, true
	}
	if pin < 1 {
		return 0, false
	}
	for bit, p := range f.bitToPin {
		if int(p) == pin {
			return bit, true
		}
	}
	return 0, false
}

func dip(name string, present uint32, pins ...uint8) *Footprint {
	f := &Footprint{Name: name, Present: pld.Mask(present)}
	copy(f.bitToPin[:], pins)
	return f
}

var (
	G22V10 = dip("G22V10", 0x0fdfbf7e,
		0, 1, 2, 3, 4, 5, 6, 0,
		7, 8, 9, 10, 11, 12, 0, 13,
		14, 15, 16, 17, 18, 0, 19, 20,
		21, 22, 23, 24)
	PLCC28 = dip("PLCC28", 0x0fdfbf7e,
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
		17, 18, 19, 20, 21, 22, 23, 24,
		25, 26, 27, 28)
	DIP24 = dip("DIP24", 0x00ffffff,
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
		17, 18, 19, 20, 21, 22, 23, 24)
	DIP22 = dip("DIP22", 0x00ffe7ff,
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 0, 0, 12, 13, 14,
		15, 16, 17, 18, 19, 20, 21, 22)
	DIP20 = dip("DIP20", 0x00ffc3ff,
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 0, 0, 0, 0, 11, 12,
		13, 14, 15, 16, 17, 18, 19, 20)
	DIP18 = dip("DIP18", 0x00ff81ff,
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 0, 0, 0, 0, 0, 0, 10,
		11, 12, 13, 14, 15, 16, 17, 18)
	DIP16 = dip("DIP16", 0x00ff00ff,
		1, 2, 3, 4, 5, 6, 7, 8,
		0, 0, 0, 0, 0, 0, 0, 0,
		9, 10, 11, 12, 13, 14, 15, 16)
	DIP14 = dip("DIP14", 0x00fe007f,
		1, 2, 3, 4, 5, 6, 7, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 8, 9, 10, 11, 12, 13, 14)
	DIP12 = dip("DIP12", 0x00fc003f,
		1, 2, 3, 4, 5, 6, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 7, 8, 9, 10, 11, 12)
	DIP10 = dip("DIP10", 0x00f8001f,
		1, 2, 3, 4, 5, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 6, 7, 8, 9, 10)
	DIP8 = dip("DIP8", 0x00f0000f,
		1, 2, 3, 4, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 5, 6, 7, 8)
	DIP6 = dip("DIP6", 0x00e00007,
		1, 2, 3, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 4, 5, 6)
	DIP4 = dip("DIP4", 0x00c00003,
		1, 2, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 3, 4)
)

// Installed lists the footprints a presence probe can identify, PLCC first.
var Installed = []*Footprint{
	PLCC28, DIP24, DIP22, DIP20, DIP18, DIP16, DIP14, DIP12, DIP10, DIP8, DIP6, DIP4,
}

// Ignore presets for a 22V10 in the socket: VCC, GND and the unused PLCC
// corners, plus the reserved high bits.
var (
	DIP22V10Ignore  = pinsToMask(12, 24, 25, 26, 27, 28) | pld.Mask(0xf0000000)
	PLCC22V10Ignore = pinsToMask(1, 8, 14, 15, 22, 28) | pld.Mask(0xf0000000)
)

func pinsToMask(pins ...int) pld.Mask {
	var m pld.Mask
	for _, p := range pins {
		m |= pld.Bit(p - 1)
	}
	return m
}

// Lookup finds a footprint by device name. Any name starting with G22V10
// selects the 22V10 mapping; the others must match exactly (case is
// ignored).
func Lookup(name string) (*Footprint, error) {
	if len(name) >= 6 && strings.EqualFold(name[:6], "G22V10") {
		return G22V10, nil
	}
	for _, f := range Installed {
		if strings.EqualFold(name, f.Name) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("footprint: invalid device '%s'", name)
}

// Presence classifies the outcome of a presence probe.
type Presence int

const (
	PresenceNone Presence = iota
	PresenceExact
	PresenceLikelyPLCC
	PresenceUnknown
)

func (p Presence) String() string {
	switch p {
	case PresenceNone:
		return "none"
	case PresenceExact:
		return "exact"
	case PresenceLikelyPLCC:
		return "likely PLCC28"
	default:
		return "unknown"
	}
}

// Detect classifies the set of socket bits where a device pin answered a
// presence probe.
func Detect(present pld.Mask) (*Footprint, Presence) {
	if present&PLCC28.Present == PLCC28.Present {
		return PLCC28, PresenceExact
	}
	count := present.Count()
	switch {
	case count > 23 && present&0x0f000000 != 0:
		return PLCC28, PresenceLikelyPLCC
	case count < 4:
		return nil, PresenceNone
	}
	for _, f := range Installed[1:] {
		if present == f.Present {
			return f, PresenceExact
		}
	}
	return nil, PresenceUnknown
}
