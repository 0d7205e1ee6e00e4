// Package socket drives the test socket a device under analysis sits in.
// A Socket applies one drive pattern to the socket pins through the
// series resistors and returns the levels sensed on every pin.
package socket

import (
	"errors"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Info describes a socket implementation.
type Info struct {
	Name         string
	Vendor       string
	Model        string
	SerialNumber string
	Firmware     string
	Pins         int // wired socket positions
	Notes        string
}

// Probe is the result of looking at the socket without running a walk.
type Probe struct {
	// Present has a bit for every socket position with a device lead in it.
	Present pld.Mask
	// VCC and GND hold the positions jumpered to the supply rails.
	VCC pld.Mask
	GND pld.Mask
}

// Socket abstracts a physical or simulated test socket.
type Socket interface {
	Info() (Info, error)
	// Drive applies the pattern and returns the sensed levels. Bits above
	// the wired positions are not driven and read back low.
	Drive(applied pld.Mask) (observed pld.Mask, err error)
	// Probe reports which positions hold a device and the supply
	// jumpers. Backends without supply sensing return ErrNotImplemented
	// wrapped together with a valid Present mask.
	Probe() (Probe, error)
	Close() error
}

// ErrNotImplemented lets backends signal that a requested capability is not
// available without relying on fmt.Errorf each time.
var ErrNotImplemented = errors.New("socket: not implemented")
