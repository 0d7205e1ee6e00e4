package socket

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Func models a combinational device. Given the levels applied through the
// socket resistors it returns the levels the device drives and the pins it
// is driving. Pins outside enable read back the applied level.
type Func func(applied pld.Mask) (levels, enable pld.Mask)

// DriveHook is called after every drive with the running count, for tests
// that need to act part way through a walk.
type DriveHook func(count int, applied, observed pld.Mask) error

// Sim is an in-memory socket useful for unit tests and demos. It records
// the last drive and can inject behavior through OnDrive.
type Sim struct {
	InfoData  Info
	Model     Func
	ProbeData Probe

	OnDrive DriveHook

	lastApplied pld.Mask
	drives      int
	closed      bool
}

// NewSim constructs a simulator holding a device modelled by f. Every
// wired position is reported present.
func NewSim(f Func) *Sim {
	return &Sim{
		InfoData: Info{
			Name:  "sim",
			Model: "combinational",
			Pins:  pld.SocketPins,
		},
		Model:     f,
		ProbeData: Probe{Present: pld.SocketMask},
	}
}

// LastDrive returns the most recent applied pattern.
func (s *Sim) LastDrive() pld.Mask {
	return s.lastApplied
}

// Drives reports how many patterns have been applied.
func (s *Sim) Drives() int {
	return s.drives
}

func (s *Sim) Info() (Info, error) {
	return s.InfoData, nil
}

func (s *Sim) Drive(applied pld.Mask) (pld.Mask, error) {
	if s.closed {
		return 0, fmt.Errorf("socket: sim closed")
	}
	applied &= pld.SocketMask
	observed := applied
	if s.Model != nil {
		levels, enable := s.Model(applied)
		enable &= pld.SocketMask
		observed = (applied &^ enable) | (levels & enable)
	}
	s.lastApplied = applied
	s.drives++
	if s.OnDrive != nil {
		if err := s.OnDrive(s.drives, applied, observed); err != nil {
			return 0, err
		}
	}
	return observed, nil
}

func (s *Sim) Probe() (Probe, error) {
	return s.ProbeData, nil
}

func (s *Sim) Close() error {
	s.closed = true
	return nil
}

// AndGate drives out with a & b. Pins are socket bits.
func AndGate(a, b, out int) Func {
	return func(in pld.Mask) (pld.Mask, pld.Mask) {
		var v pld.Mask
		if in.Has(a) && in.Has(b) {
			v = pld.Bit(out)
		}
		return v, pld.Bit(out)
	}
}

// SharedPair drives first = x & y and second = x & y & z, the shape that
// factors into second = first & z.
func SharedPair(x, y, z, first, second int) Func {
	return func(in pld.Mask) (pld.Mask, pld.Mask) {
		var v pld.Mask
		if in.Has(x) && in.Has(y) {
			v |= pld.Bit(first)
			if in.Has(z) {
				v |= pld.Bit(second)
			}
		}
		return v, pld.Bit(first) | pld.Bit(second)
	}
}

// OpenDrainNand pulls out low while a & b, and leaves it undriven otherwise.
func OpenDrainNand(a, b, out int) Func {
	return func(in pld.Mask) (pld.Mask, pld.Mask) {
		if in.Has(a) && in.Has(b) {
			return 0, pld.Bit(out)
		}
		return 0, 0
	}
}

// Combine merges models driving disjoint pins.
func Combine(fs ...Func) Func {
	return func(in pld.Mask) (pld.Mask, pld.Mask) {
		var levels, enable pld.Mask
		for _, f := range fs {
			l, e := f(in)
			levels |= l & e
			enable |= e
		}
		return levels, enable
	}
}
