package socket

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// GPIOConfig names the host GPIO lines wired to the socket. Drive[n] feeds
// socket position n through its series resistor; Sense[n] reads the
// position directly. Unwired positions are left empty.
type GPIOConfig struct {
	Drive [pld.SocketPins]string
	Sense [pld.SocketPins]string

	// Settle is the delay between driving and sampling.
	Settle time.Duration
}

// Validate checks that every wired position has both lines.
func (c *GPIOConfig) Validate() error {
	for n := range c.Drive {
		if (c.Drive[n] == "") != (c.Sense[n] == "") {
			return fmt.Errorf("socket: position %d needs both a drive and a sense line", n+1)
		}
	}
	if c.Settle < 0 {
		return fmt.Errorf("socket: negative settle time %v", c.Settle)
	}
	return nil
}

// GPIO is a socket wired directly to host GPIO lines.
type GPIO struct {
	cfg   GPIOConfig
	wired pld.Mask
	drive [pld.SocketPins]gpio.PinIO
	sense [pld.SocketPins]gpio.PinIO
}

// OpenGPIO initializes the host drivers and claims the configured lines.
func OpenGPIO(cfg GPIOConfig) (*GPIO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("socket: host init: %w", err)
	}
	g := &GPIO{cfg: cfg}
	for n := range cfg.Drive {
		if cfg.Drive[n] == "" {
			continue
		}
		d := gpioreg.ByName(cfg.Drive[n])
		if d == nil {
			return nil, fmt.Errorf("socket: unknown gpio %q for position %d", cfg.Drive[n], n+1)
		}
		s := gpioreg.ByName(cfg.Sense[n])
		if s == nil {
			return nil, fmt.Errorf("socket: unknown gpio %q for position %d", cfg.Sense[n], n+1)
		}
		if err := s.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("socket: sense %s: %w", s, err)
		}
		g.drive[n], g.sense[n] = d, s
		g.wired |= pld.Bit(n)
	}
	if g.wired == 0 {
		return nil, fmt.Errorf("socket: no positions configured")
	}
	return g, nil
}

func (g *GPIO) Info() (Info, error) {
	return Info{
		Name:  "gpio",
		Model: "periph",
		Pins:  g.wired.Count(),
		Notes: fmt.Sprintf("wired %s", g.wired.Binary()),
	}, nil
}

func (g *GPIO) Drive(applied pld.Mask) (pld.Mask, error) {
	for _, n := range g.wired.Bits() {
		l := gpio.Low
		if applied.Has(n) {
			l = gpio.High
		}
		if err := g.drive[n].Out(l); err != nil {
			return 0, fmt.Errorf("socket: drive %s: %w", g.drive[n], err)
		}
	}
	if g.cfg.Settle > 0 {
		time.Sleep(g.cfg.Settle)
	}
	return g.read(), nil
}

func (g *GPIO) read() pld.Mask {
	var observed pld.Mask
	for _, n := range g.wired.Bits() {
		if g.sense[n].Read() == gpio.High {
			observed |= pld.Bit(n)
		}
	}
	return observed
}

// Probe finds device leads by driving every other position high and
// releasing one position at a time onto a pull-down. A lead in the socket
// is back powered through the device's input protection and reads high.
// Supply jumpers need analog sensing, which plain GPIO lacks.
func (g *GPIO) Probe() (Probe, error) {
	var p Probe
	for _, n := range g.wired.Bits() {
		for _, m := range g.wired.Bits() {
			if m == n {
				continue
			}
			if err := g.drive[m].Out(gpio.High); err != nil {
				return p, fmt.Errorf("socket: drive %s: %w", g.drive[m], err)
			}
		}
		if err := g.drive[n].In(gpio.PullDown, gpio.NoEdge); err != nil {
			return p, fmt.Errorf("socket: release %s: %w", g.drive[n], err)
		}
		time.Sleep(time.Millisecond)
		if g.sense[n].Read() == gpio.High {
			p.Present |= pld.Bit(n)
		}
	}
	if err := g.release(); err != nil {
		return p, err
	}
	return p, fmt.Errorf("socket: supply jumper sensing: %w", ErrNotImplemented)
}

// release drives every position low.
func (g *GPIO) release() error {
	for _, n := range g.wired.Bits() {
		if err := g.drive[n].Out(gpio.Low); err != nil {
			return fmt.Errorf("socket: drive %s: %w", g.drive[n], err)
		}
	}
	return nil
}

func (g *GPIO) Close() error {
	return g.release()
}
