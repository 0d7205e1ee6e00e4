package analysis

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// DefaultMaxIterations bounds the minimizer's fixpoint loop.
const DefaultMaxIterations = 16

// Config controls a Session.
type Config struct {
	// Ignore lists socket bits excluded from analysis (supply pins,
	// jumpered pins, unused package positions). Only used when IgnoreSet
	// is true; otherwise bits that never took both levels in the applied
	// stimulus are ignored.
	Ignore    pld.Mask
	IgnoreSet bool

	// MaxIterations caps the A/B/C minimizer rounds (default: 16). Hitting
	// the cap is reported as a NotConverged diagnostic.
	MaxIterations int
}

// DefaultConfig returns a Config that derives the ignore mask from the
// capture itself.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations: DefaultMaxIterations,
	}
}

// WithIgnore returns a copy of c using an explicit ignore mask.
func (c *Config) WithIgnore(ignore pld.Mask) *Config {
	cc := *c
	cc.Ignore = ignore
	cc.IgnoreSet = true
	return &cc
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.IgnoreSet && c.Ignore == ^pld.Mask(0) {
		return fmt.Errorf("ignore mask %#08x excludes every pin", uint32(c.Ignore))
	}
	return nil
}
