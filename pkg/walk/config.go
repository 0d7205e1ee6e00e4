package walk

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/capture"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Config controls a walk of the socket.
type Config struct {
	// Stimulus
	Ignore        pld.Mask // positions held constant; reserved bits are always added
	WalkZeros     bool     // drive the complement of the counter (walking zeros)
	InvertIgnored bool     // hold ignored positions high instead of low

	// Output
	Values   bool             // record every trial
	Encoding capture.Encoding // encoding of recorded trials (default hex)

	// Live analysis
	Analyze bool // classify pins and flip every walked bit from two baselines
	Deep    bool // flip from every baseline of the walk (implies Analyze)

	// Pacing
	AbortStride    int // trials between cancellation checks (default: 32)
	ProgressStride int // trials between progress reports (default: 0x8000)
}

// DefaultConfig returns a Config that records hex values and checks for
// cancellation at the firmware's pace.
func DefaultConfig() *Config {
	return &Config{
		Ignore:         pld.ReservedMask,
		Values:         true,
		Encoding:       capture.EncodingHex,
		AbortStride:    32,
		ProgressStride: 0x8000,
	}
}

// Validate fills in defaults and checks that the walk produces something.
func (c *Config) Validate() error {
	c.Ignore |= pld.ReservedMask
	if c.Deep {
		c.Analyze = true
	}
	if !c.Analyze && !c.Values {
		return fmt.Errorf("walk requires one of: analyze, deep, values, raw")
	}
	if c.Encoding == capture.EncodingUnknown {
		c.Encoding = capture.EncodingHex
	}
	if c.AbortStride < 1 {
		c.AbortStride = 32
	}
	if c.ProgressStride < 1 {
		c.ProgressStride = 0x8000
	}
	return nil
}

// Expected returns the number of trials a full walk produces.
func (c *Config) Expected() int {
	return 1 << uint(pld.NumBits-c.Ignore.Count())
}

// WalkedBits returns the positions the walk toggles.
func (c *Config) WalkedBits() pld.Mask {
	return ^c.Ignore
}

// applied maps a counter value to the pattern driven onto the socket.
func (c *Config) applied(cur pld.Mask) pld.Mask {
	m := cur
	if c.WalkZeros {
		m = ^cur
	}
	if c.InvertIgnored || c.WalkZeros {
		m |= c.Ignore
	}
	return m
}

// Next advances the counter over the walked bits only. It wraps to zero
// after the last pattern.
func Next(cur, ignore pld.Mask) pld.Mask {
	return ((cur | ignore) + 1) &^ ignore
}
