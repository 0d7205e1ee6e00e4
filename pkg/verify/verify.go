// Package verify checks recovered equations against the capture they came
// from. Every live term of a pin is built into a binary decision diagram
// and compared with the set of input patterns the device was observed
// under, for both result levels.
package verify

import (
	"fmt"

	"github.com/dalzilio/rudd"
	"github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/analysis"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Variable layout: applied level of bit b is variable b, the observed level
// of bit b (used by terms that reference another output) is NumBits+b.
const numVars = 2 * pld.NumBits

// Config sizes the decision diagram tables.
type Config struct {
	NodeSize  int
	CacheSize int
}

// DefaultConfig returns sizes that fit every 28 pin device.
func DefaultConfig() *Config {
	return &Config{
		NodeSize:  10000,
		CacheSize: 5000,
	}
}

// PinResult is the outcome for one output pin.
type PinResult struct {
	Bit     int
	Skipped bool
	Reason  string // why the pin was skipped

	Terms      int // live terms checked
	Patterns   int // distinct observed patterns over the pin's support
	Mismatches int // trials on which the equations disagree with the device
}

// OK reports whether the pin's equations reproduce every trial.
func (p PinResult) OK() bool {
	return p.Skipped || p.Mismatches == 0
}

func (p PinResult) String() string {
	switch {
	case p.Skipped:
		return fmt.Sprintf("bit %d: skipped (%s)", p.Bit, p.Reason)
	case p.Mismatches > 0:
		return fmt.Sprintf("bit %d: %d of the trials disagree with %d terms",
			p.Bit, p.Mismatches, p.Terms)
	default:
		return fmt.Sprintf("bit %d: %d terms match %d patterns", p.Bit, p.Terms, p.Patterns)
	}
}

// Report collects the per pin results of a check.
type Report struct {
	Trials int
	Pins   []PinResult
}

// OK reports whether no checked pin had a mismatch.
func (r *Report) OK() bool {
	for _, p := range r.Pins {
		if !p.OK() {
			return false
		}
	}
	return true
}

// Failed returns the pins with mismatches.
func (r *Report) Failed() []PinResult {
	var out []PinResult
	for _, p := range r.Pins {
		if !p.OK() {
			out = append(out, p)
		}
	}
	return out
}

// boolOps is the part of the decision diagram API the checker uses.
type boolOps interface {
	Ithvar(i int) rudd.Node
	NIthvar(i int) rudd.Node
	And(n ...rudd.Node) rudd.Node
	Or(n ...rudd.Node) rudd.Node
	Not(n rudd.Node) rudd.Node
	True() rudd.Node
	False() rudd.Node
	Equal(n1, n2 rudd.Node) bool
	Error() string
}

// Check verifies every pin that has a term table in s.
func Check(s *analysis.Session, cfg *Config) (*Report, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	bdd, err := rudd.New(numVars, rudd.Nodesize(cfg.NodeSize), rudd.Cachesize(cfg.CacheSize))
	if err != nil {
		return nil, fmt.Errorf("verify: creating decision diagram: %w", err)
	}
	c := &checker{b: bdd, s: s}

	r := &Report{Trials: len(s.Trials)}
	for pin, tt := range s.Tables {
		if tt == nil {
			continue
		}
		res := c.checkPin(pin, tt)
		if e := c.b.Error(); e != "" {
			return nil, fmt.Errorf("verify: bit %d: %s", pin, e)
		}
		if res.Mismatches > 0 {
			glog.Warningf("verify: %s", res)
		} else {
			glog.V(1).Infof("verify: %s", res)
		}
		r.Pins = append(r.Pins, res)
	}
	return r, nil
}

type checker struct {
	b boolOps
	s *analysis.Session
}

func variable(bit int, ref bool) int {
	if ref {
		return pld.NumBits + bit
	}
	return bit
}

func (c *checker) literal(bit int, ref, high bool) rudd.Node {
	if high {
		return c.b.Ithvar(variable(bit, ref))
	}
	return c.b.NIthvar(variable(bit, ref))
}

// term builds the conjunction of a term's literals.
func (c *checker) term(t analysis.Term) rudd.Node {
	n := c.b.True()
	for _, bit := range t.Aff.Bits() {
		n = c.b.And(n, c.literal(bit, t.Refs.Has(bit), t.Input.Has(bit)))
	}
	return n
}

// cube builds the conjunction describing one trial over a support.
func (c *checker) cube(applied, observed, support, refs pld.Mask) rudd.Node {
	n := c.b.True()
	for _, bit := range support.Bits() {
		n = c.b.And(n, c.literal(bit, false, applied.Has(bit)))
	}
	for _, bit := range refs.Bits() {
		n = c.b.And(n, c.literal(bit, true, observed.Has(bit)))
	}
	return n
}

func (c *checker) checkPin(pin int, tt *analysis.TermTable) PinResult {
	res := PinResult{Bit: pin}
	switch {
	case tt.Failed:
		res.Skipped, res.Reason = true, "term table overflowed"
		return res
	case tt.Affect == 0:
		res.Skipped, res.Reason = true, "no affecting pins"
		return res
	}

	f := [2]rudd.Node{c.b.False(), c.b.False()}
	var support, refs pld.Mask
	for _, t := range tt.Terms {
		if !t.Live() {
			continue
		}
		res.Terms++
		f[t.Result] = c.b.Or(f[t.Result], c.term(t))
		support |= t.Aff &^ t.Refs
		refs |= t.Refs
	}
	if res.Terms == 0 {
		res.Skipped, res.Reason = true, "no terms"
		return res
	}
	notF := [2]rudd.Node{c.b.Not(f[0]), c.b.Not(f[1])}

	type pattern struct {
		applied, observed pld.Mask
		level             uint8
	}
	type seen struct {
		count int
		bad   bool
	}
	patterns := make(map[pattern]*seen)

	for _, tr := range c.s.Trials {
		k := pattern{applied: tr.Applied & support, observed: tr.Observed & refs}
		if tr.Observed.Has(pin) {
			k.level = 1
		}
		p, ok := patterns[k]
		if !ok {
			cube := c.cube(k.applied, k.observed, support, refs)
			// A trial is right when the listing for its level covers it
			// and the listing for the other level does not.
			bad := !c.b.Equal(c.b.And(cube, notF[k.level]), c.b.False()) ||
				!c.b.Equal(c.b.And(cube, f[k.level^1]), c.b.False())
			p = &seen{bad: bad}
			patterns[k] = p
		}
		p.count++
	}

	res.Patterns = len(patterns)
	for _, p := range patterns {
		if p.bad {
			res.Mismatches += p.count
		}
	}
	return res
}
