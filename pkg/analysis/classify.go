package analysis

import "github.com/OpenTraceLab/OpenTracePLD/pkg/pld"

// Classification holds the static per-pin properties folded from a set of
// trials. Every mask is indexed by socket bit.
type Classification struct {
	Touched     pld.Mask // driven high in at least one trial
	AlwaysInput pld.Mask // read back exactly as driven in every trial
	Output      pld.Mask // read back differently from the drive at least once
	AlwaysLow   pld.Mask
	AlwaysHigh  pld.Mask
	OnlyHigh    pld.Mask // open drain that only ever pulls high
	OnlyLow     pld.Mask // open drain that only ever pulls low

	// Saw0 and Saw1 collect the applied levels, for the fallback ignore
	// mask.
	Saw0 pld.Mask
	Saw1 pld.Mask

	Trials int
}

// OpenDrain returns the pins that only drive one level.
func (c Classification) OpenDrain() pld.Mask {
	return c.OnlyHigh | c.OnlyLow
}

// FallbackIgnore returns the bits that never took both levels in the
// applied stimulus. These cannot have been walked and carry no
// information.
func (c Classification) FallbackIgnore() pld.Mask {
	return ^(c.Saw0 & c.Saw1)
}

// Classifier folds trials one at a time, so the walker can classify while
// it drives the socket. The fold is order independent.
type Classifier struct {
	c Classification
}

// NewClassifier returns a classifier with no trials folded in.
func NewClassifier() *Classifier {
	all := ^pld.Mask(0)
	return &Classifier{c: Classification{
		AlwaysInput: all,
		AlwaysLow:   all,
		AlwaysHigh:  all,
		OnlyHigh:    all,
		OnlyLow:     all,
	}}
}

// Add folds one trial.
func (cl *Classifier) Add(t pld.Trial) {
	a, o := t.Applied, t.Observed
	c := &cl.c
	c.Touched |= a
	c.AlwaysLow &= ^o
	c.AlwaysHigh &= o
	c.AlwaysInput &= ^(a ^ o)
	c.Output |= a ^ o
	c.OnlyHigh &= o | ^a
	c.OnlyLow &= ^o | a
	c.Saw0 |= ^a
	c.Saw1 |= a
	c.Trials++
}

// Result returns the classification of the trials folded so far. Pins
// already known to be plain inputs or stuck at one level are removed from
// the open drain sets.
func (cl *Classifier) Result() Classification {
	c := cl.c
	c.OnlyLow &^= c.AlwaysLow | c.AlwaysInput
	c.OnlyHigh &^= c.AlwaysHigh | c.AlwaysInput
	return c
}

// Classify folds a whole trial set. With no trials every pin is reported
// as an input (vacuous truth), which callers must treat as unknown.
func Classify(trials []pld.Trial) Classification {
	cl := NewClassifier()
	for _, t := range trials {
		cl.Add(t)
	}
	return cl.Result()
}
