package analysis

import (
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Term is one product term of a pin's equation: when the bits in Aff
// match the levels in Input, the pin reads Result. Input never has bits
// outside Aff. A term with an empty Aff is dead and is dropped by Compact.
type Term struct {
	Input  pld.Mask
	Aff    pld.Mask
	Refs   pld.Mask // bits of Aff standing for another output's level
	Result uint8
	Line   int // trial that first produced the term
}

// Live reports whether the term still participates in the equation.
func (t Term) Live() bool {
	return t.Aff != 0
}

// Matches reports whether a pattern of levels satisfies the term.
func (t Term) Matches(levels pld.Mask) bool {
	return levels&t.Aff == t.Input
}

// InsertResult tells what TermTable.Insert did with an observation.
type InsertResult int

const (
	Inserted InsertResult = iota
	Duplicate
	Contradiction
	Overflow
)

// TermTable holds the distinct observations for one output pin. Its
// capacity is fixed at the number of patterns the pin's affect mask can
// distinguish.
type TermTable struct {
	Pin    int
	Affect pld.Mask
	Terms  []Term
	Cap    int
	Failed bool
}

// NewTermTable allocates a table sized for affect.
func NewTermTable(pin int, affect pld.Mask) *TermTable {
	return newTermTable(pin, affect, 1<<uint(affect.Count()))
}

func newTermTable(pin int, affect pld.Mask, capacity int) *TermTable {
	return &TermTable{
		Pin:    pin,
		Affect: affect,
		Terms:  make([]Term, 0, min(capacity, 1<<16)),
		Cap:    capacity,
	}
}

// Insert records that key (already masked to the affect set) produced
// result. An identical observation is ignored. The same key with the
// other result is a contradiction: the first value stays. Once the table
// is full it is marked failed and refuses further inserts.
func (tt *TermTable) Insert(key pld.Mask, result uint8, line int) InsertResult {
	if tt.Failed {
		return Overflow
	}
	for i := range tt.Terms {
		if tt.Terms[i].Input != key {
			continue
		}
		if tt.Terms[i].Result == result {
			return Duplicate
		}
		return Contradiction
	}
	if len(tt.Terms) >= tt.Cap {
		tt.Failed = true
		return Overflow
	}
	tt.Terms = append(tt.Terms, Term{
		Input:  key,
		Aff:    tt.Affect,
		Result: result,
		Line:   line,
	})
	return Inserted
}

// Lookup returns the live term matching a full drive pattern, preferring
// table order.
func (tt *TermTable) Lookup(levels pld.Mask) (Term, bool) {
	for _, t := range tt.Terms {
		if t.Live() && t.Matches(levels) {
			return t, true
		}
	}
	return Term{}, false
}

// Compact removes dead terms in place, preserving order. It returns the
// number removed.
func (tt *TermTable) Compact() int {
	n := 0
	for _, t := range tt.Terms {
		if t.Live() {
			tt.Terms[n] = t
			n++
		}
	}
	removed := len(tt.Terms) - n
	tt.Terms = tt.Terms[:n]
	return removed
}

// Count returns the number of live terms with the given result.
func (tt *TermTable) Count(result uint8) int {
	n := 0
	for _, t := range tt.Terms {
		if t.Live() && t.Result == result {
			n++
		}
	}
	return n
}
