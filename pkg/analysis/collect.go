package analysis

import (
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// CollectTerms builds a term table for each output pin from the distinct
// (affecting input pattern, output level) pairs in the trials. After this
// stage the trials are only needed for verification.
func (s *Session) CollectTerms() {
	outputs := s.Outputs()

	type conflict struct {
		count int
		line  int
		key   pld.Mask
	}
	var conflicts [pld.NumBits]conflict

	for pin := 0; pin < pld.NumBits; pin++ {
		s.Tables[pin] = nil
		if outputs.Has(pin) {
			s.Tables[pin] = NewTermTable(pin, s.Graph.Affecting[pin])
		}
	}

	for line, t := range s.Trials {
		for pin := 0; pin < pld.NumBits; pin++ {
			tt := s.Tables[pin]
			if tt == nil || tt.Failed {
				continue
			}
			var result uint8
			if t.Observed.Has(pin) {
				result = 1
			}
			switch tt.Insert(t.Applied&tt.Affect, result, line) {
			case Contradiction:
				c := &conflicts[pin]
				if c.count == 0 {
					c.line = line
					c.key = t.Applied & tt.Affect
				}
				c.count++
			case Overflow:
				s.diag(TableOverflow, pin, line,
					"bit %d: more than %d distinct input patterns; pin not analyzed",
					pin, tt.Cap)
			}
		}
	}

	for pin, c := range conflicts {
		if c.count == 0 {
			continue
		}
		s.diag(HiddenState, pin, c.line,
			"bit %d: %d observations contradict an earlier result for the same inputs "+
				"(first at line %d, inputs %s); keeping first-seen values",
			pin, c.count, c.line, c.key.Binary())
	}
}
