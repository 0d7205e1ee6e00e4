package analysis

import (
	"sort"

	"github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Minimize runs the reduction passes until a full round changes nothing
// or the iteration cap is reached. Hitting the cap is reported, and the
// tables are left in their last (still correct) state.
func (s *Session) Minimize() {
	s.compact()
	s.Converged = false
	s.Iterations = 0
	for s.Iterations < s.cfg.MaxIterations {
		s.Iterations++
		changes := s.MergeAdjacent()
		s.compact()
		changes += s.EliminateSubsumed()
		s.compact()
		changes += s.MergeShared()
		s.compact()
		glog.V(2).Infof("minimize: round %d made %d changes", s.Iterations, changes)
		if changes == 0 {
			s.Converged = true
			return
		}
	}
	s.diag(NotConverged, -1, -1,
		"too many iterations (%d) merging terms; equations may not be minimal", s.Iterations)
}

func (s *Session) compact() {
	for _, tt := range s.Tables {
		if tt != nil {
			tt.Compact()
		}
	}
}

// MergeAdjacent combines pairs of terms that agree everywhere except one
// bit (X&B | X&!B = X). A pair whose merge would leave no condition at
// all is kept, since it is the only record that the pin's level did not
// depend on that bit.
func (s *Session) MergeAdjacent() int {
	changes := 0
	for pin, tt := range s.Tables {
		if !s.Analyzed(pin) {
			continue
		}
		var bitsInUse pld.Mask
		for _, t := range tt.Terms {
			bitsInUse |= t.Aff
		}
		terms := tt.Terms
		for _, bit := range bitsInUse.Bits() {
			b := pld.Bit(bit)
			for i := 0; i < len(terms)-1; i++ {
				for j := i + 1; j < len(terms); j++ {
					top, other := &terms[i], &terms[j]
					if !top.Live() || !other.Live() ||
						top.Aff != other.Aff || top.Result != other.Result ||
						top.Refs != other.Refs || top.Input&^b != other.Input&^b {
						continue
					}
					if top.Input != other.Input {
						if top.Aff&^b == 0 {
							continue
						}
						top.Aff &^= b
						top.Input &^= b
						top.Refs &^= b
					}
					other.Aff = 0
					changes++
				}
			}
		}
	}
	return changes
}

// EliminateSubsumed removes terms implied by a shorter term of the same
// pin, and strips a literal from a longer term when a shorter term covers
// its opposite: with top = a&R, other = !a&R&S becomes R&S.
func (s *Session) EliminateSubsumed() int {
	changes := 0
	for pin, tt := range s.Tables {
		if !s.Analyzed(pin) {
			continue
		}
		terms := tt.Terms
		for i := range terms {
			top := &terms[i]
			for j := range terms {
				if i == j || !top.Live() {
					continue
				}
				other := &terms[j]
				if !other.Live() || other.Result != top.Result ||
					other.Aff&top.Aff != top.Aff || other.Refs&top.Aff != top.Refs {
					continue
				}
				diff := (top.Input ^ other.Input) & top.Aff
				switch {
				case diff == 0:
					glog.V(2).Infof("minimize: bit %d term %d implied by term %d", pin, j, i)
					other.Aff = 0
					changes++
				case diff.Count() == 1 && other.Aff&^diff != 0:
					glog.V(2).Infof("minimize: bit %d term %d drops bit %d covered by term %d",
						pin, j, diff.Lowest(), i)
					other.Aff &^= diff
					other.Input &^= diff
					other.Refs &^= diff
					changes++
				}
			}
		}
	}
	return changes
}

// Containment is the outcome of ContainedWithin.
type Containment struct {
	OK      bool
	Delta   pld.Mask // extra conditions every matched sup term carries
	Pattern pld.Mask // levels of the Delta bits
	Matched []int    // indexes of the matched sup terms, in table order

	refs pld.Mask // Refs among the Delta bits
}

// ContainedWithin reports whether every term of sub with the given result
// appears inside a term of sup with the same result, each matched sup term
// adding the same extra conditions. When it holds, sup's matched terms are
// exactly (sub == polarity) & Delta.
//
// Trivial cases are rejected: no terms, a lone single-literal sub term,
// and a sub that already refers to sup.
func (s *Session) ContainedWithin(sup, sub int, polarity uint8) Containment {
	var none Containment
	if sup == sub || !s.Analyzed(sup) || !s.Analyzed(sub) {
		return none
	}
	supTerms := s.Tables[sup].Terms
	subTerms := s.Tables[sub].Terms

	var subLive []int
	for i, t := range subTerms {
		if !t.Live() {
			continue
		}
		if t.Aff.Has(sup) {
			return none
		}
		if t.Result == polarity {
			subLive = append(subLive, i)
		}
	}
	if len(subLive) == 0 {
		return none
	}
	if len(subLive) == 1 && subTerms[subLive[0]].Aff.Count() == 1 {
		return none
	}

	var c Containment
	first := true
	used := make(map[int]bool)
	for _, si := range subLive {
		st := subTerms[si]
		found := -1
		for k, pt := range supTerms {
			if !pt.Live() || pt.Result != polarity {
				continue
			}
			if pt.Aff&st.Aff != st.Aff || pt.Input&st.Aff != st.Input ||
				pt.Refs&st.Aff != st.Refs {
				continue
			}
			delta := pt.Aff &^ st.Aff
			if !first && (delta != c.Delta || pt.Input&delta != c.Pattern ||
				pt.Refs&delta != c.refs) {
				continue
			}
			if first {
				c.Delta = delta
				c.Pattern = pt.Input & delta
				c.refs = pt.Refs & delta
				first = false
			}
			found = k
			break
		}
		if found < 0 {
			return none
		}
		if !used[found] {
			used[found] = true
			c.Matched = append(c.Matched, found)
		}
	}
	sort.Ints(c.Matched)
	c.OK = true
	return c
}

// MergeShared replaces, for every pair of outputs where ContainedWithin
// holds, the matched terms of sup with one term referencing sub.
func (s *Session) MergeShared() int {
	changes := 0
	for sup := 0; sup < pld.NumBits; sup++ {
		for sub := 0; sub < pld.NumBits; sub++ {
			for polarity := uint8(0); polarity <= 1; polarity++ {
				c := s.ContainedWithin(sup, sub, polarity)
				if !c.OK {
					continue
				}
				glog.V(2).Infof("minimize: bit %d contains bit %d (result %d)", sup, sub, polarity)
				s.applyShared(sup, sub, polarity, c)
				changes++
			}
		}
	}
	return changes
}

func (s *Session) applyShared(sup, sub int, polarity uint8, c Containment) {
	terms := s.Tables[sup].Terms
	ref := pld.Bit(sub)
	keep := &terms[c.Matched[0]]
	keep.Aff = c.Delta | ref
	keep.Input = c.Pattern
	if polarity == 1 {
		keep.Input |= ref
	}
	keep.Refs = c.refs | ref
	for _, k := range c.Matched[1:] {
		terms[k].Aff = 0
	}
}
