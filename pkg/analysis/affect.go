package analysis

import (
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// AffectGraph records which pins changed when another pin was toggled.
type AffectGraph struct {
	// AffectedBy[b] is the set of pins whose level changed when bit b was
	// flipped.
	AffectedBy [pld.NumBits]pld.Mask
	// Affecting[p] is the inverse: the set of bits whose flip changed p.
	Affecting [pld.NumBits]pld.Mask
}

// Invert rebuilds Affecting from AffectedBy.
func (g *AffectGraph) Invert() {
	for p := range g.Affecting {
		var m pld.Mask
		for b, affected := range g.AffectedBy {
			if affected.Has(p) {
				m |= pld.Bit(b)
			}
		}
		g.Affecting[p] = m
	}
}

// AccumulateFlip records the pins that differ between the readback of a
// baseline drive and the readback with only bit flipped. Bits in exclude
// are not recorded. Both the capture analysis and the live walk analysis
// go through here.
func AccumulateFlip(affectedBy *[pld.NumBits]pld.Mask, bit int, base, flipped, exclude pld.Mask) {
	affectedBy[bit] |= (base ^ flipped) &^ exclude
}

// FlipPositions returns, for each bit that is walked, its rank among the
// walked bits. In a capture recorded in counting order over those bits,
// trial line and trial line^(1<<rank) differ only in that bit. Ignored
// bits get -1.
func FlipPositions(ignore pld.Mask) [pld.NumBits]int {
	var pos [pld.NumBits]int
	n := 0
	for bit := range pos {
		if ignore.Has(bit) {
			pos[bit] = -1
			continue
		}
		pos[bit] = n
		n++
	}
	return pos
}

// BuildAffectGraph compares every trial with its one-bit-flip partner for
// each walked bit. A bit flip is not reported as affecting itself when the
// bit is a plain input. Partners past the end of a short capture are
// skipped; partners whose drive differs by more than the flipped bit are
// reported and skipped.
func (s *Session) BuildAffectGraph() {
	var g AffectGraph
	pos := FlipPositions(s.Ignore)
	alwaysInput := s.Class.AlwaysInput
	trials := s.Trials
	unexpected := 0

	for line := range trials {
		for bit := 0; bit < pld.NumBits; bit++ {
			if pos[bit] < 0 || pos[bit] >= 31 {
				continue
			}
			oline := line ^ (1 << uint(pos[bit]))
			if oline >= len(trials) {
				continue
			}
			if trials[line].Applied^trials[oline].Applied != pld.Bit(bit) {
				unexpected++
				if unexpected <= maxStimulusDiagnostics {
					s.diag(UnexpectedStimulus, bit, line,
						"input unexpected (multiple bits differ): %s ^ bit %d != %s (line %d)",
						trials[line].Applied.Binary(), bit, trials[oline].Applied.Binary(), oline)
				}
				continue
			}
			var exclude pld.Mask
			if alwaysInput.Has(bit) {
				exclude = pld.Bit(bit)
			}
			AccumulateFlip(&g.AffectedBy, bit, trials[line].Observed, trials[oline].Observed, exclude)
		}
	}
	if unexpected > maxStimulusDiagnostics {
		s.diag(UnexpectedStimulus, -1, -1, "%d more unexpected input pairs not shown",
			unexpected-maxStimulusDiagnostics)
	}

	for bit := range g.AffectedBy {
		if s.Ignore.Has(bit) {
			g.AffectedBy[bit] = 0
		} else {
			g.AffectedBy[bit] &^= s.Ignore
		}
	}
	g.Invert()
	s.Graph = g
}
