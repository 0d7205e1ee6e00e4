package analysis

import (
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pinconf"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// model computes the levels read back for one applied drive.
type model func(applied pld.Mask) pld.Mask

// walkTrials drives every pattern of the low n bits in counting order.
func walkTrials(n int, m model) []pld.Trial {
	trials := make([]pld.Trial, 0, 1<<uint(n))
	for cur := pld.Mask(0); cur < pld.Mask(1)<<uint(n); cur++ {
		trials = append(trials, pld.Trial{Applied: cur, Observed: m(cur)})
	}
	return trials
}

// walkedIgnore ignores everything above the low n bits.
func walkedIgnore(n int) pld.Mask {
	return ^(pld.Mask(1)<<uint(n) - 1)
}

func setBit(m pld.Mask, bit int, v bool) pld.Mask {
	if v {
		return m | pld.Bit(bit)
	}
	return m &^ pld.Bit(bit)
}

// andGate: P3 = P1 & P2.
func andGate(a pld.Mask) pld.Mask {
	return setBit(a, 2, a.Has(0) && a.Has(1))
}

// xorGate: P3 = P1 ^ P2.
func xorGate(a pld.Mask) pld.Mask {
	return setBit(a, 2, a.Has(0) != a.Has(1))
}

// openDrainNand pulls P3 low when P1 & P2; otherwise the tester's drive
// reads back.
func openDrainNand(a pld.Mask) pld.Mask {
	if a.Has(0) && a.Has(1) {
		return a &^ pld.Bit(2)
	}
	return a
}

// chained: A (bit 2) = X & Y, B (bit 4) = X & Y & Z with X, Y, Z at bits
// 0, 1, 3.
func chained(a pld.Mask) pld.Mask {
	x, y, z := a.Has(0), a.Has(1), a.Has(3)
	o := setBit(a, 2, x && y)
	return setBit(o, 4, x && y && z)
}

// mux: P4 = P3 ? P2 : P1.
func mux(a pld.Mask) pld.Mask {
	v := a.Has(0)
	if a.Has(2) {
		v = a.Has(1)
	}
	return setBit(a, 3, v)
}

// adder: P4 = P1 ^ P2 ^ P3, P5 = majority(P1, P2, P3).
func adder(a pld.Mask) pld.Mask {
	x, y, c := a.Has(0), a.Has(1), a.Has(2)
	o := setBit(a, 3, x != y != c)
	n := 0
	for _, v := range []bool{x, y, c} {
		if v {
			n++
		}
	}
	return setBit(o, 4, n >= 2)
}

func analyze(t *testing.T, trials []pld.Trial, walked int) *Session {
	t.Helper()
	s, err := Analyze(trials, DefaultConfig().WithIgnore(walkedIgnore(walked)))
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	return s
}

func mustNames(t *testing.T, src string) *pinconf.Table {
	t.Helper()
	if src == "" {
		return pinconf.NewTable()
	}
	tbl, err := pinconf.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("pinconf.Parse() error: %v", err)
	}
	return tbl
}

func equations(t *testing.T, s *Session, names Namer, result uint8) string {
	t.Helper()
	var sb strings.Builder
	if err := s.WriteEquations(&sb, names, result); err != nil {
		t.Fatalf("WriteEquations() error: %v", err)
	}
	return sb.String()
}

// checkSound verifies that every analyzed pin's terms reproduce every
// trial: some term matches with the observed level and none matches with
// the other level. Referenced outputs are evaluated at their observed
// level.
func checkSound(t *testing.T, s *Session) {
	t.Helper()
	for pin := 0; pin < pld.NumBits; pin++ {
		if !s.Analyzed(pin) {
			continue
		}
		for line, tr := range s.Trials {
			var want uint8
			if tr.Observed.Has(pin) {
				want = 1
			}
			covered := false
			for _, term := range s.Tables[pin].Terms {
				if !term.Live() {
					continue
				}
				levels := (tr.Applied &^ term.Refs) | (tr.Observed & term.Refs)
				if !term.Matches(levels) {
					continue
				}
				if term.Result != want {
					t.Errorf("bit %d line %d: term %+v gives %d, observed %d",
						pin, line, term, term.Result, want)
				}
				covered = true
			}
			if !covered {
				t.Errorf("bit %d line %d: no term covers applied %s",
					pin, line, tr.Applied.Binary())
			}
		}
	}
}
