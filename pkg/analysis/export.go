package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chewxy/sexp"
)

// Export is the machine readable form of a finished session.
type Export struct {
	Version     string            `json:"version"`
	Trials      int               `json:"trials"`
	Ignore      string            `json:"ignore"`
	Classes     map[string]string `json:"classes"`
	Equations   []Equation        `json:"equations"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
	Iterations  int               `json:"iterations"`
	Converged   bool              `json:"converged"`
	GeneratedBy string            `json:"generated_by"`
}

// Export collects the session results.
func (s *Session) Export(names Namer) *Export {
	c := s.Class
	out := &Export{
		Version: "1.0",
		Trials:  len(s.Trials),
		Ignore:  s.Ignore.Binary(),
		Classes: map[string]string{
			"input":       c.AlwaysInput.Binary(),
			"output":      c.Output.Binary(),
			"always_low":  c.AlwaysLow.Binary(),
			"always_high": c.AlwaysHigh.Binary(),
			"only_low":    c.OnlyLow.Binary(),
			"only_high":   c.OnlyHigh.Binary(),
		},
		Equations:   s.Equations(names),
		Iterations:  s.Iterations,
		Converged:   s.Converged,
		GeneratedBy: "pld brute force analysis",
	}
	for _, d := range s.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, d.String())
	}
	return out
}

// ExportJSON exports the session to JSON format.
func (s *Session) ExportJSON(names Namer) ([]byte, error) {
	return json.MarshalIndent(s.Export(names), "", "  ")
}

// ExportSexp exports the equations as an s-expression:
//
//	(equations
//	  (pin (bit 2) (name P3) (drive output)
//	    (level 1 (or (and P1 P2)))
//	    (level 0 (or (and (not P2)) (and (not P1))))))
//
// Literals use the signal names and physical levels. The result is parsed
// back before it is returned.
func (s *Session) ExportSexp(names Namer) (string, error) {
	var sb strings.Builder
	sb.WriteString("(equations")
	for _, eq := range s.Equations(names) {
		fmt.Fprintf(&sb, "\n  (pin (bit %d) (name %s) (drive %s)", eq.Bit, eq.Signal, eq.Drive)
		for _, l := range []*Listing{eq.Asserted, eq.Negated} {
			if l == nil {
				continue
			}
			fmt.Fprintf(&sb, "\n    (level %d (or", l.Level)
			for _, p := range l.Terms {
				sb.WriteString(" (and")
				for _, lit := range p {
					if lit.Negated {
						fmt.Fprintf(&sb, " (not %s)", lit.Signal)
					} else {
						fmt.Fprintf(&sb, " %s", lit.Signal)
					}
				}
				sb.WriteString(")")
			}
			sb.WriteString("))")
		}
		sb.WriteString(")")
	}
	sb.WriteString(")\n")

	out := sb.String()
	parsed, err := sexp.ParseString(out)
	if err != nil {
		return "", fmt.Errorf("analysis: generated s-expression does not parse: %w", err)
	}
	if len(parsed) != 1 || parsed[0].IsLeaf() {
		return "", fmt.Errorf("analysis: generated s-expression has %d top level forms", len(parsed))
	}
	return out, nil
}
