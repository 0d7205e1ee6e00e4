package analysis

import "fmt"

// DiagnosticKind classifies a non-fatal finding.
type DiagnosticKind int

const (
	// HiddenState: one input pattern produced both levels on a pin. The
	// first observed level is kept.
	HiddenState DiagnosticKind = iota
	// TableOverflow: a pin produced more distinct patterns than its affect
	// mask allows. That pin is dropped from minimization and printing.
	TableOverflow
	// UnexpectedStimulus: a one-bit-flip partner trial differs in more than
	// the flipped bit, so the capture was not in counting order.
	UnexpectedStimulus
	// NotConverged: the minimizer hit its iteration cap.
	NotConverged
)

func (k DiagnosticKind) String() string {
	switch k {
	case HiddenState:
		return "hidden-state"
	case TableOverflow:
		return "table-overflow"
	case UnexpectedStimulus:
		return "unexpected-stimulus"
	case NotConverged:
		return "not-converged"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Diagnostic is a warning raised by one of the analysis stages.
type Diagnostic struct {
	Kind DiagnosticKind
	Pin  int // socket bit, -1 when not pin specific
	Line int // trial index, -1 when not line specific
	Msg  string
}

// Fatal reports whether the diagnostic invalidated a pin's analysis.
func (d Diagnostic) Fatal() bool {
	return d.Kind == TableOverflow
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Msg)
}

// maxStimulusDiagnostics limits how many individual UnexpectedStimulus
// findings are kept; a capture in the wrong order would otherwise produce
// one per trial and bit.
const maxStimulusDiagnostics = 8

func (s *Session) diag(kind DiagnosticKind, pin, line int, format string, args ...interface{}) {
	s.Diagnostics = append(s.Diagnostics, Diagnostic{
		Kind: kind,
		Pin:  pin,
		Line: line,
		Msg:  fmt.Sprintf(format, args...),
	})
}

// DiagnosticsOf returns the diagnostics of one kind.
func (s *Session) DiagnosticsOf(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
