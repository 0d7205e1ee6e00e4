package analysis

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Session carries one capture through every analysis stage. All per-pin
// state lives in fixed arrays indexed by socket bit, so several sessions
// can run side by side.
type Session struct {
	cfg *Config

	Trials []pld.Trial
	Ignore pld.Mask

	Class  Classification
	Graph  AffectGraph
	Tables [pld.NumBits]*TermTable

	Diagnostics []Diagnostic

	// Iterations is the number of minimizer rounds run; Converged is false
	// when the cap was hit.
	Iterations int
	Converged  bool
}

// NewSession prepares a session over trials. The trials must be in
// counting order over the walked bits.
func NewSession(trials []pld.Trial, cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analysis: invalid config: %w", err)
	}
	return &Session{cfg: cfg, Trials: trials}, nil
}

// Analyze runs every stage over trials with cfg.
func Analyze(trials []pld.Trial, cfg *Config) (*Session, error) {
	s, err := NewSession(trials, cfg)
	if err != nil {
		return nil, err
	}
	s.Run()
	return s, nil
}

// Run executes classification, affect analysis, term collection and
// minimization in order.
func (s *Session) Run() {
	s.Classify()
	s.BuildAffectGraph()
	s.CollectTerms()
	s.Minimize()
}

// Classify folds the trials and settles the ignore mask.
func (s *Session) Classify() {
	s.Class = Classify(s.Trials)
	if s.cfg.IgnoreSet {
		s.Ignore = s.cfg.Ignore
	} else {
		s.Ignore = s.Class.FallbackIgnore()
	}
}

// Outputs returns the pins that get an equation: outputs and open drain
// pins that are not ignored.
func (s *Session) Outputs() pld.Mask {
	return s.Class.Output &^ s.Ignore
}

// Analyzed reports whether a pin has a usable term table with at least
// one live term.
func (s *Session) Analyzed(pin int) bool {
	tt := s.Tables[pin]
	if tt == nil || tt.Failed {
		return false
	}
	for _, t := range tt.Terms {
		if t.Live() {
			return true
		}
	}
	return false
}
