package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// ConfigWriter echoes the pin configuration at the head of the equations,
// so the output can be pasted into a design file.
type ConfigWriter interface {
	WriteConfig(w io.Writer, ignore pld.Mask) error
}

// WriteClassification prints one line per pin class, masked to the
// touched pins that are not ignored. Always-high pins are listed as found,
// since a pin stuck high is never seen driven low.
func (s *Session) WriteClassification(w io.Writer) error {
	c := s.Class
	touched := c.Touched &^ s.Ignore
	lines := []struct {
		m     pld.Mask
		label string
	}{
		{c.AlwaysInput & touched, "input"},
		{c.Output & touched, "output"},
		{c.AlwaysLow & touched, "output always low"},
		{c.AlwaysHigh, "output always high"},
		{c.OnlyLow & touched, "open drain: only drives low"},
		{c.OnlyHigh & touched, "open drain: only drives high"},
	}
	var sb strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&sb, "%s %s\n", l.m.Binary(), l.label)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteAffectTable prints, for every socket position with any
// relationship, the pins that affect it and the pins it affects.
func (s *Session) WriteAffectTable(w io.Writer) error {
	var sb strings.Builder
	printed := false
	for bit := 0; bit < pld.SocketPins; bit++ {
		affecting := s.Graph.Affecting[bit]
		affected := s.Graph.AffectedBy[bit]
		if affecting == 0 && affected == 0 {
			continue
		}
		if !printed {
			printed = true
			fmt.Fprintf(&sb, "\n        %-40sPins affected\n", "Pins affecting")
		}
		if affecting != 0 {
			fmt.Fprintf(&sb, "%s ->", affecting.Binary())
		} else {
			fmt.Fprintf(&sb, "%34s", "")
		}
		fmt.Fprintf(&sb, " Pin%-2d", bit+1)
		if affected != 0 {
			fmt.Fprintf(&sb, " -> %s", affected.Binary())
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteReport prints the full analysis: pin classes, the affect table,
// the configuration echo, the equations and, in a comment block, the
// inverted equations. cfg may be nil.
func (s *Session) WriteReport(w io.Writer, names Namer, cfg ConfigWriter) error {
	if err := s.WriteClassification(w); err != nil {
		return err
	}
	if err := s.WriteAffectTable(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	if cfg != nil {
		if err := cfg.WriteConfig(w, s.Ignore); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	if err := s.WriteEquations(w, names, 1); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "/*\n"+
		"   Inverted logic for reference purposes\n"+
		"   -------------------------------------\n"); err != nil {
		return err
	}
	if err := s.WriteEquations(w, names, 0); err != nil {
		return err
	}
	_, err := io.WriteString(w, "*/\n")
	return err
}
