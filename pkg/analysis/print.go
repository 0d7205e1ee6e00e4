package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Namer supplies printable pin names. PinName(bit, true) names the
// complement of the pin.
type Namer interface {
	PinName(bit int, invert bool) string
	Inverted(bit int) bool
}

// Drive describes how an output pin drives its net.
type Drive string

const (
	DrivePushPull Drive = "output"
	DriveOnlyLow  Drive = "open-drain-low"
	DriveOnlyHigh Drive = "open-drain-high"
)

// Literal is one condition of a product term.
type Literal struct {
	Bit     int    `json:"bit"`
	Name    string `json:"name"`
	Signal  string `json:"signal"`        // name without active low marking
	Negated bool   `json:"negated"`       // true when the pin must read low
	Ref     bool   `json:"ref,omitempty"` // names another output's level
}

// Product is an AND of literals.
type Product []Literal

func (p Product) String() string {
	parts := make([]string, len(p))
	for i, l := range p {
		parts[i] = l.Name
	}
	return strings.Join(parts, " & ")
}

// Listing is a sum of products for one polarity of a pin.
type Listing struct {
	Name  string    `json:"name"`  // left hand side, possibly negated
	Level uint8     `json:"level"` // pin level the listing asserts
	Terms []Product `json:"terms"`
}

// Equation is the printable form of one analyzed pin.
type Equation struct {
	Bit      int      `json:"bit"`
	Name     string   `json:"name"`
	Signal   string   `json:"signal"`
	Drive    Drive    `json:"drive"`
	Asserted *Listing `json:"asserted,omitempty"` // result 1 listing
	Negated  *Listing `json:"negated,omitempty"`  // result 0 listing
}

// Drive returns how a pin drives, from the classification.
func (s *Session) Drive(pin int) Drive {
	switch {
	case s.Class.OnlyHigh.Has(pin):
		return DriveOnlyHigh
	case s.Class.OnlyLow.Has(pin):
		return DriveOnlyLow
	default:
		return DrivePushPull
	}
}

// Listing renders one polarity of a pin in table order. result is the
// level printed on the left hand side; a pin configured active low lists
// the terms of the opposite physical level. Open drain pins drop their
// own bit, which only reflects the tester's drive through the resistor.
func (s *Session) Listing(pin int, names Namer, result uint8) *Listing {
	if !s.Analyzed(pin) {
		return nil
	}
	search := result
	if names.Inverted(pin) {
		search ^= 1
	}
	l := &Listing{Name: names.PinName(pin, search == 0), Level: search}

	openDrain := s.Class.OpenDrain().Has(pin)
	for _, t := range s.Tables[pin].Terms {
		if !t.Live() || t.Result != search {
			continue
		}
		aff := t.Aff
		if openDrain {
			aff &^= pld.Bit(pin)
		}
		if aff == 0 {
			continue
		}
		var p Product
		for _, bit := range aff.Bits() {
			neg := !t.Input.Has(bit)
			p = append(p, Literal{
				Bit:     bit,
				Name:    names.PinName(bit, neg),
				Signal:  signalName(names, bit),
				Negated: neg,
				Ref:     t.Refs.Has(bit),
			})
		}
		l.Terms = append(l.Terms, p)
	}
	if len(l.Terms) == 0 {
		return nil
	}
	return l
}

// signalName is the configured name without any "!" marking.
func signalName(names Namer, bit int) string {
	return names.PinName(bit, names.Inverted(bit))
}

// Equations returns every analyzed pin in bit order.
func (s *Session) Equations(names Namer) []Equation {
	var out []Equation
	for pin := 0; pin < pld.NumBits; pin++ {
		if !s.Analyzed(pin) {
			continue
		}
		eq := Equation{
			Bit:      pin,
			Name:     names.PinName(pin, false),
			Signal:   signalName(names, pin),
			Drive:    s.Drive(pin),
			Asserted: s.Listing(pin, names, 1),
			Negated:  s.Listing(pin, names, 0),
		}
		if eq.Asserted == nil && eq.Negated == nil {
			continue
		}
		out = append(out, eq)
	}
	return out
}

// WriteEquations prints the listing of every pin for one result level,
// one statement per pin:
//
//	P3 = P1 & P2
//	   # !P4;
//
// The result 0 listing is indented by three spaces. Open drain pins print
// their fixed drive level and an .OE equation.
func (s *Session) WriteEquations(w io.Writer, names Namer, result uint8) error {
	indent := ""
	if result == 0 {
		indent = "   "
	}
	var sb strings.Builder
	for pin := 0; pin < pld.NumBits; pin++ {
		l := s.Listing(pin, names, result)
		if l == nil {
			continue
		}
		nameLen := len(l.Name)
		switch s.Drive(pin) {
		case DriveOnlyHigh:
			fmt.Fprintf(&sb, "%s%s    = 'b'%d;\n", indent, l.Name, l.Level)
			fmt.Fprintf(&sb, "%s%s.OE = ", indent, l.Name)
			nameLen += 3
		case DriveOnlyLow:
			fmt.Fprintf(&sb, "%s%s    = 'b'%d;\n", indent, l.Name, l.Level^1)
			fmt.Fprintf(&sb, "%s%s.OE = ", indent, l.Name)
			nameLen += 3
		default:
			fmt.Fprintf(&sb, "%s%s = ", indent, l.Name)
		}
		for i, p := range l.Terms {
			if i > 0 {
				fmt.Fprintf(&sb, "\n%s%*s # ", indent, nameLen, "")
			}
			sb.WriteString(p.String())
		}
		sb.WriteString(";\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
