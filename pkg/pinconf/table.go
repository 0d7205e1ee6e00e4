package pinconf

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/footprint"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

// Pin is the printable identity of one socket bit.
type Pin struct {
	Num    int    // device pin number, 0 when the bit has no pin
	Name   string // configured name, empty for the default P<num>
	Invert bool   // configured as active low
}

// Table maps socket bits to pin names. The zero value is not usable; use
// NewTable or Load.
type Table struct {
	Device    string
	Footprint *footprint.Footprint
	Pins      [pld.NumBits]Pin

	// Source is the configuration text the table was loaded from.
	Source []byte
}

// NewTable returns a table with the identity numbering (bit n is pin n+1)
// and no names.
func NewTable() *Table {
	t := &Table{}
	for bit := range t.Pins {
		t.Pins[bit].Num = bit + 1
	}
	return t
}

// SetFootprint renumbers every socket bit for a package.
func (t *Table) SetFootprint(f *footprint.Footprint) {
	t.Footprint = f
	for bit := range t.Pins {
		if bit < pld.SocketPins {
			t.Pins[bit].Num = f.PinNumber(bit)
		} else {
			t.Pins[bit].Num = bit + 1
		}
	}
}

// PinName returns the name printed for a bit. invert requests the
// complement; a pin configured active low flips it again.
func (t *Table) PinName(bit int, invert bool) string {
	p := t.Pins[bit]
	if p.Invert {
		invert = !invert
	}
	prefix := ""
	if invert {
		prefix = "!"
	}
	if p.Name != "" {
		return prefix + p.Name
	}
	return fmt.Sprintf("%sP%d", prefix, p.Num)
}

// Inverted reports whether a bit was configured active low.
func (t *Table) Inverted(bit int) bool {
	return t.Pins[bit].Invert
}

// Apply folds parsed statements into the table in file order. A PIN
// statement naming a pin the current footprint does not have is an error.
func (t *Table) Apply(cfg *ConfigFile) error {
	for _, st := range cfg.Statements {
		switch {
		case st.Device != nil:
			f, err := footprint.Lookup(st.Device.Name)
			if err != nil {
				return fmt.Errorf("line %d: %w", st.Device.Pos.Line, err)
			}
			t.Device = st.Device.Name
			t.SetFootprint(f)
		case st.Pin != nil:
			bit, ok := t.Footprint.Bit(st.Pin.Number)
			if !ok {
				return fmt.Errorf("line %d: invalid pin number '%d'", st.Pin.Pos.Line, st.Pin.Number)
			}
			t.Pins[bit].Name = st.Pin.Name
			t.Pins[bit].Invert = st.Pin.Invert
		}
	}
	return nil
}

// Parse reads a configuration and builds its table.
func Parse(r io.Reader) (*Table, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pinconf: read: %w", err)
	}
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	cfg, err := p.ParseString(string(src))
	if err != nil {
		return nil, fmt.Errorf("pinconf: %w", err)
	}
	return build(cfg, src)
}

// Load reads the configuration file at path.
func Load(path string) (*Table, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	cfg, src, err := p.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("pinconf: %w", err)
	}
	t, err := build(cfg, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func build(cfg *ConfigFile, src []byte) (*Table, error) {
	t := NewTable()
	if err := t.Apply(cfg); err != nil {
		return nil, fmt.Errorf("pinconf: %w", err)
	}
	t.Source = src
	return t, nil
}

// WriteConfig writes the configuration back out. A table loaded from a
// file echoes its source; otherwise a template with one PIN statement per
// analyzed bit is produced for the user to fill in.
func (t *Table) WriteConfig(w io.Writer, ignore pld.Mask) error {
	if t.Source != nil {
		src := t.Source
		if !bytes.HasSuffix(src, []byte("\n")) {
			src = append(append([]byte{}, src...), '\n')
		}
		_, err := w.Write(src)
		return err
	}

	var sb strings.Builder
	if t.Device != "" {
		fmt.Fprintf(&sb, "DEVICE %s;\n", t.Device)
	}
	for bit := 0; bit < pld.SocketPins; bit++ {
		if ignore.Has(bit) || t.Pins[bit].Num == 0 {
			continue
		}
		fmt.Fprintf(&sb, "PIN %d = %s;\n", t.Pins[bit].Num, t.PinName(bit, false))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
