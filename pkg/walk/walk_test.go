package walk

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/analysis"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/capture"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/socket"
)

// walkConfig walks the low n positions.
func walkConfig(n int) *Config {
	cfg := DefaultConfig()
	cfg.Ignore = ^(pld.Mask(1)<<uint(n) - 1)
	return cfg
}

func TestRunRecordsTranscript(t *testing.T) {
	sock := socket.NewSim(socket.AndGate(0, 1, 2))
	var out bytes.Buffer

	res, err := Run(context.Background(), sock, walkConfig(3), &out, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Count != 8 || res.Expected != 8 {
		t.Errorf("Expected 8 of 8 trials, got %d of %d", res.Count, res.Expected)
	}

	c, err := capture.Read(&out)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !c.Complete() {
		t.Fatalf("Expected complete capture, got %d of %d (aborted=%v)", c.Received, c.Expected, c.Aborted)
	}
	for i, tr := range c.Trials {
		if tr.Applied != pld.Mask(i) {
			t.Errorf("trial %d: expected applied %03b, got %s", i, i, tr.Applied.Binary())
		}
		want := pld.Mask(i) &^ pld.Bit(2)
		if i&3 == 3 {
			want |= pld.Bit(2)
		}
		if tr.Observed != want {
			t.Errorf("trial %d: expected observed %03b, got %s", i, want, tr.Observed.Binary())
		}
	}

	s, err := analysis.Analyze(c.Trials, analysis.DefaultConfig().WithIgnore(res.Ignore))
	if err != nil {
		t.Fatal(err)
	}
	if !s.Analyzed(2) {
		t.Error("Expected equations for bit 2")
	}
}

func TestRunEncodings(t *testing.T) {
	tests := []struct {
		enc  capture.Encoding
		want string
	}{
		{capture.EncodingHex, "---- LINES=0x4 ----\n0000000 0000000\n"},
		{capture.EncodingBinary, "---- LINES=0x4 ----\n"},
		{capture.EncodingRaw, "---- BYTES=0x20 ----\n"},
	}
	for _, tt := range tests {
		t.Run(tt.enc.String(), func(t *testing.T) {
			cfg := walkConfig(2)
			cfg.Encoding = tt.enc
			var out bytes.Buffer
			if _, err := Run(context.Background(), socket.NewSim(nil), cfg, &out, nil); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("Expected output to contain %q, got %q", tt.want, out.String())
			}
			c, err := capture.Read(&out)
			if err != nil {
				t.Fatal(err)
			}
			if c.Encoding != tt.enc {
				t.Errorf("Expected %s encoding, got %s", tt.enc, c.Encoding)
			}
			if len(c.Trials) != 4 || !c.Complete() {
				t.Errorf("Expected 4 complete trials, got %d (warnings %v)", len(c.Trials), c.Warnings)
			}
		})
	}
}

func TestRunWalkingZeros(t *testing.T) {
	cfg := walkConfig(2)
	cfg.WalkZeros = true
	var out bytes.Buffer
	if _, err := Run(context.Background(), socket.NewSim(nil), cfg, &out, nil); err != nil {
		t.Fatal(err)
	}
	c, err := capture.Read(&out)
	if err != nil {
		t.Fatal(err)
	}
	want := []pld.Mask{^pld.Mask(0), ^pld.Mask(1), ^pld.Mask(2), ^pld.Mask(3)}
	for i, tr := range c.Trials {
		if tr.Applied != want[i] {
			t.Errorf("trial %d: expected applied %08x, got %08x", i, want[i], tr.Applied)
		}
		if tr.Observed != want[i]&pld.SocketMask {
			t.Errorf("trial %d: expected reserved bits to read low, got %08x", i, tr.Observed)
		}
	}
}

func TestRunInvertIgnored(t *testing.T) {
	cfg := walkConfig(2)
	cfg.InvertIgnored = true
	sock := socket.NewSim(nil)
	if _, err := Run(context.Background(), sock, cfg, &bytes.Buffer{}, nil); err != nil {
		t.Fatal(err)
	}
	if sock.LastDrive() != pld.SocketMask {
		t.Errorf("Expected last drive %07x, got %07x", pld.SocketMask, sock.LastDrive())
	}
}

func TestRunCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sock := socket.NewSim(socket.AndGate(0, 1, 2))
	sock.OnDrive = func(count int, applied, observed pld.Mask) error {
		if count == 40 {
			cancel()
		}
		return nil
	}
	cfg := walkConfig(8)
	var out bytes.Buffer

	res, err := Run(ctx, sock, cfg, &out, nil)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Expected ErrAborted, got %v", err)
	}
	if res == nil || !res.Aborted {
		t.Fatal("Expected aborted partial result")
	}
	// checked after trials 1, 33 and 65
	if res.Count != 65 {
		t.Errorf("Expected 65 trials, got %d", res.Count)
	}
	if !strings.HasSuffix(out.String(), "^C Abort\n") {
		t.Errorf("Expected abort marker at end of transcript")
	}

	c, err := capture.Read(&out)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Aborted || !c.Short() {
		t.Errorf("Expected aborted short capture, got aborted=%v short=%v", c.Aborted, c.Short())
	}
	if len(c.Trials) != 65 || c.Expected != 256 {
		t.Errorf("Expected 65 of 256 trials, got %d of %d", len(c.Trials), c.Expected)
	}
	if len(c.Warnings) != 1 || !strings.Contains(c.Warnings[0].Msg, "Read 65 lines") {
		t.Errorf("Expected one short read warning, got %v", c.Warnings)
	}

	// A partial capture still analyzes.
	if _, err := analysis.Analyze(c.Trials, analysis.DefaultConfig().WithIgnore(res.Ignore)); err != nil {
		t.Errorf("Analyze of partial capture failed: %v", err)
	}
}

func TestRunCancelDuringAnalysis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sock := socket.NewSim(nil)
	sock.OnDrive = func(count int, applied, observed pld.Mask) error {
		if count == 5 {
			cancel()
		}
		return nil
	}
	cfg := walkConfig(2)
	cfg.Values = false
	cfg.Deep = true
	var out bytes.Buffer

	res, err := Run(ctx, sock, cfg, &out, nil)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Expected ErrAborted, got %v", err)
	}
	if res.Analyzed {
		t.Error("Expected no affect table from an aborted analysis")
	}
	if !strings.HasSuffix(out.String(), "^C Abort\n") {
		t.Errorf("Expected abort marker, got %q", out.String())
	}
}

func TestRunDriveError(t *testing.T) {
	broken := errors.New("socket unplugged")
	sock := socket.NewSim(nil)
	sock.OnDrive = func(count int, applied, observed pld.Mask) error {
		if count == 3 {
			return broken
		}
		return nil
	}
	var out bytes.Buffer
	res, err := Run(context.Background(), sock, walkConfig(3), &out, nil)
	if !errors.Is(err, broken) {
		t.Fatalf("Expected drive error, got %v", err)
	}
	if errors.Is(err, ErrAborted) || res.Aborted {
		t.Error("Drive error should not be reported as an abort")
	}
	if res.Count != 2 {
		t.Errorf("Expected 2 trials before the error, got %d", res.Count)
	}
	if strings.Contains(out.String(), "---- END") {
		t.Error("Expected unterminated transcript")
	}
}

func TestRunAnalyzeQuick(t *testing.T) {
	sock := socket.NewSim(socket.AndGate(0, 1, 2))
	cfg := walkConfig(3)
	cfg.Values = false
	cfg.Analyze = true
	var out bytes.Buffer

	res, err := Run(context.Background(), sock, cfg, &out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Analyzed {
		t.Fatal("Expected live analysis")
	}
	// 8 walk drives plus two baselines of three flipped pairs
	if sock.Drives() != 8+2*3*2 {
		t.Errorf("Expected 20 drives, got %d", sock.Drives())
	}
	for bit, want := range []pld.Mask{pld.Bit(2), pld.Bit(2), 0} {
		if got := res.Graph.AffectedBy[bit]; got != want {
			t.Errorf("AffectedBy[%d]: expected %s, got %s", bit, want.Binary(), got.Binary())
		}
	}
	if res.Graph.Affecting[2] != 0b011 {
		t.Errorf("Expected P1 and P2 affecting P3, got %s", res.Graph.Affecting[2].Binary())
	}
	if res.Class.Output != pld.Bit(2) {
		t.Errorf("Expected only P3 as output, got %s", res.Class.Output.Binary())
	}

	text := out.String()
	for _, want := range []string{
		cfg.Ignore.Binary() + " ignoring\n",
		pld.Mask(0b011).Binary() + " input\n",
		pld.Bit(2).Binary() + " output\n",
		"Pins affecting",
		" Pin3 ",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}
	if strings.Contains(text, "---- LINES") {
		t.Error("Expected no transcript without values")
	}
}

func TestRunAnalyzeMatchesCapture(t *testing.T) {
	model := socket.SharedPair(0, 1, 3, 2, 4)
	cfg := walkConfig(5)
	cfg.Deep = true
	var out bytes.Buffer
	res, err := Run(context.Background(), socket.NewSim(model), cfg, &out, nil)
	if err != nil {
		t.Fatal(err)
	}

	c, err := capture.Read(&out)
	if err != nil {
		t.Fatal(err)
	}
	s, err := analysis.Analyze(c.Trials, analysis.DefaultConfig().WithIgnore(res.Ignore))
	if err != nil {
		t.Fatal(err)
	}
	if s.Class != res.Class {
		t.Errorf("Expected live classification to match capture analysis")
	}
	for bit := 0; bit < 5; bit++ {
		if s.Graph.AffectedBy[bit] != res.Graph.AffectedBy[bit] {
			t.Errorf("AffectedBy[%d]: capture %s, live %s", bit,
				s.Graph.AffectedBy[bit].Binary(), res.Graph.AffectedBy[bit].Binary())
		}
	}
}

func TestRunProgress(t *testing.T) {
	cfg := walkConfig(3)
	cfg.Deep = true
	cfg.AbortStride = 1
	cfg.ProgressStride = 4
	progress := make(chan Progress, 16)

	if _, err := Run(context.Background(), socket.NewSim(nil), cfg, &bytes.Buffer{}, progress); err != nil {
		t.Fatal(err)
	}
	close(progress)

	var got []Progress
	for p := range progress {
		got = append(got, p)
	}
	want := []Progress{
		{Phase: "walk", Count: 1, Expected: 8, Percent: 12},
		{Phase: "walk", Count: 5, Expected: 8, Percent: 62},
		{Phase: "analyze", Count: 1, Expected: 8, Percent: 12},
		{Phase: "analyze", Count: 5, Expected: 8, Percent: 62},
		{Phase: "done", Count: 8, Expected: 8, Percent: 100},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d progress reports, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("report %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestRunRequiresOutput(t *testing.T) {
	cfg := walkConfig(2)
	cfg.Values = false
	if _, err := Run(context.Background(), socket.NewSim(nil), cfg, &bytes.Buffer{}, nil); err == nil {
		t.Error("Expected error for a walk without values or analysis")
	}
}

func TestNext(t *testing.T) {
	ignore := ^pld.Mask(0b10101)
	var got []pld.Mask
	cur := pld.Mask(0)
	for {
		got = append(got, cur)
		cur = Next(cur, ignore)
		if cur == 0 {
			break
		}
	}
	want := []pld.Mask{0b00000, 0b00001, 0b00100, 0b00101, 0b10000, 0b10001, 0b10100, 0b10101}
	if len(got) != len(want) {
		t.Fatalf("Expected %d patterns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pattern %d: expected %05b, got %05b", i, want[i], got[i])
		}
	}
}

func TestAnalyzeAffects(t *testing.T) {
	sock := socket.NewSim(socket.SharedPair(0, 1, 3, 2, 4))
	g, err := AnalyzeAffects(context.Background(), sock, walkConfig(5))
	if err != nil {
		t.Fatal(err)
	}
	// From the all-high baseline every input flip drops both outputs,
	// except Z which only feeds the second.
	want := []pld.Mask{
		pld.Bit(2) | pld.Bit(4),
		pld.Bit(2) | pld.Bit(4),
		0,
		pld.Bit(4),
		0,
	}
	for bit, m := range want {
		if g.AffectedBy[bit] != m {
			t.Errorf("AffectedBy[%d]: expected %s, got %s", bit, m.Binary(), g.AffectedBy[bit].Binary())
		}
	}
	if g.Affecting[4] != 0b01011 {
		t.Errorf("Expected X, Y and Z affecting bit 4, got %s", g.Affecting[4].Binary())
	}
	if sock.Drives() != 2*5*2 {
		t.Errorf("Expected 20 drives, got %d", sock.Drives())
	}
}
