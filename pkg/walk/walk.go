package walk

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/analysis"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/capture"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/socket"
)

// ErrAborted is returned when the context is cancelled part way through a
// walk. The partial result is returned alongside it.
var ErrAborted = errors.New("walk: aborted")

const abortMarker = "^C Abort"

// Progress reports the current state of a walk.
type Progress struct {
	Phase    string // "walk", "analyze", "done"
	Count    int    // patterns applied so far in this phase
	Expected int    // patterns in a full walk
	Percent  int
}

// Result holds what a walk learned about the device.
type Result struct {
	Ignore   pld.Mask
	Expected int
	Count    int // trials walked
	Aborted  bool

	// Set when the walk ran with Analyze.
	Class    analysis.Classification
	Graph    analysis.AffectGraph
	Analyzed bool
}

// Session wraps the live classification and affect graph so they can be
// printed with the capture analysis report code.
func (r *Result) Session() *analysis.Session {
	return &analysis.Session{
		Ignore: r.Ignore,
		Class:  r.Class,
		Graph:  r.Graph,
	}
}

// walker carries the state shared by the walk and analyze phases.
type walker struct {
	ctx      context.Context
	sock     socket.Socket
	cfg      *Config
	out      io.Writer
	progress chan<- Progress
	cw       *capture.Writer
	closed   bool
}

// Run walks every combination of the non-ignored socket positions,
// driving each pattern and reading the socket back.
//
// Everything the board would print goes to out: the ignore mask line, the
// framed transcript when cfg.Values is set, and the classification and
// affect table when cfg.Analyze is set. The transcript can be read back
// with capture.Read.
//
// Parameters:
//   - ctx: checked every cfg.AbortStride trials; cancellation ends the
//     transcript with the abort marker and returns ErrAborted
//   - sock: the socket holding the device
//   - cfg: walk options (use DefaultConfig() if unsure)
//   - out: where the transcript and report go; may be io.Discard
//   - progress: optional channel for progress updates (can be nil)
func Run(
	ctx context.Context,
	sock socket.Socket,
	cfg *Config,
	out io.Writer,
	progress chan<- Progress,
) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("walk: invalid config: %w", err)
	}
	w := &walker{ctx: ctx, sock: sock, cfg: cfg, out: out, progress: progress}
	res := &Result{Ignore: cfg.Ignore, Expected: cfg.Expected()}

	if cfg.Analyze || cfg.Encoding == capture.EncodingBinary {
		if _, err := fmt.Fprintf(out, "%s ignoring\n", cfg.Ignore.Binary()); err != nil {
			return nil, fmt.Errorf("walk: %w", err)
		}
	}
	if cfg.Values {
		cw, err := capture.NewWriter(out, cfg.Encoding, res.Expected)
		if err != nil {
			return nil, fmt.Errorf("walk: %w", err)
		}
		w.cw = cw
	}

	glog.V(1).Infof("walk: %d patterns over %s", res.Expected, cfg.WalkedBits().Binary())
	cl := analysis.NewClassifier()
	if err := w.walk(cl, res); err != nil {
		return w.fail(res, err)
	}
	if w.cw != nil {
		if err := w.cw.Close(); err != nil {
			return res, fmt.Errorf("walk: %w", err)
		}
		w.closed = true
	}
	if !cfg.Analyze {
		w.report(Progress{Phase: "done", Count: res.Count, Expected: res.Expected, Percent: 100})
		return res, nil
	}

	res.Class = cl.Result()
	s := res.Session()
	if err := s.WriteClassification(out); err != nil {
		return res, fmt.Errorf("walk: %w", err)
	}

	glog.V(1).Infof("walk: analyzing affects (deep=%v)", cfg.Deep)
	if err := w.analyze(&res.Graph); err != nil {
		return w.fail(res, err)
	}
	res.Graph.Invert()
	res.Analyzed = true
	s.Graph = res.Graph
	if err := s.WriteAffectTable(out); err != nil {
		return res, fmt.Errorf("walk: %w", err)
	}
	w.report(Progress{Phase: "done", Count: res.Count, Expected: res.Expected, Percent: 100})
	return res, nil
}

func (w *walker) walk(cl *analysis.Classifier, res *Result) error {
	cfg := w.cfg
	count := 0
	cur := pld.Mask(0)
	for {
		applied := cfg.applied(cur)
		observed, err := w.sock.Drive(applied)
		if err != nil {
			return fmt.Errorf("walk: drive %07x: %w", uint32(applied), err)
		}
		t := pld.Trial{Applied: applied, Observed: observed}
		if cfg.Analyze {
			cl.Add(t)
		}
		if w.cw != nil {
			if err := w.cw.WriteTrial(t); err != nil {
				return fmt.Errorf("walk: %w", err)
			}
		}
		res.Count++
		if err := w.pace(&count, "walk", res.Expected); err != nil {
			return err
		}
		cur = Next(cur, cfg.Ignore)
		if cur == 0 {
			return nil
		}
	}
}

// AnalyzeAffects runs only the affect analysis of a walk and returns the
// graph with both directions filled in. Cancellation returns ErrAborted.
func AnalyzeAffects(ctx context.Context, sock socket.Socket, cfg *Config) (analysis.AffectGraph, error) {
	var g analysis.AffectGraph
	c := *cfg
	c.Analyze = true
	if err := c.Validate(); err != nil {
		return g, fmt.Errorf("walk: invalid config: %w", err)
	}
	w := &walker{ctx: ctx, sock: sock, cfg: &c}
	if err := w.analyze(&g); err != nil {
		return g, err
	}
	g.Invert()
	return g, nil
}

// analyze flips every walked bit from a set of baselines and records the
// pins whose readback changed. The quick pass uses the all-low and all-high
// baselines; the deep pass uses every pattern of the walk.
func (w *walker) analyze(g *analysis.AffectGraph) error {
	cfg := w.cfg
	count := 0
	cur := pld.Mask(0)
	for {
		if !cfg.Deep && cur != 0 {
			cur = pld.SocketMask &^ cfg.Ignore
		}
		base := cfg.applied(cur)
		for bit := 0; bit < pld.SocketPins; bit++ {
			if cfg.Ignore.Has(bit) {
				continue
			}
			before, err := w.sock.Drive(base)
			if err != nil {
				return fmt.Errorf("walk: drive %07x: %w", uint32(base), err)
			}
			flipped := base ^ pld.Bit(bit)
			after, err := w.sock.Drive(flipped)
			if err != nil {
				return fmt.Errorf("walk: drive %07x: %w", uint32(flipped), err)
			}
			analysis.AccumulateFlip(&g.AffectedBy, bit, before, after, pld.Bit(bit))
		}
		phase := ""
		if cfg.Deep {
			phase = "analyze"
		}
		if err := w.pace(&count, phase, cfg.Expected()); err != nil {
			return err
		}
		cur = Next(cur, cfg.Ignore)
		if cur == 0 {
			return nil
		}
	}
}

// pace counts one step, checks for cancellation every AbortStride steps
// and reports progress every ProgressStride steps. An empty phase
// suppresses progress.
func (w *walker) pace(count *int, phase string, expected int) error {
	n := *count
	*count = n + 1
	if n%w.cfg.AbortStride != 0 {
		return nil
	}
	select {
	case <-w.ctx.Done():
		glog.V(1).Infof("walk: cancelled after %d patterns: %v", n+1, w.ctx.Err())
		return ErrAborted
	default:
	}
	if phase != "" && (n+1)%w.cfg.ProgressStride == 1 {
		w.report(Progress{
			Phase:    phase,
			Count:    n + 1,
			Expected: expected,
			Percent:  (n + 1) * 100 / expected,
		})
	}
	return nil
}

func (w *walker) report(p Progress) {
	if w.progress == nil {
		return
	}
	select {
	case w.progress <- p:
	case <-w.ctx.Done():
	}
}

// fail ends the transcript. A cancelled walk flushes the trials recorded
// so far and writes the abort marker; a drive error leaves the transcript
// unterminated.
func (w *walker) fail(res *Result, err error) (*Result, error) {
	if !errors.Is(err, ErrAborted) {
		if w.cw != nil && !w.closed {
			if ferr := w.cw.Flush(); ferr != nil {
				glog.Warningf("walk: flush: %v", ferr)
			}
		}
		return res, err
	}
	res.Aborted = true
	if w.cw != nil && !w.closed {
		if aerr := w.cw.Abort(); aerr != nil {
			return res, fmt.Errorf("walk: %w", aerr)
		}
		return res, ErrAborted
	}
	if _, werr := fmt.Fprintln(w.out, abortMarker); werr != nil {
		return res, fmt.Errorf("walk: %w", werr)
	}
	return res, ErrAborted
}
