package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/footprint"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/socket"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/walk"
)

var (
	// Flags for walk command
	walkSocket   string
	walkModel    string
	walkPackage  string
	walkDrive    []string
	walkSense    []string
	walkSettle   time.Duration
	walkOutput   string
	walkProgress bool
	walkTimeout  int // timeout in seconds
)

// simModels are the devices the simulated socket can hold. Pins are
// socket bits.
var simModels = map[string]socket.Func{
	"and":       socket.AndGate(0, 1, 2),
	"shared":    socket.SharedPair(0, 1, 3, 2, 4),
	"opendrain": socket.OpenDrainNand(0, 1, 2),
	"demo": socket.Combine(
		socket.AndGate(0, 1, 2),
		socket.SharedPair(3, 4, 6, 5, 7),
	),
}

var walkCmd = &cobra.Command{
	Use:   "walk [options...]",
	Short: "Walk a socket from this host and record or analyze it",
	Long: `Drive every combination of the selected socket pins and record what the
socket reads back. The options are the board's walk command words; run
"brutus walk ?" for the list.

The socket is either the built-in simulator or a socket wired to the host's
GPIO lines (--drive and --sense name one line per socket position, pin 1
first).

Press Ctrl-C to abort: the transcript is ended with the abort marker and
still reads back as a short capture.

Examples:
  brutus walk --model and 1-3 values
  brutus walk --model demo -o demo.txt 1-8 values
  brutus walk --model shared 1-5 deep
  brutus walk --socket gpio --drive GPIO2,GPIO3,... --sense GPIO14,... dip values`,
	RunE: runWalk,
}

func init() {
	rootCmd.AddCommand(walkCmd)

	walkCmd.Flags().StringVarP(&walkSocket, "socket", "s", "sim",
		"socket type (sim, gpio)")
	walkCmd.Flags().StringVarP(&walkModel, "model", "m", "and",
		"simulated device ("+strings.Join(modelNames(), ", ")+")")
	walkCmd.Flags().StringVar(&walkPackage, "package", "",
		"simulated package reported to auto (e.g., DIP8); default fills the socket")
	walkCmd.Flags().StringSliceVar(&walkDrive, "drive", nil,
		"GPIO lines driving the series resistors, pin 1 first")
	walkCmd.Flags().StringSliceVar(&walkSense, "sense", nil,
		"GPIO lines sensing the socket pins, pin 1 first")
	walkCmd.Flags().DurationVar(&walkSettle, "settle", 0,
		"delay between drive and sense on GPIO sockets")
	walkCmd.Flags().StringVarP(&walkOutput, "output", "o", "",
		"write the transcript to a file instead of stdout")
	walkCmd.Flags().BoolVar(&walkProgress, "progress", false,
		"show progress on stderr")
	walkCmd.Flags().IntVar(&walkTimeout, "timeout", 0,
		"timeout in seconds (0 = no timeout)")
}

func modelNames() []string {
	names := make([]string, 0, len(simModels))
	for name := range simModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runWalk(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	sock, err := openSocket()
	if err != nil {
		return fmt.Errorf("failed to open socket: %w", err)
	}
	defer sock.Close()

	if verbose {
		if info, err := sock.Info(); err == nil {
			fmt.Fprintf(os.Stderr, "Socket: %s (%d pins)\n", info.Name, info.Pins)
		}
	}

	cfg, err := walk.ParseIgnore(args, sock.Probe)
	if errors.Is(err, walk.ErrHelp) {
		fmt.Print(walk.Help)
		return nil
	}
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if walkOutput != "" {
		f, err := os.Create(walkOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if walkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(walkTimeout)*time.Second)
		defer cancel()
	}

	var progressCh chan walk.Progress
	done := make(chan struct{})
	if walkProgress {
		progressCh = make(chan walk.Progress, 16)
		go func() {
			displayProgress(os.Stderr, progressCh)
			close(done)
		}()
	} else {
		close(done)
	}

	res, err := walk.Run(ctx, sock, cfg, out, progressCh)
	if progressCh != nil {
		close(progressCh)
	}
	<-done

	if errors.Is(err, walk.ErrAborted) {
		fmt.Fprintf(os.Stderr, "Walk aborted after %d of %d patterns\n", res.Count, res.Expected)
		return err
	}
	if err != nil {
		return err
	}
	glog.V(1).Infof("walked %d patterns in %v", res.Count, time.Since(startTime).Round(time.Millisecond))
	if walkOutput != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d patterns to %s\n", res.Count, walkOutput)
	}
	return nil
}

func openSocket() (socket.Socket, error) {
	switch walkSocket {
	case "sim", "simulator":
		model, ok := simModels[walkModel]
		if !ok {
			return nil, fmt.Errorf("unknown model %q (have %s)", walkModel, strings.Join(modelNames(), ", "))
		}
		sim := socket.NewSim(model)
		if walkPackage != "" {
			f, err := footprint.Lookup(walkPackage)
			if err != nil {
				return nil, err
			}
			sim.ProbeData.Present = f.Present
		}
		return sim, nil
	case "gpio":
		cfg := socket.GPIOConfig{Settle: walkSettle}
		if len(walkDrive) > pld.SocketPins || len(walkSense) > pld.SocketPins {
			return nil, fmt.Errorf("at most %d drive and sense lines", pld.SocketPins)
		}
		copy(cfg.Drive[:], walkDrive)
		copy(cfg.Sense[:], walkSense)
		g, err := socket.OpenGPIO(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported socket type: %s", walkSocket)
	}
}

// displayProgress shows a single updating progress line until the channel
// closes.
func displayProgress(w io.Writer, progressCh <-chan walk.Progress) {
	lastPercent := -1
	lastPhase := ""

	for p := range progressCh {
		if p.Phase == "done" {
			fmt.Fprintf(w, "\r%-80s\r", "") // Clear line
			continue
		}
		if p.Percent == lastPercent && p.Phase == lastPhase {
			continue
		}
		lastPercent, lastPhase = p.Percent, p.Phase

		barWidth := 40
		filled := (p.Percent * barWidth) / 100
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		fmt.Fprintf(w, "\r%-8s [%s] %3d%% (%d/%d)", p.Phase, bar, p.Percent, p.Count, p.Expected)
	}
}
