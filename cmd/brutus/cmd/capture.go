package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/capture"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/link"
)

var (
	// Flags for capture command
	capturePort    string
	captureBaud    int
	captureQuiet   time.Duration
	captureOutput  string
	captureTimeout int // timeout in seconds
)

var captureCmd = &cobra.Command{
	Use:   "capture [options...]",
	Short: "Run a walk on the Brutus board and record the transcript",
	Long: `Send "pld walk <options>" to the board over its serial console and record
everything it prints until the end marker, the abort marker or the board
goes quiet. The options are passed through unchanged; see "brutus walk ?".

Press Ctrl-C to send the board its abort character; the partial
transcript is kept.

Examples:
  brutus capture --port /dev/ttyACM0 -o gal.txt dip values
  brutus capture --port /dev/ttyACM0 -o raw.bin plcc raw
  brutus capture --port COM5 1-10 analyze`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVarP(&capturePort, "port", "p", "",
		"serial port of the board (see brutus ports)")
	captureCmd.Flags().IntVar(&captureBaud, "baud", 115200,
		"serial baud rate")
	captureCmd.Flags().DurationVar(&captureQuiet, "quiet", 10*time.Second,
		"give up after the board is silent this long")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "",
		"write the transcript to a file instead of stdout")
	captureCmd.Flags().IntVar(&captureTimeout, "timeout", 0,
		"timeout in seconds (0 = no timeout)")

	captureCmd.MarkFlagRequired("port")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg := link.DefaultConfig()
	cfg.Port = capturePort
	cfg.Baud = captureBaud
	cfg.Timeout = captureQuiet

	l, err := link.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open board: %w", err)
	}
	defer l.Close()

	var out io.Writer = os.Stdout
	if captureOutput != "" {
		f, err := os.Create(captureOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if captureTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(captureTimeout)*time.Second)
		defer cancel()
	}

	startTime := time.Now()
	st, err := l.Walk(ctx, args, out)
	if st != nil {
		glog.V(1).Infof("capture: %d bytes in %v (end=%v abort=%v)",
			st.Bytes, time.Since(startTime).Round(time.Millisecond), st.Ended, st.Aborted)
	}
	if err != nil {
		if errors.Is(err, link.ErrTimeout) && st != nil {
			return fmt.Errorf("board stopped responding after %d bytes: %w", st.Bytes, err)
		}
		return err
	}
	if st.Aborted {
		fmt.Fprintln(os.Stderr, "Walk aborted on the board")
	}

	if captureOutput != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", st.Bytes, captureOutput)
		summarizeCapture(captureOutput)
	}
	return nil
}

// summarizeCapture reads a recorded transcript back and logs what it holds.
// Reports without a transcript (analyze only) are not an error.
func summarizeCapture(path string) {
	c, err := capture.ReadFile(path)
	if errors.Is(err, capture.ErrNoHeader) {
		return
	}
	if err != nil {
		glog.Warningf("%v", err)
		return
	}
	for _, w := range c.Warnings {
		glog.Warningf("%s: %s", path, w)
	}
	fmt.Fprintf(os.Stderr, "Transcript: %d of %d trials (%s)\n", len(c.Trials), c.Expected, c.Encoding)
}
