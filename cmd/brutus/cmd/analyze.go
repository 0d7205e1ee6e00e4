package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/analysis"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/capture"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pinconf"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/verify"
	"github.com/OpenTraceLab/OpenTracePLD/pkg/walk"
)

var (
	// Flags for analyze command
	analyzeIgnore        string
	analyzeMaxIterations int
	analyzeVerify        bool
	analyzeOutputJSON    string
	analyzeOutputSexp    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <capture> [config]",
	Short: "Derive equations from a walk transcript",
	Long: `Read a walk transcript (hex, binary or raw) and print the pin classes,
the affect table, the configuration and the minimized equations.

The optional configuration file names the pins:

  DEVICE G22V10;
  PIN 1 = CLK;
  PIN 23 = !CS;

Without --ignore, every bit that did not take both levels in the applied
stimulus is left out of the analysis.

Examples:
  brutus analyze gal.txt
  brutus analyze gal.txt gal.cfg --verify
  brutus analyze gal.txt --ignore dip --output-json gal.json
  brutus analyze gal.txt --ignore 0xf0000fff`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeIgnore, "ignore", "",
		"ignore mask: hex (0x...), dip, plcc or a walk pin list such as 1-10,12")
	analyzeCmd.Flags().IntVar(&analyzeMaxIterations, "max-iterations", analysis.DefaultMaxIterations,
		"minimizer round limit")
	analyzeCmd.Flags().BoolVar(&analyzeVerify, "verify", false,
		"check the equations against every trial with decision diagrams")
	analyzeCmd.Flags().StringVar(&analyzeOutputJSON, "output-json", "",
		"output JSON netlist file path (e.g., gal.json)")
	analyzeCmd.Flags().StringVar(&analyzeOutputSexp, "output-sexp", "",
		"output s-expression netlist file path (e.g., gal.sexp)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	c, err := capture.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}
	for _, w := range c.Warnings {
		glog.Warningf("%s: %s", args[0], w)
	}
	if c.Aborted {
		glog.Warningf("%s: walk was aborted", args[0])
	}
	if len(c.Trials) == 0 {
		return fmt.Errorf("%s: no trials", args[0])
	}
	if verbose {
		fmt.Printf("Read %d trials (%s) from %s\n", len(c.Trials), c.Encoding, args[0])
	}

	names := pinconf.NewTable()
	if len(args) > 1 {
		names, err = pinconf.Load(args[1])
		if err != nil {
			return fmt.Errorf("failed to load pin configuration: %w", err)
		}
	}

	cfg := analysis.DefaultConfig()
	cfg.MaxIterations = analyzeMaxIterations
	if analyzeIgnore != "" {
		ignore, err := parseIgnoreFlag(analyzeIgnore)
		if err != nil {
			return err
		}
		cfg = cfg.WithIgnore(ignore)
	}

	s, err := analysis.Analyze(c.Trials, cfg)
	if err != nil {
		return err
	}
	for _, d := range s.Diagnostics {
		if d.Fatal() {
			glog.Errorf("bit %d not analyzed: %s", d.Pin, d)
			continue
		}
		glog.Warningf("%s", d)
	}
	if err := s.WriteReport(os.Stdout, names, names); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if analyzeVerify {
		if err := verifySession(s); err != nil {
			return err
		}
	}

	if analyzeOutputJSON != "" {
		data, err := s.ExportJSON(names)
		if err != nil {
			return fmt.Errorf("failed to export JSON: %w", err)
		}
		if err := os.WriteFile(analyzeOutputJSON, data, 0644); err != nil {
			return fmt.Errorf("failed to write JSON file: %w", err)
		}
		glog.Infof("JSON netlist written to %s", analyzeOutputJSON)
	}
	if analyzeOutputSexp != "" {
		text, err := s.ExportSexp(names)
		if err != nil {
			return fmt.Errorf("failed to export s-expression: %w", err)
		}
		if err := os.WriteFile(analyzeOutputSexp, []byte(text+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write s-expression file: %w", err)
		}
		glog.Infof("s-expression netlist written to %s", analyzeOutputSexp)
	}
	return nil
}

func verifySession(s *analysis.Session) error {
	rep, err := verify.Check(s, nil)
	if err != nil {
		return err
	}
	failed := rep.Failed()
	fmt.Printf("/* verify: %d pins checked against %d trials, %d mismatched */\n",
		len(rep.Pins), rep.Trials, len(failed))
	if verbose {
		for _, p := range rep.Pins {
			fmt.Printf("/*   %s */\n", p)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("equations disagree with the capture on %d pin(s)", len(failed))
	}
	return nil
}

// parseIgnoreFlag accepts a hex mask or the pin words of a walk command.
func parseIgnoreFlag(s string) (pld.Mask, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid ignore mask %q: %w", s, err)
		}
		return pld.Mask(v), nil
	}
	cfg, err := walk.ParseIgnore(append(strings.Fields(s), "values"), nil)
	if err != nil {
		return 0, fmt.Errorf("invalid ignore %q: %w", s, err)
	}
	return cfg.Ignore, nil
}
