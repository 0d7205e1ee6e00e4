package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "brutus",
	Short: "PLD logic inference by exhaustive stimulus",
	Long: `Recover the combinational logic of a PAL/GAL device from a walk of its
socket. A walk drives every input combination and records what each pin
reads back; analyze turns that transcript into sum-of-products equations.

Examples:
  brutus ports                                      # List serial ports and boards
  brutus capture --port /dev/ttyACM0 -o gal.txt dip values
  brutus walk --model and -o and.txt 1-3 values     # Walk the simulator
  brutus analyze gal.txt gal.cfg                    # Print equations`,
	Version: "0.3.0",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		glog.Flush()
	},
}

// Execute runs the root command
func Execute() {
	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		glog.Flush()
		os.Exit(1)
	}
}

func init() {
	// glog registers its flags (--v, --logtostderr, ...) on the standard
	// flag set.
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	flag.Set("logtostderr", "true")

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
}
