package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/link"
)

var portsCmd = &cobra.Command{
	Use:     "ports",
	Aliases: []string{"interfaces"},
	Short:   "List serial ports and Brutus boards",
	Long: `Scan the host for serial ports and USB serial bridges and print a summary.
Use this to find the --port for capture. A known bridge listed without a
path has no serial device yet (missing driver or permissions).`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	infos, err := link.DiscoverInterfaces(ctx)
	if err != nil {
		if len(infos) == 0 {
			return fmt.Errorf("discover interfaces: %w", err)
		}
		glog.Warningf("discover interfaces: %v", err)
	}

	fmt.Println("Detected interfaces:")
	for _, iface := range infos {
		fmt.Printf("  - %s [%s] (VID:PID %04X:%04X)\n", iface.Label(), iface.Kind, iface.VendorID, iface.ProductID)
	}

	return nil
}
