package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rf4ce/remoti/pkg/cli"
	"github.com/rf4ce/remoti/pkg/rti"
)

var allowPairWindow time.Duration

var allowPairCmd = &cobra.Command{
	Use:   "allow-pair",
	Short: "Arm or abort the allow-pair acceptance window",
}

var allowPairStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Arm a bounded window during which an incoming pair request is accepted",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.r.OnAllowPairConfirm = func(c rti.AllowPairConfirm) {
			fmt.Printf("allow-pair confirm: %s (ref=%d, dev_type=%d)\n", cli.StatusText(c.Status), c.Ref, c.DevType)
		}
		app.r.AllowPairReq(allowPairWindow)
		fmt.Println("allow-pair window armed")
		return nil
	},
}

var allowPairAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Cancel an outstanding allow-pair window",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.r.AllowPairAbortReq()
		fmt.Println("allow-pair window cancelled")
		return nil
	},
}

func init() {
	allowPairStartCmd.Flags().DurationVar(&allowPairWindow, "window", 0, "Acceptance window (default: stack's configured allow-pair timeout)")
	allowPairCmd.AddCommand(allowPairStartCmd, allowPairAbortCmd)
}
