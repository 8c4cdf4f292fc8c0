package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rf4ce/remoti/pkg/rti"
)

var (
	clearState       bool
	clearConfigState bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Run the cold/warm-boot startup sequence",
	Long: `Run the cold/warm-boot startup sequence: on a genuine cold boot the
CP table is snapshotted from the running stack config; on every later
boot it is read back unchanged.

Examples:
  remoti init
  remoti init --clear-state
  remoti init --clear-config-state`,
	RunE: func(cmd *cobra.Command, args []string) error {
		control := rti.RestoreState
		switch {
		case clearConfigState:
			control = rti.ClearConfigClearState
		case clearState:
			control = rti.ClearState
		}

		cp, err := app.r.InitReq(control)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		fmt.Printf("state: %s\n", app.r.State())
		fmt.Printf("pairing table size: %d\n", cp.PairingTableSize)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&clearState, "clear-state", false, "Clear the pairing table and NIB, keep the CP table")
	initCmd.Flags().BoolVar(&clearConfigState, "clear-config-state", false, "Clear the pairing table, NIB, and CP table")
}
