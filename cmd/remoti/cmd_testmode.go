package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rf4ce/remoti/pkg/rti"
)

var (
	testModeChannel uint8
	testModeTxPower int
)

var testModeCmd = &cobra.Command{
	Use:   "test-mode <raw-carrier|random-data|rx-at-freq>",
	Short: "Drive the radio into a chip-level conformance test mode",
	Long: `Development-only escape hatch used during RF conformance testing.
Bypasses the network layer entirely; issue "remoti test-mode sw-reset"
before resuming normal operation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mode rti.TestMode
		switch args[0] {
		case "raw-carrier":
			mode = rti.TestModeTxRawCarrier
		case "random-data":
			mode = rti.TestModeTxRandomData
		case "rx-at-freq":
			mode = rti.TestModeRxAtFreq
		default:
			return fmt.Errorf("unknown test mode %q", args[0])
		}
		if err := app.r.TestModeReq(mode, testModeTxPower, testModeChannel); err != nil {
			return err
		}
		fmt.Println("test mode engaged")
		return nil
	},
}

var swResetCmd = &cobra.Command{
	Use:   "sw-reset",
	Short: "Reset the radio processor to the START state",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.r.SwResetReq()
		fmt.Println("reset")
		return nil
	},
}

func init() {
	testModeCmd.Flags().Uint8Var(&testModeChannel, "channel", 15, "Radio channel")
	testModeCmd.Flags().IntVar(&testModeTxPower, "tx-power-dbm", 0, "Transmit power in dBm")
	testModeCmd.AddCommand(swResetCmd)
}
