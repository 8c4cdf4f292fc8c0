package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rf4ce/remoti/pkg/cli"
	"github.com/rf4ce/remoti/pkg/zid/common"
)

var sendCmd = &cobra.Command{
	Use:   "send <ref> <report-id> <hex-data>",
	Short: "Send a ZID Report-Data frame to a paired peer (controller role only)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.cldLayer == nil {
			return fmt.Errorf("send requires --role controller")
		}
		ref, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("ref must be numeric: %w", err)
		}
		reportID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("report-id must be numeric: %w", err)
		}
		data, err := hex.DecodeString(args[2])
		if err != nil {
			return fmt.Errorf("data must be hex: %w", err)
		}

		report := common.Report{Type: common.ReportIn, ID: uint8(reportID), Data: data}
		status := app.cldLayer.SendReport(uint8(ref), time.Now(), report)
		fmt.Printf("send: %s\n", cli.StatusText(status))
		return nil
	},
}
