package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rf4ce/remoti/pkg/cli"
)

var unpairCmd = &cobra.Command{
	Use:   "unpair <ref>",
	Short: "Remove a pairing-table entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := strconv.Atoi(args[0])
		if err != nil || ref < 0 || ref > 0xFF {
			return fmt.Errorf("ref must be a pairing reference 0-255")
		}
		status := app.r.UnpairReq(uint8(ref))
		fmt.Printf("unpair: %s\n", cli.StatusText(status))
		return nil
	},
}
