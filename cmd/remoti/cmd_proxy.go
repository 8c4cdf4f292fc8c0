package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rf4ce/remoti/pkg/cli"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Adapter-side proxy-table inspection (target role only)",
}

var proxyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List committed proxy entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.adaLayer == nil {
			return fmt.Errorf("proxy list requires --role target")
		}
		t := cli.NewTable("REF", "VENDOR_ID", "PRODUCT_ID", "STD_DESCS", "NON_STD_DESCS")
		for ref, entry := range app.adaLayer.Proxies() {
			t.Row(
				fmt.Sprintf("%d", ref),
				fmt.Sprintf("0x%04X", entry.VendorID),
				fmt.Sprintf("0x%04X", entry.ProductID),
				fmt.Sprintf("%d", len(entry.StdDescIDs)),
				fmt.Sprintf("%d", len(entry.NonStdDescIDs)),
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	proxyCmd.AddCommand(proxyListCmd)
}
