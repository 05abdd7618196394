package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-passes/app/mapper"
	"github.com/vibast-solutions/ms-go-passes/app/types"
)

var forceFixup bool

var fixupCmd = &cobra.Command{
	Use:   "fixup <orderId>",
	Short: "Re-run reconciliation for one order and print the step report",
	Args:  cobra.ExactArgs(1),
	RunE:  runFixup,
}

func init() {
	fixupCmd.Flags().BoolVar(&forceFixup, "force", false, "Treat the order as paid without polling the gateway")
	rootCmd.AddCommand(fixupCmd)
}

func runFixup(cmd *cobra.Command, args []string) error {
	_, passService, cleanup := mustCreatePaymentService()
	defer cleanup()

	req := &types.ManualFixupRequest{OrderId: args[0], Force: forceFixup}
	if err := req.Validate(); err != nil {
		return err
	}

	report, fixupErr := passService.ManualFixup(context.Background(), req)
	if report != nil {
		out, err := json.MarshalIndent(mapper.FixupReportToResponse(report), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	return fixupErr
}
