package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "列出已过还款期限的预付款",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.cleanup()

		advances, err := e.ledger.ListOverdueAdvances(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-40s %12s %18s %s\n", "ADVANCE", "SUPPLIER", "REMAINING", "DEADLINE")
		for _, a := range advances {
			fmt.Fprintf(out, "%-40s %12d %18s %s\n",
				a.AdvanceNo, a.SupplierID, a.Remaining().StringFixed(2), a.Deadline.Format("2006-01-02"))
		}
		fmt.Fprintf(out, "共 %d 笔\n", len(advances))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(overdueCmd)
	overdueCmd.Flags().Int("limit", 100, "最多列出条数")
}
