package main

import (
	"fmt"
	"time"

	"cashledger/internal/service"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "从全量流水重算账户余额",
	Example: `  # 全部账户
  ledgerctl reconcile

  # 单个账户，并给出某一时刻的毛余额
  ledgerctl reconcile --account 1001 --as-of 2024-06-30`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().Int64("account", 0, "只对账该账户")
	reconcileCmd.Flags().String("as-of", "", "额外输出截至该日期末的毛余额 (YYYY-MM-DD)，需配合 --account")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	accountID, _ := cmd.Flags().GetInt64("account")
	asOfStr, _ := cmd.Flags().GetString("as-of")

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.cleanup()
	ctx := cmd.Context()

	var reports []*service.ReconcileReport
	if accountID > 0 {
		report, err := e.ledger.Reconcile(ctx, accountID)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	} else {
		reports, err = e.ledger.ReconcileAll(ctx)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-20s %18s %18s %18s %8s\n", "ACCOUNT", "GROSS", "PENDING", "ADJUSTED", "ENTRIES")
	for _, r := range reports {
		fmt.Fprintf(out, "%-20d %18s %18s %18s %8d\n",
			r.AccountID, r.StoreGross.StringFixed(2), r.StorePending.StringFixed(2),
			r.AdjustedBalance.StringFixed(2), r.EntryCount)
	}

	if asOfStr != "" {
		if accountID <= 0 {
			return fmt.Errorf("--as-of 需要同时指定 --account")
		}
		day, err := time.Parse("2006-01-02", asOfStr)
		if err != nil {
			return fmt.Errorf("日期格式应为 YYYY-MM-DD: %w", err)
		}
		asOf := day.Add(24*time.Hour - time.Nanosecond)
		gross, err := e.ledger.GrossBalanceAsOf(ctx, accountID, asOf)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "截至 %s 毛余额: %s\n", asOfStr, gross.StringFixed(2))
	}
	return nil
}
