package main

import (
	"fmt"

	"cashledger/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var outboxRequeueCmd = &cobra.Command{
	Use:   "outbox-requeue",
	Short: "把投递失败的出箱消息重置为待发送",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.cleanup()

		repo := repository.NewOutboxRepository(e.db)
		failed, err := repo.GetFailedMessages(cmd.Context(), limit)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(failed))
		for _, m := range failed {
			ids = append(ids, m.ID)
		}
		n, err := repo.Requeue(cmd.Context(), ids)
		if err != nil {
			return err
		}
		e.log.Info("失败消息已重新排队", zap.Int64("count", n))
		fmt.Fprintf(cmd.OutOrStdout(), "已重置 %d 条消息\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outboxRequeueCmd)
	outboxRequeueCmd.Flags().Int("limit", 500, "单次最多重置条数")
}
