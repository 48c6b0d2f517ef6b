package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/render"
	"github.com/jdh4601/ClosetBot/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List analysis jobs submitted from this machine",
	Run: func(cmd *cobra.Command, _ []string) {
		history(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "number of jobs to show, 0 shows all")
}

func history(cmd *cobra.Command) {
	logger, config := setup()

	db, err := store.Open(config.StateDir)
	if err != nil {
		logger.Fatal("opening job history", zap.String("state_dir", config.StateDir), zap.Error(err))
	}
	defer closeHistory(db, logger)

	limit, _ := cmd.Flags().GetInt("limit")

	jobs, err := db.ListJobs(context.Background(), limit)
	if err != nil {
		logger.Fatal("listing jobs", zap.Error(err))
	}

	if len(jobs) == 0 {
		logger.Info("no jobs recorded yet", zap.String("path", db.Path()))
		return
	}

	fmt.Println(render.HistoryTable(jobs))
}
