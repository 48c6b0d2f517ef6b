package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/jobs"
	"github.com/jdh4601/ClosetBot/internal/render"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an analysis job and print its id",
	Run: func(cmd *cobra.Command, _ []string) {
		submit(cmd)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringP("brand", "b", "", "brand account to match against")
	submitCmd.Flags().StringSliceP("influencer", "i", nil, "candidate account, may be repeated (1-5)")
	submitCmd.Flags().BoolP("watch", "w", false, "follow the job until it finishes")
}

func submit(cmd *cobra.Command) {
	ctx, stop := signalContext()
	defer stop()

	logger, config := setup()

	req, err := requestFromFlags(cmd)
	if err != nil {
		logger.Fatal("building analysis request", zap.Error(err))
	}

	client, err := newClient(config, logger)
	if err != nil {
		logger.Fatal("loading api token", zap.Error(err))
	}

	db := openHistory(config, logger)
	defer closeHistory(db, logger)

	tracker := newTracker(config, client, db, logger)

	status, err := tracker.Submit(ctx, req)
	if err != nil {
		logger.Fatal("submitting analysis job", zap.Error(err))
	}

	colorize := render.ShouldColorize(os.Stdout)

	if watch, _ := cmd.Flags().GetBool("watch"); !watch {
		fmt.Println(status.JobID)
		return
	}

	fmt.Println(render.StatusLine(status, colorize))

	view, err := watchJob(ctx, config, tracker, status.JobID, colorize)
	if err != nil {
		if errors.Is(err, jobs.ErrCancelled) {
			logger.Info("exiting", zap.String("reason", "interrupted"), zap.String("job_id", status.JobID))
			return
		}
		logger.Fatal("watching job", zap.Error(err))
	}

	finish(view, colorize, logger)
}
