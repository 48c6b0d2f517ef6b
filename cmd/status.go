package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/jobs"
	"github.com/jdh4601/ClosetBot/internal/render"
	"github.com/jdh4601/ClosetBot/internal/store"
)

// maxParallelStatus bounds concurrent one-shot status requests.
const maxParallelStatus = 4

var statusCmd = &cobra.Command{
	Use:   "status JOB_ID [JOB_ID...]",
	Short: "Show the status of analysis jobs",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		status(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolP("watch", "w", false, "follow a single job until it finishes")
}

func status(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	logger, config := setup()

	client, err := newClient(config, logger)
	if err != nil {
		logger.Fatal("loading api token", zap.Error(err))
	}

	db := openHistory(config, logger)
	defer closeHistory(db, logger)

	colorize := render.ShouldColorize(os.Stdout)

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		if len(args) != 1 {
			logger.Fatal("--watch follows exactly one job", zap.Int("job_ids", len(args)))
		}

		view, err := watchJob(ctx, config, newTracker(config, client, db, logger), args[0], colorize)
		if err != nil {
			if errors.Is(err, jobs.ErrCancelled) {
				logger.Info("exiting", zap.String("reason", "interrupted"), zap.String("job_id", args[0]))
				return
			}
			logger.Fatal("watching job", zap.Error(err))
		}

		finish(view, colorize, logger)
		return
	}

	statuses, err := fetchStatuses(ctx, client, args)
	if err != nil {
		logger.Fatal("getting job status", zap.Error(err))
	}

	for _, st := range statuses {
		if db != nil {
			if err := db.UpdateStatus(ctx, st); err != nil {
				logger.Warn("recording job status", zap.String("job_id", st.JobID), zap.Error(err))
			}
		}
		fmt.Println(render.StatusLine(st, colorize))
	}
}

// fetchStatuses requests every job's status concurrently and returns them in
// the order of ids.
func fetchStatuses(ctx context.Context, api jobs.StatusGetter, ids []string) ([]*analysis.JobStatus, error) {
	statuses := make([]*analysis.JobStatus, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelStatus)

	for i, id := range ids {
		g.Go(func() error {
			st, err := api.GetJobStatus(ctx, id)
			if err != nil {
				return fmt.Errorf("job %s: %w", id, err)
			}
			statuses[i] = st
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// watchJob follows jobID until it ends and resolves the outcome. Only one
// process may watch a job at a time.
func watchJob(ctx context.Context, config *Config, tracker *jobs.Tracker, jobID string, colorize bool) (jobs.View, error) {
	lock, err := store.LockJob(config.StateDir, jobID)
	if err != nil {
		return jobs.View{}, err
	}
	defer lock.Unlock()

	outcome, err := tracker.Watch(ctx, jobID, func(u jobs.Update) {
		fmt.Println(render.UpdateLine(u, colorize))
	})
	if err != nil {
		return jobs.View{JobID: jobID}, err
	}

	return tracker.Resolve(ctx, jobID, outcome)
}

// finish prints the final view of a watched job. A failed job is fatal so
// that scripts see a non-zero exit code.
func finish(view jobs.View, colorize bool, logger *zap.Logger) {
	switch view.State {
	case jobs.ViewReady:
		printResults(view.Results)
	case jobs.ViewFailed:
		fmt.Println(render.ViewLine(view, colorize))
		logger.Fatal("job did not produce results", zap.String("job_id", view.JobID), zap.String("reason", view.Message))
	default:
		fmt.Println(render.ViewLine(view, colorize))
	}
}
