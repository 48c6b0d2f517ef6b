package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/jobs"
	"github.com/jdh4601/ClosetBot/internal/render"
	"github.com/jdh4601/ClosetBot/internal/store"
)

// errNoResults means the job exists but has nothing to show yet.
var errNoResults = errors.New("no results available")

var resultsCmd = &cobra.Command{
	Use:   "results JOB_ID",
	Short: "Show the results of a finished analysis job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		results(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	addResultFlags(resultsCmd)
	resultsCmd.Flags().String("detail", "", "show the full breakdown of one candidate")
}

// addResultFlags registers the flags shared by the commands that read a
// result set.
func addResultFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("cached", false, "read the last fetched results from local history instead of the API")
	cmd.Flags().String("min-grade", "", "hide candidates graded below this letter")
	cmd.Flags().StringSlice("only", nil, "keep only these candidates")
}

func results(cmd *cobra.Command, jobID string) {
	ctx, stop := signalContext()
	defer stop()

	logger, config := setup()

	db := openHistory(config, logger)
	defer closeHistory(db, logger)

	set, err := resultSetForCommand(ctx, cmd, config, db, jobID, logger)
	if err != nil {
		if errors.Is(err, errNoResults) {
			return
		}
		logger.Fatal("getting results", zap.Error(err))
	}

	if username, _ := cmd.Flags().GetString("detail"); username != "" {
		r := set.Find(username)
		if r == nil {
			logger.Fatal("candidate is not part of the results",
				zap.String("username", username),
				zap.Strings("candidates", set.Usernames()),
			)
		}
		fmt.Println(render.Detail(r, render.ShouldColorize(os.Stdout)))
		return
	}

	printResults(set)
}

// resultSetForCommand loads the results of jobID either live or from history
// and applies the filters named by the command's flags. A view that has no
// results is printed and reported as errNoResults.
func resultSetForCommand(ctx context.Context, cmd *cobra.Command, config *Config, db *store.Store, jobID string, logger *zap.Logger) (*analysis.ResultSet, error) {
	cached, _ := cmd.Flags().GetBool("cached")
	minGrade, _ := cmd.Flags().GetString("min-grade")
	only, _ := cmd.Flags().GetStringSlice("only")

	steps, err := buildFilters(config, filterOptions{minGrade: minGrade, only: only, audit: cached}, logger)
	if err != nil {
		return nil, err
	}

	var set *analysis.ResultSet

	if cached {
		if db == nil {
			return nil, errors.New("job history is unavailable")
		}

		loaded, fetchedAt, err := db.LoadResults(ctx, jobID)
		if err != nil {
			return nil, err
		}

		logger.Info("using cached results", zap.String("job_id", jobID), zap.Time("fetched_at", fetchedAt))
		set = loaded
	} else {
		client, err := newClient(config, logger)
		if err != nil {
			return nil, fmt.Errorf("loading api token: %w", err)
		}

		view := newTracker(config, client, db, logger).Results(ctx, jobID)
		if view.State != jobs.ViewReady {
			fmt.Fprintln(os.Stderr, render.ViewLine(view, render.ShouldColorize(os.Stderr)))
			if view.State == jobs.ViewFailed {
				return nil, fmt.Errorf("job %s: %s", jobID, view.Message)
			}
			return nil, errNoResults
		}
		set = view.Results
	}

	return applyFilters(ctx, steps, set, logger)
}
