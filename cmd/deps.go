package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/ai"
	"github.com/jdh4601/ClosetBot/internal/ai/gemini"
	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/filtering"
	"github.com/jdh4601/ClosetBot/internal/jobs"
	"github.com/jdh4601/ClosetBot/internal/logger"
	"github.com/jdh4601/ClosetBot/internal/matchapi"
	"github.com/jdh4601/ClosetBot/internal/secrets"
	"github.com/jdh4601/ClosetBot/internal/store"
)

// setup builds the logger and reads the config. Any failure here is fatal.
func setup() (*zap.Logger, *Config) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting config", zap.Error(err))
	}

	return log, config
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newClient(config *Config, log *zap.Logger) (*matchapi.Client, error) {
	token, err := secrets.LoadOptional(secrets.Source{
		Name:  "api token",
		File:  config.TokenFile,
		Value: config.Token,
	})
	if err != nil {
		return nil, err
	}

	client := matchapi.New(log, token)
	if config.APIURL != "" {
		client.APIURL = config.APIURL
	}
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}
	if config.RequestTimeout > 0 {
		client.HTTPClient.Timeout = config.RequestTimeout
	}

	return client, nil
}

// newTracker wires the API client and the history store into a tracker.
// The store may be nil, in which case nothing is recorded.
func newTracker(config *Config, client jobs.API, db *store.Store, log *zap.Logger) *jobs.Tracker {
	opts := []jobs.TrackerOption{
		jobs.WithPollerOptions(jobs.WithInterval(config.PollInterval)),
	}
	if db != nil {
		opts = append(opts, jobs.WithRecorder(db))
	}

	return jobs.NewTracker(client, log, opts...)
}

// openHistory opens the local history database. Tracking still works without
// it, so failures are logged and a nil store is returned.
func openHistory(config *Config, log *zap.Logger) *store.Store {
	db, err := store.Open(config.StateDir)
	if err != nil {
		log.Warn("job history is unavailable", zap.String("state_dir", config.StateDir), zap.Error(err))
		return nil
	}

	log.Debug("job history opened", zap.String("path", db.Path()))
	return db
}

func closeHistory(db *store.Store, log *zap.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Warn("closing job history", zap.Error(err))
	}
}

// filterOptions are the per-invocation filter overrides taken from flags.
type filterOptions struct {
	minGrade string
	only     []string
	// audit re-checks grades; results fetched live were already audited.
	audit bool
}

func buildFilters(config *Config, opts filterOptions, log *zap.Logger) ([]filtering.Filter, error) {
	minGrade := strings.ToUpper(strings.TrimSpace(config.Filter.MinGrade))
	if opts.minGrade != "" {
		minGrade = strings.ToUpper(strings.TrimSpace(opts.minGrade))
	}

	var grade analysis.Grade
	if minGrade != "" {
		g, err := analysis.ParseGrade(minGrade)
		if err != nil {
			return nil, fmt.Errorf("min grade: %w", err)
		}
		grade = g
	}

	steps := []filtering.Filter{
		filtering.NewGradeAudit(log),
		filtering.NewExcludeFile(config.Filter.ExcludeFile, log),
		filtering.NewMinGrade(grade, log),
		filtering.NewUsernames(opts.only),
	}

	if !opts.audit {
		filtering.DisableByName(steps, "grade_audit", "grades were checked when the results were fetched")
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("filter %s: %w", step.Name(), err)
		}
	}

	return steps, nil
}

// newSummarizer returns nil when AI summaries are disabled.
func newSummarizer(ctx context.Context, config *Config, log *zap.Logger) (ai.Summarizer, error) {
	if !config.AI.Enabled {
		return nil, nil
	}

	provider := strings.ToLower(strings.TrimSpace(config.AI.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider %q", config.AI.Provider)
	}

	gcfg := config.AI.Gemini
	if gcfg == nil {
		gcfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: gcfg.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model)
	if err != nil {
		return nil, err
	}

	return gemini.NewSummarizer(generator, log, gcfg.MaxLogLength), nil
}
