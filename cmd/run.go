package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/ai"
	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/filtering"
	"github.com/jdh4601/ClosetBot/internal/jobs"
	"github.com/jdh4601/ClosetBot/internal/render"
)

const (
	PromptShowTable     = "Show results table"
	PromptDetail        = "Show candidate detail"
	PromptExport        = "Export CSV"
	PromptSummary       = "Summarize with AI"
	PromptAppendExclude = "Append shown candidates to exclude file"
	PromptRefresh       = "Refresh results"
	PromptExit          = "Exit"
	PromptBack          = "back"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit an analysis, follow it until it finishes and explore the results",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("brand", "b", "", "brand account to match against")
	runCmd.Flags().StringSliceP("influencer", "i", nil, "candidate account, may be repeated (1-5)")
	runCmd.Flags().BoolP("auto-export", "y", false, "export the results and exit without asking")
	runCmd.Flags().StringP("exclude-file", "e", "", "file with accounts to hide from results. Default is unset.")
	runCmd.Flags().String("min-grade", "", "hide candidates graded below this letter")

	viper.BindPFlag("filter.exclude-file", runCmd.Flags().Lookup("exclude-file"))
}

// session is the state shared by the interactive menu actions.
type session struct {
	ctx        context.Context
	config     *Config
	logger     *zap.Logger
	tracker    *jobs.Tracker
	steps      []filtering.Filter
	summarizer ai.Summarizer
	colorize   bool

	jobID   string
	shown   *analysis.ResultSet
	summary *ai.Summary
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signalContext()
	defer stop()

	logger, config := setup()

	logger.Info("starting closetbot", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	req, err := requestFromFlags(cmd)
	if err != nil {
		logger.Fatal("building analysis request", zap.Error(err))
	}

	client, err := newClient(config, logger)
	if err != nil {
		logger.Fatal("loading api token", zap.Error(err),
			zap.String("hint", "set CLOSETBOT_TOKEN_FILE or the 'token-file' key in the configuration file"),
		)
	}

	db := openHistory(config, logger)
	defer closeHistory(db, logger)

	minGrade, _ := cmd.Flags().GetString("min-grade")
	steps, err := buildFilters(config, filterOptions{minGrade: minGrade}, logger)
	if err != nil {
		logger.Fatal("preparing filters", zap.Error(err))
	}

	summarizer, err := newSummarizer(ctx, config, logger)
	if err != nil {
		logger.Warn("ai summaries are disabled", zap.Error(err))
	}

	s := &session{
		ctx:        ctx,
		config:     config,
		logger:     logger,
		tracker:    newTracker(config, client, db, logger),
		steps:      steps,
		summarizer: summarizer,
		colorize:   render.ShouldColorize(os.Stdout),
	}

	view, err := s.tracker.Run(ctx, req, func(u jobs.Update) {
		fmt.Println(render.UpdateLine(u, s.colorize))
	})
	if err != nil {
		if errors.Is(err, jobs.ErrCancelled) || errors.Is(err, context.Canceled) {
			logger.Info("exiting", zap.String("reason", "interrupted"), zap.String("job_id", view.JobID))
			return
		}
		logger.Fatal("running analysis", zap.Error(err))
	}

	if err := s.show(view); err != nil {
		if errors.Is(err, errExit) {
			return
		}
		logger.Fatal("showing results", zap.Error(err))
	}

	if auto, _ := cmd.Flags().GetBool("auto-export"); auto {
		if _, err := writeExport(s.shown, exportOptions{}.withDefaults(config), logger); err != nil {
			logger.Fatal("exporting results", zap.Error(err))
		}
		return
	}

	for {
		prompt := promptui.Select{
			Label: "What next?",
			Items: s.actions(),
		}

		_, action, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("prompt failed", zap.Error(err))
		}

		if err := handleAction(action, s); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func (s *session) actions() []string {
	items := []string{PromptShowTable, PromptDetail, PromptExport}
	if s.summarizer != nil {
		items = append(items, PromptSummary)
	}
	if s.config.Filter.ExcludeFile != "" && s.shown.Len() != 0 {
		items = append(items, PromptAppendExclude)
	}
	return append(items, PromptRefresh, PromptExit)
}

// show prints a results view. A view without results ends the session.
func (s *session) show(view jobs.View) error {
	s.jobID = view.JobID

	if view.State != jobs.ViewReady {
		fmt.Println(render.ViewLine(view, s.colorize))
		if view.State == jobs.ViewNotReady {
			s.logger.Info("exiting", zap.String("reason", "results are not ready"),
				zap.String("hint", "run 'closetbot results "+view.JobID+"' later"))
			return errExit
		}
		return fmt.Errorf("job %s: %s", view.JobID, view.Message)
	}

	shown, err := applyFilters(s.ctx, s.steps, view.Results, s.logger)
	if err != nil {
		return err
	}

	s.shown = shown
	s.summary = nil
	printResults(shown)
	return nil
}

func handleAction(action string, s *session) error {
	switch action {
	case PromptShowTable:
		printResults(s.shown)
		return nil
	case PromptDetail:
		return s.detail()
	case PromptExport:
		_, err := writeExport(s.shown, exportOptions{}.withDefaults(s.config), s.logger)
		return err
	case PromptSummary:
		return s.summarize()
	case PromptAppendExclude:
		return s.appendExclude()
	case PromptRefresh:
		err := s.show(s.tracker.Results(s.ctx, s.jobID))
		if errors.Is(err, errExit) {
			// keep the menu open on whatever was shown before
			return nil
		}
		return err
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *session) detail() error {
	for {
		items := append(s.shown.Usernames(), PromptBack)

		prompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: items,
		}

		_, selected, err := prompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		r := s.shown.Find(selected)
		if r == nil {
			return fmt.Errorf("there is no such candidate %s", selected)
		}

		fmt.Println(render.Detail(r, s.colorize))
		if note := s.summary.Note(r.Username); note != "" {
			fmt.Printf("AI note: %s\n\n", note)
		}
	}
}

func (s *session) summarize() error {
	if s.summary == nil {
		summary, err := s.summarizer.Summarize(s.ctx, s.shown)
		if err != nil {
			// a broken summary never ends the session
			s.logger.Warn("ai summary failed", zap.Error(err))
			return nil
		}
		s.summary = summary
	}

	fmt.Println(s.summary.Headline)
	for _, n := range s.summary.Notes {
		fmt.Printf("  @%s: %s\n", n.Username, n.Note)
	}
	return nil
}

func (s *session) appendExclude() error {
	path := s.config.Filter.ExcludeFile

	excluded, err := filtering.LoadOrCreateExcludedAccounts(path)
	if err != nil {
		return err
	}

	items := make([]filtering.ExcludedAccount, 0, s.shown.Len())
	for _, r := range s.shown.Results {
		items = append(items, filtering.ExcludedAccount{
			Username: r.Username,
			Reason:   fmt.Sprintf("reviewed for @%s in job %s", s.shown.BrandUsername, s.shown.JobID),
		})
	}

	added := excluded.Append(items...)
	if err := excluded.ToFile(path); err != nil {
		return err
	}

	s.logger.Info("appended to exclude file", zap.String("filename", path), zap.Int("added", added))
	return nil
}

// requestFromFlags builds the request from flags and prompts for whatever is
// missing.
func requestFromFlags(cmd *cobra.Command) (*analysis.Request, error) {
	brand, _ := cmd.Flags().GetString("brand")
	candidates, _ := cmd.Flags().GetStringSlice("influencer")

	if strings.TrimSpace(brand) == "" {
		prompt := promptui.Prompt{
			Label:    "Brand account",
			Validate: requiredInput,
		}
		value, err := prompt.Run()
		if err != nil {
			return nil, err
		}
		brand = value
	}

	if len(candidates) == 0 {
		prompt := promptui.Prompt{
			Label:    fmt.Sprintf("Candidate accounts, comma separated (up to %d)", analysis.MaxCandidates),
			Validate: requiredInput,
		}
		value, err := prompt.Run()
		if err != nil {
			return nil, err
		}
		candidates = strings.Split(value, ",")
	}

	return analysis.NewRequest(brand, candidates)
}

func requiredInput(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("value is required")
	}
	return nil
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) Config {
	out := *config
	if out.Token != "" {
		out.Token = "<redacted>"
	}
	return out
}
