package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export JOB_ID",
	Short: "Export the results of an analysis job as CSV",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exportResults(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	addResultFlags(exportCmd)
	exportCmd.Flags().StringP("layout", "l", "", "column layout: compact or full (default from config)")
	exportCmd.Flags().String("dir", "", "directory to write the file into (default from config)")
	exportCmd.Flags().Bool("stdout", false, "print the CSV instead of writing a file")
}

func exportResults(cmd *cobra.Command, jobID string) {
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

	layout, _ := cmd.Flags().GetString("layout")
	dir, _ := cmd.Flags().GetString("dir")
	stdout, _ := cmd.Flags().GetBool("stdout")

	opts := exportOptions{layout: layout, dir: dir, stdout: stdout}.withDefaults(config)

	path, err := writeExport(set, opts, logger)
	if err != nil {
		logger.Fatal("exporting results", zap.Error(err))
	}

	if path != "" {
		fmt.Println(path)
	}
}
