package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the analysis API is reachable",
	Run: func(_ *cobra.Command, _ []string) {
		health()
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func health() {
	ctx, stop := signalContext()
	defer stop()

	logger, config := setup()

	client, err := newClient(config, logger)
	if err != nil {
		logger.Fatal("loading api token", zap.Error(err))
	}

	h, err := client.Health(ctx)
	if err != nil {
		logger.Fatal("api is unhealthy", zap.String("api_url", client.APIURL), zap.Error(err))
	}

	fmt.Printf("%s: %s (%s)\n", h.Service, h.Status, client.APIURL)
}
