// Package cmd defines and implements the CLI commands for the harvester
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/app"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/config"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.NewApp(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "A resumable, budget-governed LinkedIn Sales Navigator lead harvester.",
		Long: `harvester walks paginated Sales Navigator search results, optionally
enriches each lead into a full profile (with email discovery), deduplicates
work against a shared claim store so concurrent runs never bill the same
entity twice, and meters every unit of work against a spending ceiling.`,

		// Runs after flags are parsed but before the subcommand's RunE:
		// build the service container and inject it into the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app.App); ok && a != nil {
				a.Close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is env-only configuration)")

	cmd.AddCommand(newHarvestCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return a, nil
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger(true)

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Error("Command execution failed", zap.Error(err))
		os.Exit(1)
	}
}
