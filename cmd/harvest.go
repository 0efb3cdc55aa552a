package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/api"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/budget"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/dedup"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/engine"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// newHarvestCmd creates and configures the 'harvest' subcommand, which runs
// one full crawl to a terminal status.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Runs the Sales Navigator harvest",
		Long: `Walks the configured lead search page by page, enriching, deduplicating,
and billing as configured, until the results, the item cap, the page cap,
or the spending ceiling is exhausted. The crawl cursor is persisted after
every paid page, so an interrupted run resumes where it left off.`,

		RunE: runHarvestCommand,
	}
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := a.Logger()
	cfg := a.Config()
	mode := cfg.ScraperMode()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Dedup was requested but no store is reachable: finishing cleanly
	// here beats burning budget on work that cannot be deduplicated.
	if cfg.DedupMode() != harvest.DedupOff && a.Dedup() == nil {
		logger.Error("Deduplication requested but no store is configured")
		reportStatus(logger, harvest.StatusNoDedupStore, nil)
		return nil
	}

	governor := budget.NewGovernor(a.Gateway(), logger)
	coordinator := dedup.NewCoordinator(a.Dedup(), cfg.DedupMode(), logger)
	router := engine.NewRouter(a.Source(), coordinator, governor, mode, logger)
	output := engine.NewOutput(a.Sink(), governor, mode, logger)

	eng := engine.New(engine.Config{
		Mode:            mode,
		MaxItems:        cfg.Scraper.MaxItems,
		StartPage:       cfg.Scraper.StartPage,
		TakePages:       cfg.Scraper.TakePages,
		PagePrefetch:    cfg.Scraper.PagePrefetch,
		ItemConcurrency: cfg.Scraper.ItemConcurrency,
	}, cfg.Query.Normalize(), a.Source(), a.States(), governor, router, output, logger)

	if cfg.Metrics.Enabled {
		srv := api.NewServer(a.RunID(), eng, governor, logger)
		go func() {
			if serveErr := srv.Serve(ctx, cfg.Metrics.Addr); serveErr != nil {
				logger.Warn("Metrics server failed", zap.Error(serveErr))
			}
		}()
	}

	status, err := eng.Run(ctx)
	if errors.Is(err, context.Canceled) {
		// Interrupted runs persist their cursor so the next run resumes at
		// the right page.
		if flushErr := eng.Flush(context.Background()); flushErr != nil {
			logger.Warn("Could not persist crawl state on shutdown", zap.Error(flushErr))
		}
		logger.Info("Harvest interrupted; state persisted",
			zap.Int("scraped_page_number", eng.State().ScrapedPageNumber))
		return nil
	}
	if err != nil {
		return fmt.Errorf("run harvest: %w", err)
	}

	if status == harvest.StatusSuccess && eng.Emitted() == 0 {
		status = harvest.StatusNoItems
	}
	reportStatus(logger, status, governor)
	return nil
}

func reportStatus(logger *zap.Logger, status harvest.RunStatus, governor *budget.Governor) {
	fields := []zap.Field{zap.String("status", string(status))}
	if governor != nil {
		fields = append(fields, zap.Any("charges", governor.Counts()))
	}
	logger.Info("Harvest finished", fields...)
}
