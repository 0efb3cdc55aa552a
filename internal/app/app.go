// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/billing/httpgw"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/billing/local"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/config"
	dedupmemory "github.com/HarvestAPI/apify-linkedin-profile-search/internal/dedup/memory"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/dedup/mongo"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/dedup/postgres"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/logging"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/sink/jsonl"
	sinkmemory "github.com/HarvestAPI/apify-linkedin-profile-search/internal/sink/memory"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/sink/pubsub"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/source"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/state/file"
	statememory "github.com/HarvestAPI/apify-linkedin-profile-search/internal/state/memory"
	stateredis "github.com/HarvestAPI/apify-linkedin-profile-search/internal/state/redis"
)

// App holds all the shared, long-lived services for one harvester process:
// the logger, the data source client, the state store, the dedup store, the
// output sink, and the billing gateway. It is initialized once at startup
// and passed to the command that needs it.
type App struct {
	cfg    config.Config
	runID  string
	logger *zap.Logger

	source  harvest.DataSource
	states  harvest.StateStore
	dedup   harvest.DedupStore
	sink    harvest.Sink
	gateway harvest.BillingGateway

	closers []func(context.Context) error
}

// Config returns the loaded run configuration.
func (a *App) Config() config.Config { return a.cfg }

// RunID returns the identifier minted for this process.
func (a *App) RunID() string { return a.runID }

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger { return a.logger }

// Source exposes the search/enrichment API client.
func (a *App) Source() harvest.DataSource { return a.source }

// States exposes the crawl cursor store.
func (a *App) States() harvest.StateStore { return a.states }

// Dedup exposes the shared claim store. It is nil when dedup is off or the
// store is not configured.
func (a *App) Dedup() harvest.DedupStore { return a.dedup }

// Sink exposes the output sink.
func (a *App) Sink() harvest.Sink { return a.sink }

// Gateway exposes the billing gateway.
func (a *App) Gateway() harvest.BillingGateway { return a.gateway }

// NewApp builds the service container from the loaded configuration. It is
// the central point for provider selection and fails fast when any critical
// service cannot be initialized. A dedup mode that needs a store but has no
// connection string is NOT an initialization error; the harvest command
// turns that into a clean terminal status.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{
		cfg:    cfg,
		runID:  uuid.NewString(),
		logger: logger,
	}
	a.closers = append(a.closers, func(context.Context) error {
		return logger.Sync()
	})

	a.source = source.NewClient(source.Config{
		BaseURL:           cfg.Source.BaseURL,
		APIKey:            cfg.Source.APIKey,
		SessionID:         a.runID,
		Headers:           map[string]string{"X-Run-Id": a.runID},
		PageTimeout:       time.Duration(cfg.Source.PageTimeoutSec) * time.Second,
		FetchTimeout:      time.Duration(cfg.Source.FetchTimeoutSec) * time.Second,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
	}, logger)

	if err := a.initStates(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.initDedup(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.initSink(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.initGateway()

	logger.Info("Application services initialized",
		zap.String("run_id", a.runID),
		zap.String("state_provider", cfg.State.Provider),
		zap.String("dedup_provider", cfg.Dedup.Provider),
		zap.String("sink_provider", cfg.Sink.Provider),
		zap.String("billing_provider", cfg.Billing.Provider),
	)
	return a, nil
}

func (a *App) initStates(ctx context.Context) error {
	switch a.cfg.State.Provider {
	case "file":
		st, err := file.NewStore(a.cfg.State.Dir)
		if err != nil {
			return fmt.Errorf("init file state store: %w", err)
		}
		a.states = st
	case "redis":
		st, err := stateredis.Connect(ctx, stateredis.Config{
			Addr:     a.cfg.State.RedisAddr,
			Password: a.cfg.State.RedisPassword,
			DB:       a.cfg.State.RedisDB,
			Prefix:   a.runID,
			TTL:      a.cfg.StateTTL(),
		})
		if err != nil {
			return fmt.Errorf("init redis state store: %w", err)
		}
		a.states = st
		a.closers = append(a.closers, func(context.Context) error { return st.Close() })
	case "memory":
		a.states = statememory.NewStore()
	default:
		return fmt.Errorf("unknown state provider: %s", a.cfg.State.Provider)
	}
	return nil
}

func (a *App) initDedup(ctx context.Context) error {
	if a.cfg.DedupMode() == harvest.DedupOff {
		return nil
	}
	switch a.cfg.Dedup.Provider {
	case "mongo":
		if a.cfg.Dedup.ConnectionString == "" {
			a.logger.Warn("Dedup enabled but no connection string configured")
			return nil
		}
		st, err := mongo.Connect(ctx, a.cfg.Dedup.ConnectionString)
		if err != nil {
			return fmt.Errorf("init mongo dedup store: %w", err)
		}
		a.dedup = st
		a.closers = append(a.closers, st.Close)
	case "postgres":
		if a.cfg.Dedup.ConnectionString == "" {
			a.logger.Warn("Dedup enabled but no connection string configured")
			return nil
		}
		st, err := postgres.Connect(ctx, a.cfg.Dedup.ConnectionString)
		if err != nil {
			return fmt.Errorf("init postgres dedup store: %w", err)
		}
		a.dedup = st
		a.closers = append(a.closers, func(context.Context) error { st.Close(); return nil })
	case "memory":
		a.dedup = dedupmemory.NewStore()
	default:
		return fmt.Errorf("unknown dedup provider: %s", a.cfg.Dedup.Provider)
	}
	return nil
}

func (a *App) initSink(ctx context.Context) error {
	switch a.cfg.Sink.Provider {
	case "jsonl":
		s, err := jsonl.NewSink(a.cfg.Sink.Path)
		if err != nil {
			return fmt.Errorf("init jsonl sink: %w", err)
		}
		a.sink = s
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
	case "pubsub":
		s, err := pubsub.New(ctx, a.cfg.Sink.ProjectID, a.cfg.Sink.TopicID)
		if err != nil {
			return fmt.Errorf("init pubsub sink: %w", err)
		}
		a.sink = s
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
	case "memory":
		a.sink = sinkmemory.NewSink()
	default:
		return fmt.Errorf("unknown sink provider: %s", a.cfg.Sink.Provider)
	}
	return nil
}

func (a *App) initGateway() {
	switch a.cfg.Billing.Provider {
	case "http":
		a.gateway = httpgw.New(httpgw.Config{
			BaseURL: a.cfg.Billing.BaseURL,
			Token:   a.cfg.Billing.Token,
			RunID:   a.runID,
		})
	default:
		a.gateway = local.New(a.cfg.Billing.CeilingUSD, nil)
	}
}

// Close shuts the container's services down in reverse initialization
// order. Errors are logged, not returned; shutdown is best effort.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Error closing service", zap.Error(err))
		}
	}
}
