// Package engine implements the resumable, budget-governed harvest
// orchestrator: the pagination state machine, per-hit enrichment routing,
// and the output pipeline.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/budget"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/metrics"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/source"
)

// Config controls one harvest run.
type Config struct {
	Mode      harvest.ScraperMode
	MaxItems  int
	StartPage int
	// TakePages caps how many pages this run may walk.
	TakePages int
	// PagePrefetch is how many pages may be fetched ahead of accounting.
	PagePrefetch int
	// ItemConcurrency bounds in-flight hits within a page.
	ItemConcurrency int
}

func (c *Config) normalize() {
	if c.StartPage < 1 {
		c.StartPage = 1
	}
	if c.TakePages < 1 {
		c.TakePages = 100
	}
	if c.PagePrefetch < 1 {
		c.PagePrefetch = 1
	}
	if c.ItemConcurrency < 1 {
		c.ItemConcurrency = 1
	}
	if c.MaxItems < 1 {
		c.MaxItems = 1_000_000
	}
}

// Engine drives the crawl. One Engine runs one harvest.
type Engine struct {
	cfg      Config
	query    harvest.Query
	source   harvest.DataSource
	states   harvest.StateStore
	governor *budget.Governor
	router   *Router
	output   *Output
	logger   *zap.Logger

	mu      sync.Mutex
	state   harvest.CrawlState
	emitted int
}

// New constructs an Engine. The query must already be normalized.
func New(
	cfg Config,
	query harvest.Query,
	src harvest.DataSource,
	states harvest.StateStore,
	governor *budget.Governor,
	router *Router,
	output *Output,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.normalize()
	metrics.Init()
	return &Engine{
		cfg:      cfg,
		query:    query,
		source:   src,
		states:   states,
		governor: governor,
		router:   router,
		output:   output,
		logger:   logger,
	}
}

// fetchedPage pairs a page number with its (possibly failed) fetch result.
type fetchedPage struct {
	number int
	page   harvest.SearchPage
	err    error
}

// Run executes the harvest until a terminal condition and returns the
// run's terminal status. The returned error is reserved for infrastructure
// failures (billing gateway unreachable, state store write failure);
// expected terminal conditions are statuses, not errors.
func (e *Engine) Run(ctx context.Context) (harvest.RunStatus, error) {
	if e.query.Empty() {
		return harvest.StatusNoQuery, nil
	}
	if err := e.governor.Preflight(ctx); err != nil {
		if errors.Is(err, budget.ErrCeilingTooLow) {
			return harvest.StatusCeilingTooLow, nil
		}
		return "", err
	}

	e.loadState(ctx)
	start := e.cfg.StartPage
	if resume := e.State().ScrapedPageNumber; resume > 0 {
		start = resume + 1
		e.logger.Info("Resuming crawl from persisted state", zap.Int("page", start))
	}

	pages := make(chan fetchedPage, e.cfg.PagePrefetch)
	fetchCtx, stopFetching := context.WithCancel(ctx)
	defer stopFetching()
	go e.fetchPages(fetchCtx, start, pages)

	status := harvest.StatusSuccess
	var runErr error

loop:
	for fp := range pages {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		default:
		}

		if fp.err != nil {
			// Isolated page failure: not charged, cursor untouched.
			e.logger.Warn("Search page fetch failed",
				zap.Int("page", fp.number), zap.Error(fp.err))
			metrics.ObservePage("error")
			continue
		}
		sp := fp.page

		if fp.number == start {
			if rateLimited := e.inspectFirstPage(sp); rateLimited {
				status = harvest.StatusRateLimited
				break loop
			}
		}

		halted, err := e.accountPage(ctx, fp.number, sp)
		if err != nil {
			runErr = err
			break loop
		}
		if halted {
			status = harvest.StatusBudgetExhausted
			break loop
		}

		limitReached, err := e.processItems(ctx, sp)
		if err != nil {
			runErr = err
			break loop
		}
		e.logger.Info("Scraped search page",
			zap.Int("page", fp.number),
			zap.Int("profiles_on_page", len(sp.Elements)),
		)
		if limitReached {
			status = harvest.StatusBudgetExhausted
			break loop
		}
		if e.Emitted() >= e.cfg.MaxItems {
			break loop
		}
	}
	stopFetching()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return "", runErr
	}
	metrics.ObserveRun(string(status))
	return status, runErr
}

// fetchPages walks search pages sequentially, up to TakePages, buffering
// ahead of the accounting loop. It stops on its own once the source reports
// the last page or an empty page.
func (e *Engine) fetchPages(ctx context.Context, start int, out chan<- fetchedPage) {
	defer close(out)
	for i := 0; i < e.cfg.TakePages; i++ {
		number := start + i
		sp, err := e.source.SearchPage(ctx, e.query, number)
		select {
		case out <- fetchedPage{number: number, page: sp, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			continue
		}
		if sp.Pagination != nil && number >= sp.Pagination.TotalPages {
			return
		}
		if sp.Status != 429 && len(sp.Elements) == 0 {
			return
		}
	}
}

// inspectFirstPage logs first-contact diagnostics and reports whether the
// distinguished resource-exhaustion signal ends the run as rate limited.
func (e *Engine) inspectFirstPage(sp harvest.SearchPage) bool {
	switch {
	case sp.Status == 429:
		e.logger.Error("Too many requests")
	case sp.Pagination != nil:
		e.logger.Info("Found profiles for query",
			zap.Int("total", sp.Pagination.TotalElements))
	}

	if strings.Contains(sp.Error, source.ResourceExhaustedError) {
		// Expected, externally imposed, resolves on its own schedule.
		e.logger.Error("Hit upstream rate limits; limits reset hourly, please continue at the beginning of the next hour")
		metrics.ObservePage("rate_limited")
		return true
	}
	return false
}

// accountPage charges the search-page event for a successful page and
// advances the durable cursor. It reports true when the run must halt on
// the budget ceiling.
func (e *Engine) accountPage(ctx context.Context, number int, sp harvest.SearchPage) (bool, error) {
	if sp.Pagination == nil || sp.Status == 429 {
		metrics.ObservePage("unaccounted")
		return false, nil
	}

	charge, err := e.governor.Charge(ctx, harvest.EventSearchPage)
	if err != nil {
		return false, err
	}
	if charge.Charged {
		metrics.ObserveCharge(harvest.EventSearchPage)
		metrics.ObservePage("accounted")
		e.mu.Lock()
		e.state.ScrapedPageNumber = number
		e.mu.Unlock()
		if err := e.Flush(ctx); err != nil {
			return false, err
		}
	}
	return charge.LimitReached, nil
}

// processItems pushes the page's hits through the router and output
// pipeline with bounded concurrency. It reports whether the budget ceiling
// was reached by a per-item charge.
func (e *Engine) processItems(ctx context.Context, sp harvest.SearchPage) (bool, error) {
	itemCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, e.cfg.ItemConcurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var limitReached bool
	var firstErr error

	setLimit := func() {
		mu.Lock()
		limitReached = true
		mu.Unlock()
		cancel()
	}
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for _, hit := range sp.Elements {
		if itemCtx.Err() != nil || e.Emitted() >= e.cfg.MaxItems {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(hit harvest.SearchHit) {
			defer wg.Done()
			defer func() { <-sem }()
			if itemCtx.Err() != nil {
				return
			}

			routed, err := e.router.Route(itemCtx, hit)
			if err != nil {
				setErr(err)
				return
			}
			if routed.LimitReached {
				setLimit()
				return
			}
			if routed.Skipped || routed.Failed {
				return
			}
			if !e.reserveItem() {
				return
			}

			res, err := e.output.Emit(itemCtx, routed, sp.Pagination)
			if !res.Written {
				e.releaseItem()
			}
			if err != nil {
				setErr(err)
				return
			}
			if res.LimitReached {
				setLimit()
			}
		}(hit)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return limitReached, firstErr
}

// reserveItem claims one slot of the run's item budget before a sink write.
func (e *Engine) reserveItem() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.emitted >= e.cfg.MaxItems {
		return false
	}
	e.emitted++
	return true
}

func (e *Engine) releaseItem() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitted--
}

// Emitted returns the number of items written so far.
func (e *Engine) Emitted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emitted
}

// State returns a copy of the current crawl cursor.
func (e *Engine) State() harvest.CrawlState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Flush persists the crawl cursor. It is also invoked from the lifecycle
// signal handler so a forced relocation can resume at the exact page.
func (e *Engine) Flush(ctx context.Context) error {
	data, err := json.Marshal(e.State())
	if err != nil {
		return fmt.Errorf("marshal crawl state: %w", err)
	}
	if err := e.states.Set(ctx, harvest.StateKey, data); err != nil {
		return fmt.Errorf("persist crawl state: %w", err)
	}
	return nil
}

func (e *Engine) loadState(ctx context.Context) {
	data, err := e.states.Get(ctx, harvest.StateKey)
	if errors.Is(err, harvest.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Warn("Could not read crawl state; starting fresh", zap.Error(err))
		return
	}
	var st harvest.CrawlState
	if err := json.Unmarshal(data, &st); err != nil {
		e.logger.Warn("Corrupt crawl state; starting fresh", zap.Error(err))
		return
	}
	e.mu.Lock()
	e.state = st
	e.mu.Unlock()
}
