// Package source implements the HTTP client for the search and enrichment
// API consumed by the harvester.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// ResourceExhaustedError is the distinguished error string the API returns
// when the upstream rate limit pool is drained. It is an expected,
// self-resolving condition, not a failure of the run.
const ResourceExhaustedError = "No available resource"

// Config controls the API client.
type Config struct {
	BaseURL   string
	APIKey    string
	SessionID string
	// Headers are added verbatim to every request (run metadata).
	Headers map[string]string
	// PageTimeout bounds a single search-page request.
	PageTimeout time.Duration
	// FetchTimeout bounds a single profile enrichment request.
	FetchTimeout time.Duration
	// RequestsPerSecond throttles outgoing calls; zero means unthrottled.
	RequestsPerSecond float64
}

// Client talks to the search/enrichment API.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient constructs a Client. Zero timeouts default to 90s for pages and
// 60s for profile fetches.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 90 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 60 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// SearchPage requests one page of Sales Navigator lead results. Non-2xx
// statuses are not errors; the driver interprets the status itself.
func (c *Client) SearchPage(ctx context.Context, query harvest.Query, page int) (harvest.SearchPage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.PageTimeout)
	defer cancel()

	if err := c.limiter.Wait(reqCtx); err != nil {
		return harvest.SearchPage{}, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.cfg.BaseURL + "/linkedin/sales-navigator/leads")
	if err != nil {
		return harvest.SearchPage{}, fmt.Errorf("parse search url: %w", err)
	}
	values := queryValues(query)
	values.Set("page", strconv.Itoa(page))
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return harvest.SearchPage{}, fmt.Errorf("build search request: %w", err)
	}
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return harvest.SearchPage{}, fmt.Errorf("search page %d: %w", page, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	var sp harvest.SearchPage
	if err := json.NewDecoder(resp.Body).Decode(&sp); err != nil {
		c.logger.Warn("Undecodable search page body", zap.Int("page", page), zap.Error(err))
	}
	sp.Status = resp.StatusCode
	return sp, nil
}

// FetchProfile performs the secondary enrichment fetch for a search hit.
func (c *Client) FetchProfile(ctx context.Context, hit harvest.SearchHit, findEmail bool) (harvest.EntityResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	if err := c.limiter.Wait(reqCtx); err != nil {
		return harvest.EntityResult{}, fmt.Errorf("rate limit wait: %w", err)
	}

	ref := hit.PublicIdentifier
	if ref == "" {
		ref = hit.ID
	}
	u, err := url.Parse(c.cfg.BaseURL + "/linkedin/profile")
	if err != nil {
		return harvest.EntityResult{}, fmt.Errorf("parse profile url: %w", err)
	}
	values := url.Values{}
	values.Set("url", "https://www.linkedin.com/in/"+ref)
	if findEmail {
		values.Set("findEmail", "true")
	}
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return harvest.EntityResult{}, fmt.Errorf("build profile request: %w", err)
	}
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return harvest.EntityResult{}, fmt.Errorf("fetch profile %s: %w", ref, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	var out harvest.EntityResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return harvest.EntityResult{}, fmt.Errorf("decode profile %s: %w", ref, err)
	}
	out.Status = resp.StatusCode
	return out, nil
}

func (c *Client) decorate(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}
	if c.cfg.SessionID != "" {
		req.Header.Set("X-Session-Id", c.cfg.SessionID)
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
}

// queryValues flattens a normalized query into URL parameters. List fields
// are joined with commas, safe because normalization stripped commas from
// the values themselves.
func queryValues(q harvest.Query) url.Values {
	values := url.Values{}
	set := func(key, v string) {
		if v != "" {
			values.Set(key, v)
		}
	}
	setList := func(key string, vs []string) {
		if len(vs) > 0 {
			values.Set(key, strings.Join(vs, ","))
		}
	}

	set("search", q.Search)
	set("salesNavUrl", q.SalesNavURL)
	if q.RecentlyChangedJobs {
		values.Set("recentlyChangedJobs", "true")
	}

	setList("currentCompanies", q.CurrentCompanies)
	setList("pastCompanies", q.PastCompanies)
	setList("currentJobTitles", q.CurrentJobTitles)
	setList("pastJobTitles", q.PastJobTitles)
	setList("firstNames", q.FirstNames)
	setList("lastNames", q.LastNames)
	setList("schools", q.Schools)
	setList("locations", q.Locations)
	setList("industryIds", q.IndustryIDs)
	setList("yearsOfExperienceIds", q.YearsOfExperienceIDs)
	setList("yearsAtCurrentCompanyIds", q.YearsAtCurrentCompanyIDs)
	setList("seniorityLevelIds", q.SeniorityLevelIDs)
	setList("functionIds", q.FunctionIDs)
	setList("profileLanguages", q.ProfileLanguages)

	setList("excludeCurrentCompanies", q.ExcludeCurrentCompanies)
	setList("excludePastCompanies", q.ExcludePastCompanies)
	setList("excludeLocations", q.ExcludeLocations)
	setList("excludeGeoIds", q.ExcludeGeoIDs)
	setList("excludeSchools", q.ExcludeSchools)
	setList("excludeCurrentJobTitles", q.ExcludeCurrentJobTitles)
	setList("excludePastJobTitles", q.ExcludePastJobTitles)
	setList("excludeIndustryIds", q.ExcludeIndustryIDs)
	setList("excludeSeniorityLevelIds", q.ExcludeSeniorityLevelIDs)
	setList("excludeFunctionIds", q.ExcludeFunctionIDs)

	return values
}
