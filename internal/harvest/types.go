// Package harvest defines core types shared across subsystems.
package harvest

import "strings"

// RunStatus is the terminal outcome of a harvest run.
type RunStatus string

// Run status values reported when a run finishes.
const (
	StatusSuccess         RunStatus = "success"
	StatusRateLimited     RunStatus = "rate limited"
	StatusBudgetExhausted RunStatus = "budget exhausted"
	StatusCeilingTooLow   RunStatus = "ceiling too low"
	StatusNoQuery         RunStatus = "no query"
	StatusNoItems         RunStatus = "no items"
	StatusNoDedupStore    RunStatus = "no dedup store"
)

// ScraperMode selects how much of each profile is fetched and billed.
type ScraperMode int

// Scraper modes ordered by cost tier.
const (
	ModeShort ScraperMode = iota + 1
	ModeFull
	ModeEmail
)

// String returns the config-facing name of the mode.
func (m ScraperMode) String() string {
	switch m {
	case ModeShort:
		return "short"
	case ModeFull:
		return "full"
	case ModeEmail:
		return "email"
	default:
		return "unknown"
	}
}

var scraperModeAliases = map[string]ScraperMode{
	"short":                            ModeShort,
	"full":                             ModeFull,
	"email":                            ModeEmail,
	"full + email search":              ModeEmail,
	"short ($4 per 1k)":                ModeShort,
	"full ($8 per 1k)":                 ModeFull,
	"full + email search ($12 per 1k)": ModeEmail,
	"1":                                ModeShort,
	"2":                                ModeFull,
	"3":                                ModeEmail,
}

// ParseScraperMode maps the user-facing mode selector to a ScraperMode.
// Unrecognized values fall back to ModeFull.
func ParseScraperMode(s string) ScraperMode {
	if m, ok := scraperModeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m
	}
	return ModeFull
}

// DedupMode governs how the coordinator reads and writes claim records.
type DedupMode string

// Dedup modes accepted in run configuration.
const (
	DedupOff            DedupMode = "off"
	DedupReadOnly       DedupMode = "read_only"
	DedupInsertIDs      DedupMode = "insert_ids"
	DedupInsertProfiles DedupMode = "insert_profiles"
)

// Valid reports whether m is one of the recognized dedup modes.
func (m DedupMode) Valid() bool {
	switch m {
	case DedupOff, DedupReadOnly, DedupInsertIDs, DedupInsertProfiles:
		return true
	}
	return false
}

// Charge event names recognized by the billing gateway.
const (
	EventSearchPage       = "search-page"
	EventFullProfile      = "full-profile"
	EventProfileWithEmail = "full-profile-with-email"
)

// PaymentProfileWithEmail is the payment marker the data source attaches
// when an enrichment actually delivered an email address.
const PaymentProfileWithEmail = "linkedinProfileWithEmail"

// StateKey is the key the crawl cursor is persisted under.
const StateKey = "crawling-state"

// CrawlState is the durable pagination cursor for one run.
type CrawlState struct {
	ScrapedPageNumber int `json:"scrapedPageNumber,omitempty"`
}

// SearchHit is the short projection of a profile returned on a search page.
type SearchHit struct {
	ID               string `json:"id"`
	PublicIdentifier string `json:"publicIdentifier,omitempty"`
	Name             string `json:"name,omitempty"`
	Headline         string `json:"headline,omitempty"`
	Location         string `json:"location,omitempty"`
	LinkedinURL      string `json:"linkedinUrl,omitempty"`
	OpenProfile      bool   `json:"openProfile,omitempty"`
}

// Profile is the full record produced by an enrichment fetch.
type Profile struct {
	ID               string   `json:"id" bson:"id"`
	PublicIdentifier string   `json:"publicIdentifier,omitempty" bson:"publicIdentifier,omitempty"`
	Name             string   `json:"name,omitempty" bson:"name,omitempty"`
	Headline         string   `json:"headline,omitempty" bson:"headline,omitempty"`
	Location         string   `json:"location,omitempty" bson:"location,omitempty"`
	LinkedinURL      string   `json:"linkedinUrl,omitempty" bson:"linkedinUrl,omitempty"`
	Email            string   `json:"email,omitempty" bson:"email,omitempty"`
	OpenProfile      bool     `json:"openProfile,omitempty" bson:"openProfile,omitempty"`
	Skills           []string `json:"skills,omitempty" bson:"skills,omitempty"`
	CurrentCompany   string   `json:"currentCompany,omitempty" bson:"currentCompany,omitempty"`
	CurrentPosition  string   `json:"currentPosition,omitempty" bson:"currentPosition,omitempty"`
}

// Pagination is the paging metadata attached to a search page.
type Pagination struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
}

// SearchPage is one page of search results as interpreted by the driver.
type SearchPage struct {
	Status     int         `json:"status"`
	Error      string      `json:"error,omitempty"`
	Elements   []SearchHit `json:"elements"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// EntityResult is the response of a single enrichment fetch.
type EntityResult struct {
	Status   int      `json:"status"`
	Profile  *Profile `json:"element,omitempty"`
	Payments []string `json:"payments,omitempty"`
}

// EntityRecord is the claim document kept in the shared dedup store.
// SourceID carries the search-side identifier and is unique; EnrichedID is
// set once enrichment succeeds and is unique as well.
type EntityRecord struct {
	SourceID   string   `bson:"salesNavId" json:"salesNavId"`
	EnrichedID string   `bson:"profileId,omitempty" json:"profileId,omitempty"`
	Profile    *Profile `bson:"profile,omitempty" json:"profile,omitempty"`
}

// ItemMeta is attached to every sink item.
type ItemMeta struct {
	Pagination *Pagination `json:"pagination"`
}

// Item is the final record written to the output sink.
type Item struct {
	Hit     *SearchHit `json:"hit,omitempty"`
	Profile *Profile   `json:"profile,omitempty"`
	Meta    ItemMeta   `json:"_meta"`
}

// ChargeResult reports the gateway's decision for one metered event.
// Charged is false when applying the charge would have exceeded the
// ceiling; LimitReached is true once no further charges can be accepted.
type ChargeResult struct {
	Charged      bool
	LimitReached bool
}
