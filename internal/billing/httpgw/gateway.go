// Package httpgw implements the billing gateway client for the platform's
// pay-per-event metering API.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Config controls the gateway client.
type Config struct {
	BaseURL string
	Token   string
	RunID   string
	Timeout time.Duration
}

// Gateway talks to the remote metering API.
type Gateway struct {
	cfg    Config
	client *http.Client
}

// New constructs a Gateway. A zero timeout defaults to 30s.
func New(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type chargeRequest struct {
	EventName string `json:"eventName"`
	RunID     string `json:"runId,omitempty"`
}

type chargeResponse struct {
	Charged                 bool `json:"charged"`
	EventChargeLimitReached bool `json:"eventChargeLimitReached"`
}

type pricingResponse struct {
	MaxTotalChargeUSD float64 `json:"maxTotalChargeUsd"`
}

// Charge records one metered unit of the named event against the run.
func (g *Gateway) Charge(ctx context.Context, event string) (harvest.ChargeResult, error) {
	body, err := json.Marshal(chargeRequest{EventName: event, RunID: g.cfg.RunID})
	if err != nil {
		return harvest.ChargeResult{}, fmt.Errorf("marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v2/charges", bytes.NewReader(body))
	if err != nil {
		return harvest.ChargeResult{}, fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return harvest.ChargeResult{}, fmt.Errorf("post charge: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return harvest.ChargeResult{}, fmt.Errorf("charge rejected: status %d", resp.StatusCode)
	}

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return harvest.ChargeResult{}, fmt.Errorf("decode charge response: %w", err)
	}
	return harvest.ChargeResult{Charged: out.Charged, LimitReached: out.EventChargeLimitReached}, nil
}

// Ceiling fetches the run's maximum total charge from the pricing endpoint.
func (g *Gateway) Ceiling(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/v2/pricing-info", nil)
	if err != nil {
		return 0, fmt.Errorf("build pricing request: %w", err)
	}
	g.authorize(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get pricing info: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pricing info: status %d", resp.StatusCode)
	}

	var out pricingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode pricing info: %w", err)
	}
	return out.MaxTotalChargeUSD, nil
}

func (g *Gateway) authorize(req *http.Request) {
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}
}
