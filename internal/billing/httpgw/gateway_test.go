package httpgw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

func TestGateway_Charge(t *testing.T) {
	t.Parallel()

	var gotEvent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/charges", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotEvent = req.EventName

		_ = json.NewEncoder(w).Encode(chargeResponse{Charged: true})
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL, Token: "secret", RunID: "run-1"})
	res, err := g.Charge(context.Background(), harvest.EventSearchPage)
	require.NoError(t, err)
	require.True(t, res.Charged)
	require.False(t, res.LimitReached)
	require.Equal(t, harvest.EventSearchPage, gotEvent)
}

func TestGateway_ChargeLimitReached(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(chargeResponse{Charged: false, EventChargeLimitReached: true})
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL})
	res, err := g.Charge(context.Background(), harvest.EventFullProfile)
	require.NoError(t, err)
	require.False(t, res.Charged)
	require.True(t, res.LimitReached)
}

func TestGateway_ChargeServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL})
	_, err := g.Charge(context.Background(), harvest.EventFullProfile)
	require.Error(t, err)
}

func TestGateway_Ceiling(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/pricing-info", r.URL.Path)
		_ = json.NewEncoder(w).Encode(pricingResponse{MaxTotalChargeUSD: 25.5})
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL})
	ceiling, err := g.Ceiling(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 25.5, ceiling, 1e-9)
}
