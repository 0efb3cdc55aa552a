package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

func TestClient_SearchPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/linkedin/sales-navigator/leads", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "Acme,Globex", r.URL.Query().Get("currentCompanies"))
		require.Equal(t, "key-1", r.Header.Get("X-API-Key"))
		require.Equal(t, "sess-1", r.Header.Get("X-Session-Id"))

		_ = json.NewEncoder(w).Encode(harvest.SearchPage{
			Elements:   []harvest.SearchHit{{ID: "a"}, {ID: "b"}},
			Pagination: &harvest.Pagination{Page: 2, TotalPages: 5, TotalElements: 120},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:   srv.URL,
		APIKey:    "key-1",
		SessionID: "sess-1",
	}, zap.NewNop())

	sp, err := c.SearchPage(context.Background(), harvest.Query{
		CurrentCompanies: []string{"Acme", "Globex"},
	}, 2)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, sp.Status)
	require.Len(t, sp.Elements, 2)
	require.NotNil(t, sp.Pagination)
	require.Equal(t, 5, sp.Pagination.TotalPages)
}

func TestClient_SearchPagePassesThrough429(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, zap.NewNop())
	sp, err := c.SearchPage(context.Background(), harvest.Query{Search: "x"}, 1)
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, sp.Status)
}

func TestClient_SearchPagePassesThroughResourceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": ResourceExhaustedError + ", please retry later"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, zap.NewNop())
	sp, err := c.SearchPage(context.Background(), harvest.Query{Search: "x"}, 1)
	require.NoError(t, err)
	require.Contains(t, sp.Error, ResourceExhaustedError)
}

func TestClient_FetchProfile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/linkedin/profile", r.URL.Path)
		require.Equal(t, "https://www.linkedin.com/in/jdoe", r.URL.Query().Get("url"))
		require.Equal(t, "true", r.URL.Query().Get("findEmail"))

		_ = json.NewEncoder(w).Encode(harvest.EntityResult{
			Profile:  &harvest.Profile{ID: "prof-1", Email: "j@example.com"},
			Payments: []string{harvest.PaymentProfileWithEmail},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, zap.NewNop())
	out, err := c.FetchProfile(context.Background(), harvest.SearchHit{ID: "a", PublicIdentifier: "jdoe"}, true)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, out.Status)
	require.NotNil(t, out.Profile)
	require.Equal(t, "prof-1", out.Profile.ID)
	require.Contains(t, out.Payments, harvest.PaymentProfileWithEmail)
}

func TestClient_FetchProfileTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, FetchTimeout: 50 * time.Millisecond}, zap.NewNop())
	_, err := c.FetchProfile(context.Background(), harvest.SearchHit{ID: "a"}, false)
	require.Error(t, err)
}
