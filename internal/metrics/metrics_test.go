package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	ObservePage("accounted")
	ObserveItem("")
	ObserveItem("full-profile")
	ObserveSkip("dedup")
	ObserveCharge("search-page")
	ObserveRun("success")
	IncInFlight()
	DecInFlight()
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObservePage("accounted")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "harvester_pages_total")
}
