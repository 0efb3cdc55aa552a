// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvesterPagesTotal   *prometheus.CounterVec
	harvesterItemsTotal   *prometheus.CounterVec
	harvesterSkipsTotal   *prometheus.CounterVec
	harvesterChargesTotal *prometheus.CounterVec
	harvesterRunsTotal    *prometheus.CounterVec
	harvesterInFlight     prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		harvesterPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_total",
				Help: "Total number of search pages fetched, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		harvesterItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_items_total",
				Help: "Total number of items written to the sink, labeled by category.",
			},
			[]string{"category"},
		)

		harvesterSkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_skips_total",
				Help: "Total number of items skipped, labeled by reason.",
			},
			[]string{"reason"},
		)

		harvesterChargesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_charges_total",
				Help: "Total number of metered charge events, labeled by event name.",
			},
			[]string{"event"},
		)

		harvesterRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_runs_total",
				Help: "Total number of runs finished, labeled by terminal status.",
			},
			[]string{"status"},
		)

		harvesterInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_items_in_flight",
				Help: "Number of items currently being enriched.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page counter for the given outcome.
func ObservePage(outcome string) {
	harvesterPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveItem increments the item counter for the given billing category.
func ObserveItem(category string) {
	if category == "" {
		category = "short"
	}
	harvesterItemsTotal.WithLabelValues(category).Inc()
}

// ObserveSkip increments the skip counter for the given reason.
func ObserveSkip(reason string) {
	harvesterSkipsTotal.WithLabelValues(reason).Inc()
}

// ObserveCharge increments the charge counter for the given event.
func ObserveCharge(event string) {
	harvesterChargesTotal.WithLabelValues(event).Inc()
}

// ObserveRun increments the run counter for the given terminal status.
func ObserveRun(status string) {
	harvesterRunsTotal.WithLabelValues(status).Inc()
}

// IncInFlight increments the in-flight enrichment gauge.
func IncInFlight() {
	harvesterInFlight.Inc()
}

// DecInFlight decrements the in-flight enrichment gauge.
func DecInFlight() {
	harvesterInFlight.Dec()
}
