// Package metrics exposes Prometheus collectors for the watcher.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	announcementsDiscoveredTotal prometheus.Counter
	itemsTotal                   *prometheus.CounterVec
	downloadRetriesTotal         prometheus.Counter
	qualityGateSkipsTotal        prometheus.Counter
	runsTotal                    prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		announcementsDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gosi_announcements_discovered_total",
				Help: "Total keyword-matching announcements found on the listing.",
			},
		)

		itemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosi_items_total",
				Help: "Total processed items, labeled by terminal status.",
			},
			[]string{"status"},
		)

		downloadRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gosi_download_retries_total",
				Help: "Total attachment download attempts beyond the first.",
			},
		)

		qualityGateSkipsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gosi_quality_gate_skips_total",
				Help: "Total items skipped because OCR text was too short.",
			},
		)

		runsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gosi_runs_total",
				Help: "Total completed scan runs.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDiscovered counts keyword-matching announcements in a sweep.
func ObserveDiscovered(n int) {
	if n > 0 {
		announcementsDiscoveredTotal.Add(float64(n))
	}
}

// ObserveItem increments the item counter for the given terminal status.
func ObserveItem(status string) {
	itemsTotal.WithLabelValues(status).Inc()
}

// ObserveDownloadRetry counts one extra download attempt.
func ObserveDownloadRetry() {
	downloadRetriesTotal.Inc()
}

// ObserveQualityGateSkip counts one OCR quality-gate skip.
func ObserveQualityGateSkip() {
	qualityGateSkipsTotal.Inc()
}

// ObserveRun counts one completed run.
func ObserveRun() {
	runsTotal.Inc()
}
