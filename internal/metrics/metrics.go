// Package metrics exposes Prometheus collectors for cryptanalysis searches and
// the RPC surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// searchRuns counts finished searches by engine and mode
	searchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptbreak_search_runs_total",
		Help: "Total searches by engine and mode",
	}, []string{"engine", "mode"})

	// searchIterations counts candidate keys scored
	searchIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptbreak_search_iterations_total",
		Help: "Total candidate keys scored by engine",
	}, []string{"engine"})

	// acceptedMoves counts moves the search kept
	acceptedMoves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptbreak_search_accepted_moves_total",
		Help: "Total accepted moves by engine",
	}, []string{"engine"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptbreak_search_duration_seconds",
		Help:    "Search wall time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
	}, []string{"engine"})

	// bestScore holds the score of the most recent search result
	bestScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cryptbreak_best_score",
		Help: "Quadgram score of the latest search result",
	}, []string{"engine"})

	rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptbreak_rpc_requests_total",
		Help: "Total RPC requests by method and status code",
	}, []string{"method", "code"})
)

// Search summarizes one finished search.
type Search struct {
	Engine    string
	Mode      string
	Evaluated int64
	Accepted  int64
	Duration  time.Duration
	Score     float64
}

// ObserveSearch records a finished search.
func ObserveSearch(s Search) {
	searchRuns.WithLabelValues(s.Engine, s.Mode).Inc()
	searchIterations.WithLabelValues(s.Engine).Add(float64(s.Evaluated))
	acceptedMoves.WithLabelValues(s.Engine).Add(float64(s.Accepted))
	searchDuration.WithLabelValues(s.Engine).Observe(s.Duration.Seconds())
	bestScore.WithLabelValues(s.Engine).Set(s.Score)
}

// ObserveRPC records a completed RPC.
func ObserveRPC(method, code string) {
	rpcRequests.WithLabelValues(method, code).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
