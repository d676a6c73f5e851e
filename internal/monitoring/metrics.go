// Package monitoring exposes Prometheus metrics for batch backtest runs so
// scheduled sweeps can be scraped like any other job.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	symbolsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_symbols_processed_total",
			Help: "Symbols whose bar series completed simulation",
		},
		[]string{"status"},
	)

	tradesBooked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_trades_booked_total",
			Help: "Trades booked during simulation",
		},
		[]string{"symbol", "strategy", "reason"},
	)

	strategyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_strategy_errors_total",
			Help: "Non-fatal strategy evaluation errors",
		},
		[]string{"strategy"},
	)

	runDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtest_run_duration_seconds",
			Help: "Wall-clock duration of the last completed run",
		},
	)
)

func init() {
	prometheus.MustRegister(symbolsProcessed)
	prometheus.MustRegister(tradesBooked)
	prometheus.MustRegister(strategyErrors)
	prometheus.MustRegister(runDuration)
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSymbol counts a finished symbol with its completion status.
func RecordSymbol(status string) {
	symbolsProcessed.WithLabelValues(status).Inc()
}

// RecordTrade counts a booked trade.
func RecordTrade(symbol, strategy, reason string) {
	tradesBooked.WithLabelValues(symbol, strategy, reason).Inc()
}

// RecordStrategyError counts a non-fatal strategy failure.
func RecordStrategyError(strategy string) {
	strategyErrors.WithLabelValues(strategy).Inc()
}

// SetRunDuration records the wall-clock time of the last run.
func SetRunDuration(seconds float64) {
	runDuration.Set(seconds)
}
