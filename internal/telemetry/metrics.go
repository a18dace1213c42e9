// Package telemetry exposes Prometheus metrics for the rate service.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	quotesComputedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratesvc_quotes_computed_total",
		Help: "Total quotes successfully computed, by tenant",
	}, []string{"tenant"})

	quoteFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratesvc_quote_failures_total",
		Help: "Total pricing failures by kind (no_rule, conditions_not_met, rate_type, operator, operand, internal)",
	}, []string{"kind"})

	quoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ratesvc_quote_duration_seconds",
		Help:    "End-to-end quote computation latency",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	cardsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ratesvc_rate_cards_loaded",
		Help: "Number of rate cards currently loaded in the catalog",
	})

	cardReloadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratesvc_rate_card_reloads_total",
		Help: "Total catalog reloads from the database",
	})

	fuelPriceUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratesvc_fuel_price_updates_total",
		Help: "Total fuel price updates recorded, by tenant",
	}, []string{"tenant"})
)

func init() {
	// Register metrics eagerly. If no Prometheus endpoint is exposed, the registration is harmless.
	prometheus.MustRegister(
		quotesComputedTotal,
		quoteFailuresTotal,
		quoteDuration,
		cardsLoaded,
		cardReloadsTotal,
		fuelPriceUpdatesTotal,
	)
}

// QuoteComputed records a successful quote for a tenant.
func QuoteComputed(tenantID string, seconds float64) {
	quotesComputedTotal.WithLabelValues(tenantID).Inc()
	quoteDuration.Observe(seconds)
}

// QuoteFailed records a pricing failure by kind.
func QuoteFailed(kind string) {
	quoteFailuresTotal.WithLabelValues(kind).Inc()
}

// CardsLoaded sets the current catalog size.
func CardsLoaded(n int) {
	cardsLoaded.Set(float64(n))
}

// CardsReloaded increments the reload counter.
func CardsReloaded() {
	cardReloadsTotal.Inc()
}

// FuelPriceUpdated records a fuel price update for a tenant.
func FuelPriceUpdated(tenantID string) {
	fuelPriceUpdatesTotal.WithLabelValues(tenantID).Inc()
}
