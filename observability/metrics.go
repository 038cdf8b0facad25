package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BookMetrics aggregates the counters exported by the book engine's node.
type BookMetrics struct {
	MatchesCreated     prometheus.Counter
	BetsPlaced         prometheus.Counter
	WagersSettled      *prometheus.CounterVec
	SettlementFailures prometheus.Counter
	MatchesClosed      prometheus.Counter
}

var (
	bookMetricsOnce sync.Once
	bookRegistry    *BookMetrics
)

// Book returns the lazily-initialised metrics registry used to record engine
// activity. Collectors are registered with the default Prometheus registry on
// first use.
func Book() *BookMetrics {
	bookMetricsOnce.Do(func() {
		bookRegistry = &BookMetrics{
			MatchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "oddsbook",
				Subsystem: "book",
				Name:      "matches_created_total",
				Help:      "Total matches registered by bookmakers.",
			}),
			BetsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "oddsbook",
				Subsystem: "book",
				Name:      "bets_placed_total",
				Help:      "Total wagers accepted with both reservations held.",
			}),
			WagersSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "oddsbook",
				Subsystem: "book",
				Name:      "wagers_settled_total",
				Help:      "Total wagers settled, segmented by winning side.",
			}, []string{"winner"}),
			SettlementFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "oddsbook",
				Subsystem: "book",
				Name:      "settlement_failures_total",
				Help:      "Total wagers recorded as settlement-failed.",
			}),
			MatchesClosed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "oddsbook",
				Subsystem: "book",
				Name:      "matches_closed_total",
				Help:      "Total matches with every wager settled.",
			}),
		}
		prometheus.MustRegister(
			bookRegistry.MatchesCreated,
			bookRegistry.BetsPlaced,
			bookRegistry.WagersSettled,
			bookRegistry.SettlementFailures,
			bookRegistry.MatchesClosed,
		)
	})
	return bookRegistry
}
