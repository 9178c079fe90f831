package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_history_cache_lookups_total",
		Help: "Detail cache lookups during enrichment by kind and result",
	}, []string{"kind", "result"})

	detailFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_history_detail_fetch_failures_total",
		Help: "Product or area fetches that failed and were left unresolved",
	}, []string{"kind"})

	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_history_refreshes_total",
		Help: "Order list refresh requests by outcome",
	}, []string{"outcome"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_history_sessions_active",
		Help: "History sessions currently held in memory",
	})
)
