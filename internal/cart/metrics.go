package cart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	corruptCartsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cart_corrupt_discarded_total",
		Help: "Persisted carts discarded because they could not be decoded",
	})

	checkoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_checkouts_total",
		Help: "Checkout attempts by outcome",
	}, []string{"outcome"})
)
