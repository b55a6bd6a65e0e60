// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOps counts document store operations by name.
	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zakupki_store_operations_total",
		Help: "Document store operations by operation name.",
	}, []string{"op"})

	// PersistErrors counts failed writes of the purchases blob.
	PersistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zakupki_store_persist_errors_total",
		Help: "Failed writes of the purchases blob.",
	})

	// CacheRequests counts asset cache lookups by outcome (hit, miss, network).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zakupki_assetcache_requests_total",
		Help: "Asset cache lookups by outcome.",
	}, []string{"outcome"})
)
