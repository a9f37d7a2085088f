package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts row permission evaluations and their outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowperm_permission_checks_total",
			Help: "Total number of row-level permission checks",
		},
		[]string{"kind", "result"},
	)

	// Grants counts grant operations by result (success|failure).
	Grants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowperm_grants_total",
			Help: "Total number of row permission grant operations",
		},
		[]string{"result"},
	)

	// FilterBuilds counts query filter generations by outcome (built|skipped|error).
	FilterBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowperm_filter_builds_total",
			Help: "Total number of row security query filter builds",
		},
		[]string{"outcome"},
	)

	// CacheEvents tracks look-aside cache activity (hit|miss|error).
	CacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowperm_cache_events_total",
			Help: "Look-aside permission cache events",
		},
		[]string{"event"},
	)
)
