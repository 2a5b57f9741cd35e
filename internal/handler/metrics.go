package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poster_renders_total",
			Help: "Total number of render requests by source and status.",
		},
		[]string{"source", "status"},
	)

	updatesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poster_updates_published_total",
			Help: "Total number of design updates published by delivery outcome.",
		},
		[]string{"delivered"},
	)

	sseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poster_sse_connections_active",
		Help: "Number of currently open SSE streams.",
	})
)
