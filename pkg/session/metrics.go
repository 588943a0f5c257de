package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	joinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomlink",
		Subsystem: "session",
		Name:      "joins_total",
		Help:      "Join attempts by outcome.",
	}, []string{"result"})
	phaseGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roomlink",
		Subsystem: "session",
		Name:      "phase",
		Help:      "Current session phase (0 idle, 1 requesting, 2 connected, 3 failed).",
	})
	requestSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "roomlink",
		Subsystem: "session",
		Name:      "credential_request_seconds",
		Help:      "Duration of credential requests to the session broker.",
		Buckets:   prometheus.DefBuckets,
	})
)
