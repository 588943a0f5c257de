package broker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomlink",
		Subsystem: "broker",
		Name:      "tokens_total",
		Help:      "Issued access tokens by endpoint.",
	}, []string{"endpoint"})
	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomlink",
		Subsystem: "broker",
		Name:      "rejected_total",
		Help:      "Rejected token requests by reason.",
	}, []string{"reason"})
)
