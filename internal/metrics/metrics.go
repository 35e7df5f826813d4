// Package metrics exposes Prometheus instrumentation for the chat server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tavi",
		Name:      "sessions_started_total",
		Help:      "Chat sessions created.",
	})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tavi",
		Name:      "sessions_active",
		Help:      "Currently connected chat sessions.",
	})

	TurnsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tavi",
		Name:      "turns_emitted_total",
		Help:      "Conversation turns pushed to clients.",
	})

	IntentsInterpreted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tavi",
		Name:      "intents_interpreted_total",
		Help:      "Interpreted utterances by resulting intent.",
	}, []string{"intent"})

	TransfersSettled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tavi",
		Name:      "transfers_settled_total",
		Help:      "Transfers that completed settlement.",
	})

	TransferAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tavi",
		Name:      "transfer_amount_mxn",
		Help:      "Settled transfer amounts in MXN.",
		Buckets:   []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000},
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
