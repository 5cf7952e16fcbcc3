package distributor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "baconpay_payments_sent_total",
		Help: "Number of reward payments successfully executed",
	})

	paymentsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "baconpay_payments_failed_total",
		Help: "Number of reward payments that failed at the client",
	})

	cyclesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "baconpay_cycles_processed_total",
		Help: "Number of reward cycles calculated and enqueued",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "baconpay_queue_depth",
		Help: "Payments currently waiting in the job queue",
	})
)
