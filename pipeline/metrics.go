package pipeline

import "github.com/prometheus/client_golang/prometheus"

const (
	resultOK          = "ok"
	resultInvokeError = "invoke_error"
)

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinyml",
			Subsystem: "inference",
			Name:      "cycles_total",
			Help:      "Total number of inference cycles by result",
		},
		[]string{"result"},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tinyml",
			Subsystem: "inference",
			Name:      "duration_seconds",
			Help:      "Duration of one inference cycle in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
		},
	)

	lastLabel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tinyml",
			Subsystem: "inference",
			Name:      "last_label",
			Help:      "Class predicted by the most recent successful cycle",
		},
	)

	lastConfidence = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tinyml",
			Subsystem: "inference",
			Name:      "last_confidence",
			Help:      "Score of the predicted class in the most recent successful cycle",
		},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal, cycleDuration, lastLabel, lastConfidence)
}
