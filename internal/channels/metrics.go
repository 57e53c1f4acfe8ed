package channels

import (
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
	"github.com/bissquit/post-scheduler/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "channels",
			Name:      "dispatch_total",
			Help:      "Total publish attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "channels",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent in a channel publish call",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)
)

func recordDispatch(channel domain.Channel, result string) {
	dispatchTotal.WithLabelValues(string(channel), result).Inc()
}

func recordDispatchDuration(channel domain.Channel, duration time.Duration) {
	dispatchDuration.WithLabelValues(string(channel)).Observe(duration.Seconds())
}
