package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/bissquit/post-scheduler/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultStatsInterval is how often post state gauges are refreshed.
const DefaultStatsInterval = 15 * time.Second

var (
	triggerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "delivery",
			Name:      "trigger_runs_total",
			Help:      "Total trigger-check runs by result",
		},
		[]string{"result"},
	)

	postsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "delivery",
			Name:      "posts_sent_total",
			Help:      "Total posts transitioned to sent",
		},
	)

	postsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "delivery",
			Name:      "posts",
			Help:      "Number of posts by delivery state",
		},
		[]string{"state"},
	)
)

func recordTriggerRun(result string) {
	triggerRuns.WithLabelValues(result).Inc()
}

func recordPostSent() {
	postsSent.Inc()
}

// RecordStats refreshes the post state gauges once.
func RecordStats(ctx context.Context, source StatsSource, now time.Time) error {
	stats, err := source.Stats(ctx, now)
	if err != nil {
		return err
	}

	postsByState.WithLabelValues("pending").Set(float64(stats.Pending))
	postsByState.WithLabelValues("due").Set(float64(stats.Due))
	postsByState.WithLabelValues("sent").Set(float64(stats.Sent))
	return nil
}

// CollectStats refreshes the post state gauges every interval until ctx is done.
func CollectStats(ctx context.Context, source StatsSource, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := RecordStats(ctx, source, time.Now()); err != nil {
				slog.Error("failed to collect post stats", "error", err)
			}
		}
	}
}
