package worker

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "novel_game_session"

var (
	streamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novel_game_streams_total",
			Help: "Total number of text streams, partitioned by outcome.",
		},
		[]string{"status"}, // success, error, abandoned
	)
	streamFragments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "novel_game_stream_fragments_total",
			Help: "Total number of stream fragments handed to the game loop.",
		},
	)
	gateWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "novel_game_gate_wait_seconds",
			Help:    "Time spent waiting for the per-service exclusive gate.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"gate"},
	)
	imageAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novel_game_image_attempts_total",
			Help: "Total number of image generation attempts, partitioned by outcome.",
		},
		[]string{"status"}, // success, error
	)
	imageJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novel_game_image_jobs_total",
			Help: "Total number of image jobs, partitioned by outcome.",
		},
		[]string{"status"}, // success, exhausted, cancelled
	)
	imageJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "novel_game_image_job_duration_seconds",
		Help:    "Duration of image jobs including retries.",
		Buckets: prometheus.LinearBuckets(2, 4, 15), // 2s, 6s, ..., 58s
	})
)

// PushMetrics отправляет все метрики процесса в Pushgateway
// с группировкой по идентификатору сессии.
func PushMetrics(ctx context.Context, pushgatewayURL, sessionID string) error {
	if pushgatewayURL == "" {
		return nil
	}
	err := push.New(pushgatewayURL, jobName).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("session_id", sessionID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", pushgatewayURL, err)
	}
	return nil
}
