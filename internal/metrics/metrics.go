package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the streaming engine. Registered on the default
// registry; the API exposes them on /metrics.
var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nadasuara",
		Name:      "active_sessions",
		Help:      "Number of live streaming sessions.",
	})

	AudioChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nadasuara",
		Name:      "audio_chunks_total",
		Help:      "Total audio chunks received across all sessions.",
	})

	AudioBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nadasuara",
		Name:      "audio_bytes_total",
		Help:      "Total audio payload bytes received.",
	})

	RecognitionPassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nadasuara",
		Name:      "recognition_passes_total",
		Help:      "Recognition passes executed, by kind.",
	}, []string{"kind"})

	RecognitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nadasuara",
		Name:      "recognition_duration_seconds",
		Help:      "Wall-clock duration of recognition passes.",
		Buckets:   prometheus.DefBuckets,
	})

	SessionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nadasuara",
		Name:      "session_errors_total",
		Help:      "Recoverable session errors emitted to clients, by code.",
	}, []string{"code"})
)
