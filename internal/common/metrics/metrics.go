// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VoiceCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_commands_total",
			Help: "Total number of transcripts processed, by intent and outcome",
		},
		[]string{"intent", "success"},
	)

	VoiceCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice_command_duration_seconds",
			Help:    "Duration of transcript processing in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"intent"},
	)

	PipelineStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_total",
			Help: "Total number of pipeline stage runs, by stage and status",
		},
		[]string{"stage", "status"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"stage"},
	)

	SpeechSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "speech_sessions_active",
			Help: "Number of open speech capture sessions",
		},
	)

	SearchCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_requests_total",
			Help: "Search cache lookups, by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	WorkEntryPersistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "work_entry_persist_total",
			Help: "Work entry submissions and backups, by target and status",
		},
		[]string{"target", "status"},
	)
)
