package recommend

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reco_pipeline_runs_total",
			Help: "Count of recommendation pipeline runs by trigger and status.",
		},
		[]string{"trigger", "status"},
	)

	StageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reco_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	RecommendationsPersistedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reco_records_persisted_total",
			Help: "Total recommendation records written.",
		},
	)

	CandidatesFilteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reco_candidates_filtered_total",
			Help: "Candidates dropped during ranking by filter.",
		},
		[]string{"filter"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reco_notifications_total",
			Help: "Notification dispatch outcomes by channel and status.",
		},
		[]string{"channel", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		PipelineRunsTotal,
		StageDurationSeconds,
		RecommendationsPersistedTotal,
		CandidatesFilteredTotal,
		NotificationsTotal,
	)
}
