// Package observability exposes prometheus metrics for the sync engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cycleCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trainsync",
		Subsystem: "sync",
		Name:      "cycles_total",
		Help:      "Number of completed sync cycles.",
	})

	stageErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainsync",
		Subsystem: "sync",
		Name:      "stage_errors_total",
		Help:      "Number of non-fatal stage failures grouped by stage.",
	}, []string{"stage"})

	mergedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainsync",
		Subsystem: "sync",
		Name:      "records_merged_total",
		Help:      "Number of remote records merged into the local store per collection.",
	}, []string{"collection"})

	uploadedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainsync",
		Subsystem: "sync",
		Name:      "records_uploaded_total",
		Help:      "Number of local records merge-written to the remote database per collection.",
	}, []string{"collection"})

	mediaCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainsync",
		Subsystem: "media",
		Name:      "uploads_total",
		Help:      "Number of media upload attempts by terminal outcome.",
	}, []string{"outcome"})

	lastCycleGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainsync",
		Subsystem: "sync",
		Name:      "last_cycle_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed cycle.",
	})
)

func init() {
	prometheus.MustRegister(cycleCounter, stageErrorCounter, mergedCounter,
		uploadedCounter, mediaCounter, lastCycleGauge)
}

// RecordCycle marks a completed sync cycle.
func RecordCycle(finished time.Time) {
	cycleCounter.Inc()
	lastCycleGauge.Set(float64(finished.Unix()))
}

// RecordStageError counts a non-fatal stage failure.
func RecordStageError(stage string) {
	stageErrorCounter.WithLabelValues(stage).Inc()
}

// RecordMerged counts remote records merged into the local store.
func RecordMerged(collection string, n int) {
	if n > 0 {
		mergedCounter.WithLabelValues(collection).Add(float64(n))
	}
}

// RecordUploaded counts a record merge-written to the remote database.
func RecordUploaded(collection string) {
	uploadedCounter.WithLabelValues(collection).Inc()
}

// RecordMediaOutcome counts a media upload attempt's terminal outcome.
func RecordMediaOutcome(outcome string) {
	mediaCounter.WithLabelValues(outcome).Inc()
}
