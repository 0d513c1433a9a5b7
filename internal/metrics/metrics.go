// Package metrics records per-repository mirror results as prometheus
// metrics. A run is one-shot, so instead of serving them the collected
// values are written out in the node-exporter textfile format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ghmirror"

// Recorder holds the metrics of one run. A nil *Recorder records nothing.
//
// Available metrics are...
//   - ghmirror_sync_total - (tags: repo,success)
//     A Counter incremented with each sync attempt and tagged with the result.
//   - ghmirror_sync_duration_seconds - (tags: repo)
//     A Histogram of the time taken to sync each repository.
//   - ghmirror_last_sync_timestamp - (tags: repo)
//     A Gauge with the timestamp of the last successful sync per repo.
//   - ghmirror_stage_failures_total - (tags: stage)
//     A Counter of failed syncs by the stage they failed in.
type Recorder struct {
	registry *prometheus.Registry

	syncCount     *prometheus.CounterVec
	syncLatency   *prometheus.HistogramVec
	lastSync      *prometheus.GaugeVec
	stageFailures *prometheus.CounterVec
}

// New returns a Recorder registered on its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		syncCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Count of repository sync attempts",
		},
			[]string{
				// name of the repository
				"repo",
				// whether the sync was successful or not
				"success",
			},
		),
		syncLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Time taken to sync a repository",
			Buckets:   []float64{0.5, 1, 5, 10, 20, 30, 60, 90, 120, 150, 300},
		},
			[]string{"repo"},
		),
		lastSync: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp",
			Help:      "Timestamp of the last successful repository sync",
		},
			[]string{"repo"},
		),
		stageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Count of failed repository syncs by stage",
		},
			[]string{"stage"},
		),
	}
}

// RecordSync records the outcome of one repository sync. failedStage is
// ignored when success is true.
func (r *Recorder) RecordSync(repo string, success bool, failedStage string, took time.Duration) {
	if r == nil {
		return
	}
	if success {
		r.lastSync.WithLabelValues(repo).Set(float64(time.Now().Unix()))
	} else {
		r.stageFailures.WithLabelValues(failedStage).Inc()
	}
	r.syncCount.With(prometheus.Labels{
		"repo":    repo,
		"success": strconv.FormatBool(success),
	}).Inc()
	r.syncLatency.WithLabelValues(repo).Observe(took.Seconds())
}

// WriteTextfile writes the current values to path. The file is written
// atomically so a collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
