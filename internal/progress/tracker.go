// Package progress keeps track of how far a mirror run has got: which stage
// each repository is in, how many have finished and roughly how long the
// rest will take.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status of a tracked repository
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	rateHistorySize = 10 // Keep last 10 rate measurements for averaging
)

// Operation is the progress of one repository.
type Operation struct {
	Name      string
	Stage     string
	Status    Status
	StartTime time.Time
	EndTime   time.Time
	Err       error
}

// Summary is a point-in-time view of a run.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	Elapsed   time.Duration
}

// Pending is the number of repositories not yet finished.
func (s Summary) Pending() int {
	return s.Total - s.Completed - s.Failed
}

// RunTracker tracks every repository of a run. It is safe for concurrent
// use by the sync tasks.
type RunTracker struct {
	mu  sync.Mutex
	log logrus.FieldLogger

	total     int
	startTime time.Time
	ops       map[string]*Operation
	order     []string
	completed int
	failed    int

	lastUpdate   time.Time
	lastDone     int
	rateHistory  []float64
	progressRate float64 // repositories per second
	estimatedETA time.Time
}

// NewRunTracker creates a tracker for a run of total repositories.
func NewRunTracker(total int, log logrus.FieldLogger) *RunTracker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := time.Now()
	return &RunTracker{
		log:         log,
		total:       total,
		startTime:   now,
		lastUpdate:  now,
		ops:         make(map[string]*Operation, total),
		rateHistory: make([]float64, 0, rateHistorySize),
	}
}

// Start begins tracking name.
func (t *RunTracker) Start(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.ops[name]; !ok {
		t.order = append(t.order, name)
	}
	t.ops[name] = &Operation{
		Name:      name,
		Status:    StatusInProgress,
		StartTime: time.Now(),
	}
}

// Stage records that name has reached stage.
func (t *RunTracker) Stage(name, stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if op, ok := t.ops[name]; ok && op.Status == StatusInProgress {
		op.Stage = stage
	}
}

// Complete marks name as mirrored.
func (t *RunTracker) Complete(name string) {
	t.finish(name, StatusCompleted, nil)
}

// Error marks name as failed with err.
func (t *RunTracker) Error(name string, err error) {
	t.finish(name, StatusFailed, err)
}

func (t *RunTracker) finish(name string, status Status, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[name]
	if !ok || op.Status != StatusInProgress {
		return
	}
	op.Status = status
	op.Err = err
	op.EndTime = time.Now()
	if status == StatusCompleted {
		t.completed++
	} else {
		t.failed++
	}
	t.update(op.EndTime)
}

// update recalculates the completion rate and ETA. Callers hold t.mu.
func (t *RunTracker) update(now time.Time) {
	done := t.completed + t.failed

	timeDiff := now.Sub(t.lastUpdate).Seconds()
	if timeDiff > 0 {
		currentRate := float64(done-t.lastDone) / timeDiff

		if len(t.rateHistory) >= rateHistorySize {
			t.rateHistory = t.rateHistory[1:]
		}
		t.rateHistory = append(t.rateHistory, currentRate)

		var totalRate float64
		for _, rate := range t.rateHistory {
			totalRate += rate
		}
		t.progressRate = totalRate / float64(len(t.rateHistory))

		if t.progressRate > 0 {
			remainingSeconds := float64(t.total-done) / t.progressRate
			t.estimatedETA = now.Add(time.Duration(remainingSeconds * float64(time.Second)))
		}
	}
	t.lastUpdate = now
	t.lastDone = done

	t.log.Debugf("Progress: %d/%d (%.2f repos/sec, ETA: %s)", done, t.total, t.progressRate, t.etaString())
}

func (t *RunTracker) etaString() string {
	if t.estimatedETA.IsZero() {
		return "calculating..."
	}
	remaining := time.Until(t.estimatedETA).Round(time.Second)
	if remaining <= 0 {
		return "almost done"
	}
	return remaining.String()
}

// Summary returns the current counts.
func (t *RunTracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Summary{
		Total:     t.total,
		Completed: t.completed,
		Failed:    t.failed,
		Elapsed:   time.Since(t.startTime),
	}
}

// Operations returns a copy of every tracked repository in start order.
func (t *RunTracker) Operations() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()

	ops := make([]Operation, 0, len(t.order))
	for _, name := range t.order {
		ops = append(ops, *t.ops[name])
	}
	return ops
}

// Get returns the progress of name.
func (t *RunTracker) Get(name string) (Operation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[name]
	if !ok {
		return Operation{}, false
	}
	return *op, true
}

// Report writes a one-line summary of the run to w.
func (t *RunTracker) Report(w io.Writer) {
	s := t.Summary()
	fmt.Fprintf(w, "Mirrored %d of %d repositories (%d failed) in %v\n",
		s.Completed, s.Total, s.Failed, s.Elapsed.Round(time.Millisecond))
}
