package monitoring

import (
	"sort"
	"sync"
	"time"
)

// JobSummary describes the recent history of one background job.
type JobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	TotalRuns           uint64        `json:"total_runs"`
}

// JobTracker keeps the latest run outcome of each scheduled job.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobSummary
	now  func() time.Time
}

// NewJobTracker constructs an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]*JobSummary), now: time.Now}
}

// Record stores the outcome of a job run finished now.
func (t *JobTracker) Record(job string, err error, duration time.Duration) {
	if t == nil || job == "" {
		return
	}
	now := t.now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.jobs[job]
	if !ok {
		entry = &JobSummary{Job: job}
		t.jobs[job] = entry
	}

	entry.TotalRuns++
	entry.LastRunAt = now
	entry.LastDuration = duration
	if err != nil {
		entry.LastStatus = "failure"
		entry.LastError = err.Error()
		entry.ConsecutiveFailures++
		return
	}
	entry.LastStatus = "success"
	entry.LastError = ""
	entry.LastSuccessAt = now
	entry.ConsecutiveFailures = 0
}

// Snapshot returns a copy of every tracked job ordered by name.
func (t *JobTracker) Snapshot() []JobSummary {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]JobSummary, 0, len(t.jobs))
	for _, entry := range t.jobs {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

var defaultJobs = NewJobTracker()

// DefaultJobs returns the process-wide tracker used by the maintenance scheduler.
func DefaultJobs() *JobTracker {
	return defaultJobs
}
