package cron

import (
	"context"
	"sync"
	"time"
)

// Report carries the row counts a job touched, keyed by kind
// (e.g. "deleted", "scanned"). It feeds logs and the rows metric.
type Report map[string]int64

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) (Report, error)
}

type entry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry holds jobs with their own cadence. The worker ticks at the
// service interval; a job only runs when its cadence has elapsed.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds job to run at most once per every. A non-positive every
// runs the job on each tick.
func (r *Registry) Register(job Job, every time.Duration) {
	if job == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &entry{job: job, every: every})
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]Job, len(r.entries))
	for i, e := range r.entries {
		jobs[i] = e.job
	}
	return jobs
}

// Due returns the jobs whose cadence has elapsed at now, in registration
// order. A job that never succeeded is always due.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, e := range r.entries {
		if e.lastRun.IsZero() || e.every <= 0 || !now.Before(e.lastRun.Add(e.every)) {
			due = append(due, e.job)
		}
	}
	return due
}

// MarkRan records a successful run so the job waits a full cadence.
func (r *Registry) MarkRan(job Job, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.job == job {
			e.lastRun = at
			return
		}
	}
}
