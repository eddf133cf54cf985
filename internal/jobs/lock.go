// Package jobs runs the long-lived maintenance operations (sync,
// deduplicate, reprocess) behind a single-process job lock so only one
// runs at a time.
package jobs

import (
	"fmt"
	"sync"
	"time"
)

// ConflictError is returned when a job cannot start because another one
// holds the lock. It names the running job so callers can report it.
type ConflictError struct {
	Running   string
	StartedAt time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("job %q already running since %s", e.Running, e.StartedAt.UTC().Format(time.RFC3339))
}

// Lock is a try-only mutual exclusion guard for jobs. Acquire never
// blocks: a second caller gets a ConflictError immediately.
type Lock struct {
	mu        sync.Mutex
	running   bool
	jobName   string
	startedAt time.Time
}

func NewLock() *Lock {
	return &Lock{}
}

// TryAcquire claims the lock for the named job, failing fast when one is
// already running. The returned release function is safe to defer.
func (l *Lock) TryAcquire(jobName string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil, &ConflictError{Running: l.jobName, StartedAt: l.startedAt}
	}

	l.running = true
	l.jobName = jobName
	l.startedAt = time.Now()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.running = false
		l.jobName = ""
	}, nil
}

// Status reports the currently running job, if any
func (l *Lock) Status() (jobName string, running bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jobName, l.running
}
