// Package jobmgr runs named background jobs with cancellation and tracks
// which ones are running.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(log)
//	jm.Replace(ctx, "publish", func(ctx context.Context) error {
//	    return publish(ctx)
//	})
//
// Jobs run in their own goroutines and are removed on completion.
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Job is a running unit of work.
type Job struct {
	Name   string
	Cancel context.CancelFunc
	done   chan struct{}
}

// Manager is safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*Job
	log  zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{jobs: make(map[string]*Job), log: log}
}

// StartAsync runs runner in a new goroutine under a context derived from
// parent. It fails if a job with the same name is already running.
func (m *Manager) StartAsync(parent context.Context, name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[name]; exists {
		return fmt.Errorf("job '%s' is already running", name)
	}
	m.startLocked(parent, name, runner)
	return nil
}

// Replace cancels a running job of the same name, if any, and starts
// runner in its place.
func (m *Manager) Replace(parent context.Context, name string, runner func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.jobs[name]; ok {
		old.Cancel()
		m.log.Debug().Str("job", name).Msg("job superseded")
	}
	m.startLocked(parent, name, runner)
}

func (m *Manager) startLocked(parent context.Context, name string, runner func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(parent)
	job := &Job{Name: name, Cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = job

	go func() {
		defer close(job.done)
		defer cancel()
		m.log.Debug().Str("job", name).Msg("job running")

		if err := runner(ctx); err != nil {
			m.log.Warn().Err(err).Str("job", name).Msg("job failed")
		} else {
			m.log.Debug().Str("job", name).Msg("job done")
		}

		m.mu.Lock()
		if m.jobs[name] == job {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
}

// Stop cancels a running job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	job.Cancel()
	delete(m.jobs, name)
	return nil
}

// StopAll cancels every job and waits for them to return.
func (m *Manager) StopAll() {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.jobs))
	for name, j := range m.jobs {
		j.Cancel()
		jobs = append(jobs, j)
		delete(m.jobs, name)
	}
	m.mu.Unlock()
	for _, j := range jobs {
		<-j.done
	}
}

// Wait blocks until the named job, if running, returns.
func (m *Manager) Wait(name string) {
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()
	if ok {
		<-job.done
	}
}

// List returns the names of running jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
