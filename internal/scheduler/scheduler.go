// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the storefront's periodic maintenance jobs, such as
// re-warming the shared category cache.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the work of one job run.
type JobFunc func(ctx context.Context) error

// job holds a registered cron job.
type job struct {
	name     string
	schedule string
	entryID  cron.EntryID
	fn       JobFunc
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name     string
	Schedule string
	LastRun  time.Time
	NextRun  time.Time
}

// Scheduler runs named jobs on cron schedules. Runs of the same job never
// overlap, and a panicking job is recovered and logged.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.RWMutex
	jobs map[string]*job
}

// New creates a scheduler. Each run gets a context bounded by timeout.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]*job),
	}
}

// Add registers fn under name on a standard five-field cron expression or a
// descriptor such as "@every 10m".
func (s *Scheduler) Add(name, schedule string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	j := &job{name: name, schedule: schedule, fn: fn}
	id, err := s.cron.AddFunc(schedule, func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", schedule, name, err)
	}
	j.entryID = id
	s.jobs[name] = j
	return nil
}

// Trigger runs a registered job now, outside its schedule, and returns its error.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return j.fn(ctx)
}

func (s *Scheduler) run(j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := j.fn(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", j.name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("scheduled job finished", "job", j.name, "duration", time.Since(start))
}

// Jobs returns the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		entry := s.cron.Entry(j.entryID)
		infos = append(infos, JobInfo{
			Name:     j.name,
			Schedule: j.schedule,
			LastRun:  entry.Prev,
			NextRun:  entry.Next,
		})
	}
	sort.Slice(infos, func(i, k int) bool { return infos[i].Name < infos[k].Name })
	return infos
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out, jobs still running")
	}
}
