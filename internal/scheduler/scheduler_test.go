// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestAdd(t *testing.T) {
	s := New(slog.Default(), time.Second)
	noop := func(context.Context) error { return nil }

	if err := s.Add("warm-categories", "@every 10m", noop); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add("warm-categories", "@every 1m", noop); err == nil {
		t.Error("Add() accepted a duplicate name")
	}
	if err := s.Add("broken", "not a schedule", noop); err == nil {
		t.Error("Add() accepted an invalid schedule")
	}
	if err := s.Add("nightly", "0 3 * * *", noop); err != nil {
		t.Errorf("Add() standard expression error = %v", err)
	}

	jobs := s.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("Jobs() = %d jobs, want 2", len(jobs))
	}
	if jobs[0].Name != "nightly" || jobs[1].Name != "warm-categories" {
		t.Errorf("Jobs() order = %q, %q", jobs[0].Name, jobs[1].Name)
	}
	if jobs[1].Schedule != "@every 10m" {
		t.Errorf("Schedule = %q", jobs[1].Schedule)
	}
}

func TestTrigger(t *testing.T) {
	s := New(nil, time.Second)

	var calls atomic.Int32
	wantErr := errors.New("backend down")
	_ = s.Add("warm", "@every 1h", func(ctx context.Context) error {
		calls.Add(1)
		if _, ok := ctx.Deadline(); !ok {
			t.Error("job context has no deadline")
		}
		return wantErr
	})

	if err := s.Trigger(context.Background(), "warm"); !errors.Is(err, wantErr) {
		t.Errorf("Trigger() error = %v, want %v", err, wantErr)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if err := s.Trigger(context.Background(), "missing"); err == nil {
		t.Error("Trigger() on unknown job succeeded")
	}
}

func TestStartRunsJobsAndStop(t *testing.T) {
	s := New(slog.Default(), time.Second)

	ran := make(chan struct{}, 1)
	_ = s.Add("tick", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Error("job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	if next := s.Jobs()[0].NextRun; next.IsZero() {
		t.Error("NextRun is zero after start")
	}
}

func TestRunRecoversPanics(t *testing.T) {
	s := New(slog.Default(), time.Second)
	_ = s.Add("boom", "@every 1s", func(context.Context) error { panic("boom") })

	s.Start()
	time.Sleep(1200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
