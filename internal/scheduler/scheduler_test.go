package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codr1/Padelicious/internal/lifecycle"
	"github.com/codr1/Padelicious/internal/testutil"
)

func newTestScheduler(t *testing.T) *Service {
	t.Helper()
	clk, _ := testutil.NewClock(t)
	s, err := New(clk, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestNewRequiresClock(t *testing.T) {
	if _, err := New(nil, time.Second); err == nil {
		t.Fatal("expected error without clock")
	}
}

func TestAddJobValidation(t *testing.T) {
	s := newTestScheduler(t)
	noop := func(context.Context) error { return nil }

	if _, err := s.AddJob("", "0 * * * *", noop); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := s.AddJob("job", " ", noop); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := s.AddJob("job", "not a cron", noop); err == nil {
		t.Fatal("expected error for invalid cron")
	}
	if _, err := s.AddJob("job", "0 * * * *", noop); err != nil {
		t.Fatalf("AddJob after failed attempt: %v", err)
	}
	if _, err := s.AddJob("job", "0 * * * *", noop); !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestRunCountsOutcomes(t *testing.T) {
	s := newTestScheduler(t)
	counters := &jobCounters{cron: "0 * * * *"}
	s.jobs["sweep"] = counters

	var sawDeadline bool
	if err := s.run("sweep", counters, func(ctx context.Context) error {
		_, sawDeadline = ctx.Deadline()
		return nil
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !sawDeadline {
		t.Fatal("task context should carry the job timeout")
	}

	boom := errors.New("boom")
	if err := s.run("sweep", counters, func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("run error = %v, want boom", err)
	}

	stats := s.Stats()
	if len(stats) != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	got := stats[0]
	if got.Name != "sweep" || got.Successes != 1 || got.Failures != 1 || got.LastError != "boom" {
		t.Fatalf("stats = %+v", got)
	}
	if got.LastRun.IsZero() {
		t.Fatal("LastRun should be set")
	}

	if err := s.run("sweep", counters, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := s.Stats()[0]; got.LastError != "" || got.Successes != 2 {
		t.Fatalf("stats after recovery = %+v", got)
	}
}

func TestRegisterLifecycleJobs(t *testing.T) {
	s := newTestScheduler(t)
	database := testutil.NewTestDB(t)
	clk, _ := testutil.NewClock(t)
	sweeper, err := lifecycle.NewSweeper(database, clk, &testutil.RecordingNotifier{})
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}

	crons := LifecycleCrons{Completion: "0 * * * *", Archival: "0 0 * * *", Reminders: "0 9 * * *"}
	if err := RegisterLifecycleJobs(s, sweeper, crons); err != nil {
		t.Fatalf("RegisterLifecycleJobs: %v", err)
	}

	stats := s.Stats()
	want := []string{JobArchiveUnconfirmed, JobCompleteFinished, JobSendReminders}
	if len(stats) != len(want) {
		t.Fatalf("stats = %+v", stats)
	}
	for i, name := range want {
		if stats[i].Name != name {
			t.Fatalf("job %d = %s, want %s", i, stats[i].Name, name)
		}
	}

	if err := RegisterLifecycleJobs(s, sweeper, crons); !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("second registration should fail with ErrDuplicateJob, got %v", err)
	}
	if err := RegisterLifecycleJobs(s, nil, crons); err == nil {
		t.Fatal("expected error without sweeper")
	}
}
