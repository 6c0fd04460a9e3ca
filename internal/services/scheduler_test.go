package services

import (
	"context"
	"testing"
	"time"

	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/internal/models"
)

func newTestScheduler(t *testing.T, cfg config.ReminderConfig) (*fixture, *ReminderScheduler) {
	t.Helper()
	f := newFixture(t)
	reminders := NewReminderService(f.db, f.queue, nil)
	return f, NewReminderScheduler(f.db, reminders, cfg)
}

func TestSchedulerClaim_OncePerMinute(t *testing.T) {
	_, s := newTestScheduler(t, config.ReminderConfig{})
	ctx := context.Background()
	tick := time.Date(2026, 5, 4, 12, 0, 5, 0, time.UTC)

	ok, err := s.claim(ctx, lockStartScan, tick)
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}

	ok, err = s.claim(ctx, lockStartScan, tick.Add(30*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("second claim in the same minute should fail")
	}

	if ok, _ := s.claim(ctx, lockFinishScan, tick); !ok {
		t.Error("a different job should claim the same minute")
	}
	if ok, _ := s.claim(ctx, lockStartScan, tick.Add(time.Minute)); !ok {
		t.Error("the next minute should be claimable")
	}
}

func TestSchedulerClaim_PrunesExpiredLocks(t *testing.T) {
	f, s := newTestScheduler(t, config.ReminderConfig{})
	ctx := context.Background()
	old := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	if ok, _ := s.claim(ctx, lockStartScan, old); !ok {
		t.Fatal("claim failed")
	}
	if ok, _ := s.claim(ctx, lockStartScan, old.Add(48*time.Hour)); !ok {
		t.Fatal("claim failed")
	}

	var count int64
	f.db.Model(&models.SchedulerLock{}).Count(&count)
	if count != 1 {
		t.Errorf("expired lock should be pruned, %d rows left", count)
	}
}

func TestScheduler_RunLockedRunsOnce(t *testing.T) {
	_, s := newTestScheduler(t, config.ReminderConfig{})
	fixed := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	runs := 0
	run := func(context.Context, time.Time) (*ScanResult, error) {
		runs++
		return &ScanResult{}, nil
	}
	s.runLocked(context.Background(), lockStartScan, run)
	s.runLocked(context.Background(), lockStartScan, run)

	if runs != 1 {
		t.Errorf("runs = %d, expected 1", runs)
	}
}

func TestScheduler_StopCancelsRunningScan(t *testing.T) {
	_, s := newTestScheduler(t, config.ReminderConfig{})

	started := make(chan struct{})
	done := make(chan struct{})
	run := func(ctx context.Context, _ time.Time) (*ScanResult, error) {
		close(started)
		<-ctx.Done()
		return &ScanResult{}, ctx.Err()
	}
	go func() {
		s.runLocked(s.ctx, lockFinishScan, run)
		close(done)
	}()

	<-started
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() should cancel the running scan")
	}
}

func TestSchedulerClaim_MixedOffsets(t *testing.T) {
	f, s := newTestScheduler(t, config.ReminderConfig{})
	ctx := context.Background()
	west := time.FixedZone("UTC-5", -5*60*60)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	if ok, _ := s.claim(ctx, lockStartScan, base); !ok {
		t.Fatal("claim failed")
	}
	// 30h later, seen from UTC-5: the first lock expired 6h earlier.
	if ok, _ := s.claim(ctx, lockStartScan, base.Add(30*time.Hour).In(west)); !ok {
		t.Fatal("claim failed")
	}

	var count int64
	f.db.Model(&models.SchedulerLock{}).Count(&count)
	if count != 1 {
		t.Errorf("expired lock should be pruned, %d rows left", count)
	}
}

func TestScheduler_StartValidatesCron(t *testing.T) {
	_, s := newTestScheduler(t, config.ReminderConfig{Enabled: true, StartCron: "not a cron", FinishCron: "0 * * * *"})
	if err := s.Start(); err == nil {
		s.Stop()
		t.Error("Start() should reject an invalid cron expression")
	}

	_, disabled := newTestScheduler(t, config.ReminderConfig{Enabled: false, StartCron: "not a cron"})
	if err := disabled.Start(); err != nil {
		t.Errorf("disabled scheduler should not parse cron, got %v", err)
	}
}
