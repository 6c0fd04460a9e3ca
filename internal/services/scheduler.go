package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	lockStartScan  = "reminder_start"
	lockFinishScan = "reminder_finish"
	lockRetention  = 24 * time.Hour
)

// ReminderScheduler runs the reminder scans on cron schedules. A tick is
// claimed through a scheduler_locks row keyed by the minute, so only one
// replica scans a given tick.
type ReminderScheduler struct {
	db        *gorm.DB
	reminders *ReminderService
	cfg       config.ReminderConfig
	cron      *cron.Cron
	owner     string
	now       func() time.Time

	// ctx is cancelled by Stop so a running scan halts between cards.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewReminderScheduler(db *gorm.DB, reminders *ReminderService, cfg config.ReminderConfig) *ReminderScheduler {
	host, _ := os.Hostname()
	ctx, cancel := context.WithCancel(context.Background())
	return &ReminderScheduler{
		db:        db,
		reminders: reminders,
		cfg:       cfg,
		cron:      cron.New(),
		owner:     fmt.Sprintf("%s-%d", host, os.Getpid()),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers both scans and starts the cron loop.
func (s *ReminderScheduler) Start() error {
	if !s.cfg.Enabled {
		logger.Infof("[Scheduler] Reminder scans disabled")
		return nil
	}

	jobs := []struct {
		name string
		expr string
		run  func(context.Context, time.Time) (*ScanResult, error)
	}{
		{lockStartScan, s.cfg.StartCron, s.reminders.RunStartScan},
		{lockFinishScan, s.cfg.FinishCron, s.reminders.RunFinishScan},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.expr, func() {
			s.runLocked(s.ctx, job.name, job.run)
		}); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.expr, err)
		}
		logger.Infof("[Scheduler] %s scheduled (cron: %s)", job.name, job.expr)
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron loop, cancels running scans and waits for them.
func (s *ReminderScheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *ReminderScheduler) runLocked(ctx context.Context, name string, run func(context.Context, time.Time) (*ScanResult, error)) {
	now := s.now()
	claimed, err := s.claim(ctx, name, now)
	if err != nil {
		logger.Error().Err(err).Str("job", name).Msg("[Scheduler] lock failed")
		return
	}
	if !claimed {
		logger.Debug().Str("job", name).Msg("[Scheduler] tick claimed by another instance")
		return
	}

	if _, err := run(ctx, now); err != nil {
		logger.Error().Err(err).Str("job", name).Msg("[Scheduler] scan failed")
	}
}

// claim inserts the lock row for (name, minute of now). A duplicate row
// means another instance already owns the tick.
func (s *ReminderScheduler) claim(ctx context.Context, name string, now time.Time) (bool, error) {
	now = now.UTC()
	tick := now.Truncate(time.Minute)
	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   tick.Format("2006-01-02T15:04"),
		LockedBy:  s.owner,
		LockedAt:  now,
		ExpiresAt: now.Add(lockRetention),
	}

	db := s.db.WithContext(ctx)
	err := db.Create(&lock).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := db.Where("expires_at < ?", now).Delete(&models.SchedulerLock{}).Error; err != nil {
		logger.Warn().Err(err).Msg("[Scheduler] failed to prune expired locks")
	}
	return true, nil
}
