package main

import (
	"context"
	"fmt"

	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/internal/notify"
	"github.com/coyote/taskboard/internal/services"
	"github.com/coyote/taskboard/internal/utils"
	"github.com/coyote/taskboard/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	db        *gorm.DB
	taskQueue services.TaskQueue
	worker    *services.Worker
	scheduler *services.ReminderScheduler
	redis     *redis.Client

	auth      *services.AuthService
	users     *services.UserService
	boards    *services.BoardService
	cards     *services.CardService
	reminders *services.ReminderService
}

// bootstrap opens the database and starts the worker and scheduler.
func bootstrap(cfg *config.Config) (*appServices, error) {
	db, err := models.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	sender, err := newSender(cfg)
	if err != nil {
		return nil, err
	}

	svc := newAppServices(cfg, db, sender)

	if svc.worker != nil {
		if err := svc.worker.Start(); err != nil {
			return nil, fmt.Errorf("start worker: %w", err)
		}
	}
	if err := svc.scheduler.Start(); err != nil {
		return nil, err
	}
	return svc, nil
}

// newSender logs notifications in developer mode and mails them otherwise.
func newSender(cfg *config.Config) (notify.Sender, error) {
	renderer, err := notify.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load mail templates: %w", err)
	}
	if cfg.Verification.DeveloperMode {
		logger.Info().Msg("Developer mode: notifications are logged, not mailed")
		return notify.NewLogSender(renderer), nil
	}
	return notify.NewSMTPSender(cfg.Mail, renderer), nil
}

// newAppServices wires the services on an open database. Nothing is
// started here.
func newAppServices(cfg *config.Config, db *gorm.DB, sender notify.Sender) *appServices {
	processor := services.NewDeliveryProcessor(sender)
	taskQueue := services.NewTaskQueue(&cfg.Redis, processor)

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, processor)
	}

	var redisClient *redis.Client
	var guard services.ReminderGuard
	if cfg.Reminder.DedupWindow > 0 && cfg.Redis.Enabled {
		client, err := services.ConnectRedis(context.Background(), &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Reminder dedup disabled")
		} else {
			redisClient = client
			guard = services.NewRedisReminderGuard(client, cfg.Reminder.DedupWindow)
		}
	}

	users := services.NewUserService(db, cfg.Verification, taskQueue)
	members := services.NewMembershipService(db)
	reminders := services.NewReminderService(db, taskQueue, guard)

	return &appServices{
		db:        db,
		taskQueue: taskQueue,
		worker:    worker,
		scheduler: services.NewReminderScheduler(db, reminders, cfg.Reminder),
		redis:     redisClient,
		auth:      services.NewAuthService(users, utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL())),
		users:     users,
		boards:    services.NewBoardService(db, members, users),
		cards:     services.NewCardService(db, members),
		reminders: reminders,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Reminder scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
