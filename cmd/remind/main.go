// Command remind runs the card reminder scans once and exits. It is meant
// for external schedulers such as cron or a Kubernetes CronJob.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/internal/notify"
	"github.com/coyote/taskboard/internal/services"
	"github.com/coyote/taskboard/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	kind := flag.String("kind", "all", "scan to run: start, finish or all")
	flag.Parse()

	if err := run(*configPath, *kind); err != nil {
		logger.Fatalf("remind: %v", err)
	}
}

func run(configPath, kind string) error {
	scans, err := selectScans(kind)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)

	db, err := models.InitDB(&cfg.Database)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	renderer, err := notify.NewRenderer()
	if err != nil {
		return err
	}
	var sender notify.Sender = notify.NewSMTPSender(cfg.Mail, renderer)
	if cfg.Verification.DeveloperMode {
		sender = notify.NewLogSender(renderer)
	}

	queue := services.NewTaskQueue(&cfg.Redis, services.NewDeliveryProcessor(sender))
	// Close waits for in-process deliveries before the process exits.
	defer queue.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reminders := services.NewReminderService(db, queue, nil)
	now := time.Now()
	for _, name := range scans {
		scan := reminders.RunStartScan
		if name == services.ReminderFinish {
			scan = reminders.RunFinishScan
		}
		result, err := scan(ctx, now)
		if err != nil {
			return fmt.Errorf("%s scan: %w", name, err)
		}
		logger.Info().
			Str("kind", string(result.Kind)).
			Int("matched", result.Matched).
			Int("enqueued", result.Enqueued).
			Int("failed", result.Failed).
			Msg("reminder scan done")
	}
	return nil
}

func selectScans(kind string) ([]services.ReminderKind, error) {
	switch kind {
	case "start":
		return []services.ReminderKind{services.ReminderStart}, nil
	case "finish":
		return []services.ReminderKind{services.ReminderFinish}, nil
	case "all", "":
		return []services.ReminderKind{services.ReminderStart, services.ReminderFinish}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q (want start, finish or all)", kind)
	}
}
