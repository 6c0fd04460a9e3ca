package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/internal/notify"
	"github.com/coyote/taskboard/pkg/logger"
	"github.com/hibiken/asynq"
)

// Worker drains the notification queue when Redis is enabled.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor NotificationProcessor
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled; notifications are then
// delivered in-process by SyncQueue.
func NewWorker(cfg *config.RedisConfig, processor NotificationProcessor) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisClientOpt(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				notificationQueue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Warn().Err(err).
					Str("type", task.Type()).
					Int("retry", retried).
					Int("max_retry", maxRetry).
					Msg("[Worker] task failed")
			}),
		},
	)

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
	w.mux.HandleFunc(TaskTypeNotification, w.handleNotification)
	return w
}

// Start begins processing in background goroutines.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	logger.Infof("[Worker] Starting notification worker...")
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.running = true
	return nil
}

// Stop waits for in-flight tasks and shuts the worker down.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleNotification(ctx context.Context, t *asynq.Task) error {
	var msg notify.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		// A malformed payload will never succeed.
		return fmt.Errorf("decode notification: %v: %w", err, asynq.SkipRetry)
	}

	if w.processor == nil {
		logger.Warnf("[Worker] no processor set, dropping %s notification", msg.Template)
		return nil
	}

	return w.processor(ctx, &msg)
}
