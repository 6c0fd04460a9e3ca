package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coyote/taskboard/internal/apperr"
	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/internal/metrics"
	"github.com/coyote/taskboard/internal/notify"
	"github.com/coyote/taskboard/pkg/logger"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeNotification = "notification:send"

	notificationQueue    = "notifications"
	notificationMaxRetry = 3
)

// NotificationProcessor delivers one notification.
type NotificationProcessor func(ctx context.Context, msg *notify.Message) error

// TaskQueue hands notifications off for out-of-band delivery. Enqueue
// never waits for the delivery itself.
type TaskQueue interface {
	Enqueue(ctx context.Context, msg *notify.Message) error
	IsAsync() bool
	Close() error
}

// NewTaskQueue returns an asynq-backed queue when Redis is enabled and
// reachable, and an in-process queue otherwise. process is used by the
// in-process queue; the asynq queue is drained by Worker.
func NewTaskQueue(cfg *config.RedisConfig, process NotificationProcessor) TaskQueue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err == nil {
			logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
			return queue
		}
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to in-process delivery: %v", err)
	} else {
		logger.Infof("[TaskQueue] In-process queue initialized (Redis disabled)")
	}
	q := NewSyncQueue()
	q.SetProcessor(process)
	return q
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, msg *notify.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeNotification, payload)
	info, err := q.client.EnqueueContext(ctx, t,
		asynq.Queue(notificationQueue),
		asynq.MaxRetry(notificationMaxRetry),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("task_id", info.ID).Str("template", msg.Template).Msg("[AsyncQueue] task enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue delivers in a background goroutine of this process.
type SyncQueue struct {
	processor NotificationProcessor
	inflight  sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor NotificationProcessor) {
	q.processor = processor
}

// Enqueue starts delivery and returns immediately. The caller's context is
// not propagated since delivery outlives the request that triggered it.
func (q *SyncQueue) Enqueue(_ context.Context, msg *notify.Message) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, dropping %s notification", msg.Template)
		return nil
	}

	q.inflight.Add(1)
	go func() {
		defer q.inflight.Done()
		if err := q.processor(context.Background(), msg); err != nil {
			logger.Warn().Err(err).Str("template", msg.Template).Msg("[SyncQueue] delivery failed")
		}
	}()

	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for deliveries that are still running.
func (q *SyncQueue) Close() error {
	q.inflight.Wait()
	return nil
}

// NewDeliveryProcessor returns the processor that renders and sends a
// notification through sender. Failures are reported as ErrDelivery.
func NewDeliveryProcessor(sender notify.Sender) NotificationProcessor {
	return func(ctx context.Context, msg *notify.Message) error {
		if err := sender.Send(ctx, msg); err != nil {
			metrics.NotificationsFailedTotal.WithLabelValues(msg.Template, "deliver").Inc()
			return apperr.Wrap(apperr.ErrDelivery, err)
		}
		metrics.NotificationsSentTotal.WithLabelValues(msg.Template).Inc()
		return nil
	}
}

// enqueueNotification hands msg to queue. A failure is returned as
// ErrDelivery for the caller to log; it never rolls back the caller's work.
func enqueueNotification(ctx context.Context, queue TaskQueue, msg *notify.Message) error {
	if queue == nil {
		return nil
	}
	if err := queue.Enqueue(ctx, msg); err != nil {
		metrics.NotificationsFailedTotal.WithLabelValues(msg.Template, "enqueue").Inc()
		return apperr.Wrap(apperr.ErrDelivery, fmt.Errorf("enqueue %s: %w", msg.Template, err))
	}
	metrics.NotificationsEnqueuedTotal.WithLabelValues(msg.Template).Inc()
	return nil
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
