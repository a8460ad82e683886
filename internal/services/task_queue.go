package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/pkg/logger"
)

const (
	TaskTypeReportNotification = "notification:report"
	notificationQueue          = "notifications"
)

// NotificationResult is the outcome of one dispatched notification.
type NotificationResult struct {
	Status string
	ID     string
	Err    error
}

// NotificationDispatcher runs a notification outside the caller's critical
// path. The returned channel receives exactly one result and is then closed.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n *ReportNotification) <-chan NotificationResult
	// IsAsync reports whether delivery happens in another process.
	IsAsync() bool
	Close() error
}

// InitDispatcher picks the asynq queue when Redis is enabled and reachable,
// and in-process delivery otherwise.
func InitDispatcher(cfg *config.Config, notifier Notifier) NotificationDispatcher {
	if cfg.Redis.Enabled {
		queue, err := NewAsyncQueue(&cfg.Redis)
		if err != nil {
			logger.Warnf("[TaskQueue] Redis unavailable, falling back to inline delivery: %v", err)
			return NewInlineDispatcher(notifier)
		}
		logger.Infof("[TaskQueue] Async notification queue initialized with Redis at %s", cfg.Redis.Addr)
		return queue
	}
	logger.Infof("[TaskQueue] Inline notification delivery (Redis disabled)")
	return NewInlineDispatcher(notifier)
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue hands notifications to the asynq worker through Redis.
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

func (q *AsyncQueue) Dispatch(ctx context.Context, n *ReportNotification) <-chan NotificationResult {
	ch := make(chan NotificationResult, 1)
	defer close(ch)

	payload, err := json.Marshal(n)
	if err != nil {
		ch <- NotificationResult{Status: EmailStatusFailed, Err: err}
		return ch
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeReportNotification, payload), notificationTaskOptions()...)
	if err != nil {
		ch <- NotificationResult{Status: EmailStatusFailed, Err: fmt.Errorf("enqueue notification: %w", err)}
		return ch
	}

	logger.Infof("[AsyncQueue] Notification enqueued: id=%s, queue=%s, report=%s", info.ID, info.Queue, n.ReportID)
	ch <- NotificationResult{Status: EmailStatusQueued, ID: info.ID}
	return ch
}

// notificationTaskOptions delivers a notification at most once. A failed
// email is reported through emailStatus and resent by the operator.
func notificationTaskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(notificationQueue),
		asynq.MaxRetry(0),
	}
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// InlineDispatcher delivers in a goroutine of this process. Delivery is
// detached from the request context so a client disconnect does not abort it.
type InlineDispatcher struct {
	notifier Notifier
}

func NewInlineDispatcher(notifier Notifier) *InlineDispatcher {
	return &InlineDispatcher{notifier: notifier}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, n *ReportNotification) <-chan NotificationResult {
	ch := make(chan NotificationResult, 1)
	if d.notifier == nil {
		ch <- NotificationResult{Status: EmailStatusDisabled, Err: ErrNotifierDisabled}
		close(ch)
		return ch
	}

	taskCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(ch)
		id, err := d.notifier.Send(taskCtx, n)
		ch <- resultFromSend(id, err)
	}()
	return ch
}

func (d *InlineDispatcher) IsAsync() bool {
	return false
}

func (d *InlineDispatcher) Close() error {
	return nil
}

func resultFromSend(id string, err error) NotificationResult {
	switch {
	case errors.Is(err, ErrNotifierDisabled):
		return NotificationResult{Status: EmailStatusDisabled, Err: err}
	case err != nil:
		return NotificationResult{Status: EmailStatusFailed, Err: err}
	default:
		return NotificationResult{Status: EmailStatusSent, ID: id}
	}
}
