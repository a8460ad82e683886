package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/pkg/logger"
)

// Worker delivers notifications queued by AsyncQueue.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	notifier Notifier
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig, notifier Notifier) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisClientOpt(cfg),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				notificationQueue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Errorf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server:   server,
		mux:      asynq.NewServeMux(),
		notifier: notifier,
	}
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeReportNotification, w.handleNotificationTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting notification worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[Worker] Server error: %v", err)
		}
	}()

	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleNotificationTask(ctx context.Context, t *asynq.Task) error {
	return deliverNotificationTask(ctx, w.notifier, t.Payload())
}

// deliverNotificationTask sends one queued notification. Returning an error
// makes asynq retry; bad payloads and a disabled notifier are not retried.
func deliverNotificationTask(ctx context.Context, notifier Notifier, payload []byte) error {
	var n ReportNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return fmt.Errorf("decode notification task: %v: %w", err, asynq.SkipRetry)
	}

	id, err := notifier.Send(ctx, &n)
	if errors.Is(err, ErrNotifierDisabled) {
		logger.Infof("[Worker] Notification for report %s skipped: notifier disabled", n.ReportID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("send notification for report %s: %w", n.ReportID, err)
	}

	logger.Infof("[Worker] Notification for report %s sent: id=%s", n.ReportID, id)
	return nil
}
