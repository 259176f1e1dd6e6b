package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"github.com/hibiken/asynq"
)

const (
	TypeLeadWebhook = "lead:webhook"

	webhookQueue      = "webhooks"
	webhookMaxRetries = 5
)

// leadWebhookPayload carries the URL, which the hook JSON encoding omits.
type leadWebhookPayload struct {
	URL  string             `json:"url"`
	Hook domain.LeadWebhook `json:"hook"`
}

func newLeadWebhookTask(hook domain.LeadWebhook, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(leadWebhookPayload{URL: hook.URL, Hook: hook})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	return asynq.NewTask(TypeLeadWebhook, payload,
		asynq.Queue(webhookQueue),
		asynq.MaxRetry(webhookMaxRetries),
		asynq.Timeout(timeout),
	), nil
}

// Queue enqueues lead webhooks on Redis through asynq.
type Queue struct {
	client  *asynq.Client
	timeout time.Duration
	logger  logging.Logger
}

func NewQueue(redisOpt asynq.RedisClientOpt, timeout time.Duration, logger logging.Logger) *Queue {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &Queue{client: asynq.NewClient(redisOpt), timeout: timeout, logger: logger}
}

func (q *Queue) DispatchLead(ctx context.Context, hook domain.LeadWebhook) error {
	task, err := newLeadWebhookTask(hook, q.timeout)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue webhook task: %w", err)
	}
	q.logger.Info("queued lead webhook", "task_id", info.ID, "lead_id", hook.LeadID)
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// Worker runs the asynq server that delivers queued webhooks.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	deliverer *Deliverer
	logger    logging.Logger
}

func NewWorker(redisOpt asynq.RedisClientOpt, concurrency int, deliverer *Deliverer, logger logging.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	w := &Worker{deliverer: deliverer, logger: logger}
	w.server = asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{webhookQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("job failed", "type", task.Type(), "error", err)
		}),
		Logger: &asynqLogger{logger: logger},
	})
	w.mux = asynq.NewServeMux()
	w.mux.HandleFunc(TypeLeadWebhook, w.handleLeadWebhook)
	return w
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	w.logger.Info("starting webhook worker")
	return w.server.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.logger.Info("stopping webhook worker")
	w.server.Shutdown()
}

func (w *Worker) handleLeadWebhook(ctx context.Context, task *asynq.Task) error {
	var payload leadWebhookPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal webhook payload: %w: %w", err, asynq.SkipRetry)
	}
	hook := payload.Hook
	hook.URL = payload.URL
	return w.deliverer.Deliver(ctx, hook)
}

type asynqLogger struct {
	logger logging.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
