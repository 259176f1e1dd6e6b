package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/events"
	"quiz-funnel-service/internal/logging"
)

const defaultWebhookTimeout = 10 * time.Second

// Deliverer posts lead webhooks and records the outcome as a session event.
type Deliverer struct {
	client *http.Client
	sink   events.Sink
	logger logging.Logger
	now    func() time.Time
}

func NewDeliverer(timeout time.Duration, sink events.Sink, logger logging.Logger) *Deliverer {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Deliverer{
		client: &http.Client{Timeout: timeout},
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Deliver sends hook as JSON. Any non-2xx response is an error.
func (d *Deliverer) Deliver(ctx context.Context, hook domain.LeadWebhook) error {
	status, err := d.post(ctx, hook)
	data := map[string]any{"lead_id": hook.LeadID, "url": hook.URL}
	if status != 0 {
		data["status_code"] = status
	}
	if err != nil {
		data["error"] = err.Error()
		d.record(hook.SessionID, domain.EventWebhookFailed, data)
		d.logger.Warn("lead webhook failed", "lead_id", hook.LeadID, "url", hook.URL, "error", err)
		return err
	}
	d.record(hook.SessionID, domain.EventWebhookOK, data)
	d.logger.Info("lead webhook delivered", "lead_id", hook.LeadID, "status", status)
	return nil
}

func (d *Deliverer) post(ctx context.Context, hook domain.LeadWebhook) (int, error) {
	body, err := json.Marshal(hook)
	if err != nil {
		return 0, fmt.Errorf("marshal webhook: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (d *Deliverer) record(sessionID string, typ domain.EventType, data map[string]any) {
	if d.sink == nil || sessionID == "" {
		return
	}
	d.sink.Record(domain.NewEvent(sessionID, typ, "", data, d.now()))
}
