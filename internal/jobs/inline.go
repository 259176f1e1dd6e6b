package jobs

import (
	"context"
	"sync"
	"time"

	"quiz-funnel-service/internal/domain"
)

// InlineDispatcher delivers webhooks from a goroutine in the current process. It is
// used when no Redis is configured; failed deliveries are not retried.
type InlineDispatcher struct {
	deliverer *Deliverer
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewInlineDispatcher(deliverer *Deliverer, timeout time.Duration) *InlineDispatcher {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &InlineDispatcher{deliverer: deliverer, timeout: timeout}
}

func (d *InlineDispatcher) DispatchLead(_ context.Context, hook domain.LeadWebhook) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		_ = d.deliverer.Deliver(ctx, hook)
	}()
	return nil
}

// Wait blocks until every dispatched delivery has finished.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
