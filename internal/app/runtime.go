package app

import (
	"context"
	"sync"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/events"
	"quiz-funnel-service/internal/logging"
)

// RuntimeConfig tunes every controller opened by a Runtime.
type RuntimeConfig struct {
	AutoAdvanceDelay time.Duration
	CallTimeout      time.Duration
	Scheduler        Scheduler
	Clock            func() time.Time
}

// Runtime opens one Controller per visitor and tracks them for presence and shutdown.
type Runtime struct {
	templates TemplateResolver
	backend   Backend
	sink      events.Sink
	presence  PresenceTracker
	cfg       RuntimeConfig
	logger    logging.Logger

	calls sync.WaitGroup

	mu          sync.Mutex
	controllers map[*Controller]struct{}
	closed      bool
}

// NewRuntime wires the runtime. presence may be nil.
func NewRuntime(templates TemplateResolver, backend Backend, sink events.Sink, presence PresenceTracker, cfg RuntimeConfig, logger logging.Logger) *Runtime {
	return &Runtime{
		templates:   templates,
		backend:     backend,
		sink:        sink,
		presence:    presence,
		cfg:         cfg,
		logger:      logger,
		controllers: make(map[*Controller]struct{}),
	}
}

// Open resolves the template for slug and returns a fresh, uninitialized controller.
func (r *Runtime) Open(ctx context.Context, slug string) (*Controller, error) {
	tpl, err := r.templates.Resolve(slug)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, domain.ErrControllerClosed
	}
	c := NewController(tpl, r.backend, r.sink, ControllerOptions{
		AutoAdvanceDelay: r.cfg.AutoAdvanceDelay,
		CallTimeout:      r.cfg.CallTimeout,
		Scheduler:        r.cfg.Scheduler,
		Clock:            r.cfg.Clock,
		Logger:           r.logger,
		Calls:            &r.calls,
		OnClose:          r.release,
	})
	r.controllers[c] = struct{}{}
	r.mu.Unlock()

	r.Touch(ctx, c)
	return c, nil
}

// Touch refreshes the visitor's presence marker.
func (r *Runtime) Touch(ctx context.Context, c *Controller) {
	if r.presence == nil {
		return
	}
	if err := r.presence.Touch(ctx, c.ID()); err != nil {
		r.logger.Warn("presence touch failed", "error", err, "visitor_id", c.ID())
	}
}

// Active returns the number of open controllers on this instance.
func (r *Runtime) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

func (r *Runtime) release(c *Controller) {
	r.mu.Lock()
	delete(r.controllers, c)
	r.mu.Unlock()

	if r.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.presence.Leave(ctx, c.ID()); err != nil {
		r.logger.Warn("presence leave failed", "error", err, "visitor_id", c.ID())
	}
}

// Wait blocks until all detached backend calls have returned and the sink is flushed.
func (r *Runtime) Wait() {
	r.calls.Wait()
	r.sink.Flush()
}

// Shutdown closes every controller and waits for outstanding calls until ctx expires.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	open := make([]*Controller, 0, len(r.controllers))
	for c := range r.controllers {
		open = append(open, c)
	}
	r.mu.Unlock()

	for _, c := range open {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
