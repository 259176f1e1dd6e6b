package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/templates"
)

type countingPresence struct {
	mu     sync.Mutex
	active map[string]bool
}

func (p *countingPresence) Touch(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[id] = true
	return nil
}

func (p *countingPresence) Leave(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, id)
	return nil
}

func (p *countingPresence) Active(context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int64(len(p.active)), nil
}

func newTestRuntime(backend Backend, presence PresenceTracker) *Runtime {
	return NewRuntime(templates.NewBuiltinRegistry(), backend, &fakeSink{}, presence, RuntimeConfig{
		AutoAdvanceDelay: time.Second,
		Scheduler:        &manualScheduler{},
	}, logging.Discard())
}

func TestRuntimeOpenUnknownSlug(t *testing.T) {
	rt := newTestRuntime(&fakeBackend{}, nil)

	if _, err := rt.Open(context.Background(), "missing"); !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Fatalf("expected template not found, got %v", err)
	}
}

func TestRuntimeTracksPresence(t *testing.T) {
	presence := &countingPresence{active: map[string]bool{}}
	rt := newTestRuntime(&fakeBackend{}, presence)
	ctx := context.Background()

	c1, err := rt.Open(ctx, "aprendizagem-ia-criancas")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := rt.Open(ctx, "transformacao-digital-negocios"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if n, _ := presence.Active(ctx); n != 2 || rt.Active() != 2 {
		t.Fatalf("expected 2 active visitors, got presence=%d runtime=%d", n, rt.Active())
	}

	_ = c1.Close()
	if n, _ := presence.Active(ctx); n != 1 || rt.Active() != 1 {
		t.Fatalf("expected 1 active visitor after close, got presence=%d runtime=%d", n, rt.Active())
	}
}

func TestRuntimeShutdownClosesControllersAndWaits(t *testing.T) {
	backend := &fakeBackend{}
	rt := newTestRuntime(backend, nil)
	ctx := context.Background()

	c, err := rt.Open(ctx, "transformacao-digital-negocios")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for i := 0; i < c.Snapshot().TotalSteps; i++ {
		_ = c.Advance()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(backend.completions()) != 1 {
		t.Fatalf("expected completion call to finish before shutdown returns")
	}
	if err := c.Advance(); !errors.Is(err, domain.ErrControllerClosed) {
		t.Fatalf("expected closed controller, got %v", err)
	}
	if _, err := rt.Open(ctx, "transformacao-digital-negocios"); !errors.Is(err, domain.ErrControllerClosed) {
		t.Fatalf("expected runtime closed, got %v", err)
	}
}
