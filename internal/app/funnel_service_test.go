package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/infra/memory"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/templates"
	"quiz-funnel-service/internal/validation"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	hooks []domain.LeadWebhook
}

func (d *recordingDispatcher) DispatchLead(_ context.Context, hook domain.LeadWebhook) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, hook)
	return nil
}

func newFunnelService(t *testing.T, dispatcher WebhookDispatcher) (*FunnelService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	now := func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	svc := NewFunnelServiceWithClock(store, memory.NewQuizDirectory(store, time.Minute), dispatcher, logging.Discard(), now)
	if err := svc.SeedQuizzes(context.Background(), templates.NewBuiltinRegistry().All()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc, store
}

func TestSeedQuizzesIsIdempotent(t *testing.T) {
	svc, store := newFunnelService(t, nil)
	ctx := context.Background()

	before, _ := svc.ResolveQuizID(ctx, "aprendizagem-ia-criancas")
	if err := svc.SeedQuizzes(ctx, templates.NewBuiltinRegistry().All()); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	after, _ := svc.ResolveQuizID(ctx, "aprendizagem-ia-criancas")
	if before == "" || before != after {
		t.Fatalf("expected stable quiz id, got %q then %q", before, after)
	}
	quizzes, _ := store.ListQuizzes(ctx)
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}
}

func TestCreateSessionForSlug(t *testing.T) {
	svc, _ := newFunnelService(t, nil)
	ctx := context.Background()
	quizID, _ := svc.ResolveQuizID(ctx, "transformacao-digital-negocios")

	if _, err := svc.CreateSessionForSlug(ctx, "missing", quizID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	var ve validation.Errors
	if _, err := svc.CreateSessionForSlug(ctx, "transformacao-digital-negocios", ""); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	session, err := svc.CreateSessionForSlug(ctx, "transformacao-digital-negocios", quizID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.CurrentStep != "intro" || session.SessionToken == "" || session.QuizID != quizID {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestRecordEventRejectsUnknownType(t *testing.T) {
	svc, _ := newFunnelService(t, nil)
	err := svc.RecordEvent(context.Background(), domain.Event{SessionID: "s", Type: "teleport"})
	if !errors.Is(err, domain.ErrInvalidEventType) {
		t.Fatalf("expected invalid event type, got %v", err)
	}
}

func TestCompleteSessionStampsFinish(t *testing.T) {
	svc, store := newFunnelService(t, nil)
	ctx := context.Background()
	quizID, _ := svc.ResolveQuizID(ctx, "aprendizagem-ia-criancas")
	session, _ := svc.CreateSession(ctx, quizID)

	at, err := svc.CompleteSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	stored, _ := store.Session(session.ID)
	if stored.FinishedAt == nil || !stored.FinishedAt.Equal(at) {
		t.Fatalf("expected finished_at %v, got %v", at, stored.FinishedAt)
	}
	if _, err := svc.CompleteSession(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestCreateLeadDispatchesWebhook(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	svc, store := newFunnelService(t, dispatcher)
	ctx := context.Background()
	quizID, _ := svc.ResolveQuizID(ctx, "aprendizagem-ia-criancas")
	hookURL := "https://hooks.example.com/lead"
	if _, err := store.UpdateQuiz(ctx, quizID, domain.QuizUpdate{WebhookURL: &hookURL}, time.Now()); err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	session, _ := svc.CreateSession(ctx, quizID)

	if _, err := svc.CreateLead(ctx, domain.LeadInput{Name: " ", Email: "ana@x.com", SessionID: session.ID}); err == nil {
		t.Fatalf("expected validation error for blank name")
	}

	receipt, err := svc.CreateLead(ctx, domain.LeadInput{
		Name:           " Ana ",
		Email:          "ana@x.com",
		Phone:          "(11) 98765-4321",
		QuizID:         quizID,
		SessionID:      session.ID,
		AdditionalData: map[string]string{"age": "7 anos"},
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if receipt.LeadID == "" || receipt.PersonID == "" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if len(dispatcher.hooks) != 1 {
		t.Fatalf("expected one webhook, got %d", len(dispatcher.hooks))
	}
	hook := dispatcher.hooks[0]
	if hook.URL != hookURL || hook.Name != "Ana" || hook.Answers["age"] != "7 anos" || hook.QuizSlug != "aprendizagem-ia-criancas" {
		t.Fatalf("unexpected webhook %+v", hook)
	}
}
