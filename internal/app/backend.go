package app

import (
	"context"
	"time"

	"quiz-funnel-service/internal/domain"
)

// Backend is the persistence collaborator the session controller talks to.
type Backend interface {
	ResolveQuizID(ctx context.Context, slug string) (string, error)
	CreateSession(ctx context.Context, quizID string) (domain.Session, error)
	RecordAnswer(ctx context.Context, answer domain.Answer) error
	RecordEvent(ctx context.Context, ev domain.Event) error
	CompleteSession(ctx context.Context, sessionID string) (time.Time, error)
	CreateLead(ctx context.Context, in domain.LeadInput) (domain.LeadReceipt, error)
}

// FunnelStore abstracts where funnel records live (in-memory, Postgres).
type FunnelStore interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
	QuizByID(ctx context.Context, id string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	// EnsureQuiz inserts the quiz if no record with its slug exists and returns the
	// stored record either way.
	EnsureQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)

	CreateSession(ctx context.Context, session domain.Session) (domain.Session, error)
	SaveAnswer(ctx context.Context, answer domain.Answer) error
	SaveEvent(ctx context.Context, ev domain.Event) error
	FinishSession(ctx context.Context, sessionID string, at time.Time) error
	// CreateLead upserts the person by email, links the session to the person and
	// inserts the lead in one unit of work.
	CreateLead(ctx context.Context, in domain.LeadInput, at time.Time) (domain.LeadReceipt, error)
}

// QuizDirectory resolves quiz records by slug, usually through a cache.
type QuizDirectory interface {
	QuizBySlug(ctx context.Context, slug string) (domain.Quiz, error)
	Invalidate(ctx context.Context, slug string) error
}

// PresenceTracker counts visitors with an open runtime.
type PresenceTracker interface {
	Touch(ctx context.Context, visitorID string) error
	Leave(ctx context.Context, visitorID string) error
	Active(ctx context.Context) (int64, error)
}

// WebhookDispatcher hands a lead webhook off for delivery.
type WebhookDispatcher interface {
	DispatchLead(ctx context.Context, hook domain.LeadWebhook) error
}

// TemplateResolver looks templates up by slug.
type TemplateResolver interface {
	Resolve(slug string) (domain.QuizTemplate, error)
}
