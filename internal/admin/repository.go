package admin

import (
	"context"
	"time"

	"quiz-funnel-service/internal/domain"
)

// Repository is the read/write surface the admin views need. The memory store and
// the Postgres admin repository both implement it.
type Repository interface {
	Dashboard(ctx context.Context, since time.Time) (domain.DashboardStats, error)
	Leads(ctx context.Context, filter domain.LeadFilter) (domain.LeadPage, error)
	ExportLeads(ctx context.Context, search string) ([]domain.Lead, error)
	Lead(ctx context.Context, id string) (domain.Lead, error)
	LeadAnswers(ctx context.Context, leadID string) ([]domain.Answer, error)
	QuizSummaries(ctx context.Context) ([]domain.QuizSummary, error)
	QuizByID(ctx context.Context, id string) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, id string, upd domain.QuizUpdate, at time.Time) (domain.Quiz, error)
	QuizActivity(ctx context.Context, quizID string) (domain.QuizActivity, error)
}

// CacheInvalidator drops a cached quiz record after an edit.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, slug string) error
}

// VisitorCounter reports how many visitors currently have a funnel open.
type VisitorCounter interface {
	Active(ctx context.Context) (int64, error)
}

// TemplateLookup supplies step order and labels for analytics.
type TemplateLookup interface {
	Resolve(slug string) (domain.QuizTemplate, error)
}
