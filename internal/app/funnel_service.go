package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/validation"
	"github.com/google/uuid"
)

// initialStep is the current_step value a new session is stored with.
const initialStep = "intro"

// FunnelService implements Backend on top of a FunnelStore. It is shared by every
// visitor runtime and by the REST handlers.
type FunnelService struct {
	store    FunnelStore
	quizzes  QuizDirectory
	webhooks WebhookDispatcher
	logger   logging.Logger
	now      func() time.Time
}

// NewFunnelService wires the service. webhooks may be nil to disable lead webhooks.
func NewFunnelService(store FunnelStore, quizzes QuizDirectory, webhooks WebhookDispatcher, logger logging.Logger) *FunnelService {
	return &FunnelService{
		store:    store,
		quizzes:  quizzes,
		webhooks: webhooks,
		logger:   logger,
		now:      time.Now,
	}
}

// NewFunnelServiceWithClock is test-only for deterministic timestamps.
func NewFunnelServiceWithClock(store FunnelStore, quizzes QuizDirectory, webhooks WebhookDispatcher, logger logging.Logger, now func() time.Time) *FunnelService {
	s := NewFunnelService(store, quizzes, webhooks, logger)
	s.now = now
	return s
}

// UseWebhooks installs the lead webhook dispatcher. Call it before serving traffic.
func (s *FunnelService) UseWebhooks(webhooks WebhookDispatcher) {
	s.webhooks = webhooks
}

// SeedQuizzes makes sure every template has a quiz record.
func (s *FunnelService) SeedQuizzes(ctx context.Context, templates []domain.QuizTemplate) error {
	for _, tpl := range templates {
		quiz, err := s.store.EnsureQuiz(ctx, domain.Quiz{
			ID:          uuid.NewString(),
			Slug:        tpl.Slug,
			Title:       tpl.Title,
			Description: tpl.Description,
			CreatedAt:   s.now(),
			UpdatedAt:   s.now(),
		})
		if err != nil {
			return fmt.Errorf("seed quiz %s: %w", tpl.Slug, err)
		}
		s.logger.Debug("quiz record ready", "slug", quiz.Slug, "quiz_id", quiz.ID)
	}
	return nil
}

func (s *FunnelService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

func (s *FunnelService) QuizBySlug(ctx context.Context, slug string) (domain.Quiz, error) {
	return s.quizzes.QuizBySlug(ctx, slug)
}

func (s *FunnelService) ResolveQuizID(ctx context.Context, slug string) (string, error) {
	quiz, err := s.quizzes.QuizBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	return quiz.ID, nil
}

func (s *FunnelService) CreateSession(ctx context.Context, quizID string) (domain.Session, error) {
	if strings.TrimSpace(quizID) == "" {
		return domain.Session{}, validation.Errors{{Field: "quiz_id", Message: "is required", Rule: "required"}}
	}
	return s.store.CreateSession(ctx, domain.Session{
		ID:           uuid.NewString(),
		QuizID:       quizID,
		CurrentStep:  initialStep,
		SessionToken: uuid.NewString(),
		StartedAt:    s.now(),
	})
}

// CreateSessionForSlug is the REST flavour: the slug must name a known quiz.
func (s *FunnelService) CreateSessionForSlug(ctx context.Context, slug, quizID string) (domain.Session, error) {
	if strings.TrimSpace(quizID) == "" {
		return domain.Session{}, validation.Errors{{Field: "quiz_id", Message: "is required", Rule: "required"}}
	}
	if _, err := s.quizzes.QuizBySlug(ctx, slug); err != nil {
		return domain.Session{}, err
	}
	return s.CreateSession(ctx, quizID)
}

func (s *FunnelService) RecordAnswer(ctx context.Context, answer domain.Answer) error {
	var errs validation.Errors
	if answer.SessionID == "" {
		errs = append(errs, validation.FieldError{Field: "session_id", Message: "is required", Rule: "required"})
	}
	if answer.StepID == "" {
		errs = append(errs, validation.FieldError{Field: "step_id", Message: "is required", Rule: "required"})
	}
	if len(errs) > 0 {
		return errs
	}
	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = s.now()
	}
	return s.store.SaveAnswer(ctx, answer)
}

func (s *FunnelService) RecordEvent(ctx context.Context, ev domain.Event) error {
	if !ev.Type.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidEventType, ev.Type)
	}
	if ev.SessionID == "" {
		return validation.Errors{{Field: "session_id", Message: "is required", Rule: "required"}}
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now()
	}
	if ev.Data == nil {
		ev.Data = map[string]any{}
	}
	return s.store.SaveEvent(ctx, ev)
}

func (s *FunnelService) CompleteSession(ctx context.Context, sessionID string) (time.Time, error) {
	at := s.now()
	if err := s.store.FinishSession(ctx, sessionID, at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

func (s *FunnelService) CreateLead(ctx context.Context, in domain.LeadInput) (domain.LeadReceipt, error) {
	if err := validation.Struct(in); err != nil {
		return domain.LeadReceipt{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	at := s.now()
	receipt, err := s.store.CreateLead(ctx, in, at)
	if err != nil {
		return domain.LeadReceipt{}, err
	}
	s.logger.InfoContext(ctx, "lead captured",
		"lead_id", receipt.LeadID,
		"session_id", in.SessionID,
		"quiz_id", in.QuizID)

	s.dispatchWebhook(ctx, in, receipt, at)
	return receipt, nil
}

func (s *FunnelService) dispatchWebhook(ctx context.Context, in domain.LeadInput, receipt domain.LeadReceipt, at time.Time) {
	if s.webhooks == nil || in.QuizID == "" {
		return
	}
	quiz, err := s.store.QuizByID(ctx, in.QuizID)
	if err != nil {
		s.logger.Warn("lead webhook skipped", "error", err, "quiz_id", in.QuizID)
		return
	}
	if quiz.WebhookURL == "" {
		return
	}
	hook := domain.LeadWebhook{
		URL:       quiz.WebhookURL,
		QuizID:    quiz.ID,
		QuizSlug:  quiz.Slug,
		LeadID:    receipt.LeadID,
		PersonID:  receipt.PersonID,
		SessionID: in.SessionID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Answers:   in.AdditionalData,
		CreatedAt: at,
	}
	if err := s.webhooks.DispatchLead(ctx, hook); err != nil {
		s.logger.Warn("lead webhook dispatch failed", "error", err, "lead_id", receipt.LeadID)
	}
}
