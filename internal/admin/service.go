package admin

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/validation"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// FunnelStep is one bar of the quiz funnel chart.
type FunnelStep struct {
	StepID    string `json:"step_id"`
	Name      string `json:"name"`
	Views     int    `json:"views"`
	Completes int    `json:"completes"`
	// ConversionRate is the share of the previous step's views that reached this step.
	ConversionRate float64 `json:"conversion_rate"`
}

// AnswerShare is one answer value with its share of the step's answers.
type AnswerShare struct {
	Answer     string  `json:"answer"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// QuestionBreakdown is the answer distribution for one step.
type QuestionBreakdown struct {
	StepID   string        `json:"step_id"`
	Question string        `json:"question"`
	Answers  []AnswerShare `json:"answers"`
}

// QuizAnalytics is the per-quiz analytics view.
type QuizAnalytics struct {
	Quiz             domain.Quiz            `json:"quiz"`
	TotalSessions    int                    `json:"total_sessions"`
	TotalCompletions int                    `json:"total_completions"`
	TotalLeads       int                    `json:"total_leads"`
	CompletionRate   float64                `json:"completion_rate"`
	Funnel           []FunnelStep           `json:"funnel"`
	Questions        []QuestionBreakdown    `json:"questions"`
	Daily            []domain.DailyActivity `json:"daily"`
}

// Service implements the admin use cases on top of a Repository.
type Service struct {
	repo      Repository
	cache     CacheInvalidator
	visitors  VisitorCounter
	templates TemplateLookup
	logger    logging.Logger
	now       func() time.Time
}

func NewService(repo Repository, cache CacheInvalidator, visitors VisitorCounter, templates TemplateLookup, logger logging.Logger) *Service {
	return NewServiceWithClock(repo, cache, visitors, templates, logger, time.Now)
}

func NewServiceWithClock(repo Repository, cache CacheInvalidator, visitors VisitorCounter, templates TemplateLookup, logger logging.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, cache: cache, visitors: visitors, templates: templates, logger: logger, now: now}
}

// Dashboard aggregates funnel totals. days > 0 limits the daily lead series to the
// last days days.
func (s *Service) Dashboard(ctx context.Context, days int) (domain.DashboardStats, error) {
	var since time.Time
	if days > 0 {
		since = s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	}
	stats, err := s.repo.Dashboard(ctx, since)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("dashboard: %w", err)
	}
	if stats.TotalSessions > 0 {
		stats.ConversionRate = int(math.Round(float64(stats.TotalLeads) / float64(stats.TotalSessions) * 100))
	}
	if s.visitors != nil {
		n, err := s.visitors.Active(ctx)
		if err != nil {
			s.logger.Warn("active visitors unavailable", "error", err)
		} else {
			stats.ActiveVisitors = n
		}
	}
	if stats.DailyLeads == nil {
		stats.DailyLeads = []domain.DailyCount{}
	}
	return stats, nil
}

func (s *Service) Leads(ctx context.Context, page, pageSize int, search string) (domain.LeadPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	out, err := s.repo.Leads(ctx, domain.LeadFilter{Page: page, PageSize: pageSize, Search: strings.TrimSpace(search)})
	if err != nil {
		return domain.LeadPage{}, fmt.Errorf("list leads: %w", err)
	}
	if out.Leads == nil {
		out.Leads = []domain.Lead{}
	}
	return out, nil
}

func (s *Service) Lead(ctx context.Context, id string) (domain.Lead, error) {
	return s.repo.Lead(ctx, id)
}

func (s *Service) LeadAnswers(ctx context.Context, leadID string) ([]domain.Answer, error) {
	answers, err := s.repo.LeadAnswers(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = []domain.Answer{}
	}
	return answers, nil
}

func (s *Service) Quizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return s.repo.QuizSummaries(ctx)
}

func (s *Service) Quiz(ctx context.Context, id string) (domain.Quiz, error) {
	return s.repo.QuizByID(ctx, id)
}

// UpdateQuiz applies the edit and drops the cached record for the quiz slug.
func (s *Service) UpdateQuiz(ctx context.Context, id string, upd domain.QuizUpdate) (domain.Quiz, error) {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return domain.Quiz{}, validation.Errors{{Field: "title", Message: "must not be blank", Rule: "notblank"}}
		}
		upd.Title = &title
	}
	quiz, err := s.repo.UpdateQuiz(ctx, id, upd, s.now().UTC())
	if err != nil {
		return domain.Quiz{}, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, quiz.Slug); err != nil {
			s.logger.Warn("quiz cache invalidation failed", "slug", quiz.Slug, "error", err)
		}
	}
	s.logger.Info("quiz updated", "quiz_id", quiz.ID, "slug", quiz.Slug)
	return quiz, nil
}

func (s *Service) Analytics(ctx context.Context, quizID string) (QuizAnalytics, error) {
	quiz, err := s.repo.QuizByID(ctx, quizID)
	if err != nil {
		return QuizAnalytics{}, err
	}
	act, err := s.repo.QuizActivity(ctx, quizID)
	if err != nil {
		return QuizAnalytics{}, fmt.Errorf("quiz activity: %w", err)
	}

	var tmpl *domain.QuizTemplate
	if s.templates != nil {
		if t, err := s.templates.Resolve(quiz.Slug); err == nil {
			tmpl = &t
		}
	}

	out := QuizAnalytics{
		Quiz:             quiz,
		TotalSessions:    act.Sessions,
		TotalCompletions: act.Completions,
		TotalLeads:       act.Leads,
		Funnel:           funnel(act.Steps, tmpl),
		Questions:        questions(act.Answers, tmpl),
		Daily:            act.Daily,
	}
	if act.Sessions > 0 {
		out.CompletionRate = float64(act.Completions) / float64(act.Sessions) * 100
	}
	if out.Daily == nil {
		out.Daily = []domain.DailyActivity{}
	}
	return out, nil
}

func funnel(counts []domain.StepCount, tmpl *domain.QuizTemplate) []FunnelStep {
	steps := make([]FunnelStep, 0, len(counts))
	for _, c := range counts {
		steps = append(steps, FunnelStep{StepID: c.StepID, Name: stepName(c.StepID, tmpl), Views: c.Views, Completes: c.Completes})
	}
	sortByTemplate(steps, func(i int) string { return steps[i].StepID }, tmpl)
	for i := range steps {
		switch {
		case i == 0:
			steps[i].ConversionRate = 100
		case steps[i-1].Views > 0:
			steps[i].ConversionRate = float64(steps[i].Views) / float64(steps[i-1].Views) * 100
		}
	}
	return steps
}

func questions(counts []domain.AnswerCount, tmpl *domain.QuizTemplate) []QuestionBreakdown {
	byStep := make(map[string]*QuestionBreakdown)
	var out []QuestionBreakdown
	var order []string
	for _, c := range counts {
		q, ok := byStep[c.StepID]
		if !ok {
			q = &QuestionBreakdown{StepID: c.StepID, Question: questionText(c.StepID, tmpl)}
			byStep[c.StepID] = q
			order = append(order, c.StepID)
		}
		q.Answers = append(q.Answers, AnswerShare{Answer: c.Answer, Count: c.Count})
	}
	for _, id := range order {
		q := byStep[id]
		total := 0
		for _, a := range q.Answers {
			total += a.Count
		}
		for i := range q.Answers {
			if total > 0 {
				q.Answers[i].Percentage = float64(q.Answers[i].Count) / float64(total) * 100
			}
		}
		sort.SliceStable(q.Answers, func(i, j int) bool { return q.Answers[i].Count > q.Answers[j].Count })
		out = append(out, *q)
	}
	sortByTemplate(out, func(i int) string { return out[i].StepID }, tmpl)
	if out == nil {
		out = []QuestionBreakdown{}
	}
	return out
}

// sortByTemplate orders entries by traversal position; steps the template does not
// know about go last, by id.
func sortByTemplate[T any](items []T, id func(int) string, tmpl *domain.QuizTemplate) {
	pos := func(i int) int {
		if tmpl == nil {
			return -1
		}
		return tmpl.IndexOf(id(i))
	}
	type key struct {
		pos int
		id  string
	}
	keys := make([]key, len(items))
	for i := range items {
		keys[i] = key{pos: pos(i), id: id(i)}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		switch {
		case ka.pos >= 0 && kb.pos >= 0:
			return ka.pos < kb.pos
		case ka.pos >= 0:
			return true
		case kb.pos >= 0:
			return false
		default:
			return ka.id < kb.id
		}
	})
	sorted := make([]T, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}

func stepName(stepID string, tmpl *domain.QuizTemplate) string {
	if tmpl != nil {
		if step, ok := tmpl.Step(stepID); ok {
			switch {
			case step.Title != "":
				return step.Title
			case step.Question != "":
				return step.Question
			}
		}
	}
	return "Etapa " + stepID
}

func questionText(stepID string, tmpl *domain.QuizTemplate) string {
	if tmpl != nil {
		if step, ok := tmpl.Step(stepID); ok {
			return step.Prompt()
		}
	}
	return stepID
}
