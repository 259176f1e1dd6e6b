package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"quiz-funnel-service/internal/domain"
	"github.com/uptrace/bun"
)

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          string    `bun:"id,pk"`
	Slug        string    `bun:"slug"`
	Title       string    `bun:"title"`
	Description string    `bun:"description"`
	FinalURL    string    `bun:"final_url"`
	WebhookURL  string    `bun:"webhook_url"`
	CreatedAt   time.Time `bun:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at"`
}

func (m quizModel) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:          m.ID,
		Slug:        m.Slug,
		Title:       m.Title,
		Description: m.Description,
		FinalURL:    m.FinalURL,
		WebhookURL:  m.WebhookURL,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type quizSummaryRow struct {
	ID            string    `bun:"id"`
	Slug          string    `bun:"slug"`
	Title         string    `bun:"title"`
	Description   string    `bun:"description"`
	FinalURL      string    `bun:"final_url"`
	WebhookURL    string    `bun:"webhook_url"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
	SessionsCount int       `bun:"sessions_count"`
	LeadsCount    int       `bun:"leads_count"`
}

type leadRow struct {
	ID             string            `bun:"id"`
	Name           string            `bun:"name"`
	Email          string            `bun:"email"`
	Phone          string            `bun:"phone"`
	QuizID         string            `bun:"quiz_id"`
	QuizTitle      string            `bun:"quiz_title"`
	SessionID      string            `bun:"session_id"`
	PersonID       string            `bun:"person_id"`
	AdditionalData map[string]string `bun:"additional_data"`
	CreatedAt      time.Time         `bun:"created_at"`
}

func (r leadRow) toDomain() domain.Lead {
	return domain.Lead{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		QuizID:         r.QuizID,
		QuizTitle:      r.QuizTitle,
		SessionID:      r.SessionID,
		PersonID:       r.PersonID,
		AdditionalData: r.AdditionalData,
		CreatedAt:      r.CreatedAt,
	}
}

type answerRow struct {
	ID        string    `bun:"id"`
	SessionID string    `bun:"session_id"`
	StepID    string    `bun:"step_id"`
	Question  string    `bun:"question"`
	Answer    string    `bun:"answer"`
	CreatedAt time.Time `bun:"created_at"`
}

type dayRow struct {
	Date  string `bun:"date"`
	Count int    `bun:"count"`
}

type stepRow struct {
	StepID    string `bun:"step_id"`
	Views     int    `bun:"views"`
	Completes int    `bun:"completes"`
}

type answerCountRow struct {
	StepID string `bun:"step_id"`
	Answer string `bun:"answer"`
	Count  int    `bun:"count"`
}

// AdminRepository serves the admin read models and quiz edits through bun.
type AdminRepository struct {
	db *bun.DB
}

func NewAdminRepository(db *bun.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Dashboard(ctx context.Context, since time.Time) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	var err error
	if stats.TotalLeads, err = r.db.NewSelect().TableExpr("leads").Count(ctx); err != nil {
		return stats, fmt.Errorf("count leads: %w", err)
	}
	if stats.TotalSessions, err = r.db.NewSelect().TableExpr("quiz_sessions").Count(ctx); err != nil {
		return stats, fmt.Errorf("count sessions: %w", err)
	}
	stats.QuizCompletions, err = r.db.NewSelect().TableExpr("quiz_sessions").Where("finished_at IS NOT NULL").Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("count completions: %w", err)
	}

	q := r.db.NewSelect().
		TableExpr("leads").
		ColumnExpr("to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date").
		ColumnExpr("count(*) AS count").
		GroupExpr("1").
		OrderExpr("1 ASC")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var days []dayRow
	if err := q.Scan(ctx, &days); err != nil {
		return stats, fmt.Errorf("daily leads: %w", err)
	}
	stats.DailyLeads = make([]domain.DailyCount, 0, len(days))
	for _, d := range days {
		stats.DailyLeads = append(stats.DailyLeads, domain.DailyCount{Date: d.Date, Count: d.Count})
	}
	return stats, nil
}

func (r *AdminRepository) leadQuery(search string) *bun.SelectQuery {
	q := r.db.NewSelect().
		TableExpr("leads AS l").
		ColumnExpr("l.id, p.name, p.email, p.phone").
		ColumnExpr("coalesce(l.quiz_id, '') AS quiz_id").
		ColumnExpr("coalesce(qz.title, '') AS quiz_title").
		ColumnExpr("l.quiz_session_id AS session_id, l.person_id, l.additional_data, l.created_at").
		Join("JOIN persons AS p ON p.id = l.person_id").
		Join("LEFT JOIN quizzes AS qz ON qz.id = l.quiz_id")
	if needle := strings.TrimSpace(search); needle != "" {
		pattern := "%" + needle + "%"
		q = q.Where("(p.name ILIKE ? OR p.email ILIKE ? OR p.phone ILIKE ?)", pattern, pattern, pattern)
	}
	return q.OrderExpr("l.created_at DESC")
}

func (r *AdminRepository) Leads(ctx context.Context, filter domain.LeadFilter) (domain.LeadPage, error) {
	q := r.leadQuery(filter.Search)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Limit(filter.PageSize).Offset((page - 1) * filter.PageSize)
	}
	var rows []leadRow
	total, err := q.ScanAndCount(ctx, &rows)
	if err != nil {
		return domain.LeadPage{}, fmt.Errorf("list leads: %w", err)
	}
	out := domain.LeadPage{Total: total, Leads: make([]domain.Lead, 0, len(rows))}
	if filter.PageSize > 0 {
		out.TotalPages = (total + filter.PageSize - 1) / filter.PageSize
	}
	for _, row := range rows {
		out.Leads = append(out.Leads, row.toDomain())
	}
	return out, nil
}

func (r *AdminRepository) ExportLeads(ctx context.Context, search string) ([]domain.Lead, error) {
	var rows []leadRow
	if err := r.leadQuery(search).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("export leads: %w", err)
	}
	out := make([]domain.Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *AdminRepository) Lead(ctx context.Context, id string) (domain.Lead, error) {
	var rows []leadRow
	if err := r.leadQuery("").Where("l.id = ?", id).Limit(1).Scan(ctx, &rows); err != nil {
		return domain.Lead{}, fmt.Errorf("load lead: %w", err)
	}
	if len(rows) == 0 {
		return domain.Lead{}, fmt.Errorf("%w: %s", domain.ErrLeadNotFound, id)
	}
	return rows[0].toDomain(), nil
}

func (r *AdminRepository) LeadAnswers(ctx context.Context, leadID string) ([]domain.Answer, error) {
	lead, err := r.Lead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	var rows []answerRow
	err = r.db.NewSelect().
		TableExpr("quiz_answers").
		ColumnExpr("id, session_id, step_id, question, answer, created_at").
		Where("session_id = ?", lead.SessionID).
		OrderExpr("created_at ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("lead answers: %w", err)
	}
	out := make([]domain.Answer, 0, len(rows))
	for _, a := range rows {
		out = append(out, domain.Answer{
			ID:        a.ID,
			SessionID: a.SessionID,
			StepID:    a.StepID,
			Question:  a.Question,
			Answer:    a.Answer,
			CreatedAt: a.CreatedAt,
		})
	}
	return out, nil
}

func (r *AdminRepository) QuizSummaries(ctx context.Context) ([]domain.QuizSummary, error) {
	var rows []quizSummaryRow
	err := r.db.NewSelect().
		TableExpr("quizzes AS q").
		ColumnExpr("q.id, q.slug, q.title, q.description, q.final_url, q.webhook_url, q.created_at, q.updated_at").
		ColumnExpr("(SELECT count(*) FROM quiz_sessions s WHERE s.quiz_id = q.id) AS sessions_count").
		ColumnExpr("(SELECT count(*) FROM leads l WHERE l.quiz_id = q.id) AS leads_count").
		OrderExpr("q.created_at DESC, q.slug ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("quiz summaries: %w", err)
	}
	out := make([]domain.QuizSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.QuizSummary{
			Quiz: domain.Quiz{
				ID:          row.ID,
				Slug:        row.Slug,
				Title:       row.Title,
				Description: row.Description,
				FinalURL:    row.FinalURL,
				WebhookURL:  row.WebhookURL,
				CreatedAt:   row.CreatedAt,
				UpdatedAt:   row.UpdatedAt,
			},
			SessionsCount: row.SessionsCount,
			LeadsCount:    row.LeadsCount,
		})
	}
	return out, nil
}

func (r *AdminRepository) QuizByID(ctx context.Context, id string) (domain.Quiz, error) {
	var m quizModel
	if err := r.db.NewSelect().Model(&m).Where("q.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, id)
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return m.toDomain(), nil
}

func (r *AdminRepository) UpdateQuiz(ctx context.Context, id string, upd domain.QuizUpdate, at time.Time) (domain.Quiz, error) {
	q := r.db.NewUpdate().
		Model((*quizModel)(nil)).
		Set("updated_at = ?", at).
		Where("id = ?", id)
	if upd.Title != nil {
		q = q.Set("title = ?", *upd.Title)
	}
	if upd.Description != nil {
		q = q.Set("description = ?", *upd.Description)
	}
	if upd.FinalURL != nil {
		q = q.Set("final_url = ?", *upd.FinalURL)
	}
	if upd.WebhookURL != nil {
		q = q.Set("webhook_url = ?", *upd.WebhookURL)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, id)
	}
	return r.QuizByID(ctx, id)
}

func (r *AdminRepository) QuizActivity(ctx context.Context, quizID string) (domain.QuizActivity, error) {
	var act domain.QuizActivity
	if _, err := r.QuizByID(ctx, quizID); err != nil {
		return act, err
	}

	var err error
	sessions := r.db.NewSelect().TableExpr("quiz_sessions").Where("quiz_id = ?", quizID)
	if act.Sessions, err = sessions.Count(ctx); err != nil {
		return act, fmt.Errorf("count sessions: %w", err)
	}
	act.Completions, err = r.db.NewSelect().TableExpr("quiz_sessions").
		Where("quiz_id = ?", quizID).
		Where("finished_at IS NOT NULL").
		Count(ctx)
	if err != nil {
		return act, fmt.Errorf("count completions: %w", err)
	}
	if act.Leads, err = r.db.NewSelect().TableExpr("leads").Where("quiz_id = ?", quizID).Count(ctx); err != nil {
		return act, fmt.Errorf("count leads: %w", err)
	}

	var steps []stepRow
	err = r.db.NewSelect().
		TableExpr("quiz_events AS e").
		ColumnExpr("e.step_id").
		ColumnExpr("count(*) FILTER (WHERE e.event_type = ?) AS views", string(domain.EventStepView)).
		ColumnExpr("count(*) FILTER (WHERE e.event_type = ?) AS completes", string(domain.EventStepComplete)).
		Join("JOIN quiz_sessions AS s ON s.id = e.session_id").
		Where("s.quiz_id = ?", quizID).
		Where("e.event_type IN (?)", bun.In([]string{string(domain.EventStepView), string(domain.EventStepComplete)})).
		GroupExpr("e.step_id").
		OrderExpr("e.step_id ASC").
		Scan(ctx, &steps)
	if err != nil {
		return act, fmt.Errorf("step counts: %w", err)
	}
	for _, s := range steps {
		act.Steps = append(act.Steps, domain.StepCount{StepID: s.StepID, Views: s.Views, Completes: s.Completes})
	}

	var answers []answerCountRow
	err = r.db.NewSelect().
		TableExpr("quiz_answers AS a").
		ColumnExpr("a.step_id, a.answer, count(*) AS count").
		Join("JOIN quiz_sessions AS s ON s.id = a.session_id").
		Where("s.quiz_id = ?", quizID).
		GroupExpr("a.step_id, a.answer").
		OrderExpr("a.step_id ASC, a.answer ASC").
		Scan(ctx, &answers)
	if err != nil {
		return act, fmt.Errorf("answer counts: %w", err)
	}
	for _, a := range answers {
		act.Answers = append(act.Answers, domain.AnswerCount{StepID: a.StepID, Answer: a.Answer, Count: a.Count})
	}

	sessionDays, err := r.dailyCounts(ctx, "quiz_sessions", "started_at", quizID)
	if err != nil {
		return act, err
	}
	leadDays, err := r.dailyCounts(ctx, "leads", "created_at", quizID)
	if err != nil {
		return act, err
	}
	act.Daily = mergeDaily(sessionDays, leadDays)
	return act, nil
}

func (r *AdminRepository) dailyCounts(ctx context.Context, table, column, quizID string) (map[string]int, error) {
	var rows []dayRow
	err := r.db.NewSelect().
		TableExpr("?", bun.Ident(table)).
		ColumnExpr("to_char(? AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date", bun.Ident(column)).
		ColumnExpr("count(*) AS count").
		Where("quiz_id = ?", quizID).
		GroupExpr("1").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("daily %s: %w", table, err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Date] = row.Count
	}
	return out, nil
}

func mergeDaily(sessions, leads map[string]int) []domain.DailyActivity {
	days := make(map[string]bool, len(sessions)+len(leads))
	for d := range sessions {
		days[d] = true
	}
	for d := range leads {
		days[d] = true
	}
	out := make([]domain.DailyActivity, 0, len(days))
	for d := range days {
		out = append(out, domain.DailyActivity{Date: d, Sessions: sessions[d], Leads: leads[d]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
