package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"quiz-funnel-service/internal/domain"
)

// Dashboard counts leads, sessions and completions; daily leads start at since (all
// leads when since is zero).
func (s *Store) Dashboard(_ context.Context, since time.Time) (domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.DashboardStats{
		TotalLeads:    len(s.leads),
		TotalSessions: len(s.sessions),
	}
	for _, session := range s.sessions {
		if session.FinishedAt != nil {
			stats.QuizCompletions++
		}
	}
	daily := make(map[string]int)
	for _, l := range s.leads {
		if !since.IsZero() && l.createdAt.Before(since) {
			continue
		}
		daily[dayOf(l.createdAt)]++
	}
	stats.DailyLeads = sortedDaily(daily)
	return stats, nil
}

func (s *Store) Leads(_ context.Context, filter domain.LeadFilter) (domain.LeadPage, error) {
	s.mu.RLock()
	matched := s.matchingLeadsLocked(filter.Search)
	s.mu.RUnlock()

	page := domain.LeadPage{Total: len(matched)}
	if filter.PageSize > 0 {
		page.TotalPages = (len(matched) + filter.PageSize - 1) / filter.PageSize
		start := (filter.Page - 1) * filter.PageSize
		if start < 0 {
			start = 0
		}
		if start > len(matched) {
			start = len(matched)
		}
		end := start + filter.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	page.Leads = matched
	return page, nil
}

func (s *Store) ExportLeads(_ context.Context, search string) ([]domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchingLeadsLocked(search), nil
}

func (s *Store) Lead(_ context.Context, id string) (domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.leads {
		if l.id == id {
			return s.leadViewLocked(l), nil
		}
	}
	return domain.Lead{}, fmt.Errorf("%w: %s", domain.ErrLeadNotFound, id)
}

func (s *Store) LeadAnswers(ctx context.Context, leadID string) ([]domain.Answer, error) {
	lead, err := s.Lead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Answer
	for _, a := range s.answers {
		if a.SessionID == lead.SessionID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) QuizSummaries(_ context.Context) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make(map[string]int)
	for _, session := range s.sessions {
		sessions[session.QuizID]++
	}
	leads := make(map[string]int)
	for _, l := range s.leads {
		leads[l.quizID]++
	}
	out := make([]domain.QuizSummary, 0, len(s.quizzes))
	for id, q := range s.quizzes {
		out = append(out, domain.QuizSummary{Quiz: q, SessionsCount: sessions[id], LeadsCount: leads[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].Slug < out[j].Slug) })
	return out, nil
}

func (s *Store) UpdateQuiz(_ context.Context, id string, upd domain.QuizUpdate, at time.Time) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, id)
	}
	if upd.Title != nil {
		quiz.Title = *upd.Title
	}
	if upd.Description != nil {
		quiz.Description = *upd.Description
	}
	if upd.FinalURL != nil {
		quiz.FinalURL = *upd.FinalURL
	}
	if upd.WebhookURL != nil {
		quiz.WebhookURL = *upd.WebhookURL
	}
	quiz.UpdatedAt = at
	s.quizzes[id] = quiz
	return quiz, nil
}

func (s *Store) QuizActivity(_ context.Context, quizID string) (domain.QuizActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.QuizActivity{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
	}

	var act domain.QuizActivity
	inQuiz := make(map[string]bool)
	dailySessions := make(map[string]int)
	dailyLeads := make(map[string]int)
	for id, session := range s.sessions {
		if session.QuizID != quizID {
			continue
		}
		inQuiz[id] = true
		act.Sessions++
		if session.FinishedAt != nil {
			act.Completions++
		}
		dailySessions[dayOf(session.StartedAt)]++
	}
	for _, l := range s.leads {
		if l.quizID == quizID {
			act.Leads++
			dailyLeads[dayOf(l.createdAt)]++
		}
	}

	steps := make(map[string]*domain.StepCount)
	for _, ev := range s.events {
		if !inQuiz[ev.SessionID] {
			continue
		}
		if ev.Type != domain.EventStepView && ev.Type != domain.EventStepComplete {
			continue
		}
		sc, ok := steps[ev.StepID]
		if !ok {
			sc = &domain.StepCount{StepID: ev.StepID}
			steps[ev.StepID] = sc
		}
		if ev.Type == domain.EventStepView {
			sc.Views++
		} else {
			sc.Completes++
		}
	}
	for _, sc := range steps {
		act.Steps = append(act.Steps, *sc)
	}
	sort.Slice(act.Steps, func(i, j int) bool { return act.Steps[i].StepID < act.Steps[j].StepID })

	type answerKey struct{ step, answer string }
	answers := make(map[answerKey]int)
	for _, a := range s.answers {
		if inQuiz[a.SessionID] {
			answers[answerKey{a.StepID, a.Answer}]++
		}
	}
	for k, n := range answers {
		act.Answers = append(act.Answers, domain.AnswerCount{StepID: k.step, Answer: k.answer, Count: n})
	}
	sort.Slice(act.Answers, func(i, j int) bool {
		if act.Answers[i].StepID != act.Answers[j].StepID {
			return act.Answers[i].StepID < act.Answers[j].StepID
		}
		return act.Answers[i].Answer < act.Answers[j].Answer
	})

	days := make(map[string]bool)
	for d := range dailySessions {
		days[d] = true
	}
	for d := range dailyLeads {
		days[d] = true
	}
	for d := range days {
		act.Daily = append(act.Daily, domain.DailyActivity{Date: d, Sessions: dailySessions[d], Leads: dailyLeads[d]})
	}
	sort.Slice(act.Daily, func(i, j int) bool { return act.Daily[i].Date < act.Daily[j].Date })
	return act, nil
}

func (s *Store) matchingLeadsLocked(search string) []domain.Lead {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		view := s.leadViewLocked(l)
		if needle != "" &&
			!strings.Contains(strings.ToLower(view.Name), needle) &&
			!strings.Contains(strings.ToLower(view.Email), needle) &&
			!strings.Contains(view.Phone, needle) {
			continue
		}
		out = append(out, view)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) leadViewLocked(l leadRecord) domain.Lead {
	person := s.persons[l.personID]
	data := make(map[string]string, len(l.additionalData))
	for k, v := range l.additionalData {
		data[k] = v
	}
	return domain.Lead{
		ID:             l.id,
		Name:           person.Name,
		Email:          person.Email,
		Phone:          person.Phone,
		QuizID:         l.quizID,
		QuizTitle:      s.quizzes[l.quizID].Title,
		SessionID:      l.sessionID,
		PersonID:       l.personID,
		AdditionalData: data,
		CreatedAt:      l.createdAt,
	}
}

func sortedDaily(counts map[string]int) []domain.DailyCount {
	out := make([]domain.DailyCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, domain.DailyCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
