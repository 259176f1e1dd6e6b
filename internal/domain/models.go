package domain

import "time"

// Quiz is the persisted record backing a template. Sessions and leads reference its ID.
type Quiz struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FinalURL    string    `json:"final_url,omitempty"`
	WebhookURL  string    `json:"webhook_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QuizUpdate carries the admin-editable quiz fields.
type QuizUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	FinalURL    *string `json:"final_url"`
	WebhookURL  *string `json:"webhook_url"`
}

// Session is one visitor's pass through a quiz.
type Session struct {
	ID           string     `json:"id"`
	QuizID       string     `json:"quiz_id"`
	CurrentStep  string     `json:"current_step"`
	SessionToken string     `json:"session_token"`
	PersonID     string     `json:"person_id,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Answer is a single recorded step answer.
type Answer struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"session_id"`
	StepID    string    `json:"step_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Person is a lead's contact identity, unique by email.
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// LeadInput is the payload accepted by lead creation.
type LeadInput struct {
	Name           string            `json:"name" validate:"notblank"`
	Email          string            `json:"email" validate:"notblank,contains=@"`
	Phone          string            `json:"phone"`
	QuizID         string            `json:"quiz_id"`
	SessionID      string            `json:"session_id" validate:"required"`
	AdditionalData map[string]string `json:"additional_data"`
}

// LeadReceipt identifies a stored lead.
type LeadReceipt struct {
	LeadID   string `json:"lead_id"`
	PersonID string `json:"person_id"`
}

// Lead is the admin view of a captured lead.
type Lead struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone,omitempty"`
	QuizID         string            `json:"quiz_id"`
	QuizTitle      string            `json:"quiz_title,omitempty"`
	SessionID      string            `json:"session_id"`
	PersonID       string            `json:"person_id"`
	AdditionalData map[string]string `json:"additional_data,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// LeadFilter selects a page of leads.
type LeadFilter struct {
	Page     int
	PageSize int
	Search   string
}

// LeadPage is a paginated lead listing.
type LeadPage struct {
	Leads      []Lead `json:"leads"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
}

// QuizSummary is a quiz record with its session and lead counts.
type QuizSummary struct {
	Quiz
	SessionsCount int `json:"sessions_count"`
	LeadsCount    int `json:"leads_count"`
}

// DailyCount is one day's tally, keyed by YYYY-MM-DD.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DashboardStats aggregates the funnel across all quizzes.
type DashboardStats struct {
	TotalLeads      int          `json:"total_leads"`
	TotalSessions   int          `json:"total_sessions"`
	ConversionRate  int          `json:"conversion_rate"`
	QuizCompletions int          `json:"quiz_completions"`
	ActiveVisitors  int64        `json:"active_visitors"`
	DailyLeads      []DailyCount `json:"daily_leads"`
}

// StepCount tallies step_view and step_complete events for one step.
type StepCount struct {
	StepID    string `json:"step_id"`
	Views     int    `json:"views"`
	Completes int    `json:"completes"`
}

// AnswerCount tallies one answer value for a step.
type AnswerCount struct {
	StepID string `json:"step_id"`
	Answer string `json:"answer"`
	Count  int    `json:"count"`
}

// DailyActivity counts sessions and leads created on one day.
type DailyActivity struct {
	Date     string `json:"date"`
	Sessions int    `json:"sessions"`
	Leads    int    `json:"leads"`
}

// QuizActivity is the raw material for quiz analytics, as returned by repositories.
type QuizActivity struct {
	Sessions    int
	Completions int
	Leads       int
	Steps       []StepCount
	Answers     []AnswerCount
	Daily       []DailyActivity
}
