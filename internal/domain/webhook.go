package domain

import "time"

// LeadWebhook is the payload delivered to a quiz's webhook URL after a lead is stored.
type LeadWebhook struct {
	URL       string            `json:"-"`
	QuizID    string            `json:"quiz_id"`
	QuizSlug  string            `json:"quiz_slug"`
	LeadID    string            `json:"lead_id"`
	PersonID  string            `json:"person_id"`
	SessionID string            `json:"session_id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone,omitempty"`
	Answers   map[string]string `json:"answers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
