package domain

import "time"

// EventType enumerates the funnel events understood by the event log.
type EventType string

const (
	EventQuizStart     EventType = "quiz_start"
	EventStepView      EventType = "step_view"
	EventStepComplete  EventType = "step_complete"
	EventAnswer        EventType = "answer"
	EventQuizComplete  EventType = "quiz_complete"
	EventSubmitLead    EventType = "submit_lead"
	EventPageView      EventType = "page_view"
	EventButtonClick   EventType = "button_click"
	EventFormSubmit    EventType = "form_submit"
	EventWebhookOK     EventType = "webhook_success"
	EventWebhookFailed EventType = "webhook_failure"
)

var knownEventTypes = map[EventType]struct{}{
	EventQuizStart:     {},
	EventStepView:      {},
	EventStepComplete:  {},
	EventAnswer:        {},
	EventQuizComplete:  {},
	EventSubmitLead:    {},
	EventPageView:      {},
	EventButtonClick:   {},
	EventFormSubmit:    {},
	EventWebhookOK:     {},
	EventWebhookFailed: {},
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// Event is a timestamped fact about a session. OccurredAt is the moment the event was
// issued, not when it was delivered.
type Event struct {
	ID         string         `json:"id,omitempty"`
	SessionID  string         `json:"session_id"`
	Type       EventType      `json:"event_type"`
	StepID     string         `json:"step_id"`
	Data       map[string]any `json:"event_data"`
	OccurredAt time.Time      `json:"created_at"`
}

// NewEvent stamps an event at now and copies the payload, adding the ISO timestamp the
// event log has always carried inside event_data.
func NewEvent(sessionID string, typ EventType, stepID string, data map[string]any, now time.Time) Event {
	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["timestamp"] = now.UTC().Format(time.RFC3339Nano)
	return Event{
		SessionID:  sessionID,
		Type:       typ,
		StepID:     stepID,
		Data:       payload,
		OccurredAt: now,
	}
}
