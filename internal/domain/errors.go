package domain

import "errors"

var (
	// ErrTemplateNotFound is returned when no quiz template is registered for a slug.
	ErrTemplateNotFound = errors.New("quiz template not found")
	// ErrQuizNotFound indicates the quiz record could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrStepNotFound indicates a step id is not part of the template.
	ErrStepNotFound = errors.New("step not found")
	// ErrOptionNotFound indicates a selected option is not offered by the step.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNoSelection is returned when an answer is submitted without a selected option.
	ErrNoSelection = errors.New("no option selected")
	// ErrNotInitialized is returned when the runtime is used before a session exists.
	ErrNotInitialized = errors.New("quiz session not initialized")
	// ErrControllerClosed is returned once the visitor's runtime has been torn down.
	ErrControllerClosed = errors.New("quiz runtime closed")
	// ErrLeadAlreadySubmitted guards against duplicate lead submissions.
	ErrLeadAlreadySubmitted = errors.New("lead already submitted")
	// ErrLeadNotFound indicates an unknown lead id.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrInvalidEventType is returned for event types outside the known set.
	ErrInvalidEventType = errors.New("invalid event type")
	// ErrUnauthorized indicates missing or invalid admin credentials.
	ErrUnauthorized = errors.New("unauthorized")
)
