package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"quiz-funnel-service/internal/domain"
)

var errBackendDown = errors.New("backend down")

type fakeBackend struct {
	mu sync.Mutex

	resolveErr error
	sessionErr error
	leadErr    error

	resolveCalls  int
	sessionCalls  int
	answers       []domain.Answer
	completeCalls []string
	leads         []domain.LeadInput
}

func (b *fakeBackend) ResolveQuizID(_ context.Context, slug string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resolveCalls++
	if b.resolveErr != nil {
		return "", b.resolveErr
	}
	return "quiz-" + slug, nil
}

func (b *fakeBackend) CreateSession(_ context.Context, quizID string) (domain.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionCalls++
	if b.sessionErr != nil {
		return domain.Session{}, b.sessionErr
	}
	return domain.Session{ID: "session-1", QuizID: quizID}, nil
}

func (b *fakeBackend) RecordAnswer(_ context.Context, a domain.Answer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answers = append(b.answers, a)
	return nil
}

func (b *fakeBackend) RecordEvent(context.Context, domain.Event) error { return nil }

func (b *fakeBackend) CompleteSession(_ context.Context, sessionID string) (time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completeCalls = append(b.completeCalls, sessionID)
	return time.Now(), nil
}

func (b *fakeBackend) CreateLead(_ context.Context, in domain.LeadInput) (domain.LeadReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leads = append(b.leads, in)
	if b.leadErr != nil {
		return domain.LeadReceipt{}, b.leadErr
	}
	return domain.LeadReceipt{LeadID: "lead-1", PersonID: "person-1"}, nil
}

func (b *fakeBackend) setLeadErr(err error) {
	b.mu.Lock()
	b.leadErr = err
	b.mu.Unlock()
}

func (b *fakeBackend) completions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.completeCalls...)
}

func (b *fakeBackend) recordedAnswers() []domain.Answer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Answer(nil), b.answers...)
}

func (b *fakeBackend) leadInputs() []domain.LeadInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.LeadInput(nil), b.leads...)
}

// fakeSink keeps events in the order they were issued.
type fakeSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *fakeSink) Record(ev domain.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *fakeSink) Flush() {}

func (s *fakeSink) recorded() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

func (s *fakeSink) reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

type typedStep struct {
	Type domain.EventType
	Step string
}

func (s *fakeSink) sequence() []typedStep {
	var out []typedStep
	for _, ev := range s.recorded() {
		out = append(out, typedStep{Type: ev.Type, Step: ev.StepID})
	}
	return out
}

// manualScheduler fires timers only when the test asks it to.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fireAll runs every timer ever scheduled, including stopped ones, to prove that stale
// callbacks are ignored.
func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if t.fired {
			continue
		}
		t.fired = true
		t.fn()
	}
}
