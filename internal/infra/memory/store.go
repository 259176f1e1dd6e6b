package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"quiz-funnel-service/internal/domain"
	"github.com/google/uuid"
)

const dayLayout = "2006-01-02"

// Store keeps funnel records in process memory. It backs both the funnel runtime and
// the admin views when no database is configured.
type Store struct {
	mu sync.RWMutex

	quizzes       map[string]domain.Quiz
	quizBySlug    map[string]string
	sessions      map[string]domain.Session
	answers       []domain.Answer
	events        []domain.Event
	persons       map[string]domain.Person
	personByEmail map[string]string
	leads         []leadRecord
}

type leadRecord struct {
	id             string
	personID       string
	sessionID      string
	quizID         string
	additionalData map[string]string
	createdAt      time.Time
}

func NewStore() *Store {
	return &Store{
		quizzes:       make(map[string]domain.Quiz),
		quizBySlug:    make(map[string]string),
		sessions:      make(map[string]domain.Session),
		persons:       make(map[string]domain.Person),
		personByEmail: make(map[string]string),
	}
}

func (s *Store) LoadQuiz(_ context.Context, slug string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.quizBySlug[slug]
	if !ok {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, slug)
	}
	return s.quizzes[id], nil
}

func (s *Store) QuizByID(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, id)
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *Store) EnsureQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.quizBySlug[quiz.Slug]; ok {
		return s.quizzes[id], nil
	}
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	s.quizzes[quiz.ID] = quiz
	s.quizBySlug[quiz.Slug] = quiz.ID
	return quiz, nil
}

func (s *Store) CreateSession(_ context.Context, session domain.Session) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[session.QuizID]; !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, session.QuizID)
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *Store) SaveAnswer(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[answer.SessionID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, answer.SessionID)
	}
	s.answers = append(s.answers, answer)
	return nil
}

func (s *Store) SaveEvent(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[ev.SessionID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, ev.SessionID)
	}
	for _, existing := range s.events {
		if ev.ID != "" && existing.ID == ev.ID {
			return nil
		}
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *Store) FinishSession(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	session.FinishedAt = &at
	s.sessions[sessionID] = session
	return nil
}

func (s *Store) CreateLead(_ context.Context, in domain.LeadInput, at time.Time) (domain.LeadReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[in.SessionID]
	if !ok {
		return domain.LeadReceipt{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, in.SessionID)
	}

	email := strings.ToLower(in.Email)
	personID, ok := s.personByEmail[email]
	if ok {
		person := s.persons[personID]
		person.Name = in.Name
		person.Phone = in.Phone
		s.persons[personID] = person
	} else {
		personID = uuid.NewString()
		s.persons[personID] = domain.Person{ID: personID, Name: in.Name, Email: in.Email, Phone: in.Phone}
		s.personByEmail[email] = personID
	}

	session.PersonID = personID
	s.sessions[session.ID] = session

	quizID := in.QuizID
	if quizID == "" {
		quizID = session.QuizID
	}
	data := make(map[string]string, len(in.AdditionalData))
	for k, v := range in.AdditionalData {
		data[k] = v
	}
	lead := leadRecord{
		id:             uuid.NewString(),
		personID:       personID,
		sessionID:      session.ID,
		quizID:         quizID,
		additionalData: data,
		createdAt:      at,
	}
	s.leads = append(s.leads, lead)
	return domain.LeadReceipt{LeadID: lead.id, PersonID: personID}, nil
}

// Session is a test helper returning a stored session.
func (s *Store) Session(id string) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Events returns a copy of the stored events.
func (s *Store) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Event(nil), s.events...)
}

func dayOf(t time.Time) string {
	return t.UTC().Format(dayLayout)
}
