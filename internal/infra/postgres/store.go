package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-funnel-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const foreignKeyViolation = "23503"

const quizColumns = `id, slug, title, description, final_url, webhook_url, created_at, updated_at`

// Store persists funnel records in Postgres through a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE slug=$1`, slug)
	quiz, err := scanQuiz(row)
	if err != nil {
		return domain.Quiz{}, wrapNoRows(err, domain.ErrQuizNotFound, slug, "load quiz")
	}
	return quiz, nil
}

func (s *Store) QuizByID(ctx context.Context, id string) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id)
	quiz, err := scanQuiz(row)
	if err != nil {
		return domain.Quiz{}, wrapNoRows(err, domain.ErrQuizNotFound, id, "load quiz")
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (s *Store) EnsureQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, slug, title, description, final_url, webhook_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO NOTHING`,
		quiz.ID, quiz.Slug, quiz.Title, quiz.Description, quiz.FinalURL, quiz.WebhookURL)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("ensure quiz: %w", err)
	}
	return s.LoadQuiz(ctx, quiz.Slug)
}

func (s *Store) CreateSession(ctx context.Context, session domain.Session) (domain.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_sessions (id, quiz_id, current_step, session_token, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.QuizID, session.CurrentStep, session.SessionToken, session.StartedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, session.QuizID)
		}
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *Store) SaveAnswer(ctx context.Context, answer domain.Answer) error {
	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_answers (id, session_id, step_id, question, answer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		answer.ID, answer.SessionID, answer.StepID, answer.Question, answer.Answer, answer.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, answer.SessionID)
		}
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

// SaveEvent is idempotent on the event id so redelivered pub/sub messages are harmless.
func (s *Store) SaveEvent(ctx context.Context, ev domain.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	data := ev.Data
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_events (id, session_id, event_type, step_id, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.SessionID, string(ev.Type), ev.StepID, raw, ev.OccurredAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, ev.SessionID)
		}
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func (s *Store) FinishSession(ctx context.Context, sessionID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quiz_sessions SET finished_at=$2 WHERE id=$1`, sessionID, at)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return nil
}

func (s *Store) CreateLead(ctx context.Context, in domain.LeadInput, at time.Time) (domain.LeadReceipt, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.LeadReceipt{}, fmt.Errorf("begin lead tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var sessionQuizID string
	err = tx.QueryRow(ctx, `SELECT quiz_id FROM quiz_sessions WHERE id=$1 FOR UPDATE`, in.SessionID).Scan(&sessionQuizID)
	if err != nil {
		return domain.LeadReceipt{}, wrapNoRows(err, domain.ErrSessionNotFound, in.SessionID, "lock session")
	}

	var personID string
	err = tx.QueryRow(ctx, `
		INSERT INTO persons (id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ((lower(email))) DO UPDATE SET name=EXCLUDED.name, phone=EXCLUDED.phone
		RETURNING id`,
		uuid.NewString(), in.Name, in.Email, in.Phone, at).Scan(&personID)
	if err != nil {
		return domain.LeadReceipt{}, fmt.Errorf("upsert person: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE quiz_sessions SET person_id=$2 WHERE id=$1`, in.SessionID, personID); err != nil {
		return domain.LeadReceipt{}, fmt.Errorf("link session: %w", err)
	}

	quizID := strings.TrimSpace(in.QuizID)
	if quizID == "" {
		quizID = sessionQuizID
	}
	data := in.AdditionalData
	if data == nil {
		data = map[string]string{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return domain.LeadReceipt{}, fmt.Errorf("marshal lead data: %w", err)
	}
	leadID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO leads (id, person_id, quiz_session_id, quiz_id, additional_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		leadID, personID, in.SessionID, quizID, raw, at)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.LeadReceipt{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
		}
		return domain.LeadReceipt{}, fmt.Errorf("insert lead: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.LeadReceipt{}, fmt.Errorf("commit lead: %w", err)
	}
	return domain.LeadReceipt{LeadID: leadID, PersonID: personID}, nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(&q.ID, &q.Slug, &q.Title, &q.Description, &q.FinalURL, &q.WebhookURL, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func wrapNoRows(err, notFound error, key, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", notFound, key)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
