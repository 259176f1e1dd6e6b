package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Record(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Flush() {}

func (s *recordingSink) recorded() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

func sampleHook(url string) domain.LeadWebhook {
	return domain.LeadWebhook{
		URL:       url,
		QuizID:    "quiz-1",
		QuizSlug:  "aprendizagem-ia-criancas",
		LeadID:    "lead-1",
		PersonID:  "person-1",
		SessionID: "session-1",
		Name:      "Ana",
		Email:     "ana@example.com",
		Answers:   map[string]string{"age": "7 anos"},
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDeliverPostsJSONAndRecordsSuccess(t *testing.T) {
	var got domain.LeadWebhook
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	d := NewDeliverer(time.Second, sink, logging.Discard())
	require.NoError(t, d.Deliver(context.Background(), sampleHook(srv.URL)))

	assert.Equal(t, "lead-1", got.LeadID)
	assert.Equal(t, "7 anos", got.Answers["age"])
	evs := sink.recorded()
	require.Len(t, evs, 1)
	assert.Equal(t, domain.EventWebhookOK, evs[0].Type)
	assert.Equal(t, "session-1", evs[0].SessionID)
	assert.Equal(t, http.StatusAccepted, evs[0].Data["status_code"])
}

func TestDeliverRecordsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	d := NewDeliverer(time.Second, sink, logging.Discard())
	err := d.Deliver(context.Background(), sampleHook(srv.URL))
	require.Error(t, err)

	evs := sink.recorded()
	require.Len(t, evs, 1)
	assert.Equal(t, domain.EventWebhookFailed, evs[0].Type)
	assert.Contains(t, evs[0].Data["error"], "500")
}

func TestInlineDispatcherDelivers(t *testing.T) {
	hits := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
	}))
	defer srv.Close()

	sink := &recordingSink{}
	d := NewInlineDispatcher(NewDeliverer(time.Second, sink, logging.Discard()), time.Second)
	require.NoError(t, d.DispatchLead(context.Background(), sampleHook(srv.URL)))
	d.Wait()

	select {
	case <-hits:
	default:
		t.Fatal("expected webhook to be delivered")
	}
	require.Len(t, sink.recorded(), 1)
}

func TestLeadWebhookTaskRoundTrip(t *testing.T) {
	var got domain.LeadWebhook
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	hook := sampleHook(srv.URL)
	task, err := newLeadWebhookTask(hook, time.Second)
	require.NoError(t, err)
	assert.Equal(t, TypeLeadWebhook, task.Type())

	w := &Worker{deliverer: NewDeliverer(time.Second, nil, logging.Discard()), logger: logging.Discard()}
	require.NoError(t, w.handleLeadWebhook(context.Background(), task))
	assert.Equal(t, hook.LeadID, got.LeadID)
}

func TestLeadWebhookTaskRejectsGarbage(t *testing.T) {
	w := &Worker{deliverer: NewDeliverer(time.Second, nil, logging.Discard()), logger: logging.Discard()}
	err := w.handleLeadWebhook(context.Background(), asynq.NewTask(TypeLeadWebhook, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
