package http

import (
	"context"
	"net/http"
	"testing"

	"quiz-funnel-service/internal/domain"
)

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestQuizListingAndTemplate(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/quizzes", "", nil)
	expectStatus(t, resp, http.StatusOK)
	quizzes := decodeBody[[]domain.Quiz](t, resp)
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}

	resp = env.do(t, http.MethodGet, "/api/quizzes/aprendizagem-ia-criancas/template", "", nil)
	expectStatus(t, resp, http.StatusOK)
	tpl := decodeBody[domain.QuizTemplate](t, resp)
	if len(tpl.Order) != 16 || tpl.Order[0] != "opening" {
		t.Fatalf("unexpected template order %v", tpl.Order)
	}

	resp = env.do(t, http.MethodGet, "/api/quizzes/missing/template", "", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	quizID, err := env.funnel.ResolveQuizID(context.Background(), "aprendizagem-ia-criancas")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/api/quizzes/missing/sessions", "", map[string]string{"quiz_id": quizID})
	expectStatus(t, resp, http.StatusNotFound)
	resp = env.do(t, http.MethodPost, "/api/quizzes/aprendizagem-ia-criancas/sessions", "", map[string]string{})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/api/quizzes/aprendizagem-ia-criancas/sessions", "", map[string]string{"quiz_id": quizID})
	expectStatus(t, resp, http.StatusCreated)
	session := decodeBody[domain.Session](t, resp)
	if session.CurrentStep != "intro" || session.SessionToken == "" {
		t.Fatalf("unexpected session %+v", session)
	}
	base := "/api/sessions/" + session.ID

	resp = env.do(t, http.MethodPost, base+"/answers", "", map[string]string{
		"step_id": "age", "question": "Qual a idade do seu filho?", "answer": "7 anos",
	})
	expectStatus(t, resp, http.StatusCreated)
	resp = env.do(t, http.MethodPost, "/api/sessions/missing/answers", "", map[string]string{"step_id": "age", "answer": "x"})
	expectStatus(t, resp, http.StatusNotFound)

	resp = env.do(t, http.MethodPost, base+"/events", "", map[string]any{
		"event_type": "step_view", "step_id": "age", "event_data": map[string]any{"source": "test"},
	})
	expectStatus(t, resp, http.StatusCreated)
	resp = env.do(t, http.MethodPost, base+"/events", "", map[string]any{"event_type": "step_view", "step_id": "age"})
	expectStatus(t, resp, http.StatusBadRequest)
	resp = env.do(t, http.MethodPost, base+"/events", "", map[string]any{
		"event_type": "teleport", "event_data": map[string]any{},
	})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, base+"/complete", "", nil)
	expectStatus(t, resp, http.StatusOK)
	done := decodeBody[completeResponse](t, resp)
	if done.ID != session.ID || done.FinishedAt.IsZero() {
		t.Fatalf("unexpected completion %+v", done)
	}
	stored, _ := env.store.Session(session.ID)
	if stored.FinishedAt == nil {
		t.Fatalf("expected finished_at to be stored")
	}
}

func TestCreateLeadEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quizID, _ := env.funnel.ResolveQuizID(ctx, "transformacao-digital-negocios")
	session, err := env.funnel.CreateSession(ctx, quizID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/api/leads", "", map[string]any{
		"name": "", "email": "ana@example.com", "session_id": session.ID,
	})
	expectStatus(t, resp, http.StatusBadRequest)
	bad := decodeBody[leadResponse](t, resp)
	if bad.Success || bad.Error == "" {
		t.Fatalf("expected failure body, got %+v", bad)
	}

	resp = env.do(t, http.MethodPost, "/api/leads", "", map[string]any{
		"name":            "Ana",
		"email":           "ana@example.com",
		"phone":           "(11) 98765-4321",
		"quiz_id":         quizID,
		"session_id":      session.ID,
		"additional_data": map[string]string{"business_size": "Autônomo/MEI"},
	})
	expectStatus(t, resp, http.StatusOK)
	ok := decodeBody[leadResponse](t, resp)
	if !ok.Success || ok.Data == nil || ok.Data.LeadID == "" {
		t.Fatalf("unexpected lead response %+v", ok)
	}
	stored, _ := env.store.Session(session.ID)
	if stored.PersonID != ok.Data.PersonID {
		t.Fatalf("expected session linked to person %s, got %s", ok.Data.PersonID, stored.PersonID)
	}
}

func TestProviderWebhook(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/webhook/stripe", "", map[string]any{"id": "evt_1"})
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody[map[string]string](t, resp)
	if body["message"] != "Webhook received" {
		t.Fatalf("unexpected body %v", body)
	}
}
