package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-funnel-service/internal/admin"
	"quiz-funnel-service/internal/app"
	"quiz-funnel-service/internal/events"
	"quiz-funnel-service/internal/infra/memory"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/templates"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	server   *httptest.Server
	store    *memory.Store
	funnel   *app.FunnelService
	runtime  *app.Runtime
	presence *memory.Presence
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.Discard()
	ctx := context.Background()

	store := memory.NewStore()
	directory := memory.NewQuizDirectory(store, time.Minute)
	funnel := app.NewFunnelService(store, directory, nil, logger)
	registry := templates.NewBuiltinRegistry()
	if err := funnel.SeedQuizzes(ctx, registry.All()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sink := events.NewDirectSink(funnel, time.Second, logger)
	presence := memory.NewPresence(time.Minute)
	runtime := app.NewRuntime(registry, funnel, sink, presence, app.RuntimeConfig{
		AutoAdvanceDelay: time.Hour,
		CallTimeout:      time.Second,
	}, logger)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	auth := admin.NewAuthenticator(admin.AuthConfig{
		Username:     "admin",
		PasswordHash: string(hash),
		Secret:       "test-secret",
		TokenTTL:     time.Hour,
	})
	adminSvc := admin.NewService(store, directory, presence, registry, logger)

	router := NewRouter(RouterConfig{
		API:         NewAPIHandler(funnel, registry, logger),
		Admin:       NewAdminHandler(adminSvc, auth, logger),
		WS:          NewWSHandler(runtime, logger),
		CORSOrigins: []string{"*"},
		Logger:      logger,
	})
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = runtime.Shutdown(shutdownCtx)
	})
	return &testEnv{server: server, store: store, funnel: funnel, runtime: runtime, presence: presence}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected status %d, got %d", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode)
	}
}
