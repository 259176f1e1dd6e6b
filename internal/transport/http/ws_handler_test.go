package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func dialQuiz(t *testing.T, env *testEnv, slug string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?slug=" + slug
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match returns true. Intermediate snapshots are
// skipped since the subscription may coalesce or repeat them.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(wsMessage) bool) wsMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var msg wsMessage
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func stateWhere(cond func(p map[string]any) bool) func(wsMessage) bool {
	return func(m wsMessage) bool { return m.Type == "state" && cond(m.Payload) }
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestWebSocketRequiresKnownSlug(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/ws", "", nil)
	expectStatus(t, resp, http.StatusBadRequest)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?slug=missing"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail for unknown slug")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown slug, got %v", resp)
	}
}

func TestWebSocketFunnelFlow(t *testing.T) {
	env := newTestEnv(t)
	conn := dialQuiz(t, env, "transformacao-digital-negocios")

	initial := readUntil(t, conn, "initialized state", stateWhere(func(p map[string]any) bool {
		id, _ := p["session_id"].(string)
		return id != ""
	}))
	sessionID := initial.Payload["session_id"].(string)
	if initial.Payload["total_steps"].(float64) != 14 {
		t.Fatalf("expected 14 steps, got %v", initial.Payload["total_steps"])
	}
	if env.runtime.Active() != 1 {
		t.Fatalf("expected one active runtime, got %d", env.runtime.Active())
	}

	send(t, conn, "next", nil)
	readUntil(t, conn, "business_size step", stateWhere(func(p map[string]any) bool {
		return p["current_question_index"].(float64) == 1
	}))

	send(t, conn, "submit", map[string]string{"step_id": "business_size"})
	errMsg := readUntil(t, conn, "no selection error", func(m wsMessage) bool { return m.Type == "error" })
	if errMsg.Payload["message"] == "" {
		t.Fatalf("expected error message")
	}

	send(t, conn, "select", map[string]string{"step_id": "business_size", "option": "Autônomo/MEI"})
	send(t, conn, "submit", map[string]string{"step_id": "business_size"})
	answered := readUntil(t, conn, "answered state", stateWhere(func(p map[string]any) bool {
		return p["current_question_index"].(float64) == 2
	}))
	answers, _ := answered.Payload["answers"].(map[string]any)
	if answers["business_size"] != "Autônomo/MEI" {
		t.Fatalf("expected recorded answer, got %v", answers)
	}

	send(t, conn, "back", nil)
	readUntil(t, conn, "retreated state", stateWhere(func(p map[string]any) bool {
		return p["current_question_index"].(float64) == 1
	}))

	send(t, conn, "bogus", nil)
	readUntil(t, conn, "unsupported type error", func(m wsMessage) bool {
		return m.Type == "error" && m.Payload["message"] == "unsupported message type"
	})

	send(t, conn, "lead", map[string]any{"name": "Ana", "email": "ana", "accepted_terms": true})
	invalid := readUntil(t, conn, "lead validation error", func(m wsMessage) bool { return m.Type == "error" })
	if _, ok := invalid.Payload["fields"]; !ok {
		t.Fatalf("expected field errors, got %v", invalid.Payload)
	}

	send(t, conn, "lead", map[string]any{"name": "Ana", "email": "ana@example.com", "phone": "11987654321", "accepted_terms": true})
	accepted := readUntil(t, conn, "lead reply", func(m wsMessage) bool { return m.Type == "lead" })
	if accepted.Payload["lead_id"] == "" {
		t.Fatalf("expected lead id, got %v", accepted.Payload)
	}

	stored, ok := env.store.Session(sessionID)
	if !ok || stored.PersonID == "" {
		t.Fatalf("expected session linked to the lead's person, got %+v", stored)
	}
}
