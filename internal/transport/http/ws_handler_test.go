package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/grading"
	"quiz-attempt-engine/internal/infra/memory"
)

type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newWSServer(t *testing.T) *httptest.Server {
	t.Helper()
	quizzes := memory.NewQuizStore(memory.NewStaticDefinitionLoader(map[string]domain.QuizDefinition{
		"quiz-1": testDefinition(),
	}), 5*time.Minute)
	svc := grading.NewService(quizzes, memory.NewAttemptStore(), 5*time.Second)

	mux := http.NewServeMux()
	handler := NewWSHandler(svc)
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):] + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitFor reads until a message of the wanted type arrives, skipping the
// status and tick traffic interleaved with it.
func waitFor(t *testing.T, conn *websocket.Conn, wanted string) wsEnvelope {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read while waiting for %q: %v", wanted, err)
		}
		if env.Type == wanted {
			return env
		}
		if env.Type == "error" {
			t.Fatalf("got error message while waiting for %q: %s", wanted, env.Payload)
		}
	}
	t.Fatalf("timed out waiting for %q", wanted)
	return wsEnvelope{}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %q: %v", msgType, err)
	}
}

func TestWSAttemptLifecycle(t *testing.T) {
	server := newWSServer(t)
	conn := dialWS(t, server, "?quizId=quiz-1")

	send(t, conn, "start", nil)
	started := waitFor(t, conn, "started")
	var seed domain.AttemptSeed
	if err := json.Unmarshal(started.Payload, &seed); err != nil {
		t.Fatalf("decode seed: %v", err)
	}
	if seed.QuizID != "quiz-1" || len(seed.Questions) != 2 {
		t.Fatalf("unexpected seed: %+v", seed)
	}

	idx := 1
	send(t, conn, "select", selectPayload{QuestionID: "q1", SelectedIndex: &idx})
	send(t, conn, "next", nil)
	send(t, conn, "select", selectPayload{QuestionID: "q2", SelectedIndexes: []int{0, 2}})

	send(t, conn, "submit", nil)
	resultMsg := waitFor(t, conn, "result")
	var result domain.Result
	if err := json.Unmarshal(resultMsg.Payload, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Passed || result.ScorePercent != 100 {
		t.Fatalf("expected a passing result, got %+v", result)
	}

	// The per-question review follows the result.
	waitFor(t, conn, "review")
}

func TestWSSelectBeforeStartIsAnError(t *testing.T) {
	server := newWSServer(t)
	conn := dialWS(t, server, "?quizId=quiz-1")

	idx := 0
	send(t, conn, "select", selectPayload{QuestionID: "q1", SelectedIndex: &idx})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != "error" {
		t.Fatalf("expected error message, got %q", env.Type)
	}
}

func TestWSRequiresQuizID(t *testing.T) {
	server := newWSServer(t)

	url := "ws" + server.URL[len("http"):] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail without quizId")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 handshake rejection, got %+v", resp)
	}
}
