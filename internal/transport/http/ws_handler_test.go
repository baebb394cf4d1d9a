package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"science-quiz/internal/app"
	"science-quiz/internal/bank"
	"science-quiz/internal/infra/memory"
)

func TestWebSocketQuizFlow(t *testing.T) {
	service, _ := newTestService(t)
	server := httptest.NewServer(NewRouter(service, nil, nil))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?name=Lan"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	state := readState(t, conn, func(s stateView) bool { return s.Status == app.StatusActive })
	if len(state.Questions) != 15 {
		t.Fatalf("expected 15 questions, got %d", len(state.Questions))
	}
	for _, q := range state.Questions {
		if q.Correct != "" || q.Explanation != "" {
			t.Fatalf("answers must stay hidden while active: %+v", q)
		}
	}

	send(t, conn, "select", map[string]any{"key": "b"})
	state = readState(t, conn, func(s stateView) bool { return s.Answered == 1 })
	if state.Selections[0] != "B" {
		t.Fatalf("expected B selected, got %q", state.Selections[0])
	}

	send(t, conn, "submit", nil)
	state = readState(t, conn, func(s stateView) bool { return s.Confirm != nil })
	if state.Confirm.UnansweredCount != 14 || state.Confirm.FirstUnansweredIndex != 1 {
		t.Fatalf("unexpected confirm prompt %+v", state.Confirm)
	}

	send(t, conn, "confirm", nil)
	state = readState(t, conn, func(s stateView) bool { return s.Status == app.StatusFinished })
	if state.Attempt == nil || state.Attempt.TotalQuestions != 15 || state.Attempt.StudentName != "Lan" {
		t.Fatalf("unexpected attempt %+v", state.Attempt)
	}
	if state.Questions[0].Correct == "" {
		t.Fatalf("answers should be revealed after finish")
	}

	send(t, conn, "explain", map[string]any{"index": 0})
	msg := readMessage(t, conn, "explanation")
	var explanation explanationPayload
	if err := json.Unmarshal(msg, &explanation); err != nil {
		t.Fatalf("decode explanation: %v", err)
	}
	if explanation.Text != "giải thích" || explanation.Index != 0 {
		t.Fatalf("unexpected explanation %+v", explanation)
	}
	// The explain request is handled after confirm returned, so the attempt is persisted by now.
	if len(service.History("Lan")) != 1 {
		t.Fatalf("expected attempt in history")
	}

	send(t, conn, "retry", nil)
	state = readState(t, conn, func(s stateView) bool { return s.AwaitingName })
	if state.DefaultName != "Lan" {
		t.Fatalf("expected default name Lan, got %q", state.DefaultName)
	}
}

func TestWebSocketRejectsBadInput(t *testing.T) {
	service, _ := newTestService(t)
	server := httptest.NewServer(NewRouter(service, nil, nil))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(t, conn, "start", map[string]any{"name": "   "})
	readMessage(t, conn, "error")

	send(t, conn, "dance", nil)
	readMessage(t, conn, "error")
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readMessage skips messages until one of type typ arrives and returns its payload.
func readMessage(t *testing.T, conn *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var msg inboundMessage
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg.Payload
		}
	}
}

func readState(t *testing.T, conn *websocket.Conn, match func(stateView) bool) stateView {
	t.Helper()
	for {
		var s stateView
		if err := json.Unmarshal(readMessage(t, conn, "state"), &s); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if match(s) {
			return s
		}
	}
}

type stubExplainer struct{}

func (stubExplainer) Explain(context.Context, string) (string, error) {
	return "giải thích", nil
}

func newTestService(t *testing.T) (*app.QuizService, *app.HistoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b, err := bank.Embedded()
	if err != nil {
		t.Fatalf("embedded bank: %v", err)
	}
	history := app.NewHistoryStore(memory.NewKVStore(), app.HistoryConfig{}, nil, nil)
	service := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewBankRepository(bank.NewLoader(b), time.Minute),
		history,
		app.NewExplanationService(stubExplainer{}, nil, nil),
		app.ServiceConfig{BankID: bank.DefaultID, Session: app.DefaultSessionConfig()},
		nil,
		nil,
	)
	return service, history
}
