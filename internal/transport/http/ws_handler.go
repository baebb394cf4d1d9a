package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"science-quiz/internal/app"
	"science-quiz/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(service *app.QuizService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Name string `json:"name"`
}

type selectPayload struct {
	Key string `json:"key"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type explanationPayload struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS binds one fresh quiz session to the connection for its lifetime.
// A non-blank name query parameter starts the first attempt right away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	session, err := h.service.OpenSession(ctx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.CloseSession(session.ID())
	logger := h.logger.With(zap.String("session_id", session.ID()))

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var pending sync.WaitGroup

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}
	fail := func(message string) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				emit(outboundMessage[any]{Type: "state", Payload: newStateView(snap)})
			case <-closeSignals:
				return
			}
		}
	}()

	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		if err := session.Start(name); err != nil {
			fail(err.Error())
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail("invalid start payload")
				continue
			}
			if err := session.Start(payload.Name); err != nil {
				fail(err.Error())
			}
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail("invalid select payload")
				continue
			}
			key := domain.AnswerKey(strings.ToUpper(strings.TrimSpace(payload.Key)))
			if !key.Valid() {
				fail("answer key must be one of A, B, C, D")
				continue
			}
			session.SelectAnswer(key)
		case "next":
			session.Next()
		case "previous":
			session.Previous()
		case "jump":
			var payload indexPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail("invalid jump payload")
				continue
			}
			session.JumpTo(payload.Index)
		case "submit":
			session.Submit(ctx)
		case "confirm":
			session.ConfirmSubmit(ctx)
		case "return":
			session.ReturnToUnanswered()
		case "dismissWarning":
			session.DismissWarning()
		case "retry":
			session.Retry()
		case "explain":
			var payload indexPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail("invalid explain payload")
				continue
			}
			pending.Add(1)
			go func(index int) {
				defer pending.Done()
				text, err := session.Explain(ctx, index)
				if err != nil {
					fail(err.Error())
					return
				}
				emit(outboundMessage[any]{Type: "explanation", Payload: explanationPayload{Index: index, Text: text}})
			}(payload.Index)
		default:
			fail("unsupported message type")
		}
	}

	cancelCtx()
	close(closeSignals)
	pending.Wait()
	<-updatesDone
	close(send)
	<-writerDone
}
