package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"science-quiz/internal/domain"
)

func TestExplainSendsChatCompletion(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Nước sôi ở 100°C.  "}}]}`))
	}))
	defer srv.Close()

	client := NewClient("secret", srv.URL+"/", "", time.Second)
	text, err := client.Explain(context.Background(), "Tại sao?")
	require.NoError(t, err)

	assert.Equal(t, "Nước sôi ở 100°C.", text)
	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, systemInstruction, got.Messages[0].Content)
	assert.Equal(t, chatMessage{Role: "user", Content: "Tại sao?"}, got.Messages[1])
}

func TestExplainWithoutKey(t *testing.T) {
	_, err := NewClient("", "", "", 0).Explain(context.Background(), "x")
	assert.True(t, errors.Is(err, domain.ErrExplainerNotConfigured))
}

func TestExplainFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota", http.StatusTooManyRequests)
		},
		"api error": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		},
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewClient("secret", srv.URL, "m", time.Second).Explain(context.Background(), "x")
			require.Error(t, err)
			assert.False(t, errors.Is(err, domain.ErrExplainerNotConfigured))
		})
	}
}
