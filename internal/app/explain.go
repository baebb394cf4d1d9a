package app

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"science-quiz/internal/domain"
)

const (
	// NotConfiguredMessage is shown when no explanation client credentials are set.
	NotConfiguredMessage = "Lỗi: Khóa API chưa được cấu hình. Vui lòng liên hệ quản trị viên."
	// ApologyMessage is shown when the explanation service fails.
	ApologyMessage = "Đã xảy ra lỗi khi kết nối với AI. Vui lòng thử lại sau."
)

// Explainer sends a prompt to a language model and returns its reply.
type Explainer interface {
	Explain(ctx context.Context, prompt string) (string, error)
}

// ExplanationService wraps an Explainer so failures become fixed user-facing text.
type ExplanationService struct {
	client  Explainer
	logger  *zap.Logger
	metrics Metrics
}

func NewExplanationService(client Explainer, logger *zap.Logger, metrics Metrics) *ExplanationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &ExplanationService{client: client, logger: logger, metrics: metrics}
}

// Explain never returns an error; failures are reported as ApologyMessage.
func (e *ExplanationService) Explain(ctx context.Context, rec domain.AnswerRecord) string {
	if e.client == nil {
		e.logger.Warn("explanation requested without a configured client")
		e.metrics.ExplanationServed(false)
		return NotConfiguredMessage
	}

	text, err := e.client.Explain(ctx, BuildPrompt(rec))
	switch {
	case errors.Is(err, domain.ErrExplainerNotConfigured):
		e.logger.Warn("explanation client not configured")
		e.metrics.ExplanationServed(false)
		return NotConfiguredMessage
	case err != nil:
		e.logger.Error("explanation request failed", zap.String("question", rec.Question), zap.Error(err))
		e.metrics.ExplanationServed(false)
		return ApologyMessage
	}
	e.metrics.ExplanationServed(true)
	return text
}
