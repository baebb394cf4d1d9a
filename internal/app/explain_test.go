package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"science-quiz/internal/app"
	"science-quiz/internal/domain"
)

func TestBuildPromptBranches(t *testing.T) {
	q := sampleQuestion()

	correct := app.BuildPrompt(app.Record(q, 1, domain.Chosen(domain.KeyB)))
	assert.Contains(t, correct, "đã trả lời đúng")
	assert.Contains(t, correct, `Đáp án đúng: "B. 100"`)
	assert.Contains(t, correct, q.Explanation)
	assert.Contains(t, correct, q.Prompt)

	wrong := app.BuildPrompt(app.Record(q, 1, domain.Chosen(domain.KeyA)))
	assert.Contains(t, wrong, "trả lời sai")
	assert.Contains(t, wrong, `"A. 90" thay vì đáp án đúng là "B. 100"`)
	assert.Contains(t, wrong, q.Prompt)
	assert.NotContains(t, wrong, q.Explanation)

	skipped := app.BuildPrompt(app.Record(q, 1, domain.NotChosen))
	assert.Contains(t, skipped, fmt.Sprintf(`"%s" thay vì`, domain.UnansweredText))
}

func TestExplanationServiceMessages(t *testing.T) {
	rec := app.Record(sampleQuestion(), 1, domain.Chosen(domain.KeyA))
	ctx := context.Background()

	metrics := newCountingMetrics()
	unset := app.NewExplanationService(nil, nil, metrics)
	assert.Equal(t, app.NotConfiguredMessage, unset.Explain(ctx, rec))

	noKey := app.NewExplanationService(&fakeExplainer{err: fmt.Errorf("client: %w", domain.ErrExplainerNotConfigured)}, nil, metrics)
	assert.Equal(t, app.NotConfiguredMessage, noKey.Explain(ctx, rec))

	broken := app.NewExplanationService(&fakeExplainer{err: errors.New("timeout")}, nil, metrics)
	assert.Equal(t, app.ApologyMessage, broken.Explain(ctx, rec))

	fine := &fakeExplainer{reply: "Vì 90 độ chưa đủ."}
	assert.Equal(t, "Vì 90 độ chưa đủ.", app.NewExplanationService(fine, nil, metrics).Explain(ctx, rec))
	assert.Equal(t, []string{app.BuildPrompt(rec)}, fine.prompts)

	assert.Equal(t, 3, metrics.explainFailed)
	assert.Equal(t, 1, metrics.explainOK)
}
