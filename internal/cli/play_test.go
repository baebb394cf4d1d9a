package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"science-quiz/internal/app"
	"science-quiz/internal/bank"
	"science-quiz/internal/domain"
	"science-quiz/internal/infra/memory"
)

type cannedExplainer struct{ text string }

func (c cannedExplainer) Explain(context.Context, string) (string, error) {
	return c.text, nil
}

func newPlaySession(t *testing.T) (*app.Session, *app.HistoryStore) {
	t.Helper()
	b, err := bank.Embedded()
	require.NoError(t, err)

	history := app.NewHistoryStore(memory.NewKVStore(), app.HistoryConfig{}, nil, nil)
	explainer := app.NewExplanationService(cannedExplainer{text: "Lời giải thích thử nghiệm"}, nil, nil)
	session, err := app.NewSession("play-test", b.Questions, history, explainer, app.DefaultSessionConfig())
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session, history
}

func TestPlaySubmitExplainRetry(t *testing.T) {
	session, history := newPlaySession(t)
	in := strings.NewReader("Lan\nb\ns\ny\ne 1\nr\n\nq\n")
	var out bytes.Buffer

	require.NoError(t, Play(context.Background(), session, in, &out))

	text := out.String()
	assert.Contains(t, text, "Bạn còn 14 câu chưa trả lời (câu đầu tiên: 2)")
	assert.Contains(t, text, "Kết quả của Lan:")
	assert.Contains(t, text, "Lời giải thích thử nghiệm")
	assert.Contains(t, text, "Nhập tên của bạn [Lan]:")

	attempts := history.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, "Lan", attempts[0].StudentName)
	assert.Equal(t, domain.RecordedAnswerKey("B"), attempts[0].Answers[0].AnswerKey)

	snap := session.Snapshot()
	assert.Equal(t, app.StatusActive, snap.Status)
	assert.Equal(t, "Lan", snap.StudentName)
}

func TestPlayRejectsBlankNameAndStopsOnEOF(t *testing.T) {
	session, history := newPlaySession(t)
	var out bytes.Buffer

	require.NoError(t, Play(context.Background(), session, strings.NewReader("   \n"), &out))

	assert.Contains(t, out.String(), "Tên không được để trống.")
	assert.Equal(t, app.StatusIdle, session.Snapshot().Status)
	assert.Empty(t, history.Attempts())
}

func TestPlayReturnToUnansweredAndNavigate(t *testing.T) {
	session, _ := newPlaySession(t)
	in := strings.NewReader("Minh\nc\nc\ns\nr\ng 5\np\nzz\nq\n")
	var out bytes.Buffer

	require.NoError(t, Play(context.Background(), session, in, &out))

	snap := session.Snapshot()
	assert.Equal(t, app.StatusActive, snap.Status)
	assert.Equal(t, 3, snap.Index)
	assert.Equal(t, 2, snap.AnsweredCount())
	assert.Nil(t, snap.Confirm)
	assert.Contains(t, out.String(), "Lệnh không hợp lệ")
}

func TestPlayConfirmPromptIgnoresAnswerLetters(t *testing.T) {
	session, history := newPlaySession(t)
	in := strings.NewReader("Lan\nb\ns\nc\nn\nr\nq\n")
	var out bytes.Buffer

	require.NoError(t, Play(context.Background(), session, in, &out))

	snap := session.Snapshot()
	assert.Equal(t, app.StatusActive, snap.Status)
	assert.Nil(t, snap.Confirm)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, 1, snap.AnsweredCount())
	assert.Empty(t, history.Attempts())
	assert.Equal(t, 2, strings.Count(out.String(), "Nhập y để nộp bài"))
}

func TestWatchReportsWarningAndExpiry(t *testing.T) {
	var out bytes.Buffer
	updates := make(chan app.Snapshot, 3)
	updates <- app.Snapshot{Status: app.StatusActive, RemainingSeconds: 151}
	updates <- app.Snapshot{Status: app.StatusActive, RemainingSeconds: 150, WarningVisible: true}
	updates <- app.Snapshot{Status: app.StatusFinished, FinishedBy: app.FinishExpired}
	close(updates)

	watch(&terminal{out: &out}, updates)

	assert.Contains(t, out.String(), "còn 02:30")
	assert.Contains(t, out.String(), "Hết giờ!")
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "15:00", formatClock(900))
	assert.Equal(t, "00:09", formatClock(9))
	assert.Equal(t, "00:00", formatClock(-3))
}
