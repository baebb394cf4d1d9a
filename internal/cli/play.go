package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"science-quiz/internal/app"
	"science-quiz/internal/config"
	"science-quiz/internal/domain"
	"science-quiz/internal/logger"
)

// NewPlayCmd runs one quiz session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := zap.NewNop()
			if verbose {
				if log, err = logger.New(cfg); err != nil {
					return err
				}
			}
			defer func() { _ = log.Sync() }()

			d, err := buildDeps(cmd.Context(), cfg, log, app.NopMetrics{})
			if err != nil {
				return err
			}
			defer d.Close()

			session, err := d.service.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer d.service.CloseSession(session.ID())

			return Play(cmd.Context(), session, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr while playing")
	return cmd
}

// terminal serializes writes from the input loop and the timer watcher.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// Play drives session from line-based input until the user quits or input ends.
func Play(ctx context.Context, session *app.Session, in io.Reader, out io.Writer) error {
	term := &terminal{out: out}
	reader := bufio.NewReader(in)

	updates, cancel := session.Subscribe()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		watch(term, updates)
	}()
	defer func() {
		cancel()
		<-watchDone
	}()

	defaultName := ""
	for {
		name, ok := askName(reader, term, defaultName)
		if !ok {
			return nil
		}
		if err := session.Start(name); err != nil {
			term.printf("%v\n", err)
			continue
		}
		printHelp(term)
		printQuestion(term, session.Snapshot())

		if !runAttempt(ctx, reader, term, session) {
			return nil
		}
		printAttempt(term, session.Snapshot().Attempt)

		if !afterQuiz(ctx, reader, term, session) {
			return nil
		}
		defaultName = session.Retry()
	}
}

// watch reports timer-driven changes the input loop cannot see while blocked.
func watch(term *terminal, updates <-chan app.Snapshot) {
	var prev app.Snapshot
	for snap := range updates {
		if snap.WarningVisible && !prev.WarningVisible {
			term.printf("\n[!] Sắp hết giờ: còn %s.\n", formatClock(snap.RemainingSeconds))
		}
		if snap.Status == app.StatusFinished && prev.Status == app.StatusActive && snap.FinishedBy == app.FinishExpired {
			term.printf("\n[!] Hết giờ! Bài làm đã được nộp tự động. Nhấn Enter để xem kết quả.\n")
		}
		prev = snap
	}
}

func askName(reader *bufio.Reader, term *terminal, defaultName string) (string, bool) {
	for {
		if defaultName != "" {
			term.printf("\nNhập tên của bạn [%s]: ", defaultName)
		} else {
			term.printf("\nNhập tên của bạn: ")
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", false
		}
		name := strings.TrimSpace(line)
		if name == "" {
			name = defaultName
		}
		if name != "" {
			return name, true
		}
		term.printf("Tên không được để trống.\n")
	}
}

// runAttempt returns false when the user quits or input ends before the attempt is finished.
func runAttempt(ctx context.Context, reader *bufio.Reader, term *terminal, session *app.Session) bool {
	for {
		term.printf("> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		if session.Snapshot().Status == app.StatusFinished {
			return true
		}

		fields := strings.Fields(strings.ToLower(line))
		cmd := ""
		if len(fields) > 0 {
			cmd = fields[0]
		}

		if session.Snapshot().Confirm != nil {
			switch cmd {
			case "y":
				session.ConfirmSubmit(ctx)
			case "r":
				session.ReturnToUnanswered()
				printQuestion(term, session.Snapshot())
			default:
				term.printf("Nhập y để nộp bài hoặc r để quay lại câu chưa trả lời.\n")
			}
			if session.Snapshot().Status == app.StatusFinished {
				return true
			}
			continue
		}

		switch cmd {
		case "a", "b", "c", "d":
			session.SelectAnswer(domain.AnswerKey(strings.ToUpper(cmd)))
			session.Next()
		case "n":
			session.Next()
		case "p":
			session.Previous()
		case "g":
			if len(fields) < 2 {
				term.printf("Dùng: g <số câu>\n")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				term.printf("Số câu không hợp lệ.\n")
				continue
			}
			session.JumpTo(n - 1)
		case "s":
			session.Submit(ctx)
			snap := session.Snapshot()
			if snap.Status == app.StatusFinished {
				return true
			}
			if snap.Confirm != nil {
				term.printf("Bạn còn %d câu chưa trả lời (câu đầu tiên: %d). Vẫn nộp bài? [y/r] ",
					snap.Confirm.UnansweredCount, snap.Confirm.FirstUnansweredIndex+1)
				continue
			}
		case "x":
			session.DismissWarning()
		case "q":
			return false
		case "?", "h":
			printHelp(term)
			continue
		case "":
		default:
			term.printf("Lệnh không hợp lệ, nhập ? để xem trợ giúp.\n")
			continue
		}
		printQuestion(term, session.Snapshot())
	}
}

// afterQuiz handles the results screen; true means start another attempt.
func afterQuiz(ctx context.Context, reader *bufio.Reader, term *terminal, session *app.Session) bool {
	for {
		term.printf("\n[e <số câu>] giải thích bằng AI, [r] làm lại, [q] thoát: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		fields := strings.Fields(strings.ToLower(line))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "e":
			if len(fields) < 2 {
				term.printf("Dùng: e <số câu>\n")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				term.printf("Số câu không hợp lệ.\n")
				continue
			}
			term.printf("Đang hỏi AI...\n")
			text, err := session.Explain(ctx, n-1)
			if err != nil {
				term.printf("%v\n", err)
				continue
			}
			term.printf("\n%s\n", text)
		case "r":
			return true
		case "q":
			return false
		}
	}
}

func printHelp(term *terminal) {
	term.printf("\nLệnh: a-d chọn đáp án, n câu sau, p câu trước, g <số> tới câu, s nộp bài, x tắt cảnh báo, q thoát\n")
}

func printQuestion(term *terminal, snap app.Snapshot) {
	q, ok := snap.Current()
	if !ok {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s  (%d/%d, đã trả lời %d) [%s]\n",
		app.QuestionLabel(snap.Index+1, q.Prompt), snap.Index+1, len(snap.Questions),
		snap.AnsweredCount(), formatClock(snap.RemainingSeconds))
	chosen, _ := snap.Selections[snap.Index].Key()
	for _, k := range domain.AnswerKeys {
		marker := " "
		if k == chosen {
			marker = "*"
		}
		fmt.Fprintf(&b, " %s %s. %s\n", marker, k, q.Option(k))
	}
	term.printf("%s", b.String())
}

func printAttempt(term *terminal, attempt *domain.QuizAttempt) {
	if attempt == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\nKết quả của %s: %d/%d\n", attempt.StudentName, attempt.Score, attempt.TotalQuestions)
	for i, rec := range attempt.Answers {
		mark := "✗"
		if rec.IsCorrect {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%2d %s %s\n", i+1, mark, rec.Question)
		chosen := rec.AnswerText
		if rec.Answered() {
			chosen = fmt.Sprintf("%s. %s", rec.AnswerKey, rec.AnswerText)
		}
		fmt.Fprintf(&b, "     Bạn chọn: %s | Đáp án đúng: %s. %s\n", chosen, rec.QuestionData.Correct, rec.CorrectAnswerText)
		if !rec.IsCorrect && rec.Explanation != "" {
			fmt.Fprintf(&b, "     %s\n", rec.Explanation)
		}
	}
	term.printf("%s", b.String())
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
