package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"science-quiz/internal/app"
	"science-quiz/internal/config"
	"science-quiz/internal/domain"
)

// NewHistoryCmd prints stored attempts.
func NewHistoryCmd(configPath *string) *cobra.Command {
	var (
		student   string
		attemptID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored quiz attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			d, err := buildDeps(cmd.Context(), cfg, zap.NewNop(), app.NopMetrics{})
			if err != nil {
				return err
			}
			defer d.Close()

			out := cmd.OutOrStdout()
			if attemptID != "" {
				attempt, err := d.history.Find(attemptID)
				if err != nil {
					return err
				}
				printAttempt(&terminal{out: out}, &attempt)
				return nil
			}
			printHistory(out, d.service.History(student))
			return nil
		},
	}
	cmd.Flags().StringVar(&student, "student", "", "only attempts of this student")
	cmd.Flags().StringVar(&attemptID, "id", "", "show the answers of one attempt")
	return cmd
}

func printHistory(out io.Writer, attempts []domain.QuizAttempt) {
	if len(attempts) == 0 {
		fmt.Fprintln(out, "Chưa có bài làm nào.")
		return
	}
	var b strings.Builder
	for _, a := range attempts {
		when := a.Timestamp
		if t := a.Time(); !t.IsZero() {
			when = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&b, "%s  %-20s %2d/%-2d  %s\n", when, a.StudentName, a.Score, a.TotalQuestions, a.ID)
	}
	fmt.Fprint(out, b.String())
}
