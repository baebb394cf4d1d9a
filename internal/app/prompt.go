package app

import (
	"fmt"
	"strings"

	"science-quiz/internal/domain"
)

// BuildPrompt turns a finished answer into a request for the explanation service.
// Correct answers ask for an enrichment fact; wrong or missing answers ask for a
// correction aimed at the misconception behind the chosen option.
func BuildPrompt(rec domain.AnswerRecord) string {
	q := rec.QuestionData
	correct := fmt.Sprintf("%s. %s", strings.ToUpper(string(q.Correct)), rec.CorrectAnswerText)

	if rec.IsCorrect {
		return fmt.Sprintf(`Một học sinh lớp 8 đã trả lời đúng câu hỏi này. Hãy cung cấp thêm một thông tin thú vị hoặc một ứng dụng thực tế liên quan đến khái niệm trong câu hỏi. Giữ câu trả lời ngắn gọn, tập trung, và bằng tiếng Việt.
Câu hỏi: "%s"
Đáp án đúng: "%s"
Giải thích gốc: "%s"`, q.Prompt, correct, q.Explanation)
	}

	chosen := rec.AnswerText
	if rec.Answered() {
		chosen = fmt.Sprintf("%s. %s", strings.ToUpper(string(rec.AnswerKey)), rec.AnswerText)
	}
	return fmt.Sprintf(`Một học sinh lớp 8 trả lời sai câu hỏi này. Họ đã chọn đáp án "%s" thay vì đáp án đúng là "%s". Hãy giải thích (bằng tiếng Việt) tại sao lựa chọn của họ sai và củng cố lại kiến thức đúng. Tập trung vào hiểu lầm của học sinh khi chọn đáp án sai đó.
Câu hỏi: "%s"`, chosen, correct, q.Prompt)
}
