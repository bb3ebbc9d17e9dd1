package export

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-solutions/internal/questions"
)

// QuestionText renders the main question as a single spreadsheet cell.
func QuestionText(q questions.MainQuestion) string {
	switch v := q.(type) {
	case questions.MCQQuestion:
		opts := make([]string, 0, len(v.Options))
		for _, o := range v.Options {
			opts = append(opts, o.ID+") "+o.Text)
		}
		return v.Text + "\n" + strings.Join(opts, "\n")
	case questions.StructuredQuestion:
		if v.Context != "" {
			return v.Context + "\n" + v.Text
		}
		return v.Text
	case questions.EssayQuestion:
		if v.WordLimit > 0 {
			return fmt.Sprintf("%s (max %d words)", v.Text, v.WordLimit)
		}
		return v.Text
	case questions.ProofQuestion:
		var b strings.Builder
		b.WriteString(v.Text)
		if v.Given != "" {
			b.WriteString("\nGiven: " + v.Given)
		}
		b.WriteString("\nProve: " + v.ToProve)
		return b.String()
	case questions.DrawingQuestion:
		return v.Text
	default:
		return ""
	}
}

// AnswerSummary condenses a solution into one cell.
func AnswerSummary(s questions.MainSolution) string {
	switch v := s.(type) {
	case questions.MCQSolution:
		if v.Explanation != "" {
			return v.CorrectOption + ": " + v.Explanation
		}
		return v.CorrectOption
	case questions.StructuredSolution:
		if v.FinalAnswer != "" {
			return v.FinalAnswer
		}
		return fmt.Sprintf("%d steps", len(v.Steps))
	case questions.EssaySolution:
		total := 0
		for _, r := range v.Rubric {
			total += r.Marks
		}
		if total > 0 {
			return fmt.Sprintf("%s [rubric %d marks]", v.ModelAnswer, total)
		}
		return v.ModelAnswer
	case questions.ProofSolution:
		if v.Conclusion != "" {
			return v.Conclusion
		}
		return fmt.Sprintf("%d steps", len(v.Steps))
	case questions.DrawingSolution:
		return v.Description
	default:
		return ""
	}
}
