package quiz

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/HerbHall/studyforge/internal/generation"
)

// ErrAnswerCount means questions and answers differ in length.
var ErrAnswerCount = errors.New("number of questions and answers must match")

// Grade scores answers against questions. Multiple choice and true/false
// answers compare exactly; fill-in-the-blank answers ignore case and
// surrounding whitespace.
func Grade(questions []generation.QuizQuestion, answers []string) (Grading, error) {
	if len(questions) != len(answers) {
		return Grading{}, fmt.Errorf("%w: %d questions, %d answers", ErrAnswerCount, len(questions), len(answers))
	}

	g := Grading{Results: make([]AnswerResult, len(questions)), TotalQuestions: len(questions)}
	for i, q := range questions {
		ok := isCorrect(q, answers[i])
		if ok {
			g.Score++
		}
		g.Results[i] = AnswerResult{
			QuestionIndex: i,
			IsCorrect:     ok,
			UserAnswer:    answers[i],
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
	}
	if g.TotalQuestions > 0 {
		pct := float64(g.Score) / float64(g.TotalQuestions) * 100
		g.ScorePercentage = math.Round(pct*100) / 100
	}
	return g, nil
}

func isCorrect(q generation.QuizQuestion, answer string) bool {
	if q.Type == generation.QuestionFillBlank {
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
	}
	return answer == q.CorrectAnswer
}
