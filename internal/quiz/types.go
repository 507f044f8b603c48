package quiz

import "github.com/HerbHall/studyforge/internal/generation"

// Event topics published by the quiz plugin.
const (
	TopicGenerated = "quiz.generated"
	TopicValidated = "quiz.validated"
)

// Source types accepted by the generate endpoint.
const (
	SourceTopic = "topic"
	SourceText  = "text"
	SourceFile  = "file"
	SourceURL   = "url"
)

// GenerateRequest is the body of POST /quiz/generate.
type GenerateRequest struct {
	SourceType    string   `json:"source_type"`
	Topic         string   `json:"topic"`
	Content       string   `json:"content"`
	URL           string   `json:"url"`
	NumQuestions  int      `json:"num_questions"`
	QuestionTypes []string `json:"question_types"`
	UserID        string   `json:"user_id"`
}

// AnonymousUser owns history entries for requests without a user_id.
const AnonymousUser = "anonymous"

// GenerateResponse is a generated quiz.
type GenerateResponse struct {
	Success        bool                       `json:"success"`
	QuizID         string                     `json:"quiz_id"`
	Topic          string                     `json:"topic"`
	SourceType     string                     `json:"source_type"`
	Questions      []*generation.QuizQuestion `json:"questions"`
	UsedFallback   bool                       `json:"used_fallback"`
	BackendUsed    *string                    `json:"backend_used"`
	TotalQuestions int                        `json:"total_questions"`
}

// ValidateRequest is the body of POST /quiz/validate.
type ValidateRequest struct {
	Questions  []generation.QuizQuestion `json:"questions"`
	Answers    []string                  `json:"answers"`
	UserID     string                    `json:"user_id"`
	Topic      string                    `json:"topic"`
	SourceType string                    `json:"source_type"`
	QuizID     string                    `json:"quiz_id"`
}

// AnswerResult grades one answer.
type AnswerResult struct {
	QuestionIndex int    `json:"question_index"`
	IsCorrect     bool   `json:"is_correct"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// Grading is the outcome of Grade.
type Grading struct {
	Results         []AnswerResult `json:"results"`
	Score           int            `json:"score"`
	TotalQuestions  int            `json:"total_questions"`
	ScorePercentage float64        `json:"score_percentage"`
}

// ScrapeRequest is the body of POST /quiz/scrape-url.
type ScrapeRequest struct {
	URL string `json:"url"`
}

// ScrapeResponse reports a fetched page.
type ScrapeResponse struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SupportedTypes lists what the generate endpoint accepts.
type SupportedTypes struct {
	FileTypes     []string `json:"file_types"`
	QuestionTypes []string `json:"question_types"`
	SourceTypes   []string `json:"source_types"`
	MaxFileSizeMB int      `json:"max_file_size_mb"`
}

// GeneratedEvent is the payload of TopicGenerated.
type GeneratedEvent struct {
	QuizID        string                     `json:"quiz_id"`
	UserID        string                     `json:"user_id"`
	Topic         string                     `json:"topic"`
	SourceType    string                     `json:"source_type"`
	Questions     []*generation.QuizQuestion `json:"questions"`
	UsedFallback  bool                       `json:"used_fallback"`
	BackendUsed   string                     `json:"backend_used,omitempty"`
	QuestionTypes []string                   `json:"question_types"`
}

// ValidatedEvent is the payload of TopicValidated.
type ValidatedEvent struct {
	QuizID     string                    `json:"quiz_id"`
	UserID     string                    `json:"user_id"`
	Topic      string                    `json:"topic"`
	SourceType string                    `json:"source_type"`
	Grading    Grading                   `json:"grading"`
	Questions  []generation.QuizQuestion `json:"questions"`
}
