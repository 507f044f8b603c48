package history

import (
	"time"

	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/internal/quiz"
)

// Default per-user retention limits.
const (
	MaxQuizzes = 50
	MaxChats   = 100
	MaxTopics  = 100
)

// Clear scopes accepted by Store.Clear.
const (
	ClearAll     = "all"
	ClearQuizzes = "quizzes"
	ClearChats   = "chats"
	ClearTopics  = "topics"
)

// ChatTypeGeneral is the type recorded for chat entries without one.
const ChatTypeGeneral = "general"

// Quiz is a graded quiz attempt.
type Quiz struct {
	ID              string                    `json:"id"`
	QuizID          string                    `json:"quiz_id,omitempty"`
	Timestamp       time.Time                 `json:"timestamp"`
	Topic           string                    `json:"topic"`
	SourceType      string                    `json:"source_type"`
	NumQuestions    int                       `json:"num_questions"`
	Score           int                       `json:"score"`
	TotalQuestions  int                       `json:"total_questions"`
	ScorePercentage float64                   `json:"score_percentage"`
	Questions       []generation.QuizQuestion `json:"questions"`
	Results         []quiz.AnswerResult       `json:"results"`
}

// Chat is one question and its answer.
type Chat struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Topic     string    `json:"topic,omitempty"`
	Type      string    `json:"type"`
	Cached    bool      `json:"cached"`
}

// Topic is a subject the user studied, deduplicated case-insensitively.
type Topic struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Count       int       `json:"count"`
	FirstUsed   time.Time `json:"first_used"`
	LastUsed    time.Time `json:"last_used"`
	SourceTypes []string  `json:"source_types"`
}

// History is everything recorded for one user.
type History struct {
	UserID       string     `json:"user_id"`
	Quizzes      []Quiz     `json:"quizzes"`
	Chats        []Chat     `json:"chats"`
	Topics       []Topic    `json:"topics"`
	CreatedAt    *time.Time `json:"created_at"`
	LastActivity *time.Time `json:"last_activity"`
}

// Stats summarises a user's history.
type Stats struct {
	TotalQuizzes  int        `json:"total_quizzes"`
	TotalChats    int        `json:"total_chats"`
	TotalTopics   int        `json:"total_topics"`
	AverageScore  float64    `json:"average_score"`
	TopTopics     []Topic    `json:"top_topics"`
	RecentQuizzes []Quiz     `json:"recent_quizzes"`
	RecentChats   []Chat     `json:"recent_chats"`
	CreatedAt     *time.Time `json:"created_at"`
	LastActivity  *time.Time `json:"last_activity"`
}

// ChatRequest is the body of POST /history/{user}/chats.
type ChatRequest struct {
	Message  string `json:"message"`
	Response string `json:"response"`
	Topic    string `json:"topic"`
	Type     string `json:"type"`
}
