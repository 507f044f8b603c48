package chat

import "github.com/HerbHall/studyforge/internal/generation"

// TopicAnswered is published after every answered question.
const TopicAnswered = "chat.answered"

// AnonymousUser is recorded when a request carries no user ID.
const AnonymousUser = "anonymous"

// Apology is returned when no backend could answer. It is never cached.
const Apology = "I apologize, but I'm experiencing technical difficulties right now. Please try again later."

// Request is the body of POST /chat. Message is a pointer so a missing
// field can be told apart from an empty one.
type Request struct {
	Message *string `json:"message"`
	UserID  string  `json:"user_id,omitempty"`
}

// Answer splits a full response into its prose and cited sources.
type Answer struct {
	Answer       string              `json:"answer"`
	Sources      []generation.Source `json:"sources"`
	FullResponse string              `json:"full_response"`
}

// Response is returned by the chat endpoints.
type Response struct {
	Success      bool    `json:"success"`
	Response     Answer  `json:"response"`
	Query        string  `json:"query"`
	Cached       bool    `json:"cached"`
	UsedFallback bool    `json:"used_fallback"`
	BackendUsed  *string `json:"backend_used"`
}

// AnsweredEvent is the payload of TopicAnswered.
type AnsweredEvent struct {
	UserID       string
	Query        string
	Answer       string
	Sources      []generation.Source
	Cached       bool
	UsedFallback bool
	BackendUsed  string
}

// SuggestionGroup is a category of sample questions.
type SuggestionGroup struct {
	Category  string   `json:"category"`
	Questions []string `json:"questions"`
}

// Topic is a subject area the assistant covers.
type Topic struct {
	Name      string   `json:"name"`
	Subtopics []string `json:"subtopics"`
	Icon      string   `json:"icon"`
}

// Status describes the running chat service.
type Status struct {
	Service        string   `json:"service"`
	Status         string   `json:"status"`
	ModelAvailable bool     `json:"model_available"`
	Models         []string `json:"models"`
	WebContext     bool     `json:"web_context"`
	CacheBackend   string   `json:"cache_backend"`
	CacheEntries   int      `json:"cache_entries"`
	StreamClients  int      `json:"stream_clients"`
	Features       []string `json:"features"`
	Capabilities   []string `json:"capabilities"`
}
