package ws

import (
	"time"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageToken   MessageType = "token"
	MessageSources MessageType = "sources"
	MessageDone    MessageType = "done"
	MessageError   MessageType = "error"
)

// Message is the envelope for all server-to-client messages. RequestID
// ties the frames of one streamed answer together.
type Message struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// Inbound is a client-to-server chat request.
type Inbound struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

// TokenData is the payload for token messages.
type TokenData struct {
	Text string `json:"text"`
}

// SourceRef is one cited page.
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SourcesData is the payload for sources messages.
type SourcesData struct {
	Sources []SourceRef `json:"sources"`
}

// DoneData is the payload for done messages.
type DoneData struct {
	Answer       string `json:"answer"`
	Cached       bool   `json:"cached"`
	UsedFallback bool   `json:"used_fallback"`
	BackendUsed  string `json:"backend_used,omitempty"`
}

// ErrorData is the payload for error messages.
type ErrorData struct {
	Error string `json:"error"`
}
