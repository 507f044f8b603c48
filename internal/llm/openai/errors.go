package openai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/HerbHall/studyforge/pkg/llm"
)

// statusError is a non-2xx reply from a chat-completions endpoint.
type statusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openai: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// mapError types an OpenAI-compatible failure so the invocation chain can
// log why it moved on. A cloud model name the account cannot use is
// reported as a missing model, not a bad request.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 404 && strings.Contains(strings.ToLower(se.Message), "model"),
			se.Type == "model_not_found":
			return llm.NewProviderError(llm.ErrCodeModelNotFound, se.Message, err)
		case se.Type == "context_length_exceeded":
			return llm.NewProviderError(llm.ErrCodeContextLength, se.Message, err)
		}
		if pe := llm.FromStatus(se.StatusCode, se.Message, err); pe != nil {
			return pe
		}
	}
	return llm.FromTransport("openai", err)
}
