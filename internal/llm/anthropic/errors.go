package anthropic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/HerbHall/studyforge/pkg/llm"
)

type statusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("anthropic: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// mapError types a Messages API failure. An overloaded API (529) counts as
// unavailable so the chain tries the next backend instead of waiting.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 529 || se.Type == "overloaded_error":
			return llm.NewProviderError(llm.ErrCodeUnavailable, se.Message, err)
		case se.Type == "not_found_error":
			return llm.NewProviderError(llm.ErrCodeModelNotFound, se.Message, err)
		case se.Type == "invalid_request_error" && strings.Contains(se.Message, "too long"):
			return llm.NewProviderError(llm.ErrCodeContextLength, se.Message, err)
		}
		if pe := llm.FromStatus(se.StatusCode, se.Message, err); pe != nil {
			return pe
		}
	}
	return llm.FromTransport("anthropic", err)
}
