package ollama

import (
	"errors"
	"strings"

	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/ollama/ollama/api"
)

// mapError types an Ollama client failure. A model that was never pulled
// (e.g. mistral on a llama3-only install) surfaces as a 404 and is reported
// as a missing model so the chain moves to the next entry.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se api.StatusError
	if errors.As(err, &se) {
		msg := se.ErrorMessage
		if msg == "" {
			msg = se.Status
		}
		if se.StatusCode == 404 && strings.Contains(strings.ToLower(msg), "model") {
			return llm.NewProviderError(llm.ErrCodeModelNotFound, msg, err)
		}
		if pe := llm.FromStatus(se.StatusCode, msg, err); pe != nil {
			return pe
		}
	}
	return llm.FromTransport("ollama", err)
}
