package llm

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	pkgllm "github.com/HerbHall/studyforge/pkg/llm"
	"go.uber.org/zap"
)

// handleHealth reports backend reachability.
//
//	@Summary		LLM health
//	@Description	Heartbeats every configured backend.
//	@Tags			llm
//	@Produce		json
//	@Success		200 {object} plugin.HealthStatus
//	@Success		503 {object} plugin.HealthStatus
//	@Router			/llm/health [get]
func (m *Module) handleHealth(w http.ResponseWriter, r *http.Request) {
	hs := m.Health(r.Context())
	status := http.StatusOK
	if hs.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, hs)
}

// handleBackends lists the configured chain in priority order.
//
//	@Summary		List backends
//	@Description	Returns the configured backend chain with reachability.
//	@Tags			llm
//	@Produce		json
//	@Success		200 {array} BackendStatus
//	@Router			/llm/backends [get]
func (m *Module) handleBackends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.probe(r.Context()))
}

// handleGenerate runs a raw prompt through the chain. No extraction or
// fallback is applied.
//
//	@Summary		Raw generation
//	@Description	Sends a prompt through the backend chain and returns the raw text.
//	@Tags			llm
//	@Accept			json
//	@Produce		json
//	@Param			request body GenerateRequest true "Prompt"
//	@Success		200 {object} GenerateResponse
//	@Failure		400 {object} map[string]any
//	@Failure		503 {object} map[string]any
//	@Router			/llm/generate [post]
func (m *Module) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	var opts []pkgllm.CallOption
	if req.System != "" {
		opts = append(opts, pkgllm.WithSystem(req.System))
	}
	if req.Temperature > 0 {
		opts = append(opts, pkgllm.WithTemperature(req.Temperature))
	}
	if req.TopP > 0 {
		opts = append(opts, pkgllm.WithTopP(req.TopP))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, pkgllm.WithMaxTokens(req.MaxTokens))
	}
	if req.JSON {
		opts = append(opts, pkgllm.WithJSONFormat())
	}

	reply, err := m.currentChain().Invoke(r.Context(), req.Prompt, opts...)
	if err != nil {
		if errors.Is(err, pkgllm.ErrAllBackendsUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "no generation backend available")
			return
		}
		m.logger.Error("raw generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Text:      reply.Text,
		Backend:   reply.Backend,
		Model:     reply.Model,
		ElapsedMS: reply.Elapsed.Milliseconds(),
		Tokens:    reply.Usage.TotalTokens,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://studyforge.dev/problems/" + strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "-")),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
