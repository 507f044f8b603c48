package chat

import (
	"encoding/json"
	"net/http"
	"strings"
)

// handleChat answers a question.
//
//	@Summary		Ask the teaching assistant
//	@Description	Answers a question using the model with Wikipedia context. Identical questions within the cache TTL are served from the cache.
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			request body Request true "Question"
//	@Success		200 {object} Response
//	@Failure		400 {object} map[string]any
//	@Router			/chat [post]
func (m *Module) handleChat(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == nil {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}
	m.answer(w, r, *req.Message, req.UserID)
}

// handleChatGet answers the question in the path.
//
//	@Summary		Ask via GET
//	@Tags			chat
//	@Produce		json
//	@Param			message path string true "Question"
//	@Param			user_id query string false "User ID"
//	@Success		200 {object} Response
//	@Failure		400 {object} map[string]any
//	@Router			/chat/{message} [get]
func (m *Module) handleChatGet(w http.ResponseWriter, r *http.Request) {
	m.answer(w, r, r.PathValue("message"), r.URL.Query().Get("user_id"))
}

func (m *Module) answer(w http.ResponseWriter, r *http.Request, message, userID string) {
	if strings.TrimSpace(message) == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}
	writeJSON(w, http.StatusOK, m.Answer(r.Context(), message, userID, nil))
}

// handleSuggestions lists sample questions by category.
//
//	@Summary		Question suggestions
//	@Tags			chat
//	@Produce		json
//	@Success		200 {object} map[string]any
//	@Router			/chat/suggestions [get]
func (m *Module) handleSuggestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "suggestions": suggestions})
}

// handleTopics lists the subject areas the assistant covers.
//
//	@Summary		Learning topics
//	@Tags			chat
//	@Produce		json
//	@Success		200 {object} map[string]any
//	@Router			/chat/topics [get]
func (m *Module) handleTopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "topics": topics})
}

// handleStatus reports models, cache and stream state.
//
//	@Summary		Chat status
//	@Tags			chat
//	@Produce		json
//	@Success		200 {object} map[string]any
//	@Router			/chat/status [get]
func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": m.Status(r.Context())})
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
