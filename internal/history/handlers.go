package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// handleHistory returns everything recorded for a user.
//
//	@Summary		User history
//	@Tags			history
//	@Produce		json
//	@Param			user path string true "User ID"
//	@Success		200 {object} map[string]any
//	@Router			/history/{user} [get]
func (m *Module) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	h, err := m.store.History(r.Context(), user)
	if err != nil {
		m.internalError(w, "get history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": user, "history": h})
}

// handleStats returns summary statistics for a user.
//
//	@Summary		User statistics
//	@Description	Totals, average score over scored quizzes, the five most used topics and the five latest quizzes and chats.
//	@Tags			history
//	@Produce		json
//	@Param			user path string true "User ID"
//	@Success		200 {object} map[string]any
//	@Router			/history/{user}/stats [get]
func (m *Module) handleStats(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	st, err := m.store.Stats(r.Context(), user)
	if err != nil {
		m.internalError(w, "get stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": user, "stats": st})
}

// handleQuizzes lists a user's quizzes, newest first.
//
//	@Summary		Quiz history
//	@Tags			history
//	@Produce		json
//	@Param			user path string true "User ID"
//	@Success		200 {object} map[string]any
//	@Router			/history/{user}/quizzes [get]
func (m *Module) handleQuizzes(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	qs, err := m.store.Quizzes(r.Context(), user, 0)
	if err != nil {
		m.internalError(w, "list quizzes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "user_id": user, "quizzes": qs, "total_quizzes": len(qs),
	})
}

// handleQuiz returns one quiz with its questions and results.
//
//	@Summary		Quiz details
//	@Tags			history
//	@Produce		json
//	@Param			user path string true "User ID"
//	@Param			id path string true "History or quiz ID"
//	@Success		200 {object} map[string]any
//	@Failure		404 {object} map[string]any
//	@Router			/history/{user}/quiz/{id} [get]
func (m *Module) handleQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := m.store.Quiz(r.Context(), r.PathValue("user"), r.PathValue("id"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Quiz not found")
		return
	}
	if err != nil {
		m.internalError(w, "get quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "quiz": q})
}

// handleTopics lists a user's topics, most used first.
//
//	@Summary		Topic history
//	@Tags			history
//	@Produce		json
//	@Param			user path string true "User ID"
//	@Success		200 {object} map[string]any
//	@Router			/history/{user}/topics [get]
func (m *Module) handleTopics(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	ts, err := m.store.Topics(r.Context(), user, 0)
	if err != nil {
		m.internalError(w, "list topics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "user_id": user, "topics": ts, "total_topics": len(ts),
	})
}

// handleChats lists a user's chats, newest first.
//
//	@Summary		Chat history
//	@Tags			history
//	@Produce		json
//	@Param			user path string true "User ID"
//	@Success		200 {object} map[string]any
//	@Router			/history/{user}/chats [get]
func (m *Module) handleChats(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	cs, err := m.store.Chats(r.Context(), user, 0)
	if err != nil {
		m.internalError(w, "list chats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "user_id": user, "chats": cs, "total_chats": len(cs),
	})
}

// handleAddChat records a chat exchange made outside the chat plugin.
//
//	@Summary		Add chat history
//	@Tags			history
//	@Accept			json
//	@Produce		json
//	@Param			user path string true "User ID"
//	@Param			request body ChatRequest true "Exchange"
//	@Success		201 {object} map[string]any
//	@Failure		400 {object} map[string]any
//	@Router			/history/{user}/chats [post]
func (m *Module) handleAddChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.Response) == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: message, response")
		return
	}
	c, err := m.store.AddChat(r.Context(), r.PathValue("user"), Chat{
		Message:  req.Message,
		Response: req.Response,
		Topic:    req.Topic,
		Type:     req.Type,
	})
	if err != nil {
		m.internalError(w, "add chat", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "chat": c})
}

// handleClear deletes part or all of a user's history.
//
//	@Summary		Clear history
//	@Tags			history
//	@Produce		json
//	@Param			user path string true "User ID"
//	@Param			type query string false "all, quizzes, chats or topics" default(all)
//	@Success		200 {object} map[string]any
//	@Failure		400 {object} map[string]any
//	@Router			/history/{user}/clear [delete]
func (m *Module) handleClear(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	scope := r.URL.Query().Get("type")
	if scope == "" {
		scope = ClearAll
	}
	err := m.store.Clear(r.Context(), user, scope)
	if errors.Is(err, ErrInvalidScope) {
		writeError(w, http.StatusBadRequest, "Invalid history type. Use 'all', 'quizzes', 'chats', or 'topics'")
		return
	}
	if err != nil {
		m.internalError(w, "clear history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Cleared " + scope + " history for user " + user,
	})
}

func (m *Module) internalError(w http.ResponseWriter, op string, err error) {
	m.logger.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "history is unavailable")
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
