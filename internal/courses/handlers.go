package courses

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// handleRecommend recommends courses for a set of interests.
//
//	@Summary		Recommend courses
//	@Description	Merges catalog matches with external courses for each interest.
//	@Tags			courses
//	@Accept			json
//	@Produce		json
//	@Param			request body RecommendRequest true "Interests, a string or a list of strings"
//	@Success		200 {object} RecommendResponse
//	@Failure		400 {object} map[string]any
//	@Router			/courses/recommend [post]
func (m *Module) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing 'interests' field in request body")
		return
	}
	interests, err := ParseInterests(req.Interests)
	switch {
	case errors.Is(err, errInterestsType):
		writeError(w, http.StatusBadRequest, "Interests must be a string or list of strings")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "Missing 'interests' field in request body")
		return
	}
	writeJSON(w, http.StatusOK, m.Recommend(r.Context(), interests))
}

// handleSearch searches external courses.
//
//	@Summary		Search courses
//	@Tags			courses
//	@Produce		json
//	@Param			q query string true "Topic"
//	@Success		200 {object} SearchResponse
//	@Failure		400 {object} map[string]any
//	@Router			/courses/search [get]
func (m *Module) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Missing 'q' query parameter")
		return
	}
	writeJSON(w, http.StatusOK, m.Search(r.Context(), q))
}

// handleList returns the catalog.
//
//	@Summary		List catalog courses
//	@Tags			courses
//	@Produce		json
//	@Success		200 {object} map[string]any
//	@Router			/courses [get]
func (m *Module) handleList(w http.ResponseWriter, _ *http.Request) {
	all := m.catalog.All()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "courses": all, "count": len(all)})
}

// handleTopics returns the catalog topics.
//
//	@Summary		List catalog topics
//	@Tags			courses
//	@Produce		json
//	@Success		200 {object} map[string]any
//	@Router			/courses/topics [get]
func (m *Module) handleTopics(w http.ResponseWriter, _ *http.Request) {
	topics := m.catalog.Topics()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "topics": topics, "count": len(topics)})
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
