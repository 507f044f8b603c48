package roadmap

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// GenerateRequest is the body of POST /roadmap/generate.
type GenerateRequest struct {
	Topic  string `json:"topic"`
	UserID string `json:"user_id"`
}

// TemplateSummary describes a curated template.
type TemplateSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Levels   int      `json:"levels"`
}

// handleGenerate creates a roadmap.
//
//	@Summary		Generate roadmap
//	@Description	Generates a leveled learning roadmap. Falls back to a curated template when no model is available.
//	@Tags			roadmap
//	@Accept			json
//	@Produce		json
//	@Param			request body GenerateRequest true "Topic"
//	@Success		200 {object} Response
//	@Failure		400 {object} map[string]any
//	@Router			/roadmap/generate [post]
func (m *Module) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m.generate(w, r, req)
}

// handleGenerateTopic creates a roadmap for the topic in the path.
//
//	@Summary		Generate roadmap for topic
//	@Tags			roadmap
//	@Produce		json
//	@Param			topic path string true "Topic"
//	@Param			user_id query string false "User ID"
//	@Success		200 {object} Response
//	@Failure		400 {object} map[string]any
//	@Router			/roadmap/generate/{topic} [get]
func (m *Module) handleGenerateTopic(w http.ResponseWriter, r *http.Request) {
	m.generate(w, r, GenerateRequest{Topic: r.PathValue("topic"), UserID: r.URL.Query().Get("user_id")})
}

func (m *Module) generate(w http.ResponseWriter, r *http.Request, req GenerateRequest) {
	resp, err := m.Generate(r.Context(), req.Topic, req.UserID)
	if err != nil {
		if errors.Is(err, errMissingTopic) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		m.logger.Error("roadmap generation failed", zap.String("topic", req.Topic), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to generate roadmap")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTemplates lists the curated templates in match order.
//
//	@Summary		List roadmap templates
//	@Tags			roadmap
//	@Produce		json
//	@Success		200 {array} TemplateSummary
//	@Router			/roadmap/templates [get]
func (m *Module) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	out := make([]TemplateSummary, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, TemplateSummary{ID: t.ID, Name: t.Name, Keywords: t.Keywords, Levels: len(t.Steps)})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTemplate renders one template.
//
//	@Summary		Render roadmap template
//	@Tags			roadmap
//	@Produce		json
//	@Param			id path string true "Template ID"
//	@Param			topic query string false "Topic substituted into the template (defaults to the template name)"
//	@Success		200 {object} generation.Roadmap
//	@Failure		404 {object} map[string]any
//	@Router			/roadmap/templates/{id} [get]
func (m *Module) handleTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := m.Template(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		topic = t.Name
	}
	writeJSON(w, http.StatusOK, t.Render(topic))
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
