package quiz

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/internal/webctx"
	"go.uber.org/zap"
)

// handleGenerate creates a quiz.
//
//	@Summary		Generate quiz
//	@Description	Generates questions from a topic, text, file content or URL. Falls back to static questions when no model is available.
//	@Tags			quiz
//	@Accept			json
//	@Produce		json
//	@Param			request body GenerateRequest true "Quiz source"
//	@Success		200 {object} GenerateResponse
//	@Failure		400 {object} map[string]any
//	@Failure		502 {object} map[string]any
//	@Router			/quiz/generate [post]
func (m *Module) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m.generate(w, r, req)
}

// handleGenerateTopic creates a quiz for the topic in the path.
//
//	@Summary		Generate quiz for topic
//	@Tags			quiz
//	@Produce		json
//	@Param			topic path string true "Topic"
//	@Param			num_questions query int false "Number of questions" default(5)
//	@Param			question_types query string false "Comma separated question types"
//	@Param			user_id query string false "User ID"
//	@Success		200 {object} GenerateResponse
//	@Failure		400 {object} map[string]any
//	@Router			/quiz/generate/{topic} [get]
func (m *Module) handleGenerateTopic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := GenerateRequest{
		SourceType:    SourceTopic,
		Topic:         r.PathValue("topic"),
		QuestionTypes: splitCSV(q.Get("question_types")),
		UserID:        q.Get("user_id"),
	}
	if v := q.Get("num_questions"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "num_questions must be a positive integer")
			return
		}
		req.NumQuestions = n
	}
	m.generate(w, r, req)
}

// handleUpload creates a quiz from an uploaded text file.
//
//	@Summary		Generate quiz from file
//	@Tags			quiz
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file formData file true "Text file (.txt)"
//	@Param			num_questions formData int false "Number of questions"
//	@Param			question_types formData string false "Comma separated question types"
//	@Param			user_id formData string false "User ID"
//	@Success		200 {object} GenerateResponse
//	@Failure		400 {object} map[string]any
//	@Failure		413 {object} map[string]any
//	@Router			/quiz/upload [post]
func (m *Module) handleUpload(w http.ResponseWriter, r *http.Request) {
	const maxBytes = maxFileSizeMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds 16 MB")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".txt") {
		writeError(w, http.StatusBadRequest, "unsupported file type, only .txt is accepted")
		return
	}
	if header.Size > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds 16 MB")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}
	if !utf8.Valid(data) {
		writeError(w, http.StatusBadRequest, "file is not valid UTF-8 text")
		return
	}

	req := GenerateRequest{
		SourceType:    SourceFile,
		Content:       string(data),
		QuestionTypes: splitCSV(r.FormValue("question_types")),
		UserID:        r.FormValue("user_id"),
	}
	if n, err := strconv.Atoi(r.FormValue("num_questions")); err == nil && n > 0 {
		req.NumQuestions = n
	}
	m.generate(w, r, req)
}

func (m *Module) generate(w http.ResponseWriter, r *http.Request, req GenerateRequest) {
	resp, err := m.Generate(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, webctx.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errScrape):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, errMissingSubject), errors.Is(err, errMissingContent),
		errors.Is(err, errSourceType), errors.Is(err, generation.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		m.logger.Error("quiz generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to generate quiz")
	}
}

// handleValidate grades submitted answers.
//
//	@Summary		Grade quiz
//	@Description	Scores answers and records the attempt in the user's history.
//	@Tags			quiz
//	@Accept			json
//	@Produce		json
//	@Param			request body ValidateRequest true "Questions and answers"
//	@Success		200 {object} Grading
//	@Failure		400 {object} map[string]any
//	@Router			/quiz/validate [post]
func (m *Module) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	g, err := m.Validate(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "number of questions and answers don't match")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		Grading
	}{true, g})
}

// handleSupportedTypes lists accepted sources and question types.
//
//	@Summary		Supported types
//	@Tags			quiz
//	@Produce		json
//	@Success		200 {object} SupportedTypes
//	@Router			/quiz/supported-types [get]
func (m *Module) handleSupportedTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SupportedTypes{
		FileTypes:     []string{"txt"},
		QuestionTypes: typeNames(generation.AllQuestionTypes),
		SourceTypes:   []string{SourceTopic, SourceText, SourceFile, SourceURL},
		MaxFileSizeMB: maxFileSizeMB,
	})
}

// handleScrape fetches a page and returns its readable text.
//
//	@Summary		Scrape URL
//	@Tags			quiz
//	@Accept			json
//	@Produce		json
//	@Param			request body ScrapeRequest true "URL"
//	@Success		200 {object} ScrapeResponse
//	@Failure		400 {object} map[string]any
//	@Router			/quiz/scrape-url [post]
func (m *Module) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	page, err := m.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, webctx.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		m.logger.Warn("scrape failed", zap.String("url", req.URL), zap.Error(err))
		writeJSON(w, http.StatusOK, ScrapeResponse{URL: req.URL, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ScrapeResponse{
		URL:     page.URL,
		Title:   page.Title,
		Content: webctx.Cap(page.Content, m.contentLimit),
		Success: true,
	})
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
