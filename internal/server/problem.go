package server

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound    = "https://studyforge.dev/problems/not-found"
	ProblemTypeBadRequest  = "https://studyforge.dev/problems/bad-request"
	ProblemTypeInternal    = "https://studyforge.dev/problems/internal-error"
	ProblemTypeRateLimited = "https://studyforge.dev/problems/rate-limited"
	ProblemTypeUnavailable = "https://studyforge.dev/problems/unavailable"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type" example:"https://studyforge.dev/problems/bad-request"`
	Title    string `json:"title" example:"Bad Request"`
	Status   int    `json:"status" example:"400"`
	Detail   string `json:"detail,omitempty" example:"Message cannot be empty"`
	Instance string `json:"instance,omitempty" example:"/api/v1/chat"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func problem(typ string, status int, detail, instance string) Problem {
	return Problem{Type: typ, Title: http.StatusText(status), Status: status, Detail: detail, Instance: instance}
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, problem(ProblemTypeNotFound, http.StatusNotFound, detail, instance))
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, problem(ProblemTypeBadRequest, http.StatusBadRequest, detail, instance))
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, problem(ProblemTypeInternal, http.StatusInternalServerError, detail, instance))
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, problem(ProblemTypeRateLimited, http.StatusTooManyRequests, detail, instance))
}

// Unavailable writes a 503 problem response.
func Unavailable(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, problem(ProblemTypeUnavailable, http.StatusServiceUnavailable, detail, instance))
}
