// Package generation turns unreliable free-text model output into
// schema-valid structured items. A Pipeline builds the prompt, invokes the
// backend chain, extracts and validates JSON, checks relevance and falls
// back to static content whenever any stage fails.
package generation

import (
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/studyforge/pkg/llm"
)

// Kind is the type of content a request asks for.
type Kind string

const (
	KindRoadmap    Kind = "roadmap"
	KindQuizBatch  Kind = "quiz"
	KindChatAnswer Kind = "chat"
	KindCourseList Kind = "courses"
)

// QuestionType is a quiz question sub-kind.
type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionFillBlank QuestionType = "fill_blank"
	QuestionTrueFalse QuestionType = "true_false"
)

// AllQuestionTypes lists every supported question type in display order.
var AllQuestionTypes = []QuestionType{QuestionMCQ, QuestionFillBlank, QuestionTrueFalse}

// BlankMarker marks the gap in a fill_blank question.
const BlankMarker = "_____"

// ParseQuestionType normalizes a question type name, accepting the camel
// case and descriptive aliases models tend to emit.
func ParseQuestionType(s string) (QuestionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mcq", "multiple_choice", "multiple-choice", "multiplechoice":
		return QuestionMCQ, true
	case "fill_blank", "fillblank", "fill-blank", "fill_in_the_blank", "fill_in_blank":
		return QuestionFillBlank, true
	case "true_false", "truefalse", "true-false", "true/false":
		return QuestionTrueFalse, true
	}
	return "", false
}

// Request is an immutable generation request. Build one with NewRequest.
type Request struct {
	kind    Kind
	subject string
	count   int
	types   []QuestionType
	context string
}

// NewRequest validates its inputs. Quiz batches and course lists need a
// positive count; roadmaps and chat answers treat zero as one.
func NewRequest(kind Kind, subject string, count int, types ...QuestionType) (Request, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Request{}, fmt.Errorf("%w: subject is empty", ErrInvalidRequest)
	}
	if count < 0 {
		return Request{}, fmt.Errorf("%w: negative count %d", ErrInvalidRequest, count)
	}
	switch kind {
	case KindQuizBatch, KindCourseList:
		if count == 0 {
			return Request{}, fmt.Errorf("%w: %s request needs a positive count", ErrInvalidRequest, kind)
		}
	case KindRoadmap, KindChatAnswer:
		if count == 0 {
			count = 1
		}
	default:
		return Request{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, kind)
	}

	var normalized []QuestionType
	if kind == KindQuizBatch {
		seen := make(map[QuestionType]bool)
		for _, t := range types {
			if qt, ok := ParseQuestionType(string(t)); ok && !seen[qt] {
				seen[qt] = true
				normalized = append(normalized, qt)
			}
		}
		if len(normalized) == 0 {
			normalized = append(normalized, AllQuestionTypes...)
		}
	}

	return Request{kind: kind, subject: subject, count: count, types: normalized}, nil
}

// WithContext returns a copy carrying supporting text: the source content
// of a content-based quiz, or web context for a chat answer.
func (r Request) WithContext(text string) Request {
	r.context = text
	r.types = append([]QuestionType(nil), r.types...)
	return r
}

func (r Request) Kind() Kind      { return r.kind }
func (r Request) Subject() string { return r.subject }
func (r Request) Context() string { return r.context }

// DesiredCount is the number of items the caller wants.
func (r Request) DesiredCount() int { return r.count }

// ItemTypes returns the allowed question types. Empty for non-quiz kinds.
func (r Request) ItemTypes() []QuestionType {
	return append([]QuestionType(nil), r.types...)
}

// Allows reports whether t is an allowed question type.
func (r Request) Allows(t QuestionType) bool {
	for _, x := range r.types {
		if x == t {
			return true
		}
	}
	return false
}

// RawModelReply is one successful backend reply.
type RawModelReply = llm.Reply

// ExtractedPayload is the JSON value pulled out of a reply.
type ExtractedPayload struct {
	Value any
}

// StructuredItem is a schema-valid unit of generated content. The concrete
// types are *QuizQuestion, *Roadmap, *CourseRecord and *ChatAnswer.
type StructuredItem interface {
	Kind() Kind
	item()
}

// QuizQuestion is one quiz item.
type QuizQuestion struct {
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
}

// RoadmapStep is one level of a roadmap.
type RoadmapStep struct {
	Level       int      `json:"level"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
	Resources   []string `json:"resources"`
}

// Roadmap is a leveled learning plan.
type Roadmap struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Steps         []RoadmapStep `json:"steps"`
	EstimatedTime string        `json:"estimated_time"`
	Prerequisites []string      `json:"prerequisites"`
	LearningTips  []string      `json:"learning_tips"`
}

// CourseRecord is one recommended course.
type CourseRecord struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Provider string   `json:"provider,omitempty"`
	Level    string   `json:"level,omitempty"`
	Topics   []string `json:"topics,omitempty"`
	Source   string   `json:"source,omitempty"` // "internal" or "external"
}

// Source is a cited web page.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ChatAnswer is a chatbot reply.
type ChatAnswer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

func (*QuizQuestion) Kind() Kind { return KindQuizBatch }
func (*Roadmap) Kind() Kind      { return KindRoadmap }
func (*CourseRecord) Kind() Kind { return KindCourseList }
func (*ChatAnswer) Kind() Kind   { return KindChatAnswer }

func (*QuizQuestion) item() {}
func (*Roadmap) item()      {}
func (*CourseRecord) item() {}
func (*ChatAnswer) item()   {}

// Result is the outcome of one pipeline run. BackendUsed is nil when every
// item came from the fallback.
type Result struct {
	Items        []StructuredItem `json:"items"`
	UsedFallback bool             `json:"used_fallback"`
	BackendUsed  *string          `json:"backend_used"`
	Elapsed      time.Duration    `json:"-"`
}

// Backend returns BackendUsed or "".
func (r Result) Backend() string {
	if r.BackendUsed == nil {
		return ""
	}
	return *r.BackendUsed
}

// Questions returns the quiz items of r in order.
func (r Result) Questions() []*QuizQuestion {
	var out []*QuizQuestion
	for _, it := range r.Items {
		if q, ok := it.(*QuizQuestion); ok {
			out = append(out, q)
		}
	}
	return out
}

// Roadmap returns the first roadmap item, or nil.
func (r Result) Roadmap() *Roadmap {
	for _, it := range r.Items {
		if rm, ok := it.(*Roadmap); ok {
			return rm
		}
	}
	return nil
}

// Courses returns the course items of r in order.
func (r Result) Courses() []*CourseRecord {
	var out []*CourseRecord
	for _, it := range r.Items {
		if c, ok := it.(*CourseRecord); ok {
			out = append(out, c)
		}
	}
	return out
}

// Answer returns the first chat answer, or nil.
func (r Result) Answer() *ChatAnswer {
	for _, it := range r.Items {
		if a, ok := it.(*ChatAnswer); ok {
			return a
		}
	}
	return nil
}
