package generation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultLearningTips is synthesized for roadmaps that omit learning_tips.
var DefaultLearningTips = []string{
	"Practice regularly with hands-on projects",
	"Join online communities and forums",
	"Follow industry experts and thought leaders",
	"Attend workshops, conferences, and meetups",
	"Build a portfolio of projects and contributions",
}

const quizQuestionSchema = `{
  "type": "object",
  "required": ["type", "question", "correct_answer", "explanation"],
  "properties": {
    "type": {"enum": ["mcq", "fill_blank", "true_false"]},
    "question": {"type": "string", "pattern": "\\S"},
    "options": {"type": "array", "items": {"type": "string"}},
    "correct_answer": {"type": "string", "pattern": "\\S"},
    "explanation": {"type": "string", "pattern": "\\S"}
  }
}`

const roadmapSchema = `{
  "type": "object",
  "required": ["title", "description", "steps", "estimated_time", "prerequisites"],
  "properties": {
    "title": {"type": "string", "pattern": "\\S"},
    "description": {"type": "string", "pattern": "\\S"},
    "estimated_time": {"type": "string", "pattern": "\\S"},
    "prerequisites": {"type": "array", "items": {"type": "string"}},
    "learning_tips": {"type": "array", "items": {"type": "string"}},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["level", "title", "description", "topics", "resources"],
        "properties": {
          "level": {"type": ["integer", "string"]},
          "title": {"type": "string", "pattern": "\\S"},
          "description": {"type": "string"},
          "topics": {"type": "array", "items": {"type": "string"}},
          "resources": {"type": "array"}
        }
      }
    }
  }
}`

const courseSchema = `{
  "type": "object",
  "required": ["title", "url"],
  "properties": {
    "title": {"type": "string", "pattern": "\\S"},
    "url": {"type": "string", "pattern": "^https?://"},
    "provider": {"type": "string"},
    "level": {"type": "string"},
    "topics": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	quizValidator    = mustSchema(quizQuestionSchema)
	roadmapValidator = mustSchema(roadmapSchema)
	courseValidator  = mustSchema(courseSchema)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("generation: invalid built-in schema: %v", err))
	}
	return schema
}

// Validate dispatches to the validator for kind.
func Validate(kind Kind, payload ExtractedPayload) ([]StructuredItem, []error) {
	switch kind {
	case KindQuizBatch:
		return ValidateQuiz(payload.Value)
	case KindRoadmap:
		return ValidateRoadmap(payload.Value)
	case KindCourseList:
		return ValidateCourses(payload.Value)
	case KindChatAnswer:
		return ValidateChat(payload.Value)
	}
	return nil, []error{fmt.Errorf("%w: unknown kind %q", ErrSchemaViolation, kind)}
}

// ValidateQuiz returns the questions in v that satisfy the quiz schema.
// Invalid questions are dropped and reported individually.
func ValidateQuiz(v any) ([]StructuredItem, []error) {
	var items []StructuredItem
	var errs []error
	for i, raw := range asList(v, "questions", "quiz") {
		q, err := validateQuestion(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("question %d: %w", i+1, err))
			continue
		}
		items = append(items, q)
	}
	return items, errs
}

func validateQuestion(raw any) (*QuizQuestion, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: not an object", ErrSchemaViolation)
	}
	// Normalize type aliases on a copy so the caller's value is untouched.
	if t, ok := m["type"].(string); ok {
		if qt, ok := ParseQuestionType(t); ok && string(qt) != t {
			m = cloneMap(m)
			m["type"] = string(qt)
		}
	}
	if err := check(quizValidator, m); err != nil {
		return nil, err
	}

	q := &QuizQuestion{
		Type:          QuestionType(m["type"].(string)),
		Question:      strings.TrimSpace(m["question"].(string)),
		CorrectAnswer: strings.TrimSpace(m["correct_answer"].(string)),
		Explanation:   strings.TrimSpace(m["explanation"].(string)),
		Options:       stringList(m["options"]),
	}

	switch q.Type {
	case QuestionMCQ:
		if len(q.Options) != 4 {
			return nil, fmt.Errorf("%w: mcq needs exactly 4 options, got %d", ErrSchemaViolation, len(q.Options))
		}
		switch q.CorrectAnswer {
		case "A", "B", "C", "D":
		default:
			return nil, fmt.Errorf("%w: mcq correct_answer %q not in A-D", ErrSchemaViolation, q.CorrectAnswer)
		}
	case QuestionFillBlank:
		if !strings.Contains(q.Question, BlankMarker) {
			return nil, fmt.Errorf("%w: fill_blank question has no %s", ErrSchemaViolation, BlankMarker)
		}
		q.Options = nil
	case QuestionTrueFalse:
		if q.CorrectAnswer != "True" && q.CorrectAnswer != "False" {
			return nil, fmt.Errorf("%w: true_false correct_answer %q", ErrSchemaViolation, q.CorrectAnswer)
		}
		q.Options = nil
	}
	return q, nil
}

// ValidateRoadmap returns the roadmaps in v that satisfy the roadmap
// schema. A missing learning_tips list is filled with DefaultLearningTips.
func ValidateRoadmap(v any) ([]StructuredItem, []error) {
	var items []StructuredItem
	var errs []error
	for i, raw := range asList(v, "roadmap") {
		rm, err := validateRoadmap(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("roadmap %d: %w", i+1, err))
			continue
		}
		items = append(items, rm)
	}
	return items, errs
}

func validateRoadmap(raw any) (*Roadmap, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: not an object", ErrSchemaViolation)
	}
	if err := check(roadmapValidator, m); err != nil {
		return nil, err
	}

	rm := &Roadmap{
		Title:         strings.TrimSpace(m["title"].(string)),
		Description:   strings.TrimSpace(m["description"].(string)),
		EstimatedTime: strings.TrimSpace(m["estimated_time"].(string)),
		Prerequisites: stringList(m["prerequisites"]),
		LearningTips:  stringList(m["learning_tips"]),
	}
	for i, rawStep := range m["steps"].([]any) {
		sm := rawStep.(map[string]any)
		level, err := stepLevel(sm["level"], i+1)
		if err != nil {
			return nil, err
		}
		rm.Steps = append(rm.Steps, RoadmapStep{
			Level:       level,
			Title:       strings.TrimSpace(sm["title"].(string)),
			Description: strings.TrimSpace(sm["description"].(string)),
			Topics:      stringList(sm["topics"]),
			Resources:   resourceList(sm["resources"]),
		})
	}
	if _, present := m["learning_tips"]; !present || len(rm.LearningTips) == 0 {
		rm.LearningTips = append([]string(nil), DefaultLearningTips...)
	}
	return rm, nil
}

func stepLevel(v any, fallback int) (int, error) {
	switch x := v.(type) {
	case float64:
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			// Models sometimes label levels ("Beginner"); keep position.
			return fallback, nil
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: step level has type %T", ErrSchemaViolation, v)
}

// ValidateCourses returns the course records in v with a title and an
// http(s) URL.
func ValidateCourses(v any) ([]StructuredItem, []error) {
	var items []StructuredItem
	var errs []error
	for i, raw := range asList(v, "courses", "recommendations") {
		m, ok := raw.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("course %d: %w: not an object", i+1, ErrSchemaViolation))
			continue
		}
		if err := check(courseValidator, m); err != nil {
			errs = append(errs, fmt.Errorf("course %d: %w", i+1, err))
			continue
		}
		c := &CourseRecord{
			Title:  strings.TrimSpace(m["title"].(string)),
			URL:    strings.TrimSpace(m["url"].(string)),
			Topics: stringList(m["topics"]),
			Source: "external",
		}
		c.Provider, _ = m["provider"].(string)
		c.Level, _ = m["level"].(string)
		items = append(items, c)
	}
	return items, errs
}

// ValidateChat accepts any non-blank answer text.
func ValidateChat(v any) ([]StructuredItem, []error) {
	text, _ := v.(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, []error{fmt.Errorf("%w: empty answer", ErrSchemaViolation)}
	}
	return []StructuredItem{&ChatAnswer{Answer: text, Sources: []Source{}}}, nil
}

func check(schema *gojsonschema.Schema, v map[string]any) error {
	res, err := schema.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}

// asList normalizes v to a list: arrays pass through, an object wrapping a
// list under one of keys is unwrapped, and any other object is a list of
// one.
func asList(v any, keys ...string) []any {
	switch x := v.(type) {
	case []any:
		return x
	case map[string]any:
		for _, k := range keys {
			if inner, ok := x[k].([]any); ok {
				return inner
			}
		}
		return []any{x}
	}
	return nil
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// resourceList accepts "URL - Name" strings as well as {url, title|name}
// objects, rendering the latter in the string form.
func resourceList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, e := range list {
		switch r := e.(type) {
		case string:
			if s := strings.TrimSpace(r); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			url, _ := r["url"].(string)
			name, _ := r["title"].(string)
			if name == "" {
				name, _ = r["name"].(string)
			}
			switch {
			case url != "" && name != "":
				out = append(out, url+" - "+name)
			case url != "":
				out = append(out, url)
			case name != "":
				out = append(out, name)
			}
		}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
