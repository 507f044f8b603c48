package generation

import (
	"strings"
	"unicode"
)

const (
	relevanceSample    = 1000
	minRelevantRunes   = 4
	relevantTextLength = 20
)

// IsRelevant reports whether item looks related to subject. It accepts any
// shared word of four or more letters, and otherwise accepts items whose
// main text is longer than a short threshold. Callers treat a false result
// as a warning, not a rejection.
func IsRelevant(item StructuredItem, subject string) bool {
	body, extra := relevanceText(item)
	if strings.TrimSpace(subject) == "" {
		return true
	}
	subjectWords := words(Truncate(subject, relevanceSample))
	for w := range words(body + " " + extra) {
		if subjectWords[w] {
			return true
		}
	}
	return len(body) > relevantTextLength
}

// relevanceText returns the main text of item and supporting text that
// only counts towards word overlap.
func relevanceText(item StructuredItem) (body, extra string) {
	switch it := item.(type) {
	case *QuizQuestion:
		return it.Question, it.Explanation
	case *Roadmap:
		var topics []string
		for _, s := range it.Steps {
			topics = append(topics, s.Topics...)
		}
		return it.Description, it.Title + " " + strings.Join(topics, " ")
	case *CourseRecord:
		return it.Title, strings.Join(it.Topics, " ")
	case *ChatAnswer:
		return it.Answer, ""
	}
	return "", ""
}

// words splits s into the set of lowercase words of at least four letters
// or digits.
func words(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		if len([]rune(f)) >= minRelevantRunes {
			set[f] = true
		}
	}
	return set
}
