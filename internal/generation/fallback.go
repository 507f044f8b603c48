package generation

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
)

// FallbackInput is what a fallback factory builds from.
type FallbackInput struct {
	Subject string
	Count   int
	Types   []QuestionType
	// Rand is request scoped; factories must not use the global source.
	Rand *rand.Rand
}

// FallbackRule pairs a subject predicate with a static content factory. A
// nil Match makes the rule a catch-all.
type FallbackRule struct {
	Name  string
	Match func(subject string) bool
	Build func(in FallbackInput) []StructuredItem
}

// FallbackTable is an ordered list of rules ending in a catch-all.
// Subjects are lowercased and trimmed before matching.
type FallbackTable struct {
	kind  Kind
	rules []FallbackRule
}

// NewFallbackTable returns a table for kind. It panics unless the last rule
// is a catch-all and every rule has a factory.
func NewFallbackTable(kind Kind, rules ...FallbackRule) *FallbackTable {
	if len(rules) == 0 || rules[len(rules)-1].Match != nil {
		panic(fmt.Sprintf("generation: %s fallback table must end with a catch-all rule", kind))
	}
	for _, r := range rules {
		if r.Build == nil {
			panic(fmt.Sprintf("generation: fallback rule %q has no factory", r.Name))
		}
	}
	return &FallbackTable{kind: kind, rules: rules}
}

// Kind returns the content kind the table produces.
func (t *FallbackTable) Kind() Kind { return t.kind }

// Resolve returns the first rule matching subject.
func (t *FallbackTable) Resolve(subject string) FallbackRule {
	norm := NormalizeSubject(subject)
	for _, r := range t.rules {
		if r.Match == nil || r.Match(norm) {
			return r
		}
	}
	return t.rules[len(t.rules)-1]
}

// Build runs the matching factory. It never fails.
func (t *FallbackTable) Build(in FallbackInput) (string, []StructuredItem) {
	if in.Rand == nil {
		in.Rand = NewRand()
	}
	rule := t.Resolve(in.Subject)
	return rule.Name, rule.Build(in)
}

// NormalizeSubject lowercases and trims s.
func NormalizeSubject(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Exact matches subjects equal to one of keys.
func Exact(keys ...string) func(string) bool {
	return func(s string) bool {
		for _, k := range keys {
			if s == k {
				return true
			}
		}
		return false
	}
}

// ContainsAny matches subjects containing any of the substrings.
func ContainsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

// ContainsWord matches subjects containing any of words delimited by
// non-letters, so "ml" matches "intro to ml" but not "html".
func ContainsWord(words ...string) func(string) bool {
	return func(s string) bool {
		for _, w := range words {
			for i := 0; ; {
				j := strings.Index(s[i:], w)
				if j < 0 {
					break
				}
				start, end := i+j, i+j+len(w)
				if boundary(s, start-1) && boundary(s, end) {
					return true
				}
				i = start + 1
			}
		}
		return false
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Sample returns min(n, len(items)) elements of items in random order.
func Sample[T any](r *rand.Rand, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, 0, n)
	for _, i := range r.Perm(len(items))[:n] {
		out = append(out, items[i])
	}
	return out
}

// NewRand returns a freshly seeded source for one request.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// TitleCase upper-cases the first letter of each space-separated word.
func TitleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		r := []rune(f)
		r[0] = unicode.ToUpper(r[0])
		for j := 1; j < len(r); j++ {
			r[j] = unicode.ToLower(r[j])
		}
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}
