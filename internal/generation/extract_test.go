package generation

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"bare object", `{"a": 1}`, map[string]any{"a": float64(1)}},
		{"bare array", `[1, 2]`, []any{float64(1), float64(2)}},
		{"fenced", "```json\n{\"a\": \"x\"}\n```", map[string]any{"a": "x"}},
		{"upper fence", "```JSON\n[\"x\"]\n```", []any{"x"}},
		{"prose around object", `Sure! Here it is: {"a": true} Hope that helps.`, map[string]any{"a": true}},
		{"array before object", `Result: [{"a": 1}, {"b": 2}] done`, []any{map[string]any{"a": float64(1)}, map[string]any{"b": float64(2)}}},
		{"two objects", `first {"a": 1} then {"b": 2}`, map[string]any{"a": float64(1)}},
		{"trailing brace in prose", `{"a": 1} see {note}`, map[string]any{"a": float64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestExtractNoJSON(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"I cannot help with that.",
		`{"a": 1`,
		`"just a string"`,
		"42",
		"```json\n```",
	} {
		_, err := Extract(in)
		assert.ErrorIs(t, err, ErrNoParsableJSON, "input %q", in)
	}
}

func TestExtractEmbeddedRoundTrip(t *testing.T) {
	payloads := []string{
		`{"questions": [{"type": "mcq", "question": "Q?", "options": ["a","b","c","d"], "correct_answer": "A", "explanation": "E"}]}`,
		`{"question": "What does ` + "```" + ` start in markdown?", "n": 1}`,
		`[{"title": "Intro", "tags": ["` + "```json" + `", "{braces}"], "nested": {"ok": true, "n": null}}]`,
	}
	wraps := []string{
		"%s",
		"Here is your quiz:\n%s",
		"```json\n%s\n```",
		"Here you go:\n```json\n%s\n```\nthanks",
		"Some intro text.\n```\n%s\n```\nLet me know!",
		"Sure! %s Hope that helps.",
	}
	for _, payload := range payloads {
		var want any
		require.NoError(t, json.Unmarshal([]byte(payload), &want))
		for _, wrap := range wraps {
			text := fmt.Sprintf(wrap, payload)
			got, err := Extract(text)
			require.NoError(t, err, "reply %q", text)
			assert.Equal(t, want, got.Value, "reply %q", text)
		}
	}
}

func TestExtractKeepsBackticksInStrings(t *testing.T) {
	got, err := Extract("Here you go:\n```json\n{\"question\":\"What does ``` start in markdown?\",\"n\":1}\n```\nthanks")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"question": "What does ``` start in markdown?", "n": float64(1)}, got.Value)
}

func TestFencedBlocks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"tagged", "```json\n{}\n```", []string{"{}"}},
		{"untagged with prose", "intro\n```\n[1]\n```\noutro", []string{"[1]"}},
		{"unterminated", "```json\n{\"a\": 1}", []string{`{"a": 1}`}},
		{"inline backticks ignored", `{"a": "x ` + "```" + ` y"}`, nil},
		{"two blocks", "```\n1\n```\ntext\n```go\n2\n```", []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fencedBlocks(tt.in))
		})
	}
}

func TestExtractThenValidateIsDeterministic(t *testing.T) {
	tests := []struct {
		kind  Kind
		reply string
	}{
		{KindQuizBatch, "Here is the quiz:\n```json\n" + `{"questions":[
			{"type":"mcq","question":"Which keyword defines a Python function?","options":["func","def","fn","lambda"],"correct_answer":"B","explanation":"Python uses def."},
			{"type":"fill_blank","question":"Python blocks use _____.","correct_answer":"indentation","explanation":"Whitespace is syntax."},
			{"type":"true_false","question":"Python lists are immutable.","correct_answer":"False","explanation":"Tuples are."},
			{"type":"mcq","question":"Too few options?","options":["a","b"],"correct_answer":"A","explanation":"x"}
		]}` + "\n```"},
		{KindRoadmap, `Roadmap below. {"title":"Learning Roadmap for Go","description":"From basics to services.","estimated_time":"6 months","prerequisites":["Basic programming"],
			"steps":[{"level":1,"title":"Basics","description":"Syntax","topics":["types"],"resources":["https://go.dev/tour - Tour of Go"]}]} Enjoy!`},
		{KindCourseList, `[{"title":"Go Basics","url":"https://example.com/go","provider":"Example","level":"Beginner","topics":["go"]},{"title":"No URL"}]`},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			run := func() ([]StructuredItem, []string) {
				payload, err := Extract(tt.reply)
				require.NoError(t, err)
				items, errs := Validate(tt.kind, payload)
				msgs := make([]string, len(errs))
				for i, e := range errs {
					msgs[i] = e.Error()
				}
				return items, msgs
			}
			firstItems, firstErrs := run()
			require.NotEmpty(t, firstItems)
			for range 3 {
				items, errs := run()
				assert.Equal(t, firstItems, items)
				assert.Equal(t, firstErrs, errs)
			}
		})
	}
}
