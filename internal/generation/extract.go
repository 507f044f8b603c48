package generation

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Extract pulls one complete JSON value out of a model reply. It tries, in
// order: the whole reply; the body of each markdown code fence; the span
// from the first '{' to the last '}' and from the first '[' to the last ']'
// (whichever opens earlier goes first); and finally the first complete value
// found by decoding forward from each opening bracket. Fences are recognized
// only as whole lines, so backticks inside JSON strings are left intact. A
// value is either fully parsed or not returned at all.
func Extract(text string) (ExtractedPayload, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ExtractedPayload{}, ErrNoParsableJSON
	}

	if v, ok := parseFull(text); ok {
		return ExtractedPayload{Value: v}, nil
	}
	for _, block := range fencedBlocks(text) {
		if v, ok := parseFull(strings.TrimSpace(block)); ok {
			return ExtractedPayload{Value: v}, nil
		}
	}

	objStart := strings.IndexByte(text, '{')
	arrStart := strings.IndexByte(text, '[')
	spans := [][2]byte{{'{', '}'}, {'[', ']'}}
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		spans[0], spans[1] = spans[1], spans[0]
	}
	for _, sp := range spans {
		start := strings.IndexByte(text, sp[0])
		end := strings.LastIndexByte(text, sp[1])
		if start < 0 || end <= start {
			continue
		}
		if v, ok := parseFull(text[start : end+1]); ok {
			return ExtractedPayload{Value: v}, nil
		}
	}

	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		if v, ok := parsePrefix(text[i:]); ok {
			return ExtractedPayload{Value: v}, nil
		}
	}
	return ExtractedPayload{}, ErrNoParsableJSON
}

// fencedBlocks returns the bodies of markdown code fences in s. An opening
// fence is a line of three backticks plus an optional language tag; the
// block ends at a line that is exactly three backticks, or at the end of s.
// JSON strings cannot span lines, so a fence line never starts inside one.
func fencedBlocks(s string) []string {
	lines := strings.Split(s, "\n")
	var blocks []string
	open := -1
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, "```") {
			continue
		}
		if open < 0 {
			if tag := t[3:]; !strings.ContainsAny(tag, "` \t") {
				open = i
			}
			continue
		}
		if t == "```" {
			blocks = append(blocks, strings.Join(lines[open+1:i], "\n"))
			open = -1
		}
	}
	if open >= 0 {
		blocks = append(blocks, strings.Join(lines[open+1:], "\n"))
	}
	return blocks
}

// parseFull accepts s only if it is exactly one JSON object or array.
func parseFull(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, isContainer(v)
}

// parsePrefix decodes the first complete JSON value at the start of s.
func parsePrefix(s string) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, isContainer(v)
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
