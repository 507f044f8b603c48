package courses

import (
	"slices"
	"sort"
	"strings"
)

// Course sources.
const (
	SourceInternal = "internal"
	SourceExternal = "external"
)

// LevelUnspecified marks external courses whose level is unknown.
const LevelUnspecified = "Not specified"

// Course is one recommendation. Catalog courses have no URL.
type Course struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Level       string   `json:"level"`
	Topics      []string `json:"topics,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Source      string   `json:"source"`
	URL         *string  `json:"url"`
}

// Catalog is the built-in course list.
type Catalog struct {
	courses []Course
}

// NewCatalog returns a catalog of courses, tagged as internal.
func NewCatalog(courses ...Course) *Catalog {
	out := make([]Course, len(courses))
	for i, c := range courses {
		c.Source = SourceInternal
		out[i] = c
	}
	return &Catalog{courses: out}
}

// DefaultCatalog returns the courses shipped with the server.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Course{
			Title:       "Introduction to Python Programming",
			Description: "Learn the basics of Python programming language",
			Level:       "Beginner",
			Topics:      []string{"programming", "python", "coding"},
		},
		Course{
			Title:       "Web Development with React",
			Description: "Build modern web applications using React",
			Level:       "Intermediate",
			Topics:      []string{"web development", "react", "javascript"},
		},
		Course{
			Title:       "Machine Learning Fundamentals",
			Description: "Introduction to machine learning concepts and algorithms",
			Level:       "Advanced",
			Topics:      []string{"machine learning", "ai", "data science"},
		},
	)
}

// All returns every catalog course.
func (c *Catalog) All() []Course {
	return slices.Clone(c.courses)
}

// Topics returns the distinct course topics, sorted.
func (c *Catalog) Topics() []string {
	seen := map[string]bool{}
	var out []string
	for _, course := range c.courses {
		for _, t := range course.Topics {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Recommend scores each course by how many of its topics equal one of the
// interests (case-insensitive) and returns up to n courses with a positive
// score, best first. Equal scores keep catalog order.
func (c *Catalog) Recommend(interests []string, n int) []Course {
	want := make(map[string]bool, len(interests))
	for _, in := range interests {
		want[strings.ToLower(strings.TrimSpace(in))] = true
	}

	type scored struct {
		course Course
		score  int
	}
	var hits []scored
	for _, course := range c.courses {
		score := 0
		for _, t := range course.Topics {
			if want[strings.ToLower(t)] {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{course, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Course, 0, min(n, len(hits)))
	for _, h := range hits[:min(n, len(hits))] {
		out = append(out, h.course)
	}
	return out
}
