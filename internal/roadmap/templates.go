package roadmap

import (
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"

	"github.com/HerbHall/studyforge/internal/generation"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Template is a curated roadmap. Text fields may contain the placeholders
// {topic}, {slug}, {compact} and {query}, filled in by Render.
type Template struct {
	ID            string     `yaml:"id" json:"id"`
	Name          string     `yaml:"name" json:"name"`
	Order         int        `yaml:"order" json:"-"`
	Keywords      []string   `yaml:"keywords" json:"keywords"`
	Title         string     `yaml:"title" json:"title"`
	Description   string     `yaml:"description" json:"description"`
	Steps         []StepSpec `yaml:"steps" json:"steps"`
	EstimatedTime string     `yaml:"estimated_time" json:"estimated_time"`
	Prerequisites []string   `yaml:"prerequisites" json:"prerequisites"`
	LearningTips  []string   `yaml:"learning_tips" json:"learning_tips,omitempty"`
}

// StepSpec is one level of a Template.
type StepSpec struct {
	Level       int      `yaml:"level" json:"level"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Topics      []string `yaml:"topics" json:"topics"`
	Resources   []string `yaml:"resources" json:"resources"`
}

// LoadTemplates parses the embedded templates ordered by match priority.
// Exactly one template, the last, has no keywords.
func LoadTemplates() ([]Template, error) {
	return loadTemplates(templateFS, "templates")
}

func loadTemplates(fsys fs.FS, dir string) ([]Template, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read roadmap templates: %w", err)
	}

	var out []Template
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var t Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		if t.ID == "" || len(t.Steps) == 0 {
			return nil, fmt.Errorf("template %s: id and steps are required", e.Name())
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })

	for i, t := range out {
		if (len(t.Keywords) == 0) != (i == len(out)-1) {
			return nil, fmt.Errorf("template %q: only the last template may omit keywords", t.ID)
		}
	}
	return out, nil
}

// Matches reports whether subject selects t. Keywords of up to three
// letters ("ml", "js") must stand alone as words.
func (t Template) Matches(subject string) bool {
	norm := generation.NormalizeSubject(subject)
	for _, kw := range t.Keywords {
		if len(kw) <= 3 {
			if generation.ContainsWord(kw)(norm) {
				return true
			}
			continue
		}
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

// Render fills the placeholders with topic. Templates without tips get
// generation.DefaultLearningTips.
func (t Template) Render(topic string) *generation.Roadmap {
	topic = strings.TrimSpace(topic)
	lower := strings.ToLower(topic)
	r := strings.NewReplacer(
		"{topic}", topic,
		"{slug}", strings.ReplaceAll(lower, " ", "-"),
		"{compact}", strings.ReplaceAll(lower, " ", ""),
		"{query}", url.QueryEscape(topic),
	)
	all := func(in []string) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = r.Replace(s)
		}
		return out
	}

	rm := &generation.Roadmap{
		Title:         r.Replace(t.Title),
		Description:   r.Replace(t.Description),
		EstimatedTime: t.EstimatedTime,
		Prerequisites: all(t.Prerequisites),
		LearningTips:  all(t.LearningTips),
	}
	if len(rm.LearningTips) == 0 {
		rm.LearningTips = append([]string(nil), generation.DefaultLearningTips...)
	}
	for _, s := range t.Steps {
		rm.Steps = append(rm.Steps, generation.RoadmapStep{
			Level:       s.Level,
			Title:       r.Replace(s.Title),
			Description: r.Replace(s.Description),
			Topics:      all(s.Topics),
			Resources:   all(s.Resources),
		})
	}
	return rm
}

// FallbackTable turns the templates into an ordered fallback table. The
// keyword-less template is the catch-all.
func FallbackTable(templates []Template) *generation.FallbackTable {
	rules := make([]generation.FallbackRule, 0, len(templates))
	for _, t := range templates {
		rule := generation.FallbackRule{
			Name: t.ID,
			Build: func(in generation.FallbackInput) []generation.StructuredItem {
				return []generation.StructuredItem{t.Render(in.Subject)}
			},
		}
		if len(t.Keywords) > 0 {
			rule.Match = t.Matches
		}
		rules = append(rules, rule)
	}
	return generation.NewFallbackTable(generation.KindRoadmap, rules...)
}
