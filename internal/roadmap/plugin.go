// Package roadmap implements the roadmap plugin: leveled learning plans
// generated by the model, with curated templates as the fallback.
package roadmap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/studyforge/internal/config"
	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

// TopicGenerated is published after every roadmap request.
const TopicGenerated = "roadmap.generated"

// AnonymousUser owns history entries for requests without a user_id.
const AnonymousUser = "anonymous"

var errMissingTopic = errors.New("topic is required")

// GeneratedEvent is the payload of TopicGenerated.
type GeneratedEvent struct {
	UserID       string `json:"user_id"`
	Topic        string `json:"topic"`
	Title        string `json:"title"`
	UsedFallback bool   `json:"used_fallback"`
	BackendUsed  string `json:"backend_used,omitempty"`
}

// Response is a generated roadmap.
type Response struct {
	Success      bool                `json:"success"`
	Topic        string              `json:"topic"`
	Roadmap      *generation.Roadmap `json:"roadmap"`
	UsedFallback bool                `json:"used_fallback"`
	BackendUsed  *string             `json:"backend_used"`
}

// Module implements the roadmap plugin.
type Module struct {
	logger    *zap.Logger
	bus       plugin.EventBus
	templates []Template
	pipeline  *generation.Pipeline
}

// New creates a new roadmap plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "roadmap",
		Version:      "0.2.0",
		Description:  "Leveled learning roadmaps with curated fallback templates",
		Dependencies: []string{"llm"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	templates, err := LoadTemplates()
	if err != nil {
		return err
	}
	m.templates = templates

	var invoker llm.Invoker
	if p := roles.ResolveLLM(deps.Plugins); p != nil {
		invoker = p.Chain(
			llm.ModelSpec{
				Model:   config.StringOr(deps.Config, "primary_model", "llama3:latest"),
				Timeout: config.DurationOr(deps.Config, "primary_timeout", 45*time.Second),
			},
			llm.ModelSpec{
				Model:   config.StringOr(deps.Config, "secondary_model", "mistral:latest"),
				Timeout: config.DurationOr(deps.Config, "secondary_timeout", 30*time.Second),
			},
		)
	} else {
		m.logger.Warn("no llm provider available; roadmaps will use templates")
	}

	m.pipeline = generation.NewPipeline(invoker, FallbackTable(templates),
		generation.WithLogger(m.logger),
		generation.WithCallOptions(llm.WithTemperature(0.7), llm.WithTopP(0.9), llm.WithMaxTokens(3000)),
	)
	m.logger.Info("roadmap plugin initialized", zap.Int("templates", len(templates)))
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("roadmap plugin stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/generate", Handler: m.handleGenerate},
		{Method: "GET", Path: "/generate/{topic}", Handler: m.handleGenerateTopic},
		{Method: "GET", Path: "/templates", Handler: m.handleTemplates},
		{Method: "GET", Path: "/templates/{id}", Handler: m.handleTemplate},
	}
}

// Generate returns a roadmap for topic. Model failures yield the matching
// curated template; only an empty topic is an error.
func (m *Module) Generate(ctx context.Context, topic, userID string) (Response, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Response{}, errMissingTopic
	}
	req, err := generation.NewRequest(generation.KindRoadmap, topic, 1)
	if err != nil {
		return Response{}, err
	}
	res, err := m.pipeline.Run(ctx, req)
	if err != nil {
		return Response{}, err
	}
	rm := res.Roadmap()
	if rm == nil {
		return Response{}, fmt.Errorf("roadmap: pipeline returned no roadmap for %q", topic)
	}

	if m.bus != nil {
		if userID = strings.TrimSpace(userID); userID == "" {
			userID = AnonymousUser
		}
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:     TopicGenerated,
			Source:    "roadmap",
			Timestamp: time.Now(),
			Payload: GeneratedEvent{
				UserID:       userID,
				Topic:        topic,
				Title:        rm.Title,
				UsedFallback: res.UsedFallback,
				BackendUsed:  res.Backend(),
			},
		})
	}
	return Response{
		Success:      true,
		Topic:        topic,
		Roadmap:      rm,
		UsedFallback: res.UsedFallback,
		BackendUsed:  res.BackendUsed,
	}, nil
}

// Template returns the curated template with id.
func (m *Module) Template(id string) (Template, bool) {
	for _, t := range m.templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
