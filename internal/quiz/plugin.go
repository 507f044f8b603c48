// Package quiz implements the quiz plugin: quizzes generated from a topic,
// pasted text, an uploaded file or a web page, and grading of answers.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/studyforge/internal/config"
	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/internal/webctx"
	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/roles"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

const (
	defaultCount        = 5
	maxCount            = 20
	defaultModel        = "llama3:latest"
	defaultModelTimeout = 30 * time.Second
	maxFileSizeMB       = 16
)

var (
	errMissingSubject = errors.New("topic is required")
	errMissingContent = errors.New("content is required")
	errSourceType     = errors.New("invalid source type, use topic, text, file or url")
	errScrape         = errors.New("could not read the page")
)

// Module implements the quiz plugin.
type Module struct {
	logger       *zap.Logger
	bus          plugin.EventBus
	pipeline     *generation.Pipeline
	topics       *TopicExtractor
	fetcher      webctx.Fetcher
	defaultCount int
	contentLimit int
}

// New creates a new quiz plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "quiz",
		Version:      "0.2.0",
		Description:  "Quiz generation from topics, text, files and web pages, with answer grading",
		Dependencies: []string{"llm"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus
	m.defaultCount = config.IntOr(deps.Config, "default_count", defaultCount)
	m.contentLimit = config.IntOr(deps.Config, "content_limit", webctx.MaxContent)
	if m.defaultCount <= 0 || m.contentLimit <= 0 {
		return fmt.Errorf("quiz: default_count and content_limit must be positive")
	}

	var invoker llm.Invoker
	if p := roles.ResolveLLM(deps.Plugins); p != nil {
		invoker = p.Chain(llm.ModelSpec{
			Model:   config.StringOr(deps.Config, "model", defaultModel),
			Timeout: config.DurationOr(deps.Config, "model_timeout", defaultModelTimeout),
		})
	} else {
		m.logger.Warn("no llm provider available; quizzes will use static questions")
	}

	m.pipeline = generation.NewPipeline(invoker, FallbackTable(),
		generation.WithLogger(m.logger),
		generation.WithCallOptions(llm.WithTemperature(0.7), llm.WithMaxTokens(2048)),
	)
	m.topics = NewTopicExtractor(invoker, m.logger)
	m.fetcher = webctx.NewHTTPFetcher(config.DurationOr(deps.Config, "fetch_timeout", 10*time.Second))

	m.logger.Info("quiz plugin initialized",
		zap.Int("default_count", m.defaultCount),
		zap.Int("content_limit", m.contentLimit),
		zap.Bool("model_backed", invoker != nil),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("quiz plugin stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/generate", Handler: m.handleGenerate},
		{Method: "GET", Path: "/generate/{topic}", Handler: m.handleGenerateTopic},
		{Method: "POST", Path: "/upload", Handler: m.handleUpload},
		{Method: "POST", Path: "/validate", Handler: m.handleValidate},
		{Method: "GET", Path: "/supported-types", Handler: m.handleSupportedTypes},
		{Method: "POST", Path: "/scrape-url", Handler: m.handleScrape},
	}
}

// Generate resolves the request's source to a subject (and, for text, file
// and url sources, supporting content) and runs the generation pipeline.
// Only caller errors are returned; model failures yield static questions.
func (m *Module) Generate(ctx context.Context, in GenerateRequest) (GenerateResponse, error) {
	sourceType := strings.ToLower(strings.TrimSpace(in.SourceType))
	if sourceType == "" {
		sourceType = SourceTopic
		if in.URL != "" {
			sourceType = SourceURL
		}
	}

	var subject, content string
	switch sourceType {
	case SourceTopic:
		subject = firstNonEmpty(in.Topic, in.Content)
		if subject == "" {
			return GenerateResponse{}, errMissingSubject
		}
	case SourceText, SourceFile:
		content = strings.TrimSpace(in.Content)
		if content == "" {
			return GenerateResponse{}, errMissingContent
		}
	case SourceURL:
		page, err := m.fetcher.Fetch(ctx, firstNonEmpty(in.URL, in.Content))
		if err != nil {
			return GenerateResponse{}, fmt.Errorf("%w: %w", errScrape, err)
		}
		if content = strings.TrimSpace(page.Content); content == "" {
			return GenerateResponse{}, fmt.Errorf("%w: page has no readable text", errScrape)
		}
	default:
		return GenerateResponse{}, errSourceType
	}

	if content != "" {
		content = generation.Truncate(content, m.contentLimit)
		subject = firstNonEmpty(in.Topic, m.topics.Extract(ctx, content))
	}

	count := in.NumQuestions
	if count <= 0 {
		count = m.defaultCount
	}
	count = min(count, maxCount)

	types := make([]generation.QuestionType, 0, len(in.QuestionTypes))
	for _, t := range in.QuestionTypes {
		types = append(types, generation.QuestionType(t))
	}
	req, err := generation.NewRequest(generation.KindQuizBatch, subject, count, types...)
	if err != nil {
		return GenerateResponse{}, err
	}
	if content != "" {
		req = req.WithContext(content)
	}

	res, err := m.pipeline.Run(ctx, req)
	if err != nil {
		return GenerateResponse{}, err
	}

	out := GenerateResponse{
		Success:        true,
		QuizID:         uuid.NewString(),
		Topic:          req.Subject(),
		SourceType:     sourceType,
		Questions:      res.Questions(),
		UsedFallback:   res.UsedFallback,
		BackendUsed:    res.BackendUsed,
		TotalQuestions: len(res.Items),
	}
	m.publish(ctx, TopicGenerated, GeneratedEvent{
		QuizID:        out.QuizID,
		UserID:        userOrAnonymous(in.UserID),
		Topic:         out.Topic,
		SourceType:    sourceType,
		Questions:     out.Questions,
		UsedFallback:  out.UsedFallback,
		BackendUsed:   res.Backend(),
		QuestionTypes: typeNames(req.ItemTypes()),
	})
	return out, nil
}

// Validate grades answers and publishes the result for history.
func (m *Module) Validate(ctx context.Context, in ValidateRequest) (Grading, error) {
	g, err := Grade(in.Questions, in.Answers)
	if err != nil {
		return Grading{}, err
	}
	m.publish(ctx, TopicValidated, ValidatedEvent{
		QuizID:     in.QuizID,
		UserID:     userOrAnonymous(in.UserID),
		Topic:      firstNonEmpty(in.Topic, "Unknown"),
		SourceType: firstNonEmpty(in.SourceType, SourceTopic),
		Grading:    g,
		Questions:  in.Questions,
	})
	return g, nil
}

func (m *Module) publish(ctx context.Context, topic string, payload any) {
	if m.bus == nil {
		return
	}
	m.bus.PublishAsync(ctx, plugin.Event{
		Topic:     topic,
		Source:    "quiz",
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func userOrAnonymous(id string) string {
	return firstNonEmpty(id, AnonymousUser)
}

func typeNames(types []generation.QuestionType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
