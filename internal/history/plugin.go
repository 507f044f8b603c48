// Package history records each learner's quizzes, chats and studied topics
// and serves them back with summary statistics.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/HerbHall/studyforge/internal/chat"
	"github.com/HerbHall/studyforge/internal/config"
	"github.com/HerbHall/studyforge/internal/quiz"
	"github.com/HerbHall/studyforge/internal/roadmap"
	"github.com/HerbHall/studyforge/internal/store"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.HTTPProvider    = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
)

// SourceRoadmap is the source type recorded for roadmap topics.
const SourceRoadmap = "roadmap"

// Module implements the history plugin.
type Module struct {
	logger *zap.Logger
	store  *Store
	ping   func(context.Context) error
	owned  *store.SQLiteStore
	now    func() time.Time
}

// New creates a new history plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "history",
		Version:     "0.1.0",
		Description: "Per-user quiz, chat and topic history with statistics",
		Roles:       []string{roles.RoleHistory},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

// Init applies the history migrations. Without a shared store the plugin
// keeps its history in a private in-memory database.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	st := deps.Store
	if st == nil {
		mem, err := store.Open(ctx, ":memory:")
		if err != nil {
			return fmt.Errorf("history: open in-memory store: %w", err)
		}
		m.owned = mem
		st = mem
		m.logger.Warn("no database configured; history is kept in memory")
	}
	if err := st.Migrate(ctx, "history", migrations()); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	m.store = NewStore(st.DB(), Limits{
		Quizzes: config.IntOr(deps.Config, "max_quizzes", MaxQuizzes),
		Chats:   config.IntOr(deps.Config, "max_chats", MaxChats),
		Topics:  config.IntOr(deps.Config, "max_topics", MaxTopics),
	}, m.now)
	m.ping = st.DB().PingContext

	m.logger.Info("history module initialized")
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("history module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.owned != nil {
		if err := m.owned.Close(); err != nil {
			return fmt.Errorf("history: close in-memory store: %w", err)
		}
		m.owned = nil
	}
	m.logger.Info("history module stopped")
	return nil
}

// Store returns the history store, for callers in the same process.
func (m *Module) Store() *Store {
	return m.store
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.ping == nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "not initialized"}
	}
	if err := m.ping(ctx); err != nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: err.Error()}
	}
	details := map[string]string{"backend": "shared"}
	if m.owned != nil {
		details["backend"] = "memory"
	}
	return plugin.HealthStatus{Status: "healthy", Details: details}
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/{user}", Handler: m.handleHistory},
		{Method: "GET", Path: "/{user}/stats", Handler: m.handleStats},
		{Method: "GET", Path: "/{user}/quizzes", Handler: m.handleQuizzes},
		{Method: "GET", Path: "/{user}/quiz/{id}", Handler: m.handleQuiz},
		{Method: "GET", Path: "/{user}/topics", Handler: m.handleTopics},
		{Method: "GET", Path: "/{user}/chats", Handler: m.handleChats},
		{Method: "POST", Path: "/{user}/chats", Handler: m.handleAddChat},
		{Method: "DELETE", Path: "/{user}/clear", Handler: m.handleClear},
	}
}

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: quiz.TopicGenerated, Handler: m.onQuizGenerated},
		{Topic: quiz.TopicValidated, Handler: m.onQuizValidated},
		{Topic: chat.TopicAnswered, Handler: m.onChatAnswered},
		{Topic: roadmap.TopicGenerated, Handler: m.onRoadmapGenerated},
	}
}

func (m *Module) onQuizGenerated(ctx context.Context, e plugin.Event) {
	ev, ok := e.Payload.(quiz.GeneratedEvent)
	if !ok {
		m.unexpected(e)
		return
	}
	if err := m.store.AddTopic(ctx, ev.UserID, ev.Topic, ev.SourceType); err != nil {
		m.logger.Error("record quiz topic", zap.String("user_id", ev.UserID), zap.Error(err))
	}
}

func (m *Module) onQuizValidated(ctx context.Context, e plugin.Event) {
	ev, ok := e.Payload.(quiz.ValidatedEvent)
	if !ok {
		m.unexpected(e)
		return
	}
	_, err := m.store.AddQuiz(ctx, ev.UserID, Quiz{
		QuizID:          ev.QuizID,
		Topic:           ev.Topic,
		SourceType:      ev.SourceType,
		NumQuestions:    len(ev.Questions),
		Score:           ev.Grading.Score,
		TotalQuestions:  ev.Grading.TotalQuestions,
		ScorePercentage: ev.Grading.ScorePercentage,
		Questions:       ev.Questions,
		Results:         ev.Grading.Results,
	})
	if err != nil {
		m.logger.Error("record quiz", zap.String("user_id", ev.UserID), zap.Error(err))
		return
	}
	if err := m.store.AddTopic(ctx, ev.UserID, ev.Topic, ev.SourceType); err != nil {
		m.logger.Error("record quiz topic", zap.String("user_id", ev.UserID), zap.Error(err))
	}
}

func (m *Module) onChatAnswered(ctx context.Context, e plugin.Event) {
	ev, ok := e.Payload.(chat.AnsweredEvent)
	if !ok {
		m.unexpected(e)
		return
	}
	_, err := m.store.AddChat(ctx, ev.UserID, Chat{
		Message:  ev.Query,
		Response: ev.Answer,
		Type:     ChatTypeGeneral,
		Cached:   ev.Cached,
	})
	if err != nil {
		m.logger.Error("record chat", zap.String("user_id", ev.UserID), zap.Error(err))
	}
}

func (m *Module) onRoadmapGenerated(ctx context.Context, e plugin.Event) {
	ev, ok := e.Payload.(roadmap.GeneratedEvent)
	if !ok {
		m.unexpected(e)
		return
	}
	if err := m.store.AddTopic(ctx, ev.UserID, ev.Topic, SourceRoadmap); err != nil {
		m.logger.Error("record roadmap topic", zap.String("user_id", ev.UserID), zap.Error(err))
	}
}

func (m *Module) unexpected(e plugin.Event) {
	m.logger.Warn("unexpected event payload",
		zap.String("topic", e.Topic),
		zap.String("type", fmt.Sprintf("%T", e.Payload)),
	)
}
