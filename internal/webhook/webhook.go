// Package webhook posts learning events to an external HTTP endpoint, for
// example a classroom dashboard or a chat channel bridge.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/HerbHall/studyforge/internal/chat"
	"github.com/HerbHall/studyforge/internal/config"
	"github.com/HerbHall/studyforge/internal/quiz"
	"github.com/HerbHall/studyforge/internal/roadmap"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ roles.Notifier         = (*Module)(nil)
)

// SignatureHeader carries the hex HMAC-SHA256 of the body when a secret
// is configured.
const SignatureHeader = "X-StudyForge-Signature"

// ErrNotConfigured is returned by Notify when no URL is set or delivery
// is disabled.
var ErrNotConfigured = errors.New("webhook not configured")

var defaultTopics = []string{quiz.TopicValidated, roadmap.TopicGenerated}

// Config holds the webhook plugin configuration.
type Config struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Enabled bool
	Topics  []string
}

// Module implements the webhook notifier plugin.
type Module struct {
	logger *zap.Logger
	cfg    Config
	client *http.Client
}

// New creates a new webhook plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "webhook",
		Version:     "0.2.0",
		Description: "Posts quiz results and generated roadmaps to a configurable webhook URL",
		Roles:       []string{roles.RoleNotification},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = Config{
		URL:     config.StringOr(deps.Config, "url", ""),
		Secret:  config.StringOr(deps.Config, "secret", ""),
		Timeout: config.DurationOr(deps.Config, "timeout", 10*time.Second),
		Enabled: config.BoolOr(deps.Config, "enabled", true),
		Topics:  defaultTopics,
	}
	if raw := config.StringOr(deps.Config, "topics", ""); raw != "" {
		m.cfg.Topics = nil
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				m.cfg.Topics = append(m.cfg.Topics, t)
			}
		}
	}
	m.client = &http.Client{Timeout: m.cfg.Timeout}

	if m.cfg.URL == "" {
		m.logger.Warn("webhook URL not configured; notifications will be dropped")
	}
	m.logger.Info("webhook module initialized",
		zap.String("url", m.cfg.URL),
		zap.Duration("timeout", m.cfg.Timeout),
		zap.Bool("enabled", m.cfg.Enabled),
		zap.Strings("topics", m.cfg.Topics),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("webhook module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("webhook module stopped")
	return nil
}

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	subs := make([]plugin.Subscription, 0, len(m.cfg.Topics))
	for _, t := range m.cfg.Topics {
		subs = append(subs, plugin.Subscription{Topic: t, Handler: m.handleEvent})
	}
	return subs
}

// Payload is the JSON body sent to the webhook URL.
type Payload struct {
	Event     string `json:"event"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Summary   string `json:"summary"`
	Data      any    `json:"data,omitempty"`
}

func (m *Module) handleEvent(ctx context.Context, event plugin.Event) {
	if !m.cfg.Enabled || m.cfg.URL == "" {
		return
	}
	err := m.deliver(ctx, Payload{
		Event:     event.Topic,
		Source:    event.Source,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Summary:   Summarize(event),
		Data:      event.Payload,
	})
	if err != nil {
		m.logger.Warn("webhook delivery failed", zap.String("topic", event.Topic), zap.Error(err))
	}
}

// Notify implements roles.Notifier.
func (m *Module) Notify(ctx context.Context, n roles.Notification) error {
	if !m.cfg.Enabled || m.cfg.URL == "" {
		return ErrNotConfigured
	}
	data := map[string]any{}
	if n.Body != "" {
		data["body"] = n.Body
	}
	for k, v := range n.Meta {
		data[k] = v
	}
	return m.deliver(ctx, Payload{
		Event:     n.Topic,
		Source:    "notify",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Summary:   n.Summary,
		Data:      data,
	})
}

// Summarize renders a one-line description of a learning event.
func Summarize(e plugin.Event) string {
	switch p := e.Payload.(type) {
	case quiz.ValidatedEvent:
		return fmt.Sprintf("%s scored %d/%d (%.2f%%) on %s",
			p.UserID, p.Grading.Score, p.Grading.TotalQuestions, p.Grading.ScorePercentage, p.Topic)
	case quiz.GeneratedEvent:
		return fmt.Sprintf("%s started a %d question quiz on %s", p.UserID, len(p.Questions), p.Topic)
	case roadmap.GeneratedEvent:
		return fmt.Sprintf("%s generated a roadmap for %s", p.UserID, p.Topic)
	case chat.AnsweredEvent:
		return fmt.Sprintf("%s asked: %s", p.UserID, p.Query)
	}
	return e.Topic
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (m *Module) deliver(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "StudyForge-Webhook/0.2")
	if m.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(m.cfg.Secret, body))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	m.logger.Debug("webhook delivered", zap.String("topic", p.Event), zap.Int("status_code", resp.StatusCode))
	return nil
}
