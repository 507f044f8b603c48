package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HerbHall/studyforge/internal/chat"
	"github.com/HerbHall/studyforge/internal/config"
	"github.com/HerbHall/studyforge/internal/courses"
	"github.com/HerbHall/studyforge/internal/quiz"
	"github.com/HerbHall/studyforge/internal/roadmap"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// backend runs studyctl commands against a server or locally.
type backend interface {
	Quiz(ctx context.Context, topic string, count int, types []string, user string) (any, error)
	Roadmap(ctx context.Context, topic, user string) (any, error)
	Chat(ctx context.Context, message, user string) (any, error)
	Recommend(ctx context.Context, interests []string) (any, error)
	Search(ctx context.Context, query string) (any, error)
	History(ctx context.Context, user string, stats bool) (any, error)
}

// errOfflineHistory is returned for history in offline mode.
var errOfflineHistory = errors.New("history needs a server; drop --offline")

type remote struct {
	base   string
	client *http.Client
}

func newRemote(base string) *remote {
	// Generation can walk two model backends before answering.
	return &remote{base: strings.TrimRight(base, "/"), client: &http.Client{Timeout: 2 * time.Minute}}
}

func (r *remote) do(ctx context.Context, method, path string, body any) (any, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.base+"/api/v1"+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()

	var out any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 400 {
		if m, ok := out.(map[string]any); ok {
			if d, ok := m["detail"].(string); ok && d != "" {
				return nil, fmt.Errorf("server: %s", d)
			}
		}
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return out, nil
}

func (r *remote) Quiz(ctx context.Context, topic string, count int, types []string, user string) (any, error) {
	return r.do(ctx, http.MethodPost, "/quiz/generate", quiz.GenerateRequest{
		SourceType: quiz.SourceTopic, Topic: topic, NumQuestions: count, QuestionTypes: types, UserID: user,
	})
}

func (r *remote) Roadmap(ctx context.Context, topic, user string) (any, error) {
	return r.do(ctx, http.MethodPost, "/roadmap/generate", map[string]string{"topic": topic, "user_id": user})
}

func (r *remote) Chat(ctx context.Context, message, user string) (any, error) {
	return r.do(ctx, http.MethodPost, "/chat", map[string]string{"message": message, "user_id": user})
}

func (r *remote) Recommend(ctx context.Context, interests []string) (any, error) {
	return r.do(ctx, http.MethodPost, "/courses/recommend", map[string]any{"interests": interests})
}

func (r *remote) Search(ctx context.Context, query string) (any, error) {
	return r.do(ctx, http.MethodGet, "/courses/search?q="+url.QueryEscape(query), nil)
}

func (r *remote) History(ctx context.Context, user string, stats bool) (any, error) {
	path := "/history/" + url.PathEscape(user)
	if stats {
		path += "/stats"
	}
	return r.do(ctx, http.MethodGet, path, nil)
}

// local runs the plugins in-process without a model, so every answer
// comes from the built-in fallback content.
type local struct {
	quiz    *quiz.Module
	roadmap *roadmap.Module
	chat    *chat.Module
	courses *courses.Module
}

func newLocal() (*local, error) {
	v := viper.New()
	v.Set("chat.web_context.enabled", false)
	v.Set("courses.search_url", "")
	cfg := config.New(v)

	l := &local{quiz: quiz.New(), roadmap: roadmap.New(), chat: chat.New(), courses: courses.New()}
	for _, p := range []plugin.Plugin{l.quiz, l.roadmap, l.chat, l.courses} {
		name := p.Info().Name
		if err := p.Init(context.Background(), plugin.Dependencies{
			Config: cfg.Sub(name),
			Logger: zap.NewNop(),
		}); err != nil {
			return nil, fmt.Errorf("offline %s: %w", name, err)
		}
	}
	return l, nil
}

func (l *local) Quiz(ctx context.Context, topic string, count int, types []string, user string) (any, error) {
	return l.quiz.Generate(ctx, quiz.GenerateRequest{
		SourceType: quiz.SourceTopic, Topic: topic, NumQuestions: count, QuestionTypes: types, UserID: user,
	})
}

func (l *local) Roadmap(ctx context.Context, topic, user string) (any, error) {
	return l.roadmap.Generate(ctx, topic, user)
}

func (l *local) Chat(ctx context.Context, message, user string) (any, error) {
	return l.chat.Answer(ctx, message, user, nil), nil
}

func (l *local) Recommend(ctx context.Context, interests []string) (any, error) {
	return l.courses.Recommend(ctx, interests), nil
}

func (l *local) Search(ctx context.Context, query string) (any, error) {
	return l.courses.Search(ctx, query), nil
}

func (l *local) History(context.Context, string, bool) (any, error) {
	return nil, errOfflineHistory
}
