package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/HerbHall/studyforge/pkg/llm"
	"go.uber.org/zap"
)

const apiVersion = "2023-06-01"

var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

// Provider implements llm.Provider using the Messages API.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	cfg        Config
	logger     *zap.Logger
}

// New creates an Anthropic provider.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Generate sends prompt as a single user message.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.CallOption) (*llm.Response, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// Chat creates a message. System turns are lifted into the top-level
// system field because the API rejects them inside messages.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}
	cfg := llm.ApplyOptions(opts...)
	model := cfg.Model
	if model == "" {
		model = p.cfg.Model
	}

	var system []string
	if cfg.System != "" {
		system = append(system, cfg.System)
	}
	apiMessages := make([]message, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		apiMessages = append(apiMessages, message{Role: m.Role, Content: m.Content})
	}
	if len(apiMessages) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "at least one user message is required", nil)
	}

	req := messagesRequest{
		Model:       model,
		Messages:    apiMessages,
		System:      strings.Join(system, "\n\n"),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal messages request: %w", err)
	}

	respBody, err := p.do(ctx, http.MethodPost, "/v1/messages", body)
	if err != nil {
		return nil, mapError(err)
	}
	defer respBody.Close()

	var resp messagesResponse
	if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
		return nil, mapError(fmt.Errorf("decode messages response: %w", err))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := sb.String()
	if cfg.StreamFunc != nil && content != "" {
		if err := cfg.StreamFunc(ctx, []byte(content)); err != nil {
			return nil, err
		}
	}
	if resp.Model == "" {
		resp.Model = model
	}

	return &llm.Response{
		Content: content,
		Model:   resp.Model,
		Usage:   llm.NewUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		Done:    resp.StopReason != "max_tokens",
	}, nil
}

// Heartbeat checks that the API accepts our key.
func (p *Provider) Heartbeat(ctx context.Context) error {
	body, err := p.do(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return mapError(err)
	}
	return body.Close()
}

// ListModels returns the model IDs visible to the key.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	body, err := p.do(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return nil, mapError(err)
	}
	defer body.Close()

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}
	names := make([]string, len(result.Data))
	for i := range result.Data {
		names[i] = result.Data[i].ID
	}
	return names, nil
}

func (p *Provider) do(ctx context.Context, method, path string, body []byte) (io.ReadCloser, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseStatusError(resp)
	}
	return resp.Body, nil
}

func parseStatusError(resp *http.Response) *statusError {
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || json.Unmarshal(data, &errResp) != nil || errResp.Error.Message == "" {
		return &statusError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return &statusError{StatusCode: resp.StatusCode, Type: errResp.Error.Type, Message: errResp.Error.Message}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
