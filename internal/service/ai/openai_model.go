package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

var _ model.ChatModel = (*OpenAIChatModel)(nil)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
	TopP        *float32        `json:"top_p,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIChatModel is an eino chat model for OpenAI-compatible chat-completions endpoints.
type OpenAIChatModel struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type OpenAIOption func(*OpenAIChatModel)

func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(m *OpenAIChatModel) {
		m.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithOpenAIHTTPClient(httpClient *http.Client) OpenAIOption {
	return func(m *OpenAIChatModel) {
		m.httpClient = httpClient
	}
}

// NewOpenAIChatModel creates the model. apiKey and modelName are required.
func NewOpenAIChatModel(apiKey, modelName string, opts ...OpenAIOption) (*OpenAIChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	if strings.TrimSpace(modelName) == "" {
		return nil, errors.New("openai: model must not be empty")
	}

	m := &OpenAIChatModel{
		apiKey:     apiKey,
		baseURL:    defaultOpenAIBaseURL,
		model:      modelName,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Generate issues one chat-completions call. Per-call options override the model name.
func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{Model: &m.model}, opts...)

	req := openAIRequest{
		Model:       m.model,
		Messages:    make([]openAIMessage, 0, len(input)),
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		Stop:        options.Stop,
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	for _, msg := range input {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, openAIMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	url := chatURL(m.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	raw, err := m.doJSONRequest(httpReq, url)
	if err != nil {
		return nil, err
	}

	var payload openAIResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	choice := payload.Choices[0]
	out := schema.AssistantMessage(choice.Message.Content, nil)
	out.ResponseMeta = &schema.ResponseMeta{FinishReason: choice.FinishReason}
	if payload.Usage != nil {
		out.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     payload.Usage.PromptTokens,
			CompletionTokens: payload.Usage.CompletionTokens,
			TotalTokens:      payload.Usage.TotalTokens,
		}
	}
	return out, nil
}

// Stream delivers the whole Generate result as a single chunk.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is not supported; the relay never sends tools.
func (m *OpenAIChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errors.New("openai: tool binding is not supported")
}

func (m *OpenAIChatModel) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Message:    upstreamMessage(buf, res.Status),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("openai: read response body: %w", err)
	}
	return buf, nil
}

func upstreamMessage(body []byte, status string) string {
	var parsed openAIErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return status
}
