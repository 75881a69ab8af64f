package ai

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/voicerelay/backend/internal/config"
	"github.com/voicerelay/backend/internal/metrics"
	"github.com/voicerelay/backend/internal/model/persona"
)

// Service is the completion client: persona + user text in, generated text out.
type Service struct {
	persona persona.Config
	chain   compose.Runnable[map[string]any, *schema.Message]
	metrics *metrics.Metrics
}

// NewChatModel builds the chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg config.CompletionConfig) (model.ChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderArk:
		return cfg.NewArkChatModel(ctx)
	default:
		return NewOpenAIChatModel(cfg.APIKey, cfg.Model,
			WithOpenAIBaseURL(cfg.BaseURL),
			WithOpenAIHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
		)
	}
}

// NewService compiles the system/user prompt template and chat model into one chain.
func NewService(ctx context.Context, chatModel model.ChatModel, p persona.Config, m *metrics.Metrics) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid persona: %w", err)
	}

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(newPromptTemplate())
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		persona: p,
		chain:   runnable,
		metrics: m,
	}, nil
}

// Complete runs one completion. Failures are always *UpstreamError. No retries.
func (s *Service) Complete(ctx context.Context, userText string) (string, error) {
	start := time.Now()
	response, err := s.chain.Invoke(ctx, buildChainInput(s.persona, userText), generationOptions(s.persona))
	s.metrics.ObserveUpstream(metrics.UpstreamCompletion, start)
	if err != nil {
		upstream := normalizeError(err)
		log.Printf("[ai] completion failed status=%d: %v", upstream.StatusCode, err)
		return "", upstream
	}
	if response == nil {
		return "", normalizeError(ErrEmptyCompletion)
	}

	log.Printf("[ai] generated response persona=%s length=%d", s.persona.Name, len(response.Content))
	return response.Content, nil
}

// Persona returns the validated persona the service was built with.
func (s *Service) Persona() persona.Config {
	return s.persona
}
