package chat

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/voicerelay/backend/internal/model/chat"
	"github.com/voicerelay/backend/internal/service/ai"
)

// ErrInternal marks failures that are not upstream completion failures.
// Callers must not expose the wrapped detail.
var ErrInternal = errors.New("internal error")

// Completer generates the reply text for one user message.
type Completer interface {
	Complete(ctx context.Context, userText string) (string, error)
}

// Synthesizer returns the audio length for text, 0 on any failure.
type Synthesizer interface {
	Duration(ctx context.Context, text string) float64
}

// Service runs one exchange: completion first, then best-effort synthesis.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	completer   Completer
	synthesizer Synthesizer
}

// NewService wires the orchestrator to its two upstream clients.
func NewService(completer Completer, synthesizer Synthesizer) *Service {
	return &Service{
		completer:   completer,
		synthesizer: synthesizer,
	}
}

// Exchange returns the generated text paired with its audio length.
// Completion failures come back as *ai.UpstreamError; anything else wraps ErrInternal.
// Synthesis never fails the exchange.
func (s *Service) Exchange(ctx context.Context, userText string) (chat.Response, error) {
	exchangeID := uuid.NewString()
	log.Printf("[chat] exchange=%s received input length=%d", exchangeID, len(userText))

	text, err := s.complete(ctx, userText)
	if err != nil {
		var upstream *ai.UpstreamError
		if errors.As(err, &upstream) {
			log.Printf("[chat] exchange=%s completion failed status=%d: %s", exchangeID, upstream.StatusCode, upstream.Message)
			return chat.Response{}, upstream
		}
		log.Printf("[chat] exchange=%s internal failure: %v", exchangeID, err)
		return chat.Response{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	duration := s.duration(ctx, text)
	log.Printf("[chat] exchange=%s completed length=%d audio_length=%.2f", exchangeID, len(text), duration)

	return chat.Response{Response: text, AudioLength: duration}, nil
}

func (s *Service) complete(ctx context.Context, userText string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completion panicked: %v", r)
		}
	}()
	return s.completer.Complete(ctx, userText)
}

func (s *Service) duration(ctx context.Context, text string) (seconds float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[chat] synthesis panicked, using 0: %v", r)
			seconds = 0
		}
	}()
	return s.synthesizer.Duration(ctx, text)
}
