package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/voicerelay/backend/internal/config"
	"github.com/voicerelay/backend/internal/model/persona"
)

type fakeChatModel struct {
	reply   string
	err     error
	calls   int
	input   []*schema.Message
	options *model.Options
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	f.input = input
	f.options = model.GetCommonOptions(&model.Options{}, opts...)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func newTestService(t *testing.T, chatModel model.ChatModel, p persona.Config) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), chatModel, p, nil)
	require.NoError(t, err)
	return svc
}

func TestCompleteBuildsSystemThenUserMessages(t *testing.T) {
	fake := &fakeChatModel{reply: "hi there"}
	p := persona.Config{Name: "test", SystemPrompt: "Answer in {braces} only.", MaxTokens: 42, Temperature: 0.3}
	svc := newTestService(t, fake, p)

	text, err := svc.Complete(context.Background(), "hello {world}")
	require.NoError(t, err)
	require.Equal(t, "hi there", text)
	require.Equal(t, p, svc.Persona())

	require.Len(t, fake.input, 2)
	require.Equal(t, schema.System, fake.input[0].Role)
	require.Equal(t, p.SystemPrompt, fake.input[0].Content)
	require.Equal(t, schema.User, fake.input[1].Role)
	require.Equal(t, "hello {world}", fake.input[1].Content)

	require.NotNil(t, fake.options.MaxTokens)
	require.Equal(t, 42, *fake.options.MaxTokens)
	require.NotNil(t, fake.options.Temperature)
	require.InDelta(t, 0.3, *fake.options.Temperature, 1e-6)
}

func TestCompleteForwardsEmptyInput(t *testing.T) {
	fake := &fakeChatModel{reply: "?"}
	svc := newTestService(t, fake, persona.Default())

	_, err := svc.Complete(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "", fake.input[1].Content)
}

func TestCompleteTransportFailureIsUpstreamError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("dial tcp: connection refused")}
	svc := newTestService(t, fake, persona.Default())

	_, err := svc.Complete(context.Background(), "hello")
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	require.Contains(t, upstream.Message, "connection refused")
}

func TestCompleteKeepsUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	chatModel, err := NewOpenAIChatModel("sk-test", "gpt-3.5-turbo", WithOpenAIBaseURL(srv.URL))
	require.NoError(t, err)
	svc := newTestService(t, chatModel, persona.Default())

	_, err = svc.Complete(context.Background(), "hello")
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	require.Equal(t, "rate limited", upstream.Message)
}

func TestNewServiceRejectsInvalidPersona(t *testing.T) {
	_, err := NewService(context.Background(), &fakeChatModel{}, persona.Config{}, nil)
	require.Error(t, err)

	_, err = NewService(context.Background(), nil, persona.Default(), nil)
	require.Error(t, err)
}

func TestNewChatModelSelectsProvider(t *testing.T) {
	chatModel, err := NewChatModel(context.Background(), config.CompletionConfig{
		Provider: config.ProviderOpenAI,
		APIKey:   "sk-test",
		Model:    "gpt-4",
		BaseURL:  "http://localhost:1234",
		Timeout:  5,
	})
	require.NoError(t, err)
	openaiModel, ok := chatModel.(*OpenAIChatModel)
	require.True(t, ok)
	require.Equal(t, "gpt-4", openaiModel.model)

	_, err = NewChatModel(context.Background(), config.CompletionConfig{Provider: config.ProviderOpenAI})
	require.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestNormalizeError(t *testing.T) {
	already := &UpstreamError{StatusCode: 401, Message: "bad key"}
	require.Same(t, already, normalizeError(already))

	coded := normalizeError(codedErr{code: 503})
	require.Equal(t, 503, coded.StatusCode)
}

type codedErr struct{ code int }

func (c codedErr) Error() string       { return "coded failure" }
func (c codedErr) HTTPStatusCode() int { return c.code }
