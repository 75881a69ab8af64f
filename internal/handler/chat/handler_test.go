package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/voicerelay/backend/internal/model/chat"
	"github.com/voicerelay/backend/internal/service/ai"
	chatservice "github.com/voicerelay/backend/internal/service/chat"
)

type fakeExchanger struct {
	mu     sync.Mutex
	inputs []string
	fn     func(string) (chat.Response, error)
}

func (f *fakeExchanger) Exchange(_ context.Context, userText string) (chat.Response, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, userText)
	f.mu.Unlock()
	return f.fn(userText)
}

func (f *fakeExchanger) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inputs...)
}

func setupRouter(exchanger Exchanger) *chi.Mux {
	r := chi.NewRouter()
	New(exchanger, nil).RegisterRoutes(r)
	return r
}

func postChat(t *testing.T, r http.Handler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestChatReturnsResponseAndAudioLength(t *testing.T) {
	ex := &fakeExchanger{fn: func(string) (chat.Response, error) {
		return chat.Response{Response: "hi there", AudioLength: 2.5}, nil
	}}

	rr := postChat(t, setupRouter(ex), []byte(`{"user_input":"hello"}`))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"response":"hi there","audio_length":2.5}`, rr.Body.String())
	require.Equal(t, []string{"hello"}, ex.calls())
}

func TestChatZeroAudioLengthIsPresent(t *testing.T) {
	ex := &fakeExchanger{fn: func(string) (chat.Response, error) {
		return chat.Response{Response: "hi there"}, nil
	}}

	rr := postChat(t, setupRouter(ex), []byte(`{"user_input":"hello"}`))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"response":"hi there","audio_length":0}`, rr.Body.String())
}

func TestChatUpstreamFailureReturns500WithDetail(t *testing.T) {
	ex := &fakeExchanger{fn: func(string) (chat.Response, error) {
		return chat.Response{}, &ai.UpstreamError{StatusCode: http.StatusTooManyRequests, Message: "rate limited"}
	}}

	rr := postChat(t, setupRouter(ex), []byte(`{"user_input":"hello"}`))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, decodeMap(t, rr)["detail"], "rate limited")
}

func TestChatInternalFailureHidesDetail(t *testing.T) {
	ex := &fakeExchanger{fn: func(string) (chat.Response, error) {
		return chat.Response{}, errors.New("secret stack trace")
	}}

	rr := postChat(t, setupRouter(ex), []byte(`{"user_input":"hello"}`))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "Internal server error", decodeMap(t, rr)["detail"])
	require.NotContains(t, rr.Body.String(), "secret")
}

func TestChatEmptyInputIsForwarded(t *testing.T) {
	ex := &fakeExchanger{fn: func(string) (chat.Response, error) { return chat.Response{}, nil }}

	rr := postChat(t, setupRouter(ex), []byte(`{"user_input":""}`))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{""}, ex.calls())
}

func TestChatRejectsInvalidBody(t *testing.T) {
	ex := &fakeExchanger{fn: func(string) (chat.Response, error) { return chat.Response{}, nil }}
	r := setupRouter(ex)

	require.Equal(t, http.StatusUnprocessableEntity, postChat(t, r, []byte(`not json`)).Code)
	require.Equal(t, http.StatusUnprocessableEntity, postChat(t, r, []byte(`{}`)).Code)
	require.Equal(t, http.StatusUnprocessableEntity, postChat(t, r, []byte(`{"user_input":null}`)).Code)
	require.Empty(t, ex.calls())
}

func TestRootAndHealth(t *testing.T) {
	r := setupRouter(&fakeExchanger{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, welcomeMessage, decodeMap(t, rr)["message"])

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "healthy", decodeMap(t, rr)["status"])
}

type stubCompleter struct {
	err error
}

func (s stubCompleter) Complete(context.Context, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "hi there", nil
}

type stubSynthesizer struct {
	seconds float64
	calls   *int
}

func (s stubSynthesizer) Duration(context.Context, string) float64 {
	*s.calls++
	return s.seconds
}

func TestChatWithOrchestratorScenarios(t *testing.T) {
	calls := 0
	svc := chatservice.NewService(stubCompleter{}, stubSynthesizer{seconds: 2.5, calls: &calls})
	rr := postChat(t, setupRouter(svc), []byte(`{"user_input":"hello"}`))
	require.JSONEq(t, `{"response":"hi there","audio_length":2.5}`, rr.Body.String())

	calls = 0
	svc = chatservice.NewService(stubCompleter{}, stubSynthesizer{seconds: 0, calls: &calls})
	rr = postChat(t, setupRouter(svc), []byte(`{"user_input":"hello"}`))
	require.JSONEq(t, `{"response":"hi there","audio_length":0}`, rr.Body.String())

	calls = 0
	svc = chatservice.NewService(
		stubCompleter{err: &ai.UpstreamError{StatusCode: 429, Message: "rate limited"}},
		stubSynthesizer{seconds: 1, calls: &calls},
	)
	rr = postChat(t, setupRouter(svc), []byte(`{"user_input":"hello"}`))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), "rate limited")
	require.Zero(t, calls)
}
