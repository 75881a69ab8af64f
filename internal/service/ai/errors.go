package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyCompletion is returned when the upstream answers without any choice.
var ErrEmptyCompletion = errors.New("completion response contained no choices")

// UpstreamError is the normalized completion failure surfaced to callers.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion upstream failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HTTPStatusError captures non-2xx responses from an OpenAI-compatible endpoint.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Message)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type statusCoder interface {
	HTTPStatusCode() int
}

// normalizeError maps any completion failure onto *UpstreamError. Errors that
// expose an upstream status keep it; transport failures become 502.
func normalizeError(err error) *UpstreamError {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}

	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		return &UpstreamError{StatusCode: httpErr.StatusCode, Message: httpErr.Message, Err: err}
	}

	var coded statusCoder
	if errors.As(err, &coded) && coded.HTTPStatusCode() != 0 {
		return &UpstreamError{StatusCode: coded.HTTPStatusCode(), Message: err.Error(), Err: err}
	}

	return &UpstreamError{StatusCode: http.StatusBadGateway, Message: err.Error(), Err: err}
}
