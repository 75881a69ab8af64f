package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/voicerelay/backend/internal/metrics"
	"github.com/voicerelay/backend/internal/model/speech"
)

var errMissingDuration = errors.New("speech response has no audio_length")

// Client 语音合成客户端，只关心返回的音频时长
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient 创建语音合成客户端，baseURL 为语音服务根地址
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Duration 合成语音并返回时长（秒）。任何失败都返回 0，不会向调用方传播错误。
func (c *Client) Duration(ctx context.Context, text string) (seconds float64) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream(metrics.UpstreamSynthesis, start)
		if r := recover(); r != nil {
			log.Printf("[speech] synthesis panicked, using 0: %v", r)
			c.metrics.SynthesisFallback()
			seconds = 0
		}
	}()

	seconds, err := c.synthesize(ctx, text)
	if err != nil {
		log.Printf("[speech] synthesis failed, using 0: %v", err)
		c.metrics.SynthesisFallback()
		return 0
	}
	return seconds
}

func (c *Client) synthesize(ctx context.Context, text string) (float64, error) {
	body, err := json.Marshal(speech.SynthesisRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("marshal synthesis request: %w", err)
	}

	url := c.baseURL + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return 0, fmt.Errorf("unexpected status %d from %s: %s", res.StatusCode, url, strings.TrimSpace(string(buf)))
	}

	var payload speech.SynthesisResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode synthesis response: %w", err)
	}
	if payload.AudioLength == nil {
		return 0, errMissingDuration
	}

	seconds := *payload.AudioLength
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("invalid audio_length %v", seconds)
	}
	return seconds, nil
}
