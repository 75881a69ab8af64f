package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

var (
	ErrMissingCredential = errors.New("completion api credential is required")
	ErrMissingSpeechURL  = errors.New("speech service url is required")
	ErrUnknownProvider   = errors.New("unknown completion provider")
)

const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Completion CompletionConfig
	Speech     SpeechConfig
	Persona    PersonaConfig
	Session    SessionConfig
	Metrics    MetricsConfig
}

// Load 从环境变量加载配置，缺少必需凭证时返回错误。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	completion, err := loadCompletionConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	persona, err := loadPersonaConfig()
	if err != nil {
		return nil, err
	}

	progress, err := parseBoolEnv("WS_PROGRESS_FRAMES", true)
	if err != nil {
		return nil, err
	}

	metricsEnabled, err := parseBoolEnv("METRICS_ENABLED", true)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		Completion: completion,
		Speech:     speech,
		Persona:    persona,
		Session:    SessionConfig{ProgressFrames: progress},
		Metrics:    MetricsConfig{Enabled: metricsEnabled},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// CompletionConfig 描述大模型补全接口的配置。
type CompletionConfig struct {
	Provider string

	APIKey  string
	BaseURL string
	Model   string
	Timeout int // seconds

	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkModel     string
	ArkBaseURL   string
	ArkRegion    string
}

// Validate 检查所选 provider 的凭证是否齐全。
func (c CompletionConfig) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingCredential)
		}
	case ProviderArk:
		if c.ArkModel == "" || (c.ArkAPIKey == "" && (c.ArkAccessKey == "" || c.ArkSecretKey == "")) {
			return fmt.Errorf("%w: set ARK_MODEL and ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	return nil
}

// NewArkChatModel 使用 Ark 配置创建模型实例，生成参数在每次调用时传入。
func (c CompletionConfig) NewArkChatModel(ctx context.Context) (model.ChatModel, error) {
	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:   c.ArkBaseURL,
		Region:    c.ArkRegion,
		APIKey:    c.ArkAPIKey,
		AccessKey: c.ArkAccessKey,
		SecretKey: c.ArkSecretKey,
		Model:     c.ArkModel,
	})
}

func loadCompletionConfig() (CompletionConfig, error) {
	timeout, err := parseOptionalIntEnv("COMPLETION_TIMEOUT")
	if err != nil {
		return CompletionConfig{}, err
	}
	timeoutSeconds := 60
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	cfg := CompletionConfig{
		Provider:     strings.ToLower(getEnvOrDefault("COMPLETION_PROVIDER", ProviderOpenAI)),
		APIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL:      getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:        getEnvOrDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		Timeout:      timeoutSeconds,
		ArkAPIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkModel:     strings.TrimSpace(os.Getenv("ARK_MODEL")),
		ArkBaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
	}

	if err := cfg.Validate(); err != nil {
		return CompletionConfig{}, err
	}
	return cfg, nil
}

// SpeechConfig 描述语音合成服务配置
type SpeechConfig struct {
	BaseURL string
	Timeout int // seconds
}

func loadSpeechConfig() (SpeechConfig, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("TTS_SERVICE_URL")), "/")
	if baseURL == "" {
		return SpeechConfig{}, fmt.Errorf("%w: set TTS_SERVICE_URL", ErrMissingSpeechURL)
	}

	timeout, err := parseOptionalIntEnv("TTS_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return SpeechConfig{BaseURL: baseURL, Timeout: timeoutSeconds}, nil
}

// PersonaConfig 描述 persona 的来源，实际内容由 persona 包解析。
type PersonaConfig struct {
	File        string
	Prompt      string
	MaxTokens   *int
	Temperature *float64
}

func loadPersonaConfig() (PersonaConfig, error) {
	maxTokens, err := parseOptionalIntEnv("PERSONA_MAX_TOKENS")
	if err != nil {
		return PersonaConfig{}, err
	}

	temperature, err := parseOptionalFloatEnv("PERSONA_TEMPERATURE")
	if err != nil {
		return PersonaConfig{}, err
	}

	return PersonaConfig{
		File:        strings.TrimSpace(os.Getenv("PERSONA_FILE")),
		Prompt:      strings.TrimSpace(os.Getenv("PERSONA_PROMPT")),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, nil
}

// SessionConfig 控制 WebSocket 会话行为。
type SessionConfig struct {
	ProgressFrames bool
}

// MetricsConfig 控制 Prometheus 指标暴露。
type MetricsConfig struct {
	Enabled bool
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
