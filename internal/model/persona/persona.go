package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultName         = "assistant"
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultMaxTokens    = 150
	DefaultTemperature  = 0.7
)

var ErrEmptySystemPrompt = errors.New("persona system prompt must not be empty")

// Config is the process-wide system instruction plus generation parameters.
// It is built once at startup and only ever passed by value afterwards.
type Config struct {
	Name         string  `yaml:"name" json:"name"`
	SystemPrompt string  `yaml:"system_prompt" json:"systemPrompt"`
	MaxTokens    int     `yaml:"max_tokens" json:"maxTokens"`
	Temperature  float32 `yaml:"temperature" json:"temperature"`
}

// fileConfig mirrors Config for YAML decoding; nil means the key was absent.
type fileConfig struct {
	Name         *string  `yaml:"name"`
	SystemPrompt *string  `yaml:"system_prompt"`
	MaxTokens    *int     `yaml:"max_tokens"`
	Temperature  *float32 `yaml:"temperature"`
}

// Overrides carries optional values that take precedence over the persona file.
type Overrides struct {
	SystemPrompt string
	MaxTokens    *int
	Temperature  *float64
}

// Default returns the neutral assistant persona.
func Default() Config {
	return Config{
		Name:         DefaultName,
		SystemPrompt: DefaultSystemPrompt,
		MaxTokens:    DefaultMaxTokens,
		Temperature:  DefaultTemperature,
	}
}

// Load builds the persona from an optional YAML file and env overrides.
// Fields missing from the file keep their defaults.
func Load(path string, overrides Overrides) (Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read persona file: %w", err)
		}

		var fromFile fileConfig
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return Config{}, fmt.Errorf("failed to parse persona file %s: %w", path, err)
		}
		cfg = merge(cfg, fromFile)
	}

	if prompt := strings.TrimSpace(overrides.SystemPrompt); prompt != "" {
		cfg.SystemPrompt = prompt
	}
	if overrides.MaxTokens != nil {
		cfg.MaxTokens = *overrides.MaxTokens
	}
	if overrides.Temperature != nil {
		cfg.Temperature = float32(*overrides.Temperature)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the persona is usable for completion requests.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SystemPrompt) == "" {
		return ErrEmptySystemPrompt
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("persona max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("persona temperature must be within [0, 2], got %.2f", c.Temperature)
	}
	return nil
}

func merge(base Config, fromFile fileConfig) Config {
	if fromFile.Name != nil && *fromFile.Name != "" {
		base.Name = *fromFile.Name
	}
	if fromFile.SystemPrompt != nil && strings.TrimSpace(*fromFile.SystemPrompt) != "" {
		base.SystemPrompt = *fromFile.SystemPrompt
	}
	// 显式写出的 0 也要生效，交给 Validate 判断
	if fromFile.MaxTokens != nil {
		base.MaxTokens = *fromFile.MaxTokens
	}
	if fromFile.Temperature != nil {
		base.Temperature = *fromFile.Temperature
	}
	return base
}
