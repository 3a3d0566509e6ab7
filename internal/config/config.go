// Package config loads and validates the LLM configuration file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default locations probed, in order, when Load is called without an
// explicit path.
var defaultPaths = []string{
	"config/llm_config.yaml",
	"llm_config.yaml",
}

// Config is the top-level configuration file structure.
type Config struct {
	LLM LLM `yaml:"llm"`
}

// LLM describes the backend connection, generation parameters, prompt
// templates, and call logging.
type LLM struct {
	BaseURL    string     `yaml:"base_url"`
	APIKey     string     `yaml:"api_key"`
	Model      string     `yaml:"model"`
	Parameters Parameters `yaml:"parameters"`
	Prompt     Prompt     `yaml:"prompt"`
	Logging    Logging    `yaml:"logging"`
}

// Parameters are forwarded to the chat completion call. Pointer fields
// distinguish "absent, use the default" from an explicit zero.
type Parameters struct {
	Temperature      *float64 `yaml:"temperature"`
	MaxTokens        *int64   `yaml:"max_tokens"`
	TopP             *float64 `yaml:"top_p"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty"`
	PresencePenalty  *float64 `yaml:"presence_penalty"`
	Stop             []string `yaml:"stop"`
}

// Prompt holds the configured prompt templates. At least one of the two
// must be set.
type Prompt struct {
	SystemMessage      string `yaml:"system_message"`
	FormatInstructions string `yaml:"format_instructions"`
}

// Logging configures request/response logging of LLM calls. It is
// passed through to the CLI, which owns the logging sink.
type Logging struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
}

// NotFoundError reports that no configuration file could be resolved.
type NotFoundError struct {
	Paths []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("llm config not found (looked for %s)", strings.Join(e.Paths, ", "))
}

// ValidationError reports a present but unusable configuration. Key
// names the offending configuration key; it is empty for file-level
// problems such as YAML syntax errors.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return "llm config: " + e.Reason
	}

	return fmt.Sprintf("llm config: key %q: %s", e.Key, e.Reason)
}

// overrides are environment variables applied over the file, so secrets
// can stay out of committed configs.
type overrides struct {
	BaseURL string `env:"FNUX_LLM_BASE_URL"`
	APIKey  string `env:"FNUX_LLM_API_KEY"`
	Model   string `env:"FNUX_LLM_MODEL"`
}

func (o overrides) apply(c *Config) {
	if o.BaseURL != "" {
		c.LLM.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		c.LLM.APIKey = o.APIKey
	}
	if o.Model != "" {
		c.LLM.Model = o.Model
	}
}

// Load reads, expands, and validates the configuration. When path is
// empty the default locations are probed in order. Environment
// variables referenced as ${VAR} in the file are expanded before
// parsing, and FNUX_LLM_* variables override the connection fields
// afterwards. Load touches only the filesystem; the backend is not
// contacted.
func Load(path string) (Config, error) {
	if path == "" {
		resolved, err := resolveDefault()
		if err != nil {
			return Config{}, err
		}
		path = resolved
	} else if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, &NotFoundError{Paths: []string{path}}
		}

		return Config{}, fmt.Errorf("stat llm config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read llm config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, &ValidationError{Reason: err.Error()}
	}

	var ov overrides
	if err := env.Parse(&ov); err != nil {
		return Config{}, fmt.Errorf("parse env overrides: %w", err)
	}
	ov.apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func resolveDefault() (string, error) {
	for _, p := range defaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", &NotFoundError{Paths: defaultPaths}
}

// defaults returns the configuration the user config is merged over.
func defaults() Config {
	var c Config
	c.LLM.Parameters = Parameters{
		Temperature:      f64(0.2),
		MaxTokens:        i64(1024),
		TopP:             f64(1.0),
		FrequencyPenalty: f64(0),
		PresencePenalty:  f64(0),
	}
	c.LLM.Logging.Level = "info"

	return c
}

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

var logLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks required keys and documented parameter ranges.
// Out-of-range values are rejected, never clamped.
func (c Config) Validate() error {
	llm := c.LLM

	if strings.TrimSpace(llm.BaseURL) == "" {
		return &ValidationError{Key: "llm.base_url", Reason: "required"}
	}
	if u, err := url.Parse(llm.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Key: "llm.base_url", Reason: "must be an absolute URL"}
	}
	if strings.TrimSpace(llm.APIKey) == "" {
		return &ValidationError{Key: "llm.api_key", Reason: "required"}
	}
	if strings.TrimSpace(llm.Model) == "" {
		return &ValidationError{Key: "llm.model", Reason: "required"}
	}

	if strings.TrimSpace(llm.Prompt.SystemMessage) == "" &&
		strings.TrimSpace(llm.Prompt.FormatInstructions) == "" {
		return &ValidationError{
			Key:    "llm.prompt",
			Reason: "at least one of system_message and format_instructions is required",
		}
	}

	p := llm.Parameters
	if p.Temperature == nil || *p.Temperature < 0 || *p.Temperature > 2 {
		return &ValidationError{Key: "llm.parameters.temperature", Reason: "must be a number within [0, 2]"}
	}
	if p.TopP == nil || *p.TopP < 0 || *p.TopP > 1 {
		return &ValidationError{Key: "llm.parameters.top_p", Reason: "must be a number within [0, 1]"}
	}
	if p.FrequencyPenalty == nil || *p.FrequencyPenalty < -2 || *p.FrequencyPenalty > 2 {
		return &ValidationError{Key: "llm.parameters.frequency_penalty", Reason: "must be a number within [-2, 2]"}
	}
	if p.PresencePenalty == nil || *p.PresencePenalty < -2 || *p.PresencePenalty > 2 {
		return &ValidationError{Key: "llm.parameters.presence_penalty", Reason: "must be a number within [-2, 2]"}
	}
	if p.MaxTokens == nil || *p.MaxTokens <= 0 {
		return &ValidationError{Key: "llm.parameters.max_tokens", Reason: "must be a positive integer"}
	}

	if _, ok := logLevels[strings.ToLower(llm.Logging.Level)]; !ok {
		return &ValidationError{Key: "llm.logging.level", Reason: "must be one of debug, info, warn, error"}
	}
	if llm.Logging.Enabled && strings.TrimSpace(llm.Logging.File) == "" {
		return &ValidationError{Key: "llm.logging.file", Reason: "required when logging is enabled"}
	}

	return nil
}
