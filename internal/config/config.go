// Package config loads run settings from an optional YAML file, the
// environment (.env included) and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"partcat/internal/domain"
	"partcat/internal/integrations/llm"
)

const (
	DefaultConfigFile = "partcat.yaml"

	defaultBatchSize                  = 40
	defaultRetries                    = 4
	defaultRetryBaseSleep             = 1.5
	defaultMaxCompletionTokens        = 2600
	defaultAutosaveEveryBatches       = 3
	defaultExternalHTTPTimeoutSeconds = 120

	minCompletionTokens = 200
	minHTTPTimeout      = 5
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrMissingCredential = errors.New("missing credential")
	ErrInputNotFound     = errors.New("input file not found")
)

type Config struct {
	InputPath    string `yaml:"input"`
	OutputPath   string `yaml:"output"`
	Sheet        string `yaml:"sheet"`
	BodyworkOnly bool   `yaml:"carroceria_only"`

	BatchSize            int     `yaml:"batch_size"`
	Retries              int     `yaml:"retries"`
	RetryBaseSleep       float64 `yaml:"retry_base_sleep"`
	MaxCompletionTokens  int     `yaml:"max_completion_tokens"`
	AutosaveEveryBatches int     `yaml:"autosave_every_batches"`
	Limit                int     `yaml:"limit"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	HistoryDBPath       string `yaml:"history_db_path"`
	KeywordGlossaryPath string `yaml:"keyword_glossary_path"`

	MetricsTextfilePath string `yaml:"metrics_textfile_path"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	ReportChannelID string `yaml:"report_channel_id"`

	LogLevel string `yaml:"log_level"`
}

func Defaults() Config {
	return Config{
		BatchSize:                  defaultBatchSize,
		Retries:                    defaultRetries,
		RetryBaseSleep:             defaultRetryBaseSleep,
		MaxCompletionTokens:        defaultMaxCompletionTokens,
		AutosaveEveryBatches:       defaultAutosaveEveryBatches,
		LLMProvider:                llm.ProviderOpenAI,
		ExternalHTTPTimeoutSeconds: defaultExternalHTTPTimeoutSeconds,
		LogLevel:                   "info",
	}
}

// Load reads the config file and applies environment overrides on top of
// the defaults. An explicit configPath must exist; otherwise CONFIG_PATH and
// then ./partcat.yaml are tried. Validation is left to Validate so callers
// can layer flags in between.
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("%w: load .env: %v", ErrInvalidConfig, err)
	}

	explicit := configPath != ""
	if !explicit {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
			explicit = true
		} else {
			configPath = DefaultConfigFile
		}
	}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, configPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, configPath, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.HistoryDBPath, "HISTORY_DB_PATH")
	envOverride(&cfg.KeywordGlossaryPath, "KEYWORD_GLOSSARY_PATH")
	envOverride(&cfg.MetricsTextfilePath, "METRICS_TEXTFILE_PATH")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")

	ints := []struct {
		field *int
		key   string
	}{
		{&cfg.BatchSize, "BATCH_SIZE"},
		{&cfg.Retries, "RETRIES"},
		{&cfg.MaxCompletionTokens, "MAX_COMPLETION_TOKENS"},
		{&cfg.AutosaveEveryBatches, "AUTOSAVE_EVERY_BATCHES"},
		{&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"},
	}
	for _, o := range ints {
		if err := envOverrideInt(o.field, o.key); err != nil {
			return err
		}
	}
	return envOverrideFloat(&cfg.RetryBaseSleep, "RETRY_BASE_SLEEP")
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

// Validate fills derived values and checks every setting. It must run after
// all overrides are applied.
func (c *Config) Validate() error {
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	if c.LLMModel == "" {
		switch c.LLMProvider {
		case llm.ProviderOpenAI:
			c.LLMModel = llm.DefaultOpenAIModel
		case llm.ProviderAnthropic:
			c.LLMModel = llm.DefaultAnthropicModel
		}
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = llm.DefaultOpenAIBaseURL
	}
	if c.ExternalHTTPTimeoutSeconds == 0 {
		c.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}

	if strings.TrimSpace(c.InputPath) == "" {
		return fmt.Errorf("%w: input path is required", ErrInvalidConfig)
	}
	if _, err := os.Stat(c.InputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, c.InputPath)
		}
		return fmt.Errorf("stat input %s: %w", c.InputPath, err)
	}
	if c.OutputPath == "" {
		c.OutputPath = DefaultOutputPath(c.InputPath, c.BodyworkOnly)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be >= 1, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Retries < 1 {
		return fmt.Errorf("%w: retries must be >= 1, got %d", ErrInvalidConfig, c.Retries)
	}
	if c.RetryBaseSleep < 0 {
		return fmt.Errorf("%w: retry_base_sleep must be >= 0, got %g", ErrInvalidConfig, c.RetryBaseSleep)
	}
	if c.MaxCompletionTokens < minCompletionTokens {
		return fmt.Errorf("%w: max_completion_tokens must be >= %d, got %d", ErrInvalidConfig, minCompletionTokens, c.MaxCompletionTokens)
	}
	if c.AutosaveEveryBatches < 0 {
		return fmt.Errorf("%w: autosave_every_batches must be >= 0, got %d", ErrInvalidConfig, c.AutosaveEveryBatches)
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: limit must be >= 0, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.ExternalHTTPTimeoutSeconds < minHTTPTimeout {
		return fmt.Errorf("%w: external_http_timeout_seconds must be >= %d, got %d", ErrInvalidConfig, minHTTPTimeout, c.ExternalHTTPTimeoutSeconds)
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level must be debug, info, warn or error, got %q", ErrInvalidConfig, c.LogLevel)
	}

	switch c.LLMProvider {
	case llm.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is not set in the environment or .env", ErrMissingCredential)
		}
	case llm.ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is not set in the environment or .env", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("%w: llm_provider must be %q or %q, got %q", ErrInvalidConfig, llm.ProviderOpenAI, llm.ProviderAnthropic, c.LLMProvider)
	}
	return nil
}

// Mode is the classification mode selected by BodyworkOnly.
func (c Config) Mode() domain.Mode {
	if c.BodyworkOnly {
		return domain.ModeBodywork
	}
	return domain.ModeCategory
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.ReportChannelID != ""
}

// DefaultOutputPath places the output next to the input:
// <stem>_categorizado.xlsx, or <stem>_carroceria.xlsx in bodywork mode.
func DefaultOutputPath(inputPath string, bodywork bool) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	suffix := "_categorizado.xlsx"
	if bodywork {
		suffix = "_carroceria.xlsx"
	}
	return filepath.Join(dir, stem+suffix)
}
