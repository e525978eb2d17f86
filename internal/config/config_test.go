package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"partcat/internal/domain"
	"partcat/internal/integrations/llm"
)

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repuestos.xlsx")
	if err := os.WriteFile(path, []byte("placeholder"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH", "LLM_PROVIDER", "LLM_MODEL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"ANTHROPIC_API_KEY", "BATCH_SIZE", "RETRIES", "RETRY_BASE_SLEEP", "MAX_COMPLETION_TOKENS",
		"AUTOSAVE_EVERY_BATCHES", "EXTERNAL_HTTP_TIMEOUT_SECONDS", "HISTORY_DB_PATH",
		"KEYWORD_GLOSSARY_PATH", "METRICS_TEXTFILE_PATH", "SLACK_BOT_TOKEN", "REPORT_CHANNEL_ID", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.InputPath = writeInput(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.BatchSize != 40 || cfg.Retries != 4 || cfg.RetryBaseSleep != 1.5 {
		t.Fatalf("unexpected batch defaults: %+v", cfg)
	}
	if cfg.MaxCompletionTokens != 2600 || cfg.AutosaveEveryBatches != 3 {
		t.Fatalf("unexpected completion/autosave defaults: %+v", cfg)
	}
	if cfg.LLMProvider != llm.ProviderOpenAI || cfg.LLMModel != llm.DefaultOpenAIModel {
		t.Fatalf("unexpected provider defaults: %q %q", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.OpenAIBaseURL != llm.DefaultOpenAIBaseURL {
		t.Fatalf("unexpected base URL: %q", cfg.OpenAIBaseURL)
	}
	if cfg.ExternalHTTPTimeoutSeconds != 120 {
		t.Fatalf("unexpected timeout default: %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	wantOut := filepath.Join(filepath.Dir(cfg.InputPath), "repuestos_categorizado.xlsx")
	if cfg.OutputPath != wantOut {
		t.Fatalf("output = %q, want %q", cfg.OutputPath, wantOut)
	}
	if cfg.Mode() != domain.ModeCategory {
		t.Fatalf("unexpected mode %q", cfg.Mode())
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "partcat.yaml")
	content := `
carroceria_only: true
batch_size: 25
retries: 2
autosave_every_batches: 0
llm_provider: "anthropic"
anthropic_api_key: "yaml-anthropic"
history_db_path: "/tmp/yaml.db"
external_http_timeout_seconds: 75
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	clearEnv(t)
	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("BATCH_SIZE", "10")
	t.Setenv("RETRY_BASE_SLEEP", "0.25")
	t.Setenv("HISTORY_DB_PATH", "/tmp/env.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.InputPath = writeInput(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.BatchSize != 10 {
		t.Fatalf("env should override batch size, got %d", cfg.BatchSize)
	}
	if cfg.Retries != 2 {
		t.Fatalf("yaml retries not applied, got %d", cfg.Retries)
	}
	if cfg.RetryBaseSleep != 0.25 {
		t.Fatalf("env retry sleep not applied, got %g", cfg.RetryBaseSleep)
	}
	if cfg.AutosaveEveryBatches != 0 {
		t.Fatalf("explicit zero autosave must survive defaults, got %d", cfg.AutosaveEveryBatches)
	}
	if cfg.HistoryDBPath != "/tmp/env.db" {
		t.Fatalf("env history path not applied, got %q", cfg.HistoryDBPath)
	}
	if cfg.LLMModel != llm.DefaultAnthropicModel {
		t.Fatalf("unexpected anthropic model default %q", cfg.LLMModel)
	}
	if cfg.ExternalHTTPTimeoutSeconds != 75 {
		t.Fatalf("yaml timeout not applied, got %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.Mode() != domain.ModeBodywork {
		t.Fatalf("unexpected mode %q", cfg.Mode())
	}
	if filepath.Base(cfg.OutputPath) != "repuestos_carroceria.xlsx" {
		t.Fatalf("unexpected bodywork output %q", cfg.OutputPath)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadBadEnvInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRIES", "many")
	_, err := Load("")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	input := writeInput(t)
	valid := func() Config {
		cfg := Defaults()
		cfg.InputPath = input
		cfg.OpenAIAPIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing input flag", func(c *Config) { c.InputPath = "" }, ErrInvalidConfig},
		{"input not found", func(c *Config) { c.InputPath = filepath.Join(filepath.Dir(input), "missing.xlsx") }, ErrInputNotFound},
		{"batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidConfig},
		{"retries", func(c *Config) { c.Retries = 0 }, ErrInvalidConfig},
		{"negative sleep", func(c *Config) { c.RetryBaseSleep = -1 }, ErrInvalidConfig},
		{"completion tokens", func(c *Config) { c.MaxCompletionTokens = 199 }, ErrInvalidConfig},
		{"autosave", func(c *Config) { c.AutosaveEveryBatches = -1 }, ErrInvalidConfig},
		{"limit", func(c *Config) { c.Limit = -5 }, ErrInvalidConfig},
		{"timeout", func(c *Config) { c.ExternalHTTPTimeoutSeconds = 2 }, ErrInvalidConfig},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, ErrInvalidConfig},
		{"provider", func(c *Config) { c.LLMProvider = "mistral" }, ErrInvalidConfig},
		{"openai key", func(c *Config) { c.OpenAIAPIKey = "" }, ErrMissingCredential},
		{"anthropic key", func(c *Config) { c.LLMProvider = "anthropic" }, ErrMissingCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateAcceptsBoundaries(t *testing.T) {
	cfg := Defaults()
	cfg.InputPath = writeInput(t)
	cfg.OpenAIAPIKey = "sk-test"
	cfg.MaxCompletionTokens = 200
	cfg.AutosaveEveryBatches = 0
	cfg.RetryBaseSleep = 0
	cfg.Retries = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		in       string
		bodywork bool
		want     string
	}{
		{filepath.Join("data", "lista.xlsx"), false, filepath.Join("data", "lista_categorizado.xlsx")},
		{filepath.Join("data", "lista.xlsx"), true, filepath.Join("data", "lista_carroceria.xlsx")},
		{"inventario.v2.xlsx", false, "inventario.v2_categorizado.xlsx"},
	}
	for _, tt := range tests {
		if got := DefaultOutputPath(tt.in, tt.bodywork); got != tt.want {
			t.Fatalf("DefaultOutputPath(%q, %v) = %q, want %q", tt.in, tt.bodywork, got, tt.want)
		}
	}
}

func TestSlackConfigured(t *testing.T) {
	cfg := Defaults()
	if cfg.SlackConfigured() {
		t.Fatal("empty config must not report slack configured")
	}
	cfg.SlackBotToken = "xoxb-test"
	cfg.ReportChannelID = "C123"
	if !cfg.SlackConfigured() {
		t.Fatal("expected slack configured")
	}
}
