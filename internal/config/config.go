// Package config defines process configuration and its layered loader.
package config

import (
	"time"

	"github.com/abhisek/aptitude/internal/llm"
)

// Config is the full process configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Session   SessionConfig   `koanf:"session"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Adaptive  AdaptiveConfig  `koanf:"adaptive"`
	LLM       LLMConfig       `koanf:"llm"`
	Bank      BankConfig      `koanf:"bank"`
	Journal   JournalConfig   `koanf:"journal"`
	AMQP      AMQPConfig      `koanf:"amqp"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Server    ServerConfig    `koanf:"server"`
}

// LogConfig controls verbosity and destination.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// File receives log output for the TUI. Empty means the XDG default.
	File string `koanf:"file"`
}

// ScoringConfig locates the Scoring Service.
type ScoringConfig struct {
	BaseURL        string        `koanf:"base_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	AnalyzeTimeout time.Duration `koanf:"analyze_timeout"`
}

// SessionConfig holds the orchestration timings.
type SessionConfig struct {
	Budget          time.Duration `koanf:"budget"`
	TickInterval    time.Duration `koanf:"tick_interval"`
	FeedbackDelay   time.Duration `koanf:"feedback_delay"`
	ModeSelectDelay time.Duration `koanf:"mode_select_delay"`
	SettleDelay     time.Duration `koanf:"settle_delay"`
}

// TelemetryConfig bounds capture and transmission.
type TelemetryConfig struct {
	Throttle    time.Duration `koanf:"throttle"`
	QueueSize   int           `koanf:"queue_size"`
	SendTimeout time.Duration `koanf:"send_timeout"`
}

// AdaptiveConfig selects where adaptive questions come from.
type AdaptiveConfig struct {
	// Source is "remote" (the Adaptive Question Service) or "llm" (generate
	// locally with the configured provider).
	Source  string        `koanf:"source"`
	Timeout time.Duration `koanf:"timeout"`
}

// LLMConfig mirrors llm.Config in koanf form.
type LLMConfig struct {
	Provider  string        `koanf:"provider"`
	Timeout   time.Duration `koanf:"timeout"`
	Anthropic ProviderKey   `koanf:"anthropic"`
	OpenAI    ProviderKey   `koanf:"openai"`
	Gemini    ProviderKey   `koanf:"gemini"`
}

// ProviderKey is an API key plus optional model and base URL.
type ProviderKey struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// BankConfig points at an optional YAML question bank overriding the
// built-in one.
type BankConfig struct {
	Path string `koanf:"path"`
}

// JournalConfig configures the SQLite audit journal. An empty DSN disables it.
type JournalConfig struct {
	DSN string `koanf:"dsn"`
}

// AMQPConfig enables the telemetry mirror when both fields are set.
type AMQPConfig struct {
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

// MetricsConfig exposes client metrics on Addr when set.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// TracingConfig enables OTLP/HTTP span export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

// ServerConfig configures `aptitude serve`.
type ServerConfig struct {
	Addr        string   `koanf:"addr"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// New returns a Config populated with defaults.
func New() *Config {
	llmDefaults := llm.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info"},
		Scoring: ScoringConfig{
			BaseURL:        "http://127.0.0.1:8000",
			RequestTimeout: 5 * time.Second,
			AnalyzeTimeout: 15 * time.Second,
		},
		Session: SessionConfig{
			Budget:          12 * time.Minute,
			TickInterval:    time.Second,
			FeedbackDelay:   600 * time.Millisecond,
			ModeSelectDelay: 400 * time.Millisecond,
			SettleDelay:     1500 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Throttle:    100 * time.Millisecond,
			QueueSize:   512,
			SendTimeout: 3 * time.Second,
		},
		Adaptive: AdaptiveConfig{
			Source:  "remote",
			Timeout: 20 * time.Second,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   llmDefaults.Timeout,
			Anthropic: ProviderKey{Model: llmDefaults.Anthropic.Model},
			OpenAI:    ProviderKey{Model: llmDefaults.OpenAI.Model},
			Gemini:    ProviderKey{Model: llmDefaults.Gemini.Model},
		},
		Journal: JournalConfig{DSN: "file:aptitude?mode=memory&cache=shared"},
		Tracing: TracingConfig{ServiceName: "aptitude"},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8000",
			CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
	}
}

// LLMProviderConfig converts the koanf section into llm.Config. The boolean
// is false when no provider is configured.
func (c *Config) LLMProviderConfig() (llm.Config, bool) {
	out := llm.DefaultConfig()
	if c.LLM.Timeout > 0 {
		out.Timeout = c.LLM.Timeout
	}
	out.Anthropic.APIKey = c.LLM.Anthropic.APIKey
	if c.LLM.Anthropic.Model != "" {
		out.Anthropic.Model = c.LLM.Anthropic.Model
	}
	out.OpenAI.APIKey = c.LLM.OpenAI.APIKey
	out.OpenAI.BaseURL = c.LLM.OpenAI.BaseURL
	if c.LLM.OpenAI.Model != "" {
		out.OpenAI.Model = c.LLM.OpenAI.Model
	}
	out.Gemini.APIKey = c.LLM.Gemini.APIKey
	if c.LLM.Gemini.Model != "" {
		out.Gemini.Model = c.LLM.Gemini.Model
	}

	if c.LLM.Provider != "" {
		out.Provider = c.LLM.Provider
		return out, true
	}

	// No explicit provider: pick the first one with a key.
	switch {
	case out.Gemini.APIKey != "":
		out.Provider = "gemini"
	case out.OpenAI.APIKey != "":
		out.Provider = "openai"
	case out.Anthropic.APIKey != "":
		out.Provider = "anthropic"
	default:
		return out, false
	}
	return out, true
}
