package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "APTITUDE_"

// Load builds a Config by layering defaults, an optional YAML file and env
// vars. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file at path, or at $APTITUDE_CONFIG when path is empty
//  3. env (prefix APTITUDE_, "__" separates sections)
func Load(path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// APTITUDE_SCORING__BASE_URL -> scoring.base_url
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []string

	if c.Scoring.BaseURL == "" {
		errs = append(errs, "scoring.base_url must not be empty")
	} else if u, err := url.Parse(c.Scoring.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("scoring.base_url %q is not an absolute URL", c.Scoring.BaseURL))
	}
	if c.Scoring.RequestTimeout <= 0 || c.Scoring.AnalyzeTimeout <= 0 {
		errs = append(errs, "scoring timeouts must be positive")
	}
	if c.Session.Budget <= 0 {
		errs = append(errs, "session.budget must be positive")
	}
	if c.Session.TickInterval <= 0 {
		errs = append(errs, "session.tick_interval must be positive")
	}
	if c.Session.FeedbackDelay < 0 || c.Session.SettleDelay < 0 || c.Session.ModeSelectDelay < 0 {
		errs = append(errs, "session delays must not be negative")
	}
	if c.Telemetry.Throttle < 0 {
		errs = append(errs, "telemetry.throttle must not be negative")
	}
	if c.Telemetry.QueueSize <= 0 {
		errs = append(errs, "telemetry.queue_size must be positive")
	}
	switch c.Adaptive.Source {
	case "remote", "llm":
	default:
		errs = append(errs, fmt.Sprintf("adaptive.source %q must be remote or llm", c.Adaptive.Source))
	}
	if (c.AMQP.URL == "") != (c.AMQP.Exchange == "") {
		errs = append(errs, "amqp.url and amqp.exchange must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}
