// Package doctor checks that the client can run a session: the Scoring
// Service answers /health with a compatible version, and the optional LLM
// provider configuration is usable.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/abhisek/aptitude/internal/llm"
	"github.com/abhisek/aptitude/internal/scoring"
)

// MinServiceVersion is the oldest Scoring Service release the client speaks to.
const MinServiceVersion = "v1.0.0"

var (
	ErrDevVersion   = errors.New("service reports a development version")
	ErrBadVersion   = errors.New("service version is not semver")
	ErrIncompatible = errors.New("service version is too old")
)

// HealthChecker is satisfied by *scoring.Client.
type HealthChecker interface {
	Health(ctx context.Context) (*scoring.Health, error)
}

// Check is the outcome of one check.
type Check struct {
	Name   string
	OK     bool
	Warn   bool
	Detail string
}

// Report collects every check of a run.
type Report struct {
	Checks []Check
}

// OK reports whether no check failed. Warnings do not count as failures.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK && !c.Warn {
			return false
		}
	}
	return true
}

// Checker runs the checks.
type Checker struct {
	health     HealthChecker
	minVersion string
	timeout    time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithMinVersion overrides MinServiceVersion.
func WithMinVersion(v string) Option {
	return func(c *Checker) { c.minVersion = v }
}

// WithTimeout bounds the health request.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChecker creates a Checker probing h.
func NewChecker(h HealthChecker, opts ...Option) *Checker {
	c := &Checker{
		health:     h,
		minVersion: MinServiceVersion,
		timeout:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run checks the service and validates the LLM configuration. configured is
// false when no provider is set up.
func (c *Checker) Run(ctx context.Context, cfg llm.Config, configured bool) Report {
	var r Report
	r.Checks = append(r.Checks, c.checkService(ctx)...)
	r.Checks = append(r.Checks, checkLLM(cfg, configured))
	return r
}

func (c *Checker) checkService(ctx context.Context) []Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	h, err := c.health.Health(ctx)
	if err != nil {
		return []Check{{Name: "scoring service", Detail: err.Error()}}
	}
	checks := []Check{{Name: "scoring service", OK: h.API == "running", Detail: "api " + h.API}}

	version := Check{Name: "service version", Detail: h.Version}
	switch err := CompareVersion(h.Version, c.minVersion); {
	case err == nil:
		version.OK = true
	case errors.Is(err, ErrDevVersion):
		version.Warn = true
		version.Detail = err.Error()
	default:
		version.Detail = err.Error()
	}
	checks = append(checks, version)

	model := Check{Name: "service model", OK: true, Detail: h.LLM}
	if !strings.HasPrefix(h.LLM, "ready") {
		model.OK, model.Warn = false, true
		model.Detail = h.LLM + "; questions and analysis use built-in fallbacks"
	}
	return append(checks, model)
}

func checkLLM(cfg llm.Config, configured bool) Check {
	c := Check{Name: "local llm provider"}
	if !configured {
		c.Warn = true
		c.Detail = "not configured; adaptive.source=llm is unavailable"
		return c
	}
	if err := cfg.Validate(); err != nil {
		c.Detail = err.Error()
		return c
	}
	c.OK = true
	c.Detail = cfg.Provider
	return c
}

// CompareVersion checks reported against minimum. A "v" prefix is optional on
// both sides.
func CompareVersion(reported, minimum string) error {
	if reported == "" || reported == "dev" || reported == "(devel)" {
		return fmt.Errorf("%w: %q", ErrDevVersion, reported)
	}
	rv, mv := canonical(reported), canonical(minimum)
	if !semver.IsValid(rv) {
		return fmt.Errorf("%w: %q", ErrBadVersion, reported)
	}
	if semver.Compare(rv, mv) < 0 {
		return fmt.Errorf("%w: %s < %s", ErrIncompatible, rv, mv)
	}
	return nil
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}
