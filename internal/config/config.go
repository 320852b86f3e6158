// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/teamform/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the entity store: memory, badger or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// DataDir holds the files of the badger and sqlite stores.
	DataDir string `koanf:"data_dir"`

	// SeedFile is a YAML fixture file loaded into the store on start.
	SeedFile string `koanf:"seed_file"`

	// ScoreWorkers sizes the scoring pool. 0 scores sequentially.
	ScoreWorkers int `koanf:"score_workers"`

	// SuggestionLimit caps teammate suggestions.
	SuggestionLimit int `koanf:"suggestion_limit"`

	// MaxTestimonials caps GET /testimonials?limit.
	MaxTestimonials int `koanf:"max_testimonials"`

	// DedupeSize bounds the idempotency key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RateLimitRPS and RateLimitBurst configure the per-process request
	// limiter. RateLimitRPS <= 0 disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// Compatibility weights, integer percentages summing to 100.
	SkillWeight        int `koanf:"skill_weight"`
	AvailabilityWeight int `koanf:"availability_weight"`
	ExperienceWeight   int `koanf:"experience_weight"`

	// NoRequiredSkillsScore is the skill sub-score for a project without skills.
	NoRequiredSkillsScore int `koanf:"no_required_skills_score"`

	// AvailabilityScores are checked in order against the availability text.
	AvailabilityScores  []scoring.AvailabilityRule `koanf:"availability_scores"`
	AvailabilityDefault int                        `koanf:"availability_default"`

	// ExperienceScores maps experience levels to scores.
	ExperienceScores  map[string]int `koanf:"experience_scores"`
	ExperienceDefault int            `koanf:"experience_default"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	t := scoring.DefaultTable()
	c := &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		StoreDriver:           "memory",
		DataDir:               "./data",
		ScoreWorkers:          runtime.NumCPU(),
		SuggestionLimit:       scoring.SuggestionLimit,
		MaxTestimonials:       50,
		DedupeSize:            50_000,
		RateLimitRPS:          200,
		RateLimitBurst:        400,
		SkillWeight:           t.SkillWeight,
		AvailabilityWeight:    t.AvailabilityWeight,
		ExperienceWeight:      t.ExperienceWeight,
		NoRequiredSkillsScore: t.NoRequiredSkills,
		AvailabilityScores:    t.Availability,
		AvailabilityDefault:   t.AvailabilityDefault,
		ExperienceScores:      t.Experience,
		ExperienceDefault:     t.ExperienceDefault,
	}
	return c
}

// Table builds the compatibility table described by the config.
func (c *Config) Table() scoring.Table {
	exp := make(map[string]int, len(c.ExperienceScores))
	for k, v := range c.ExperienceScores {
		exp[k] = v
	}
	return scoring.Table{
		SkillWeight:         c.SkillWeight,
		AvailabilityWeight:  c.AvailabilityWeight,
		ExperienceWeight:    c.ExperienceWeight,
		NoRequiredSkills:    c.NoRequiredSkillsScore,
		Availability:        append([]scoring.AvailabilityRule(nil), c.AvailabilityScores...),
		AvailabilityDefault: c.AvailabilityDefault,
		Experience:          exp,
		ExperienceDefault:   c.ExperienceDefault,
	}
}

// Validate checks the config for values the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case "memory":
	case "badger", "sqlite":
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("%w: data_dir must be set for store_driver %q", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.ScoreWorkers < 0 {
		return fmt.Errorf("%w: score_workers must not be negative", ErrInvalidConfig)
	}
	if c.SuggestionLimit <= 0 {
		return fmt.Errorf("%w: suggestion_limit must be positive", ErrInvalidConfig)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: rate_limit_burst must be positive when rate limiting", ErrInvalidConfig)
	}
	if err := c.Table().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
