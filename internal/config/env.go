package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

const EnvPrefix = "DECK_VOICE_"

// envOverrides mirrors the environment surface. Pointer and slice fields stay
// nil when the variable is unset, so only variables actually present override.
type envOverrides struct {
	BaseDelay          *time.Duration `env:"DELAY"`
	Jitter             *time.Duration `env:"JITTER"`
	RandomSeed         *int64         `env:"RANDOM_SEED"`
	ThrottleCooldown   *time.Duration `env:"COOLDOWN"`
	MaxThrottleRetries *int           `env:"MAX_THROTTLE_RETRIES"`
	BaseURL            *string        `env:"BASE_URL"`
	Voice              *string        `env:"VOICE"`
	Timeout            *time.Duration `env:"TIMEOUT"`
	UserAgent          *string        `env:"USER_AGENT"`
	Patterns           []string       `env:"PATTERNS"`
	Recursive          *bool          `env:"RECURSIVE"`
	IncludeCategories  []string       `env:"INCLUDE_CATEGORIES"`
	ExcludeCategories  []string       `env:"EXCLUDE_CATEGORIES"`
	TextField          *string        `env:"TEXT_FIELD"`
	OutputDir          *string        `env:"OUTPUT_DIR"`
	DryRun             *bool          `env:"DRY_RUN"`
	LogLevel           *string        `env:"LOG_LEVEL"`
}

// ApplyEnv overrides c with the DECK_VOICE_* variables found in environ.
// A nil environ reads the process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	overrides, err := env.ParseAsWithOptions[envOverrides](env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEnvParsingFail, err.Error())
	}

	if overrides.BaseDelay != nil {
		c.baseDelay = *overrides.BaseDelay
	}
	if overrides.Jitter != nil {
		c.jitter = *overrides.Jitter
	}
	if overrides.RandomSeed != nil {
		c.randomSeed = *overrides.RandomSeed
	}
	if overrides.ThrottleCooldown != nil {
		c.throttleCooldown = *overrides.ThrottleCooldown
	}
	if overrides.MaxThrottleRetries != nil {
		c.maxThrottleRetries = *overrides.MaxThrottleRetries
	}
	if overrides.BaseURL != nil {
		parsed, err := url.Parse(*overrides.BaseURL)
		if err != nil {
			return fmt.Errorf("%w: %sBASE_URL: %s", ErrEnvParsingFail, EnvPrefix, err.Error())
		}
		c.baseURL = *parsed
	}
	if overrides.Voice != nil {
		c.voice = *overrides.Voice
	}
	if overrides.Timeout != nil {
		c.timeout = *overrides.Timeout
	}
	if overrides.UserAgent != nil {
		c.userAgent = *overrides.UserAgent
	}
	if len(overrides.Patterns) > 0 {
		c.patterns = overrides.Patterns
	}
	if overrides.Recursive != nil {
		c.recursive = *overrides.Recursive
	}
	if len(overrides.IncludeCategories) > 0 {
		c.includeCategories = overrides.IncludeCategories
	}
	if overrides.ExcludeCategories != nil {
		c.excludeCategories = overrides.ExcludeCategories
	}
	if overrides.TextField != nil {
		c.textField = *overrides.TextField
	}
	if overrides.OutputDir != nil {
		c.outputDir = *overrides.OutputDir
	}
	if overrides.DryRun != nil {
		c.dryRun = *overrides.DryRun
	}
	if overrides.LogLevel != nil {
		c.logLevel = *overrides.LogLevel
	}
	return nil
}
