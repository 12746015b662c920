package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rohmanhakim/deck-voice/internal/build"
	"github.com/rohmanhakim/deck-voice/internal/extractor"
	"github.com/rohmanhakim/deck-voice/internal/source"
	"github.com/rohmanhakim/deck-voice/pkg/hashutil"
)

const (
	DefaultBaseURL = "https://bryanharper.tokyo/_functions/tts"
	DefaultVoice   = "sage"
)

type Config struct {
	//===============
	// Politeness
	//===============
	// Minimum waiting time between two consecutive synthesis requests.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator used for jitter
	randomSeed int64
	// Fixed wait after the service answers 429 before the same fragment is retried.
	throttleCooldown time.Duration
	// Retries allowed after a throttled response. 0 retries forever.
	maxThrottleRetries int

	//===============
	// Fetch
	//===============
	// Synthesis endpoint. voice and text are added to its query.
	baseURL url.URL
	// Voice identifier passed through to the service.
	voice string
	// Maximum time of a single request. 0 leaves it to the transport.
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Input
	//===============
	// Deck file name patterns looked for in directory roots
	patterns []string
	// Whether directory roots are searched below their direct children
	recursive bool
	// Data blocks to extract
	includeCategories []string
	// Data blocks never extracted, even when included
	excludeCategories []string
	// Entry field holding the text to voice
	textField string

	//===============
	// Output
	//===============
	// Cache directory holding one audio file per artifact name
	outputDir string
	// Content hash recorded for each written artifact
	hashAlgo hashutil.HashAlgo
	// Whether the program will simulates what it would do without
	// performing any network request or write
	dryRun bool
	// Log verbosity: debug, info, warn, error
	logLevel string
}

// WithDefault creates a new Config holding the default value of every field.
func WithDefault() *Config {
	baseURL, _ := url.Parse(DefaultBaseURL)
	defaultConfig := Config{
		baseDelay:          8 * time.Second,
		jitter:             0,
		randomSeed:         time.Now().UnixNano(),
		throttleCooldown:   5 * time.Minute,
		maxThrottleRetries: 0,
		baseURL:            *baseURL,
		voice:              DefaultVoice,
		timeout:            0,
		userAgent:          build.UserAgent(),
		patterns:           source.DefaultPatterns(),
		recursive:          false,
		includeCategories:  categoryNames(extractor.DefaultIncludedCategories()),
		excludeCategories:  categoryNames(extractor.DefaultExcludedCategories()),
		textField:          extractor.DefaultTextField,
		outputDir:          "assets/audio",
		hashAlgo:           hashutil.HashAlgoBLAKE3,
		dryRun:             false,
		logLevel:           "info",
	}
	return &defaultConfig
}

// WithConfigFile loads path on top of the defaults and validates the result.
func WithConfigFile(path string) (Config, error) {
	cfg := WithDefault()
	if err := cfg.ApplyConfigFile(path); err != nil {
		return Config{}, err
	}
	return cfg.Build()
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithThrottleCooldown(cooldown time.Duration) *Config {
	c.throttleCooldown = cooldown
	return c
}

func (c *Config) WithMaxThrottleRetries(retries int) *Config {
	c.maxThrottleRetries = retries
	return c
}

func (c *Config) WithBaseURL(baseURL url.URL) *Config {
	c.baseURL = baseURL
	return c
}

func (c *Config) WithVoice(voice string) *Config {
	c.voice = voice
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithPatterns(patterns []string) *Config {
	c.patterns = patterns
	return c
}

func (c *Config) WithRecursive(recursive bool) *Config {
	c.recursive = recursive
	return c
}

func (c *Config) WithIncludeCategories(categories []string) *Config {
	c.includeCategories = categories
	return c
}

func (c *Config) WithExcludeCategories(categories []string) *Config {
	c.excludeCategories = categories
	return c
}

func (c *Config) WithTextField(field string) *Config {
	c.textField = field
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithHashAlgo(algo hashutil.HashAlgo) *Config {
	c.hashAlgo = algo
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

var textFieldPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Build validates the configuration and returns an immutable copy.
// Every validation failure wraps ErrInvalidConfig.
func (c *Config) Build() (Config, error) {
	c.includeCategories = normalizeCategories(c.includeCategories)
	c.excludeCategories = normalizeCategories(c.excludeCategories)
	c.logLevel = strings.ToLower(strings.TrimSpace(c.logLevel))

	invalid := func(format string, args ...any) (Config, error) {
		return *c, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.baseDelay < 0 {
		return invalid("baseDelay must not be negative, got %v", c.baseDelay)
	}
	if c.jitter < 0 {
		return invalid("jitter must not be negative, got %v", c.jitter)
	}
	if c.throttleCooldown < 0 {
		return invalid("throttleCooldown must not be negative, got %v", c.throttleCooldown)
	}
	if c.maxThrottleRetries < 0 {
		return invalid("maxThrottleRetries must not be negative, got %d", c.maxThrottleRetries)
	}
	if c.timeout < 0 {
		return invalid("timeout must not be negative, got %v", c.timeout)
	}
	if c.baseURL.Scheme != "http" && c.baseURL.Scheme != "https" {
		return invalid("baseURL must be an http or https URL, got %q", c.baseURL.String())
	}
	if c.baseURL.Host == "" {
		return invalid("baseURL has no host: %q", c.baseURL.String())
	}
	if strings.TrimSpace(c.voice) == "" {
		return invalid("voice must not be empty")
	}
	if strings.TrimSpace(c.outputDir) == "" {
		return invalid("outputDir must not be empty")
	}
	if !textFieldPattern.MatchString(c.textField) {
		return invalid("textField must be an identifier, got %q", c.textField)
	}
	if len(c.patterns) == 0 {
		return invalid("at least one deck pattern is required")
	}
	if len(effectiveCategories(c.includeCategories, c.excludeCategories)) == 0 {
		return invalid("no category left to extract after exclusions")
	}
	if c.hashAlgo != hashutil.HashAlgoBLAKE3 && c.hashAlgo != hashutil.HashAlgoSHA256 {
		return invalid("unsupported hashAlgo %q", c.hashAlgo)
	}
	if _, err := log.ParseLevel(c.logLevel); err != nil {
		return invalid("unknown logLevel %q", c.logLevel)
	}
	return *c, nil
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) ThrottleCooldown() time.Duration {
	return c.throttleCooldown
}

func (c Config) MaxThrottleRetries() int {
	return c.maxThrottleRetries
}

func (c Config) BaseURL() url.URL {
	return c.baseURL
}

func (c Config) Voice() string {
	return c.voice
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) Patterns() []string {
	return append([]string(nil), c.patterns...)
}

func (c Config) Recursive() bool {
	return c.recursive
}

func (c Config) IncludeCategories() []extractor.Category {
	return toCategories(c.includeCategories)
}

func (c Config) ExcludeCategories() []extractor.Category {
	return toCategories(c.excludeCategories)
}

func (c Config) TextField() string {
	return c.textField
}

func (c Config) OutputDir() string {
	return c.outputDir
}

func (c Config) HashAlgo() hashutil.HashAlgo {
	return c.hashAlgo
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func categoryNames(categories []extractor.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

func toCategories(names []string) []extractor.Category {
	out := make([]extractor.Category, len(names))
	for i, n := range names {
		out[i] = extractor.Category(n)
	}
	return out
}

// normalizeCategories upper-cases names and drops blanks, so "vocab, quiz"
// from an env var or flag matches the identifiers used in decks.
func normalizeCategories(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func effectiveCategories(include, exclude []string) []string {
	excluded := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excluded[e] = struct{}{}
	}
	var out []string
	for _, i := range include {
		if _, ok := excluded[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}
