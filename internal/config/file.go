package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/rohmanhakim/deck-voice/pkg/hashutil"
	"github.com/spf13/viper"
)

// Keys recognized in a config file. Lookups are case-insensitive.
const (
	keyBaseDelay          = "baseDelay"
	keyJitter             = "jitter"
	keyRandomSeed         = "randomSeed"
	keyThrottleCooldown   = "throttleCooldown"
	keyMaxThrottleRetries = "maxThrottleRetries"
	keyBaseURL            = "baseURL"
	keyVoice              = "voice"
	keyTimeout            = "timeout"
	keyUserAgent          = "userAgent"
	keyPatterns           = "patterns"
	keyRecursive          = "recursive"
	keyIncludeCategories  = "includeCategories"
	keyExcludeCategories  = "excludeCategories"
	keyTextField          = "textField"
	keyOutputDir          = "outputDir"
	keyHashAlgo           = "hashAlgo"
	keyDryRun             = "dryRun"
	keyLogLevel           = "logLevel"
)

// ApplyConfigFile overrides c with every key present in the file at path.
// The format (JSON, YAML or TOML) follows the file extension.
// Keys missing from the file leave the current value untouched.
func (c *Config) ApplyConfigFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
		return fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	if v.IsSet(keyBaseDelay) {
		c.baseDelay = v.GetDuration(keyBaseDelay)
	}
	if v.IsSet(keyJitter) {
		c.jitter = v.GetDuration(keyJitter)
	}
	if v.IsSet(keyRandomSeed) {
		c.randomSeed = v.GetInt64(keyRandomSeed)
	}
	if v.IsSet(keyThrottleCooldown) {
		c.throttleCooldown = v.GetDuration(keyThrottleCooldown)
	}
	if v.IsSet(keyMaxThrottleRetries) {
		c.maxThrottleRetries = v.GetInt(keyMaxThrottleRetries)
	}
	if v.IsSet(keyBaseURL) {
		raw := v.GetString(keyBaseURL)
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: baseURL %q: %s", ErrConfigParsingFail, raw, err.Error())
		}
		c.baseURL = *parsed
	}
	if v.IsSet(keyVoice) {
		c.voice = v.GetString(keyVoice)
	}
	if v.IsSet(keyTimeout) {
		c.timeout = v.GetDuration(keyTimeout)
	}
	if v.IsSet(keyUserAgent) {
		c.userAgent = v.GetString(keyUserAgent)
	}
	if v.IsSet(keyPatterns) {
		c.patterns = v.GetStringSlice(keyPatterns)
	}
	if v.IsSet(keyRecursive) {
		c.recursive = v.GetBool(keyRecursive)
	}
	if v.IsSet(keyIncludeCategories) {
		c.includeCategories = v.GetStringSlice(keyIncludeCategories)
	}
	if v.IsSet(keyExcludeCategories) {
		c.excludeCategories = v.GetStringSlice(keyExcludeCategories)
	}
	if v.IsSet(keyTextField) {
		c.textField = v.GetString(keyTextField)
	}
	if v.IsSet(keyOutputDir) {
		c.outputDir = v.GetString(keyOutputDir)
	}
	if v.IsSet(keyHashAlgo) {
		c.hashAlgo = hashutil.HashAlgo(v.GetString(keyHashAlgo))
	}
	if v.IsSet(keyDryRun) {
		c.dryRun = v.GetBool(keyDryRun)
	}
	if v.IsSet(keyLogLevel) {
		c.logLevel = v.GetString(keyLogLevel)
	}
	return nil
}
