package config

import "errors"

var (
	ErrFileDoesNotExist  = errors.New("config file not found")
	ErrReadConfigFail    = errors.New("cannot read config file")
	ErrConfigParsingFail = errors.New("malformed config file")
	ErrEnvParsingFail    = errors.New("malformed DECK_VOICE_ environment variable")
	ErrInvalidConfig     = errors.New("invalid configuration")
)
