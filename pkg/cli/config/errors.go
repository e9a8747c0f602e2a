package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig   = goerr.New("invalid configuration")
	ErrInvalidBackend  = goerr.New("invalid repository backend")
	ErrMissingOption   = goerr.New("required option is missing")
	ErrInvalidDuration = goerr.New("invalid duration")
	ErrInvalidLogLevel = goerr.New("invalid log level")
	ErrInvalidLogFmt   = goerr.New("invalid log format")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	BackendKey    = "backend"
	OptionKey     = "option"
	FieldKey      = "field"
	ValueKey      = "value"
)
