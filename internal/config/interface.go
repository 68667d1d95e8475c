package config

import (
	"fmt"

	"codeberg.org/mutker/perfgov/internal/errors"
)

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	args       []string
	argsSet    bool
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "PERFGOV"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		if prefix == "" {
			return errors.New().WithMessage(errors.ErrInvalidArgument, "empty environment prefix")
		}
		o.envPrefix = prefix
		return nil
	}
}

// WithArgs replaces os.Args[1:] as the command line to parse
func WithArgs(args []string) Option {
	return func(o *options) error {
		o.args = args
		o.argsSet = true
		return nil
	}
}

// Source selects where frame durations come from.
type Source string

const (
	SourceSynthetic Source = "synthetic"
	SourceTrace     Source = "trace"
	SourceTerminal  Source = "terminal"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceSynthetic, SourceTrace, SourceTerminal:
		return true
	default:
		return false
	}
}

func (s Source) String() string {
	return string(s)
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	code   errors.ErrorCode
	field  string
	value  any
	reason string
}

func newValidationError(code errors.ErrorCode, field string, value any, reason string) *ValidationError {
	return &ValidationError{code: code, field: field, value: value, reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", e.code, e.field, e.value, e.reason)
}

// Code returns the error code of the failed check
func (e *ValidationError) Code() errors.ErrorCode { return e.code }

// Field returns the name of the invalid field
func (e *ValidationError) Field() string { return e.field }

// Value returns the invalid value
func (e *ValidationError) Value() any { return e.value }

// Reason returns why the value is invalid
func (e *ValidationError) Reason() string { return e.reason }
