package framesource

import "codeberg.org/mutker/perfgov/internal/errors"

const (
	ErrInvalidProfile = errors.ErrorCode("framesource_invalid_profile")
	ErrOpenTrace      = errors.ErrorCode("framesource_open_trace_failed")
	ErrInvalidTrace   = errors.ErrorCode("framesource_invalid_trace")
)
