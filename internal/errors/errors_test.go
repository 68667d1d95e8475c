package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/perfgov/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Invalid log level", f.New(errors.ErrInvalidLogLevel).Error())
	assert.Equal(t, "custom", f.WithMessage(errors.ErrInternal, "custom").Error())
	assert.Equal(t, "Invalid threshold value: 12", f.WithData(errors.ErrInvalidThreshold, 12).Error())

	wrapped := f.Wrap(errors.ErrReadConfig, fmt.Errorf("boom"))
	assert.Equal(t, "Failed to read config file: boom", wrapped.Error())
	assert.Equal(t, "unknown_code", errors.GetErrorMessage("unknown_code"))
}

func TestHasCode(t *testing.T) {
	f := errors.New()
	inner := f.New(errors.ErrInitMetrics)
	outer := f.Wrap(errors.ErrInitApp, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrInitApp))
	assert.True(t, errors.HasCode(outer, errors.ErrInitMetrics))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(fmt.Errorf("plain"), errors.ErrInternal))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))
}

type codedErr struct{ code errors.ErrorCode }

func (e codedErr) Error() string          { return string(e.code) }
func (e codedErr) Code() errors.ErrorCode { return e.code }

func TestHasCodeThroughForeignWrappers(t *testing.T) {
	f := errors.New()
	err := fmt.Errorf("loading: %w", f.Wrap(errors.ErrInvalidConfig, codedErr{errors.ErrInvalidLogLevel}))

	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))

	code, ok := errors.CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, errors.ErrInvalidConfig, code)

	_, ok = errors.CodeOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestWithCopies(t *testing.T) {
	base := errors.New().New(errors.ErrTimeout)
	custom := base.WithMessage("took too long").WithData(3)

	assert.Equal(t, "Operation timed out", base.Error())
	assert.Equal(t, "took too long: 3", custom.Error())
	assert.Equal(t, 3, custom.GetData())
	assert.Nil(t, base.GetData())
}
