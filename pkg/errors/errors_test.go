package errors_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/metasync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundError(t *testing.T) {
	err := pkgerrors.NewNotFoundError("certificate", "42")
	assert.Equal(t, "certificate with ID 42 not found", err.Error())
	assert.True(t, pkgerrors.IsNotFound(err))

	wrapped := fmt.Errorf("lookup: %w", err)
	assert.True(t, pkgerrors.IsNotFound(wrapped))
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("sslTypeIds", nil, "at least one profile is required")
		assert.Equal(t, "validation failed for field sslTypeIds: at least one profile is required", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "metadata cannot be empty"}
		assert.Equal(t, "validation failed: metadata cannot be empty", err.Error())
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{401, pkgerrors.ErrCredentialsInvalid},
		{403, pkgerrors.ErrCredentialsInvalid},
		{404, pkgerrors.ErrNotFound},
		{429, pkgerrors.ErrRateLimited},
		{503, pkgerrors.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := pkgerrors.NewAPIError("keyfactor", tt.status, "boom")
			assert.True(t, errors.Is(err, tt.target))
			assert.Contains(t, err.Error(), "keyfactor")
		})
	}

	t.Run("bad request matches nothing", func(t *testing.T) {
		err := pkgerrors.NewAPIError("sectigo", 400, "bad")
		assert.False(t, errors.Is(err, pkgerrors.ErrNotFound))
		assert.False(t, pkgerrors.IsUnavailable(err))
	})

	t.Run("wrap", func(t *testing.T) {
		base := errors.New("connection reset")
		err := pkgerrors.WrapAPI("sectigo", 0, base)
		assert.ErrorIs(t, err, base)
		assert.Nil(t, pkgerrors.WrapAPI("sectigo", 0, nil))
	})
}

func TestFatalError(t *testing.T) {
	t.Run("nil passthrough", func(t *testing.T) {
		assert.Nil(t, pkgerrors.NewFatalError(pkgerrors.StageInit, nil))
	})

	t.Run("classification", func(t *testing.T) {
		base := pkgerrors.NewConfigError("direction", "unknown direction", nil)
		err := pkgerrors.NewFatalError(pkgerrors.StageInit, base)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsFatal(err))
		assert.Equal(t, pkgerrors.StageInit, pkgerrors.FatalStage(err))

		var ce *pkgerrors.ConfigError
		assert.True(t, errors.As(err, &ce))
	})

	t.Run("keeps first stage", func(t *testing.T) {
		inner := pkgerrors.NewFatalError(pkgerrors.StageSanitize, errors.New("x"))
		outer := pkgerrors.NewFatalError(pkgerrors.StageSnapshot, inner)
		assert.Equal(t, pkgerrors.StageSanitize, pkgerrors.FatalStage(outer))
	})

	t.Run("recoverable errors are not fatal", func(t *testing.T) {
		assert.False(t, pkgerrors.IsFatal(pkgerrors.NewFieldError("dept", "transcode", errors.New("bad date"))))
		assert.False(t, pkgerrors.IsFatal(pkgerrors.NewRecordError("A1", "commit", errors.New("500"))))
		assert.Equal(t, pkgerrors.Stage(""), pkgerrors.FatalStage(errors.New("plain")))
	})
}

func TestUnresolvedCharactersError(t *testing.T) {
	err := &pkgerrors.UnresolvedCharactersError{
		Characters: []string{"$", " "},
		Fields:     []string{"Cost $", "Cost Center"},
	}
	assert.Equal(t, `2 banned character(s) have no replacement: "$", " " (fields: Cost $, Cost Center)`, err.Error())
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestRecordAndFieldErrors(t *testing.T) {
	base := errors.New("timeout")

	fe := pkgerrors.NewFieldError("NotBefore", "resolve", base)
	assert.Equal(t, "field NotBefore: resolve failed: timeout", fe.Error())
	assert.ErrorIs(t, fe, base)

	re := pkgerrors.NewRecordError("00A1", "detail", base)
	assert.Equal(t, "certificate 00A1: detail failed: timeout", re.Error())
	assert.ErrorIs(t, re, base)

	se := &pkgerrors.SchemaFieldError{Field: "dept", Operation: "create", Err: base}
	assert.Equal(t, "failed to create metadata field dept: timeout", se.Error())
}
