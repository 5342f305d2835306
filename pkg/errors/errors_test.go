package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeConfigError, "missing classpath"),
			expected: "[CONFIG_ERROR] missing classpath",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeDownloadError, "fetch failed", errors.New("connection reset")),
			expected: "[DOWNLOAD_ERROR] fetch failed: connection reset",
		},
		{
			name:     "formatted message",
			err:      Newf(CodeInvalidInput, "unknown format %q", "yaml"),
			expected: `[INVALID_INPUT] unknown format "yaml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_UnwrapAndIs(t *testing.T) {
	underlying := errors.New("short read")
	err := Wrap(CodeIOError, "reading archive", underlying)

	assert.Equal(t, underlying, err.Unwrap())
	assert.True(t, errors.Is(err, underlying))
	assert.True(t, errors.Is(err, ErrIOError))
	assert.False(t, errors.Is(err, ErrParseError))
}

func TestIsHelpers(t *testing.T) {
	wrapped := fmt.Errorf("run failed: %w", Wrap(CodeDatabaseError, "insert", errors.New("locked")))

	tests := []struct {
		name  string
		check func(error) bool
		err   error
		want  bool
	}{
		{"config", IsConfigError, ErrConfigError, true},
		{"io", IsIOError, Wrap(CodeIOError, "x", nil), true},
		{"download", IsDownloadError, ErrIOError, false},
		{"database wrapped twice", IsDatabaseError, wrapped, true},
		{"analysis nil", IsAnalysisError, nil, false},
		{"export", IsExportError, Wrap(CodeExportError, "publish", errors.New("denied")), true},
		{"export is not database", IsExportError, wrapped, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorCodeAndMessage(t *testing.T) {
	assert.Equal(t, CodeParseError, GetErrorCode(Wrap(CodeParseError, "bad magic", nil)))
	assert.Equal(t, CodeUnknown, GetErrorCode(errors.New("plain")))

	assert.Equal(t, "bad magic", GetErrorMessage(fmt.Errorf("ctx: %w", New(CodeParseError, "bad magic"))))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
	assert.Equal(t, "", GetErrorMessage(nil))
}
