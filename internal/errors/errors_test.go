package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		err      error
		expected string
	}{
		{
			name:     "with underlying error",
			op:       "clone",
			err:      errors.New("repository not found"),
			expected: "clone: repository not found",
		},
		{
			name:     "without underlying error",
			op:       "fetch",
			err:      nil,
			expected: "fetch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opErr := &OperationError{
				Op:  tt.op,
				Err: tt.err,
			}
			assert.Equal(t, tt.expected, opErr.Error())
		})
	}
}

func TestOperationError_Is(t *testing.T) {
	tests := []struct {
		name     string
		err1     *OperationError
		err2     error
		expected bool
	}{
		{
			name:     "matching operations",
			err1:     &OperationError{Op: "clone", Err: errors.New("error1")},
			err2:     &OperationError{Op: "clone", Err: errors.New("error2")},
			expected: true,
		},
		{
			name:     "different operations",
			err1:     &OperationError{Op: "clone", Err: errors.New("error")},
			err2:     &OperationError{Op: "push", Err: errors.New("error")},
			expected: false,
		},
		{
			name:     "kind must match when target has one",
			err1:     E(MissingCredential, "list repositories", nil),
			err2:     &OperationError{Op: "list repositories", Kind: ConfigurationInvalid},
			expected: false,
		},
		{
			name:     "target without kind matches any kind",
			err1:     E(MissingCredential, "list repositories", nil),
			err2:     &OperationError{Op: "list repositories"},
			expected: true,
		},
		{
			name:     "different error types",
			err1:     &OperationError{Op: "clone", Err: errors.New("error")},
			err2:     errors.New("not an operation error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err1.Is(tt.err2))
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain error", errors.New("boom"), KindUnknown},
		{"operation error", E(MissingCredential, "install webhook", nil), MissingCredential},
		{"wrapped operation error", fmt.Errorf("setup: %w", E(ConfigurationInvalid, "setup", nil)), ConfigurationInvalid},
		{"command error", &CommandError{Description: "Fetching foo", Stderr: "fatal"}, CommandFailed},
		{"status error", NewStatusError(UpstreamListFailed, "list repositories", http.StatusForbidden, "forbidden"), UpstreamListFailed},
		{
			name: "unknown wrapper around classified error",
			err:  New("sync foo", &CommandError{Description: "Pushing foo"}),
			want: CommandFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("exit status 128")
	err := &CommandError{
		Description: "Checking to see if foo exists on git.example.com",
		Stderr:      "FATAL: R any foo nobody DENIED by fallthru",
		Err:         underlying,
	}

	assert.Equal(t, "Checking to see if foo exists on git.example.com failed with error\n\tFATAL: R any foo nobody DENIED by fallthru", err.Error())
	assert.True(t, errors.Is(err, underlying))
	assert.True(t, IsKind(err, CommandFailed))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "missing credential", MissingCredential.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
