package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		name           string
		err            *StatusError
		expectedString string
	}{
		{
			name:           "error with status",
			err:            NewStatusError(WebhookInstallFailed, "install webhook", http.StatusUnprocessableEntity, "Validation Failed"),
			expectedString: "install webhook: Validation Failed (HTTP 422)",
		},
		{
			name: "error without status",
			err: &StatusError{
				Op:      "list namespaces",
				Message: "connection refused",
			},
			expectedString: "list namespaces: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedString, tt.err.Error())
		})
	}
}

func TestStatusHelpers(t *testing.T) {
	notFound := fmt.Errorf("wrapped: %w", NewStatusError(UpstreamListFailed, "list repositories", http.StatusNotFound, "Not Found"))
	badGateway := NewStatusError(DestinationCreateFailed, "create project", http.StatusBadGateway, "")

	assert.True(t, IsNotFound(notFound))
	assert.Equal(t, http.StatusNotFound, StatusCode(notFound))
	assert.Equal(t, UpstreamListFailed, KindOf(notFound))

	assert.False(t, IsNotFound(badGateway))
	assert.False(t, IsNotFound(fmt.Errorf("plain")))
	assert.Equal(t, 0, StatusCode(nil))
}
