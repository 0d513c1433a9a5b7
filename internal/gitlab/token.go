package gitlab

import (
	"context"
	"fmt"
	"strings"

	"github.com/NicabarNimble/ghmirror/internal/token"
)

// ValidateToken checks that t is accepted by GitLab and records the
// scopes it was granted.
func (c *Client) ValidateToken(ctx context.Context, t *token.Token) error {
	if t.Value == "" {
		return token.ErrTokenInvalid
	}

	if token.IsExpired(*t) {
		return token.ErrTokenExpired
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("PRIVATE-TOKEN", t.Value).
		SetError(&apiError{}).
		Get("/user")
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("invalid token: %s", errorMessage(resp))
	}

	scopes := resp.Header().Get("X-Gitlab-Scopes")
	if scopes == "" {
		scopes = "api" // Default scope for personal access tokens
	}

	scopesList := strings.Split(scopes, ",")
	for i, s := range scopesList {
		scopesList[i] = strings.TrimSpace(s)
	}
	t.Scope = strings.Join(scopesList, " ")

	return nil
}
