package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NicabarNimble/ghmirror/internal/token"
)

// OAuth scopes the mirror may need
const (
	ScopeRepo     = "repo"
	ScopeRepoHook = "admin:repo_hook"
)

// RequiredScopes lists the scopes a classic token needs to list
// repositories of repoType and, when webhook is set, install hooks.
func RequiredScopes(repoType string, webhook bool) []string {
	var scopes []string
	if RequiresToken(repoType) {
		scopes = append(scopes, ScopeRepo)
	}
	if webhook {
		scopes = append(scopes, ScopeRepoHook)
	}
	return scopes
}

// MissingScopes returns the entries of required not granted by scope, a
// comma separated list as sent in X-OAuth-Scopes. Fine-grained tokens
// report no scopes, so an empty scope is never reported as missing
// anything.
func MissingScopes(scope string, required []string) []string {
	if strings.TrimSpace(scope) == "" {
		return nil
	}
	granted := make(map[string]bool)
	for _, s := range strings.Split(scope, ",") {
		granted[strings.TrimSpace(s)] = true
	}
	var missing []string
	for _, r := range required {
		// repo implies its admin:repo_hook sub-scope
		if granted[r] || (r == ScopeRepoHook && granted[ScopeRepo]) {
			continue
		}
		missing = append(missing, r)
	}
	return missing
}

// ValidateToken checks t against GET /user and records the granted scopes
// and the expiry GitHub reports.
func (c *Client) ValidateToken(ctx context.Context, t *token.Token) error {
	if t.Value == "" {
		return token.ErrTokenInvalid
	}
	if token.IsExpired(*t) {
		return token.ErrTokenExpired
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(t.Value).
		SetError(&apiError{}).
		Get("/user")
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("invalid token: %s", errorMessage(resp))
	}

	t.Scope = resp.Header().Get("X-OAuth-Scopes")

	// GitHub returns time in format "2025-03-04 02:13:04 UTC"
	if expStr := resp.Header().Get("GitHub-Authentication-Token-Expiration"); expStr != "" {
		expTime, err := time.Parse("2006-01-02 15:04:05 MST", expStr)
		if err != nil {
			return fmt.Errorf("failed to parse token expiration: %w", err)
		}
		t.ExpiresAt = expTime
	}
	return nil
}
