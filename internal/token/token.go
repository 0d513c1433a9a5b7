// Package token resolves the credentials used against the source hosting
// API and the project-API destination.
//
// Tokens are read from the environment only. Each provider has a primary
// variable (GITHUB_OAUTH_TOKEN, GITLAB_PRIVATE_TOKEN) and a fallback using
// the GIT_TOKEN_ prefix, which may hold either the raw token or a JSON
// document:
//
//	export GITHUB_OAUTH_TOKEN="ghp_abc..."
//	export GIT_TOKEN_GITLAB='{"Value":"glpat-xyz...","Scope":"api"}'
package token

import (
	"errors"
	"time"
)

// Common errors that may be returned by token operations
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenInvalid  = errors.New("token is invalid")
	ErrTokenExpired  = errors.New("token has expired")
)

// Provider identifies which hosting system a token belongs to
type Provider string

const (
	ProviderGitHub Provider = "GITHUB"
	ProviderGitLab Provider = "GITLAB"
)

// Token represents an authentication token with metadata
type Token struct {
	// Value is the actual token string
	Value string `json:"Value"`

	// ExpiresAt indicates when the token will expire
	// Zero value means the token does not expire
	ExpiresAt time.Time `json:"ExpiresAt"`

	// Scope defines the permissions granted to this token
	Scope string `json:"Scope"`
}

// IsExpired checks if a token has expired
func IsExpired(token Token) bool {
	if token.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(token.ExpiresAt)
}

// IsValid performs basic validation of a token
func IsValid(token Token) bool {
	return token.Value != ""
}
