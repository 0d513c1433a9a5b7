package token

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	// EnvPrefix is the prefix used for fallback token environment variables
	EnvPrefix = "GIT_TOKEN_"
)

// primaryEnv names the variable checked first for each provider.
var primaryEnv = map[Provider]string{
	ProviderGitHub: "GITHUB_OAUTH_TOKEN",
	ProviderGitLab: "GITLAB_PRIVATE_TOKEN",
}

// EnvStorage reads tokens from environment variables.
type EnvStorage struct {
	lookup func(string) (string, bool)
}

// NewEnvStorage creates a new environment variable-based token storage
func NewEnvStorage() *EnvStorage {
	return &EnvStorage{lookup: os.LookupEnv}
}

// PrimaryEnvKey returns the main environment variable for a provider
func PrimaryEnvKey(p Provider) string {
	return primaryEnv[p]
}

// Retrieve gets the token for a provider. The primary variable wins over
// the GIT_TOKEN_ fallback.
func (e *EnvStorage) Retrieve(ctx context.Context, p Provider) (Token, error) {
	if key, ok := primaryEnv[p]; ok {
		if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
			return Token{Value: strings.TrimSpace(v)}, nil
		}
	}

	data, ok := e.lookup(e.FormatEnvKey(string(p)))
	data = strings.TrimSpace(data)
	if !ok || data == "" {
		return Token{}, ErrTokenNotFound
	}

	var token Token
	if strings.HasPrefix(data, "{") {
		if err := json.Unmarshal([]byte(data), &token); err != nil {
			return Token{}, fmt.Errorf("failed to unmarshal token: %w", err)
		}
	} else {
		token.Value = data
	}

	if !IsValid(token) {
		return Token{}, ErrTokenInvalid
	}
	if IsExpired(token) {
		return Token{}, ErrTokenExpired
	}

	return token, nil
}

// Lookup returns the token value for a provider, or "" if none is usable.
func (e *EnvStorage) Lookup(p Provider) string {
	t, err := e.Retrieve(context.Background(), p)
	if err != nil {
		return ""
	}
	return t.Value
}

// FormatEnvKey converts a token key into an environment variable name
func (e *EnvStorage) FormatEnvKey(key string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, strings.ToUpper(key))

	return EnvPrefix + sanitized
}
