package token

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) *EnvStorage {
	return &EnvStorage{lookup: func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}}
}

func TestEnvStorageRetrieve(t *testing.T) {
	ctx := context.Background()

	expired, err := json.Marshal(Token{Value: "old", ExpiresAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	scoped, err := json.Marshal(Token{Value: "glpat-json", Scope: "api"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		vars     map[string]string
		provider Provider
		want     string
		wantErr  error
	}{
		{
			name:     "primary GitHub variable",
			vars:     map[string]string{"GITHUB_OAUTH_TOKEN": "ghp_primary", "GIT_TOKEN_GITHUB": "ghp_fallback"},
			provider: ProviderGitHub,
			want:     "ghp_primary",
		},
		{
			name:     "raw fallback",
			vars:     map[string]string{"GIT_TOKEN_GITHUB": "ghp_fallback"},
			provider: ProviderGitHub,
			want:     "ghp_fallback",
		},
		{
			name:     "JSON fallback",
			vars:     map[string]string{"GIT_TOKEN_GITLAB": string(scoped)},
			provider: ProviderGitLab,
			want:     "glpat-json",
		},
		{
			name:     "primary GitLab variable",
			vars:     map[string]string{"GITLAB_PRIVATE_TOKEN": " glpat-primary\n"},
			provider: ProviderGitLab,
			want:     "glpat-primary",
		},
		{
			name:     "blank primary falls through",
			vars:     map[string]string{"GITHUB_OAUTH_TOKEN": "  "},
			provider: ProviderGitHub,
			wantErr:  ErrTokenNotFound,
		},
		{
			name:     "expired JSON token",
			vars:     map[string]string{"GIT_TOKEN_GITHUB": string(expired)},
			provider: ProviderGitHub,
			wantErr:  ErrTokenExpired,
		},
		{
			name:     "JSON token without value",
			vars:     map[string]string{"GIT_TOKEN_GITHUB": `{"Scope":"repo"}`},
			provider: ProviderGitHub,
			wantErr:  ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fakeEnv(tt.vars).Retrieve(ctx, tt.provider)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestEnvStorageLookup(t *testing.T) {
	s := fakeEnv(map[string]string{"GITHUB_OAUTH_TOKEN": "abc"})
	assert.Equal(t, "abc", s.Lookup(ProviderGitHub))
	assert.Equal(t, "", s.Lookup(ProviderGitLab))
}

func TestFormatEnvKey(t *testing.T) {
	s := NewEnvStorage()
	assert.Equal(t, "GIT_TOKEN_GITHUB", s.FormatEnvKey("github"))
	assert.Equal(t, "GIT_TOKEN_MY_HOST_COM", s.FormatEnvKey("my-host.com"))
	assert.Equal(t, "GITLAB_PRIVATE_TOKEN", PrimaryEnvKey(ProviderGitLab))
}

func TestIsExpired(t *testing.T) {
	assert.False(t, IsExpired(Token{Value: "x"}))
	assert.True(t, IsExpired(Token{Value: "x", ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.False(t, IsExpired(Token{Value: "x", ExpiresAt: time.Now().Add(time.Hour)}))
}
