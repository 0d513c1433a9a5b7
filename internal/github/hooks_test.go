package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicabarNimble/ghmirror/internal/errors"
)

// hookServer is a minimal in-memory hooks endpoint.
type hookServer struct {
	mu         sync.Mutex
	hooks      []Hook
	posts      int
	listStatus int
	postStatus int
}

func (s *hookServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		if s.listStatus != 0 {
			writeJSON(w, s.listStatus, apiError{Message: "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, s.hooks)
	case http.MethodPost:
		s.posts++
		if s.postStatus != 0 {
			writeJSON(w, s.postStatus, apiError{Message: "Validation Failed"})
			return
		}
		var h Hook
		if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Message: err.Error()})
			return
		}
		h.ID = int64(len(s.hooks) + 1)
		s.hooks = append(s.hooks, h)
		writeJSON(w, http.StatusCreated, h)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestInstallHookIsIdempotent(t *testing.T) {
	hs := &hookServer{}
	server := httptest.NewServer(hs)
	defer server.Close()

	client := NewClient("tok")
	repo := Repository{Name: "foo", FullName: "acme/foo", HooksURL: server.URL + "/repos/acme/foo/hooks"}
	hook := NewHook("https://ci.example.com/hook", "json", []string{"push", "pull_request"})

	created, err := client.InstallHook(context.Background(), repo, hook)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = client.InstallHook(context.Background(), repo, hook)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, hs.posts)
	require.Len(t, hs.hooks, 1)
	assert.Equal(t, "web", hs.hooks[0].Name)
	assert.True(t, hs.hooks[0].Active)
	assert.Equal(t, []string{"push", "pull_request"}, hs.hooks[0].Events)
	assert.Equal(t, HookConfig{URL: "https://ci.example.com/hook", ContentType: "json"}, hs.hooks[0].Config)
}

func TestInstallHookMatchesOnURLOnly(t *testing.T) {
	hs := &hookServer{hooks: []Hook{NewHook("https://ci.example.com/hook", "form", []string{"release"})}}
	server := httptest.NewServer(hs)
	defer server.Close()

	client := NewClient("tok")
	repo := Repository{FullName: "acme/foo", HooksURL: server.URL + "/hooks"}

	created, err := client.InstallHook(context.Background(), repo, NewHook("https://ci.example.com/hook", "json", []string{"push"}))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, hs.posts)
}

func TestInstallHookErrors(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		server   *hookServer
		wantKind errors.Kind
	}{
		{
			name:     "missing credential",
			server:   &hookServer{},
			wantKind: errors.MissingCredential,
		},
		{
			name:     "listing fails",
			token:    "tok",
			server:   &hookServer{listStatus: http.StatusNotFound},
			wantKind: errors.UpstreamListFailed,
		},
		{
			name:     "creation rejected",
			token:    "tok",
			server:   &hookServer{postStatus: http.StatusUnprocessableEntity},
			wantKind: errors.WebhookInstallFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.server)
			defer server.Close()

			client := NewClient(tt.token)
			repo := Repository{FullName: "acme/foo", HooksURL: server.URL + "/hooks"}
			_, err := client.InstallHook(context.Background(), repo, NewHook("https://ci.example.com/hook", "json", []string{"push"}))
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errors.KindOf(err))
		})
	}
}

func TestListHooksWithoutURL(t *testing.T) {
	_, err := NewClient("tok").ListHooks(context.Background(), Repository{FullName: "acme/foo"})
	require.Error(t, err)
	assert.Equal(t, errors.UpstreamListFailed, errors.KindOf(err))
}
