package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/NicabarNimble/ghmirror/internal/errors"
	"github.com/NicabarNimble/ghmirror/internal/token"
)

const (
	apiBaseURL = "https://api.github.com"
	userAgent  = "ghmirror/1.0"

	// DefaultPerPage is the largest page GitHub will serve.
	DefaultPerPage = 100
)

// Repository classes accepted by the repository listing endpoints
const (
	TypePrivate = "private"
	TypePublic  = "public"
	TypeAll     = "all"
	TypeOwner   = "owner"
)

// Address spaces repositories are listed from
const (
	AccessOrg  = "org"
	AccessUser = "user"
)

// Repository is the subset of the GitHub repository object the mirror uses
type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	CloneURL string `json:"clone_url"`
	HooksURL string `json:"hooks_url,omitempty"`
	Private  bool   `json:"private"`
}

// Key identifies r across owners. Listings through /user/repos can hold
// same-named repositories of different owners, so FullName is preferred.
func (r Repository) Key() string {
	if r.FullName != "" {
		return r.FullName
	}
	return r.Name
}

// ListOptions selects which repositories to list
type ListOptions struct {
	Entity  string
	Access  string // AccessOrg or AccessUser
	Type    string // TypePrivate, TypePublic, TypeAll or TypeOwner
	PerPage int
}

// apiError is the error body GitHub returns
type apiError struct {
	Message string `json:"message"`
}

// Client handles GitHub API operations
type Client struct {
	rest  *resty.Client
	token string
	log   logrus.FieldLogger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. GitHub
// Enterprise or a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.rest.SetBaseURL(baseURL)
	}
}

// WithLogger sets the logger used for warnings.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new GitHub API client. An empty token gives an
// anonymous client that can only list public repositories.
func NewClient(tok string, opts ...Option) *Client {
	rest := resty.New().
		SetBaseURL(apiBaseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetHeader("User-Agent", userAgent)
	if tok != "" {
		rest.SetAuthToken(tok)
	}

	c := &Client{
		rest:  rest,
		token: tok,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasToken reports whether the client is authenticated
func (c *Client) HasToken() bool {
	return c.token != ""
}

// RequiresToken reports whether listing the given repository class needs
// an authenticated client.
func RequiresToken(repoType string) bool {
	return repoType == TypePrivate || repoType == TypeAll
}

// ListRepositories lists the repositories visible for opts.Entity.
func (c *Client) ListRepositories(ctx context.Context, opts ListOptions) ([]Repository, error) {
	const op = "list repositories"

	if RequiresToken(opts.Type) && !c.HasToken() {
		return nil, errors.Errorf(errors.MissingCredential, op,
			"the environment variable %s must be set to access %s repositories",
			token.PrimaryEnvKey(token.ProviderGitHub), opts.Type)
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	var repos []Repository
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("entity", opts.Entity).
		SetQueryParams(map[string]string{
			"per_page": strconv.Itoa(perPage),
			"type":     opts.Type,
		}).
		ExpectContentType("application/json").
		SetResult(&repos).
		SetError(&apiError{}).
		Get(c.repositoriesPath(opts.Access))
	if err != nil {
		return nil, errors.E(errors.UpstreamListFailed, op, err)
	}
	if !resp.IsSuccess() {
		return nil, errors.NewStatusError(errors.UpstreamListFailed, op, resp.StatusCode(), errorMessage(resp))
	}

	return repos, nil
}

// repositoriesPath picks the listing endpoint. An authenticated user
// listing goes through /user/repos so private repositories are visible.
func (c *Client) repositoriesPath(access string) string {
	if access == AccessUser {
		if c.HasToken() {
			return "/user/repos"
		}
		return "/users/{entity}/repos"
	}
	return "/orgs/{entity}/repos"
}

// FilterRepositories narrows repos to the one called name. An empty name
// returns repos unchanged. A name that is not present only logs a warning.
func (c *Client) FilterRepositories(repos []Repository, name string) []Repository {
	if name == "" {
		return repos
	}
	for _, r := range repos {
		if r.Name == name {
			return []Repository{r}
		}
	}
	c.log.WithField("repo", name).Warnf("repository %s not found in the listed repositories", name)
	return nil
}

func errorMessage(resp *resty.Response) string {
	if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
		return e.Message
	}
	if msg := http.StatusText(resp.StatusCode()); msg != "" {
		return msg
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode())
}
