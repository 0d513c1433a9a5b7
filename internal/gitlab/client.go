// Package gitlab is a small client for the parts of the GitLab v4 REST API
// the project-API destination needs: namespaces, projects and the current
// user.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/NicabarNimble/ghmirror/internal/errors"
)

const (
	defaultBaseURL = "https://gitlab.com"
	apiPrefix      = "/api/v4"
	userAgent      = "ghmirror"
	pageSize       = 100
)

// Namespace is a GitLab group or user namespace
type Namespace struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	FullPath string `json:"full_path"`
	Kind     string `json:"kind"`
}

// Project is the subset of a GitLab project the mirror uses
type Project struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Path              string    `json:"path"`
	PathWithNamespace string    `json:"path_with_namespace"`
	Namespace         Namespace `json:"namespace"`
}

type apiError struct {
	Message interface{} `json:"message"`
	Error   string      `json:"error"`
}

// Client handles GitLab API operations
type Client struct {
	rest *resty.Client
}

// NewClient creates a client for the GitLab instance at baseURL
// (e.g. https://gitlab.example.com). An empty baseURL means gitlab.com.
func NewClient(baseURL, privateToken string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rest := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")+apiPrefix).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
	if privateToken != "" {
		rest.SetHeader("PRIVATE-TOKEN", privateToken)
	}
	return &Client{rest: rest}
}

// ListNamespaces returns every namespace visible to the token, optionally
// narrowed by a search term.
func (c *Client) ListNamespaces(ctx context.Context, search string) ([]Namespace, error) {
	var all []Namespace
	err := c.paginate(ctx, "list namespaces", "/namespaces", map[string]string{"search": search}, func(r *resty.Request) func() int {
		var page []Namespace
		r.SetResult(&page)
		return func() int {
			all = append(all, page...)
			return len(page)
		}
	})
	return all, err
}

// ListProjects returns every project the token is a member of.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var all []Project
	err := c.paginate(ctx, "list projects", "/projects", map[string]string{"membership": "true", "simple": "true"}, func(r *resty.Request) func() int {
		var page []Project
		r.SetResult(&page)
		return func() int {
			all = append(all, page...)
			return len(page)
		}
	})
	return all, err
}

// CreateProject creates a project called name in the namespace. A zero
// namespaceID creates it in the token owner's personal namespace.
func (c *Client) CreateProject(ctx context.Context, name string, namespaceID int) (*Project, error) {
	const op = "create project"

	body := map[string]interface{}{
		"name": name,
		"path": name,
	}
	if namespaceID != 0 {
		body["namespace_id"] = namespaceID
	}

	var project Project
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		ExpectContentType("application/json").
		SetResult(&project).
		SetError(&apiError{}).
		Post("/projects")
	if err != nil {
		return nil, errors.E(errors.DestinationCreateFailed, op, err)
	}
	if !resp.IsSuccess() {
		return nil, errors.NewStatusError(errors.DestinationCreateFailed, op, resp.StatusCode(), errorMessage(resp))
	}
	return &project, nil
}

// IsAlreadyTaken reports whether err is GitLab refusing to create a
// project because the path is in use.
func IsAlreadyTaken(err error) bool {
	return errors.StatusCode(err) == http.StatusBadRequest && strings.Contains(err.Error(), "has already been taken")
}

// paginate walks an offset-paginated collection. prepare registers the
// page result on the request and returns a collector that appends the
// decoded page and reports its length.
func (c *Client) paginate(ctx context.Context, op, path string, params map[string]string, prepare func(*resty.Request) func() int) error {
	for page := 1; ; page++ {
		req := c.rest.R().
			SetContext(ctx).
			ExpectContentType("application/json").
			SetError(&apiError{}).
			SetQueryParam("per_page", strconv.Itoa(pageSize)).
			SetQueryParam("page", strconv.Itoa(page))
		for k, v := range params {
			if v != "" {
				req.SetQueryParam(k, v)
			}
		}
		collect := prepare(req)

		resp, err := req.Get(path)
		if err != nil {
			return errors.E(errors.UpstreamListFailed, op, err)
		}
		if !resp.IsSuccess() {
			return errors.NewStatusError(errors.UpstreamListFailed, op, resp.StatusCode(), errorMessage(resp))
		}

		n := collect()
		next := resp.Header().Get("X-Next-Page")
		if next == "" || n == 0 {
			return nil
		}
	}
}

func errorMessage(resp *resty.Response) string {
	if e, ok := resp.Error().(*apiError); ok {
		switch m := e.Message.(type) {
		case string:
			if m != "" {
				return m
			}
		case nil:
		default:
			return fmt.Sprint(m)
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return http.StatusText(resp.StatusCode())
}
