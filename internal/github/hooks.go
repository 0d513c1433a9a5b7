package github

import (
	"context"
	"fmt"

	"github.com/NicabarNimble/ghmirror/internal/errors"
	"github.com/NicabarNimble/ghmirror/internal/token"
)

// HookConfig is the delivery configuration of a webhook
type HookConfig struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// Hook is a repository webhook
type Hook struct {
	ID     int64      `json:"id,omitempty"`
	Name   string     `json:"name"`
	Active bool       `json:"active"`
	Events []string   `json:"events"`
	Config HookConfig `json:"config"`
}

// NewHook builds an active "web" hook delivering events to url.
func NewHook(url, contentType string, events []string) Hook {
	return Hook{
		Name:   "web",
		Active: true,
		Events: events,
		Config: HookConfig{
			URL:         url,
			ContentType: contentType,
		},
	}
}

// ListHooks returns the hooks currently installed on repo.
func (c *Client) ListHooks(ctx context.Context, repo Repository) ([]Hook, error) {
	const op = "list webhooks"

	if repo.HooksURL == "" {
		return nil, errors.Errorf(errors.UpstreamListFailed, op, "repository %s has no hooks URL", repo.FullName)
	}

	var hooks []Hook
	resp, err := c.rest.R().
		SetContext(ctx).
		ExpectContentType("application/json").
		SetResult(&hooks).
		SetError(&apiError{}).
		Get(repo.HooksURL)
	if err != nil {
		return nil, errors.E(errors.UpstreamListFailed, op, err)
	}
	if !resp.IsSuccess() {
		return nil, errors.NewStatusError(errors.UpstreamListFailed, op, resp.StatusCode(), errorMessage(resp))
	}
	return hooks, nil
}

// InstallHook installs hook on repo unless a hook with the same target URL
// already exists. It reports whether a hook was created.
func (c *Client) InstallHook(ctx context.Context, repo Repository, hook Hook) (bool, error) {
	const op = "install webhook"

	if !c.HasToken() {
		return false, errors.Errorf(errors.MissingCredential, op,
			"set the %s environment variable to add a webhook", token.PrimaryEnvKey(token.ProviderGitHub))
	}

	existing, err := c.ListHooks(ctx, repo)
	if err != nil {
		return false, err
	}
	for _, h := range existing {
		if h.Config.URL == hook.Config.URL {
			return false, nil
		}
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(hook).
		SetError(&apiError{}).
		Post(repo.HooksURL)
	if err != nil {
		return false, errors.E(errors.WebhookInstallFailed, op, err)
	}
	if !resp.IsSuccess() {
		return false, errors.NewStatusError(errors.WebhookInstallFailed, op, resp.StatusCode(),
			fmt.Sprintf("%s: %s", repo.FullName, errorMessage(resp)))
	}
	return true, nil
}
