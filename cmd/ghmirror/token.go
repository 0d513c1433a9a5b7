package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/ghmirror/internal/config"
	"github.com/NicabarNimble/ghmirror/internal/errors"
	"github.com/NicabarNimble/ghmirror/internal/github"
	"github.com/NicabarNimble/ghmirror/internal/gitlab"
	"github.com/NicabarNimble/ghmirror/internal/token"
)

type tokenOptions struct {
	repositoryType string
	webhook        bool
	gitlabURL      string
}

// newTokenCmd checks the tokens a run would use before a long mirror run
// trips over them.
func newTokenCmd(opts *options) *cobra.Command {
	tOpts := &tokenOptions{}
	d := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Check the GitHub and GitLab tokens found in the environment",
		Long: `Validate the tokens read from GITHUB_OAUTH_TOKEN and GITLAB_PRIVATE_TOKEN
(or GIT_TOKEN_GITHUB / GIT_TOKEN_GITLAB) and report the scopes they carry.`,
		Example: `  ghmirror token
  ghmirror token -r all --webhook`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkTokens(cmd.Context(), cmd.OutOrStdout(), tOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&tOpts.repositoryType, config.KeyRepositoryType, "r", d.RepositoryType, "type of repositories that will be mirrored")
	cmd.Flags().BoolVar(&tOpts.webhook, "webhook", false, "check the scope needed to install webhooks")
	cmd.Flags().StringVar(&tOpts.gitlabURL, config.KeyGitLabURL, d.GitLabURL, "GitLab instance to validate against")
	return cmd
}

func checkTokens(ctx context.Context, out io.Writer, tOpts *tokenOptions, opts *options) error {
	const op = "check tokens"
	env := token.NewEnvStorage()
	var problems []string

	gh, err := env.Retrieve(ctx, token.ProviderGitHub)
	switch {
	case errors.Is(err, token.ErrTokenNotFound):
		fmt.Fprintf(out, "GitHub: no token (set %s)\n", token.PrimaryEnvKey(token.ProviderGitHub))
		if github.RequiresToken(tOpts.repositoryType) {
			problems = append(problems, fmt.Sprintf("%s repositories need a GitHub token", tOpts.repositoryType))
		}
	case err != nil:
		problems = append(problems, fmt.Sprintf("GitHub: %v", err))
	default:
		var ghOpts []github.Option
		if opts.githubURL != "" {
			ghOpts = append(ghOpts, github.WithBaseURL(opts.githubURL))
		}
		if err := github.NewClient("", ghOpts...).ValidateToken(ctx, &gh); err != nil {
			problems = append(problems, fmt.Sprintf("GitHub: %v", err))
			break
		}
		fmt.Fprintf(out, "GitHub: valid (scopes: %s)\n", orNone(gh.Scope))
		if !gh.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "GitHub: expires %s\n", gh.ExpiresAt.Format("2006-01-02"))
		}
		missing := github.MissingScopes(gh.Scope, github.RequiredScopes(tOpts.repositoryType, tOpts.webhook))
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("GitHub token is missing scopes: %s", strings.Join(missing, ", ")))
		}
	}

	gl, err := env.Retrieve(ctx, token.ProviderGitLab)
	switch {
	case errors.Is(err, token.ErrTokenNotFound):
		fmt.Fprintf(out, "GitLab: no token (set %s)\n", token.PrimaryEnvKey(token.ProviderGitLab))
	case err != nil:
		problems = append(problems, fmt.Sprintf("GitLab: %v", err))
	default:
		if err := gitlab.NewClient(tOpts.gitlabURL, "").ValidateToken(ctx, &gl); err != nil {
			problems = append(problems, fmt.Sprintf("GitLab: %v", err))
			break
		}
		fmt.Fprintf(out, "GitLab: valid (scopes: %s)\n", orNone(gl.Scope))
	}

	if len(problems) > 0 {
		return errors.Errorf(errors.MissingCredential, op, "%s", strings.Join(problems, "; "))
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none reported"
	}
	return s
}
