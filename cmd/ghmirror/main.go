// Command ghmirror mirrors the GitHub repositories of an organisation or
// user, wikis included, to a gitolite or GitLab host.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NicabarNimble/ghmirror/internal/config"
	"github.com/NicabarNimble/ghmirror/internal/git"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// options carries what the command needs besides the configuration. Tests
// replace the collaborators that reach the network or run git.
type options struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer

	githubURL string
	runner    git.Runner
	prober    git.Prober
}

func newRootCmd(opts *options) *cobra.Command {
	if opts.v == nil {
		opts.v = viper.New()
	}

	cmd := &cobra.Command{
		Use:   "ghmirror ENTITY",
		Short: "Mirror GitHub repositories to gitolite or GitLab",
		Long: `Mirror every repository of a GitHub organisation or user, along with its
wiki, into local bare mirrors and push them to a gitolite or GitLab host.
Destination repositories are created when missing and a webhook can be
installed on each source repository.

Tokens are read from GITHUB_OAUTH_TOKEN and GITLAB_PRIVATE_TOKEN (or
GIT_TOKEN_GITHUB / GIT_TOKEN_GITLAB). Every flag can also be set as
GHMIRROR_<FLAG>, e.g. GHMIRROR_MIRROR_HOST.`,
		Example: `  ghmirror acme --mirror-host git@mirror.example.com
  ghmirror acme -m git@gitlab.example.com -t gitlab --gitlab-url https://gitlab.example.com
  ghmirror octocat -a user -r public --repo hello-world`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			opts.v.Set(config.KeyEntity, args[0])

			cfg, err := config.Load(opts.v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts)
		},
	}
	cmd.SetOut(opts.stdout)
	cmd.SetErr(opts.stderr)

	d := config.DefaultConfig()
	f := cmd.Flags()
	f.String(config.KeyRepo, "", "GitHub repository to mirror (default all)")
	f.StringP(config.KeyMirrorHost, "m", "", "host to mirror to")
	f.StringP(config.KeyMirrorType, "t", d.MirrorType, "mirror type [gitolite|gitlab]")
	f.StringP(config.KeyRepositoryType, "r", d.RepositoryType, "type of repositories to mirror [private|public|all|owner]")
	f.StringP(config.KeyWorkingDirectory, "d", d.WorkingDirectory, "directory to use")
	f.String(config.KeyRepoDirectory, d.RepoDirectory, "directory to store repositories locally")
	f.String(config.KeyWebhookURL, "", "url for GitHub webhook notifications")
	f.String(config.KeyWebhookContentType, d.Webhook.ContentType, "content type for GitHub webhooks")
	f.StringSlice(config.KeyWebhookEvents, d.Webhook.Events, "events to trigger GitHub webhooks on")
	f.StringP(config.KeyAccess, "a", d.Access, "access user or organisation repositories [org|user]")
	f.BoolP(config.KeyQuiet, "q", false, "run with minimal messages")
	f.IntP(config.KeyConcurrency, "c", d.Concurrency, "number of repositories mirrored at once")
	f.Int(config.KeyPerPage, d.PerPage, "number of repositories requested from GitHub")
	f.String(config.KeyGitoliteGroup, d.GitoliteGroup, "gitolite group granted RW+ on created repositories")
	f.String(config.KeyGitLabURL, d.GitLabURL, "GitLab instance the project API is called on")
	f.String(config.KeyConfig, "", "config file (yaml, toml or json)")
	f.String(config.KeyMetricsFile, "", "write prometheus metrics to this file when done")
	f.String(config.KeyLogLevel, d.LogLevel, "log level [trace|debug|info|warn|error]")

	cmd.AddCommand(newVersionCmd(), newTokenCmd(opts))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ghmirror %s\n", version)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(&options{stdout: os.Stdout, stderr: os.Stderr})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printErrors(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
