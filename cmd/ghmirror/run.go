package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/NicabarNimble/ghmirror/internal/config"
	"github.com/NicabarNimble/ghmirror/internal/destination"
	"github.com/NicabarNimble/ghmirror/internal/errors"
	"github.com/NicabarNimble/ghmirror/internal/git"
	"github.com/NicabarNimble/ghmirror/internal/github"
	"github.com/NicabarNimble/ghmirror/internal/logging"
	"github.com/NicabarNimble/ghmirror/internal/metrics"
	"github.com/NicabarNimble/ghmirror/internal/mirror"
	"github.com/NicabarNimble/ghmirror/internal/progress"
	"github.com/NicabarNimble/ghmirror/internal/token"
)

// failuresError is returned when one or more repositories could not be
// mirrored. The run itself went through.
type failuresError struct {
	failures []mirror.Result
}

func (e *failuresError) Error() string {
	return strings.Join(e.lines(), "\n")
}

func (e *failuresError) lines() []string {
	lines := make([]string, len(e.failures))
	for i, f := range e.failures {
		lines[i] = f.Error()
	}
	return lines
}

// printErrors writes err to w, one ERROR: line per failed repository.
func printErrors(w io.Writer, err error) {
	var fe *failuresError
	if errors.As(err, &fe) {
		for _, line := range fe.lines() {
			fmt.Fprintf(w, "ERROR: %s\n", line)
		}
		return
	}
	fmt.Fprintf(w, "ERROR: %v\n", err)
}

func run(ctx context.Context, cfg *config.MirrorConfig, opts *options) error {
	log, err := logging.New(opts.stderr, cfg.LogLevel, cfg.Quiet)
	if err != nil {
		return errors.E(errors.ConfigurationInvalid, "setup", err)
	}

	env := token.NewEnvStorage()
	githubToken := env.Lookup(token.ProviderGitHub)

	runner := opts.runner
	if runner == nil {
		runner = git.NewRunner(log)
	}
	prober := opts.prober
	if prober == nil {
		prober = &git.RemoteProber{Token: githubToken}
	}

	// fail before the destination setup talks to its host
	if github.RequiresToken(cfg.RepositoryType) && githubToken == "" {
		return errors.Errorf(errors.MissingCredential, "setup",
			"the environment variable %s must be set to access %s repositories",
			token.PrimaryEnvKey(token.ProviderGitHub), cfg.RepositoryType)
	}

	kind := cfg.MirrorType
	if !cfg.HasDestination() {
		kind = destination.KindNone
	}
	registry, err := destination.New(ctx, destination.Options{
		Kind:             kind,
		Host:             cfg.MirrorHost,
		WorkingDirectory: cfg.WorkingDirectory,
		Entity:           cfg.Entity,
		Group:            cfg.GitoliteGroup,
		GitLabURL:        cfg.GitLabURL,
		GitLabToken:      env.Lookup(token.ProviderGitLab),
		Runner:           runner,
		Log:              log,
	})
	if err != nil {
		return err
	}
	if err := cfg.EnsureRepoPath(); err != nil {
		return err
	}

	ghOpts := []github.Option{github.WithLogger(log)}
	if opts.githubURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(opts.githubURL))
	}
	gh := github.NewClient(githubToken, ghOpts...)

	repos, err := gh.ListRepositories(ctx, github.ListOptions{
		Entity:  cfg.Entity,
		Access:  cfg.Access,
		Type:    cfg.RepositoryType,
		PerPage: cfg.PerPage,
	})
	if errors.IsNotFound(err) {
		return errors.E(errors.UpstreamListFailed, "setup",
			fmt.Errorf("no GitHub %s named %q: %w", cfg.Access, cfg.Entity, err))
	}
	if err != nil {
		return err
	}
	repos = gh.FilterRepositories(repos, cfg.Repo)
	log.WithFields(logrus.Fields{
		"entity": cfg.Entity,
		"type":   cfg.RepositoryType,
	}).Infof("Mirroring %d repositories", len(repos))

	var hook *github.Hook
	if cfg.HasWebhook() {
		h := github.NewHook(cfg.Webhook.URL, cfg.Webhook.ContentType, cfg.Webhook.Events)
		hook = &h
	}

	tracker := progress.NewRunTracker(len(repos), log)
	recorder := metrics.New()
	syncer := &mirror.Syncer{
		Runner:       runner,
		Prober:       prober,
		Registry:     registry,
		Hooks:        gh,
		Root:         cfg.RepoPath(),
		Token:        githubToken,
		Credentialed: cfg.RepositoryType != github.TypePublic,
		Webhook:      hook,
		SetPushURL:   kind == destination.KindGitolite,
		Log:          log,
		Tracker:      tracker,
		Metrics:      recorder,
	}

	scheduler := mirror.NewScheduler(syncer, cfg.Concurrency, log)
	scheduler.RunAll(ctx, repos)

	if !cfg.Quiet {
		tracker.Report(opts.stdout)
	}
	if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
		log.Warnf("Could not write metrics to %s: %v", cfg.MetricsFile, err)
	}

	if failures := scheduler.Failures(); len(failures) > 0 {
		return &failuresError{failures: failures}
	}
	return nil
}
