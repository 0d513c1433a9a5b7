// Package mirror drives repositories through the mirror workflow: update a
// local bare mirror (and its wiki), make sure the destination exists, push
// to it and install the webhook. The Scheduler runs many of these at once
// and collects the failures.
package mirror

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NicabarNimble/ghmirror/internal/destination"
	"github.com/NicabarNimble/ghmirror/internal/errors"
	"github.com/NicabarNimble/ghmirror/internal/git"
	"github.com/NicabarNimble/ghmirror/internal/github"
	"github.com/NicabarNimble/ghmirror/internal/metrics"
	"github.com/NicabarNimble/ghmirror/internal/progress"
	"github.com/NicabarNimble/ghmirror/internal/urlutils"
)

// Stage is a step of the per-repository workflow.
type Stage int

const (
	StageStart Stage = iota
	StageLocalUpdated
	StageWikiChecked
	StageDestinationEnsured
	StagePushed
	StageWebhookEnsured
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StageStart:              "start",
	StageLocalUpdated:       "local update",
	StageWikiChecked:        "wiki check",
	StageDestinationEnsured: "destination ensure",
	StagePushed:             "push",
	StageWebhookEnsured:     "webhook",
	StageDone:               "done",
	StageFailed:             "failed",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Result is the outcome of syncing one repository. On failure Stage is the
// step that did not complete.
type Result struct {
	Repo     string
	Stage    Stage
	Err      error
	Duration time.Duration
}

// Failed reports whether the sync failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %v", r.Repo, r.Stage, r.Err)
}

// Task syncs a single repository.
type Task interface {
	Sync(ctx context.Context, repo github.Repository) Result
}

// HookInstaller installs webhooks at the source.
type HookInstaller interface {
	InstallHook(ctx context.Context, repo github.Repository, hook github.Hook) (bool, error)
}

// Syncer is the Task mirroring a GitHub repository to a destination
// Registry. Its fields are set once per run and never written by Sync.
type Syncer struct {
	Runner   git.Runner
	Prober   git.Prober
	Registry destination.Registry
	Hooks    HookInstaller

	// Root is the directory the local mirrors live in.
	Root string
	// Token, when set and Credentialed is true, is embedded in clone URLs.
	Token        string
	Credentialed bool
	// Webhook is installed on every repository when non-nil.
	Webhook *github.Hook
	// SetPushURL points origin's push URL of freshly cloned mirrors at the
	// destination.
	SetPushURL bool

	Log     logrus.FieldLogger
	Tracker *progress.RunTracker
	Metrics *metrics.Recorder
}

// Sync implements Task.
func (s *Syncer) Sync(ctx context.Context, repo github.Repository) Result {
	start := time.Now()
	key := repo.Key()
	log := s.logger().WithField("repo", key)
	if s.Tracker != nil {
		s.Tracker.Start(key)
	}

	stage, err := s.run(ctx, log, repo)
	res := Result{Repo: key, Stage: stage, Err: err, Duration: time.Since(start)}

	if err != nil {
		log.WithField("stage", stage.String()).Debugf("Mirroring failed: %v", err)
		if s.Tracker != nil {
			s.Tracker.Error(key, err)
		}
	} else {
		log.Debugf("Mirrored in %v", res.Duration)
		if s.Tracker != nil {
			s.Tracker.Complete(key)
		}
	}
	s.Metrics.RecordSync(key, err == nil, stage.String(), res.Duration)
	return res
}

// run walks the stages in order and returns the last one attempted.
func (s *Syncer) run(ctx context.Context, log logrus.FieldLogger, repo github.Repository) (Stage, error) {
	key := repo.Key()
	mainDir := git.MirrorDirName(repo.Name)
	wikiDir := git.WikiDirName(repo.Name)

	s.enter(key, StageLocalUpdated)
	if err := s.updateLocal(ctx, repo.Name, mainDir, repo.CloneURL, repo.Name); err != nil {
		return StageLocalUpdated, err
	}

	s.enter(key, StageWikiChecked)
	wikiURL, hasWiki := s.checkWiki(ctx, log, repo)
	if hasWiki {
		if err := s.updateLocal(ctx, repo.Name+".wiki", wikiDir, wikiURL, repo.Name+" wiki"); err != nil {
			return StageWikiChecked, err
		}
	}

	s.enter(key, StageDestinationEnsured)
	if err := s.ensure(ctx, log, repo.Name); err != nil {
		return StageDestinationEnsured, err
	}
	if hasWiki {
		if err := s.ensure(ctx, log, repo.Name+".wiki"); err != nil {
			return StageDestinationEnsured, err
		}
	}

	s.enter(key, StagePushed)
	if err := s.Registry.Push(ctx, filepath.Join(s.Root, mainDir), s.Registry.RemoteURL(repo.Name)); err != nil {
		return StagePushed, err
	}
	if hasWiki {
		if err := s.Registry.Push(ctx, filepath.Join(s.Root, wikiDir), s.Registry.RemoteURL(repo.Name+".wiki")); err != nil {
			return StagePushed, err
		}
	}

	if s.Webhook != nil {
		s.enter(key, StageWebhookEnsured)
		installed, err := s.Hooks.InstallHook(ctx, repo, *s.Webhook)
		if err != nil {
			return StageWebhookEnsured, err
		}
		if installed {
			log.Infof("Installed webhook %s", s.Webhook.Config.URL)
		} else {
			log.Debugf("Webhook %s already present", s.Webhook.Config.URL)
		}
	}

	s.enter(key, StageDone)
	return StageDone, nil
}

// updateLocal clones or fetches one local mirror. name is the destination
// name used for the push URL of a fresh clone.
func (s *Syncer) updateLocal(ctx context.Context, name, dirName, rawURL, label string) error {
	cloneURL := rawURL
	if s.Credentialed && s.Token != "" {
		u, err := urlutils.CredentialURL(rawURL, s.Token)
		if err != nil {
			return errors.E(errors.ConfigurationInvalid, "clone url for "+label, err)
		}
		cloneURL = u
	}

	cloned, err := git.UpdateMirror(ctx, s.Runner, s.Root, dirName, cloneURL, label)
	if err != nil {
		return err
	}
	if cloned && s.SetPushURL {
		return git.SetPushURL(ctx, s.Runner, filepath.Join(s.Root, dirName), s.Registry.RemoteURL(name),
			"Setting push url of "+label)
	}
	return nil
}

// checkWiki returns the wiki URL of repo and whether the wiki exists. A
// failed probe means no wiki, never an error.
func (s *Syncer) checkWiki(ctx context.Context, log logrus.FieldLogger, repo github.Repository) (string, bool) {
	wikiURL := urlutils.WikiURL(repo.CloneURL)
	if s.Prober == nil || !s.Prober.Exists(ctx, wikiURL) {
		log.Debug("No wiki found")
		return "", false
	}
	log.Debugf("Found wiki at %s", wikiURL)
	return wikiURL, true
}

func (s *Syncer) ensure(ctx context.Context, log logrus.FieldLogger, name string) error {
	ok, err := s.Registry.Exists(ctx, name)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	log.Infof("Creating %s on the mirror", name)
	return s.Registry.Create(ctx, name)
}

func (s *Syncer) enter(name string, stage Stage) {
	if s.Tracker != nil {
		s.Tracker.Stage(name, stage.String())
	}
}

func (s *Syncer) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
