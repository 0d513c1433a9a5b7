// Package destination abstracts where mirrors are pushed to. Each variant
// answers whether a repository exists, creates it when it does not and
// knows how to address it for a mirror push; the sync pipeline only sees
// the Registry interface.
package destination

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/NicabarNimble/ghmirror/internal/errors"
	"github.com/NicabarNimble/ghmirror/internal/git"
)

// Destination kinds
const (
	KindNone     = "none"
	KindGitolite = "gitolite"
	KindGitLab   = "gitlab"
)

// Kinds lists the accepted values of the destination kind setting.
var Kinds = []string{KindNone, KindGitolite, KindGitLab}

// Registry is a destination hosting system.
type Registry interface {
	// Exists reports whether a repository called name exists.
	Exists(ctx context.Context, name string) (bool, error)
	// Create creates name. Creating an existing repository is a no-op.
	Create(ctx context.Context, name string) error
	// RemoteURL is the address a mirror of name is pushed to.
	RemoteURL(name string) string
	// Push mirrors every ref of localDir to remoteURL.
	Push(ctx context.Context, localDir, remoteURL string) error
}

// Options configures New.
type Options struct {
	Kind string
	// Host is the ssh host the destination is reached at.
	Host string
	// WorkingDirectory holds the gitolite-admin checkout.
	WorkingDirectory string
	// Entity is matched against GitLab namespaces.
	Entity string
	// Group is granted RW+ on new gitolite repositories.
	Group string
	// GitLabURL is the GitLab web root; its API lives under /api/v4.
	GitLabURL   string
	GitLabToken string

	Runner git.Runner
	Log    logrus.FieldLogger
}

// New returns the Registry for opts.Kind. An empty host always yields the
// none registry.
func New(ctx context.Context, opts Options) (Registry, error) {
	if opts.Host == "" {
		return None{}, nil
	}

	switch opts.Kind {
	case KindGitolite:
		return NewGitolite(ctx, opts)
	case KindGitLab:
		return NewGitLab(ctx, opts)
	case KindNone, "":
		return None{}, nil
	default:
		return nil, errors.E(errors.ConfigurationInvalid, "destination", fmt.Errorf("unknown mirror type %q", opts.Kind))
	}
}

func (o Options) logger() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

// pusher implements Push for registries reached over git.
type pusher struct {
	runner git.Runner
}

func (p pusher) Push(ctx context.Context, localDir, remoteURL string) error {
	return git.PushMirror(ctx, p.runner, localDir, remoteURL, "Pushing "+localDir+" to "+remoteURL)
}

// None is the registry used when no destination host is configured.
type None struct{}

func (None) Exists(context.Context, string) (bool, error) { return true, nil }

func (None) Create(context.Context, string) error { return nil }

func (None) RemoteURL(string) string { return "" }

func (None) Push(context.Context, string, string) error { return nil }
