package destination

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/NicabarNimble/ghmirror/internal/errors"
	"github.com/NicabarNimble/ghmirror/internal/gitlab"
	"github.com/NicabarNimble/ghmirror/internal/token"
)

// GitLab registers repositories as projects through the GitLab API.
//
// The project list is fetched once when the registry is built and never
// refreshed, so Exists answers from that snapshot. Create tolerates GitLab
// reporting the path as taken, which keeps it idempotent even when the
// snapshot is behind.
type GitLab struct {
	pusher
	client    *gitlab.Client
	host      string
	namespace gitlab.Namespace
	projects  map[string]struct{}
	log       logrus.FieldLogger
}

// NewGitLab resolves the namespace for opts.Entity and snapshots the
// projects visible to opts.GitLabToken.
func NewGitLab(ctx context.Context, opts Options) (*GitLab, error) {
	const op = "gitlab setup"

	if opts.GitLabToken == "" {
		return nil, errors.Errorf(errors.MissingCredential, op, "a GitLab private token is required")
	}

	g := &GitLab{
		pusher:   pusher{runner: opts.Runner},
		client:   gitlab.NewClient(opts.GitLabURL, opts.GitLabToken),
		host:     opts.Host,
		projects: make(map[string]struct{}),
		log:      opts.logger(),
	}

	tok := token.Token{Value: opts.GitLabToken}
	if err := g.client.ValidateToken(ctx, &tok); err != nil {
		return nil, errors.E(errors.MissingCredential, op, err)
	}
	g.log.Debugf("GitLab token scopes: %s", tok.Scope)

	namespaces, err := g.client.ListNamespaces(ctx, opts.Entity)
	if err != nil {
		return nil, err
	}
	ns, ok := matchNamespace(namespaces, opts.Entity)
	if !ok {
		g.log.Warnf("No GitLab namespace matches %q, projects cannot be created under it", opts.Entity)
		ns = gitlab.Namespace{Path: opts.Entity, FullPath: opts.Entity}
	}
	g.namespace = ns

	projects, err := g.client.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if g.inNamespace(p) {
			g.projects[p.Path] = struct{}{}
		}
	}
	g.log.Debugf("GitLab namespace %s has %d known projects", ns.FullPath, len(g.projects))
	return g, nil
}

// inNamespace reports whether p lives directly in the mirror namespace. An
// unresolved namespace has no ID, so projects are matched by path.
func (g *GitLab) inNamespace(p gitlab.Project) bool {
	if g.namespace.ID != 0 {
		return p.Namespace.ID == g.namespace.ID
	}
	prefix := strings.ToLower(g.namespace.FullPath + "/")
	rest, ok := strings.CutPrefix(strings.ToLower(p.PathWithNamespace), prefix)
	return ok && !strings.Contains(rest, "/")
}

func matchNamespace(namespaces []gitlab.Namespace, entity string) (gitlab.Namespace, bool) {
	for _, ns := range namespaces {
		if strings.EqualFold(ns.Path, entity) || strings.EqualFold(ns.FullPath, entity) || strings.EqualFold(ns.Name, entity) {
			return ns, true
		}
	}
	return gitlab.Namespace{}, false
}

// RemoteURL implements Registry.
func (g *GitLab) RemoteURL(name string) string {
	return g.host + ":" + g.namespace.FullPath + "/" + name + ".git"
}

// Exists implements Registry.
func (g *GitLab) Exists(_ context.Context, name string) (bool, error) {
	_, ok := g.projects[strings.TrimSuffix(name, ".git")]
	return ok, nil
}

// Create implements Registry.
func (g *GitLab) Create(ctx context.Context, name string) error {
	name = strings.TrimSuffix(name, ".git")
	if _, ok := g.projects[name]; ok {
		return nil
	}
	if g.namespace.ID == 0 {
		return errors.Errorf(errors.DestinationCreateFailed, "create "+name+" on "+g.host,
			"GitLab namespace %s could not be resolved", g.namespace.FullPath)
	}
	g.log.WithField("repo", name).Infof("Creating %s in GitLab namespace %s", name, g.namespace.FullPath)
	_, err := g.client.CreateProject(ctx, name, g.namespace.ID)
	if err != nil && !gitlab.IsAlreadyTaken(err) {
		return err
	}
	return nil
}
