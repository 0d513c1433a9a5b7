package destination

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/NicabarNimble/ghmirror/internal/errors"
	"github.com/NicabarNimble/ghmirror/internal/git"
	"github.com/NicabarNimble/ghmirror/internal/lock"
)

const (
	adminRepo     = "gitolite-admin"
	adminBranch   = "master"
	adminConfPath = "conf/gitolite.conf"

	// DefaultGroup is granted RW+ on repositories created by the mirror.
	DefaultGroup = "@mirror"
)

// adminLock serializes every gitolite-admin update in the process. The
// pull/edit/commit/push sequence is not safe to interleave.
var adminLock lock.Mutex

var repoLineRgx = regexp.MustCompile(`(?m)^\s*repo\s+(.+)$`)

// Gitolite registers repositories by appending to the gitolite.conf of a
// local gitolite-admin checkout and pushing it.
type Gitolite struct {
	pusher
	host     string
	group    string
	workDir  string
	adminDir string
	log      logrus.FieldLogger
}

// NewGitolite returns a gitolite registry, cloning the admin repository
// into opts.WorkingDirectory when it is not already there.
func NewGitolite(ctx context.Context, opts Options) (*Gitolite, error) {
	const op = "gitolite setup"

	group := opts.Group
	if group == "" {
		group = DefaultGroup
	}
	g := &Gitolite{
		pusher:   pusher{runner: opts.Runner},
		host:     opts.Host,
		group:    group,
		workDir:  opts.WorkingDirectory,
		adminDir: filepath.Join(opts.WorkingDirectory, adminRepo),
		log:      opts.logger(),
	}

	if !git.DirExists(g.adminDir) {
		if _, err := os.Stat(g.adminDir); err == nil {
			return nil, errors.Errorf(errors.ConfigurationInvalid, op, "%s cannot be a file", adminRepo)
		}
		err := opts.Runner.Run(ctx, g.workDir, "Cloning gitolite admin repository",
			"clone", g.host+":"+adminRepo)
		if err != nil {
			return nil, errors.E(errors.ConfigurationInvalid, op, err)
		}
	}
	return g, nil
}

// RemoteURL implements Registry.
func (g *Gitolite) RemoteURL(name string) string {
	return g.host + ":" + name + ".git"
}

// Exists implements Registry. Absence is inferred from ls-remote failing,
// so an unreachable host also reads as "does not exist".
func (g *Gitolite) Exists(ctx context.Context, name string) (bool, error) {
	err := git.LsRemote(ctx, g.runner, g.workDir, g.RemoteURL(name),
		fmt.Sprintf("Checking to see if %s exists on %s", name, g.host))
	if err != nil {
		g.log.WithField("repo", name).Debugf("ls-remote failed, treating as absent: %v", err)
		return false, nil
	}
	return true, nil
}

// Create implements Registry.
func (g *Gitolite) Create(ctx context.Context, name string) error {
	adminLock.Lock()
	defer adminLock.Unlock()

	if err := g.create(ctx, name); err != nil {
		return errors.E(errors.DestinationCreateFailed, "create "+name+" on "+g.host, err)
	}
	return nil
}

func (g *Gitolite) create(ctx context.Context, name string) error {
	if err := g.runner.Run(ctx, g.adminDir, "Pulling most recent gitolite admin",
		"pull", "origin", adminBranch); err != nil {
		return err
	}

	confFile := filepath.Join(g.adminDir, adminConfPath)
	conf, err := os.ReadFile(confFile)
	if err != nil {
		return fmt.Errorf("failed to read gitolite config: %w", err)
	}
	if declaresRepo(conf, name) {
		g.log.WithField("repo", name).Infof("%s is already declared in %s", name, adminConfPath)
		return nil
	}

	if err := os.WriteFile(confFile, appendRepoBlock(conf, name, g.group), 0644); err != nil {
		return fmt.Errorf("failed to write gitolite config: %w", err)
	}

	steps := []struct {
		description string
		args        []string
	}{
		{"Updating gitolite config file", []string{"add", adminConfPath}},
		{"Committing gitolite config for " + name, []string{"commit", "-m", "added " + name}},
		{"Pushing updated gitolite config", []string{"push", "origin", adminBranch}},
	}
	for _, s := range steps {
		if err := g.runner.Run(ctx, g.adminDir, s.description, s.args...); err != nil {
			return err
		}
	}
	return nil
}

// appendRepoBlock returns conf with a repository block for name added,
// making sure the existing content ends in a newline first.
func appendRepoBlock(conf []byte, name, group string) []byte {
	var buf bytes.Buffer
	buf.Write(conf)
	if len(conf) > 0 && conf[len(conf)-1] != '\n' {
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "\nrepo    %s\n    RW+  = %s\n", name, group)
	return buf.Bytes()
}

// declaresRepo reports whether conf already has a repo line naming name.
func declaresRepo(conf []byte, name string) bool {
	for _, m := range repoLineRgx.FindAllSubmatch(conf, -1) {
		for _, declared := range strings.Fields(string(m[1])) {
			if declared == name || declared == name+".git" {
				return true
			}
		}
	}
	return false
}
