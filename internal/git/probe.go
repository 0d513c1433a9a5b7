package git

import (
	"context"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Prober checks whether a remote repository exists.
type Prober interface {
	Exists(ctx context.Context, url string) bool
}

// RemoteProber lists the refs of a remote in memory. Any failure, including
// authentication being required, is reported as absence.
type RemoteProber struct {
	// Token is sent as basic auth password for http(s) remotes.
	Token string
}

// Exists implements Prober.
func (p *RemoteProber) Exists(ctx context.Context, url string) bool {
	remote := gogit.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})

	opts := &gogit.ListOptions{}
	if p.Token != "" && isHTTP(url) {
		opts.Auth = &githttp.BasicAuth{
			Username: "git",
			Password: p.Token,
		}
	}

	refs, err := remote.ListContext(ctx, opts)
	return err == nil && len(refs) > 0
}

func isHTTP(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
