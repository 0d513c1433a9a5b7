package git

import (
	"context"
	"os"
	"path/filepath"
)

const (
	mirrorSuffix = ".git"
	wikiSuffix   = ".wiki.git"
)

// MirrorDirName is the local directory name of a repository mirror.
func MirrorDirName(name string) string {
	return name + mirrorSuffix
}

// WikiDirName is the local directory name of a repository's wiki mirror.
func WikiDirName(name string) string {
	return name + wikiSuffix
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// CloneMirror creates root/dirName as a mirror clone of url.
func CloneMirror(ctx context.Context, r Runner, root, url, dirName, description string) error {
	return r.Run(ctx, root, description, "clone", "--mirror", url, dirName)
}

// FetchPrune updates an existing mirror, dropping refs deleted upstream.
func FetchPrune(ctx context.Context, r Runner, dir, description string) error {
	return r.Run(ctx, dir, description, "fetch", "-p", "origin")
}

// PushMirror pushes every ref of the mirror at dir to remote.
func PushMirror(ctx context.Context, r Runner, dir, remote, description string) error {
	return r.Run(ctx, dir, description, "push", "--mirror", remote)
}

// SetPushURL points the push URL of origin at remote.
func SetPushURL(ctx context.Context, r Runner, dir, remote, description string) error {
	return r.Run(ctx, dir, description, "remote", "set-url", "--push", "origin", remote)
}

// LsRemote lists the refs of remote. It fails when remote is unreachable
// or does not exist.
func LsRemote(ctx context.Context, r Runner, dir, remote, description string) error {
	return r.Run(ctx, dir, description, "ls-remote", remote)
}

// UpdateMirror clones url into root/dirName when that directory is absent
// and fetches into it otherwise. It reports whether a clone happened.
func UpdateMirror(ctx context.Context, r Runner, root, dirName, url, label string) (bool, error) {
	dir := filepath.Join(root, dirName)
	if DirExists(dir) {
		return false, FetchPrune(ctx, r, dir, "Fetching latest version of "+label)
	}
	return true, CloneMirror(ctx, r, root, url, dirName, "Mirror cloning "+label)
}
