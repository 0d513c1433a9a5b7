// Package git runs the version-control operations a mirror run needs.
//
// Runner is the single entry point for subprocess execution: it runs
// `git <args>` in a working directory and turns a non-zero exit into an
// *errors.CommandError carrying the captured stderr. There is no retry
// logic here; callers decide what a failure means.
//
// The helpers in mirror.go name the handful of commands the pipeline uses
// (mirror clone, prune fetch, mirror push, ls-remote) so that fakes in tests
// can match on stable argument lists.
//
// RemoteProber answers "is there a repository at this URL" without touching
// the filesystem, using go-git's in-process remote listing.
//
// Thread Safety:
//
// ExecRunner and RemoteProber hold no mutable state and may be shared by
// concurrent sync tasks. Callers must not run two commands against the same
// local directory at once.
package git
