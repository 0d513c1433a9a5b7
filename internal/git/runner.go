package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NicabarNimble/ghmirror/internal/errors"
	"github.com/NicabarNimble/ghmirror/internal/urlutils"
)

// Runner executes a git command in a directory. description is the
// human-readable progress message and is also used to label failures.
type Runner interface {
	Run(ctx context.Context, dir, description string, args ...string) error
}

// ExecRunner runs the git executable found on PATH.
type ExecRunner struct {
	Log logrus.FieldLogger
	// Env is appended to the process environment.
	Env []string
	// Executable defaults to "git".
	Executable string
}

// NewRunner returns an ExecRunner logging to log.
func NewRunner(log logrus.FieldLogger) *ExecRunner {
	return &ExecRunner{Log: log}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir, description string, args ...string) error {
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	bin := r.Executable
	if bin == "" {
		bin = "git"
	}

	cmdStr := urlutils.Redact(bin + " " + strings.Join(args, " "))
	if description == "" {
		description = cmdStr
	}
	log.Info(description)
	log.WithField("cwd", dir).Debugf("running %s", cmdStr)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	outbuf := bytes.NewBuffer(nil)
	errbuf := bytes.NewBuffer(nil)
	cmd.Stdout = outbuf
	cmd.Stderr = errbuf

	// Never block on an interactive credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, r.Env...)

	start := time.Now()
	err := cmd.Run()
	runTime := time.Since(start)

	stderr := urlutils.Redact(strings.TrimSpace(errbuf.String()))
	if err != nil {
		return &errors.CommandError{
			Description: description,
			Stderr:      stderr,
			Err:         err,
		}
	}
	log.WithFields(logrus.Fields{
		"cmd":    cmdStr,
		"stdout": urlutils.Redact(strings.TrimSpace(outbuf.String())),
		"stderr": stderr,
		"time":   runTime,
	}).Debug("command result")

	return nil
}
