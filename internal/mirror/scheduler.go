package mirror

import (
	"context"
	"sort"
	"strings"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/NicabarNimble/ghmirror/internal/git"
	"github.com/NicabarNimble/ghmirror/internal/github"
)

// DefaultConcurrency is the group size used when none is configured.
const DefaultConcurrency = 4

// Scheduler runs a Task over many repositories in consecutive groups of at
// most Concurrency. A group starts only once the previous one has drained,
// and a failing repository never stops the others.
type Scheduler struct {
	task        Task
	concurrency int
	log         logrus.FieldLogger

	failures cmap.ConcurrentMap[string, Result]
}

// NewScheduler returns a Scheduler running task with the given group size.
func NewScheduler(task Task, concurrency int, log logrus.FieldLogger) *Scheduler {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		task:        task,
		concurrency: concurrency,
		log:         log,
		failures:    cmap.New[Result](),
	}
}

// Groups splits repos into consecutive chunks of at most size.
func Groups(repos []github.Repository, size int) [][]github.Repository {
	if size < 1 {
		size = 1
	}
	var groups [][]github.Repository
	for start := 0; start < len(repos); start += size {
		end := start + size
		if end > len(repos) {
			end = len(repos)
		}
		groups = append(groups, repos[start:end])
	}
	return groups
}

// RunAll syncs every repository and returns one Result per repository in
// input order.
func (s *Scheduler) RunAll(ctx context.Context, repos []github.Repository) []Result {
	results := make([]Result, len(repos))
	groups := Groups(repos, s.concurrency)
	for name, owners := range nameCollisions(repos) {
		s.log.WithField("repo", name).Warnf("Repositories %s share the local mirror directory %s",
			strings.Join(owners, ", "), git.MirrorDirName(name))
	}

	offset := 0
	for i, group := range groups {
		s.log.Debugf("Starting group %d/%d (%d repositories)", i+1, len(groups), len(group))
		s.runGroup(ctx, group, results[offset:offset+len(group)])
		offset += len(group)
	}
	return results
}

func (s *Scheduler) runGroup(ctx context.Context, group []github.Repository, results []Result) {
	// Tasks never return their error to the group, so one failure does
	// not cancel the context of its siblings.
	eg, egCtx := errgroup.WithContext(ctx)
	for i := range group {
		i, repo := i, group[i]
		eg.Go(func() error {
			res := s.task.Sync(egCtx, repo)
			results[i] = res
			if res.Failed() {
				s.failures.Set(repo.Key(), res)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// nameCollisions maps each repository name listed more than once to the
// full names carrying it. Local mirrors are keyed by name only.
func nameCollisions(repos []github.Repository) map[string][]string {
	byName := make(map[string][]string)
	for _, r := range repos {
		byName[r.Name] = append(byName[r.Name], r.Key())
	}
	for name, keys := range byName {
		if len(keys) < 2 {
			delete(byName, name)
		}
	}
	return byName
}

// Failures returns the failed results collected so far, keyed and sorted
// by full repository name.
func (s *Scheduler) Failures() []Result {
	items := s.failures.Items()
	failures := make([]Result, 0, len(items))
	for _, r := range items {
		failures = append(failures, r)
	}
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Repo < failures[j].Repo
	})
	return failures
}
