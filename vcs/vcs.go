// Package vcs records a publish in the project's git repository.
// Every failure here is a warning: the artifact is already published.
package vcs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/logger"
)

// Author identifies the commits refresh creates
type Author struct {
	Name  string
	Email string
}

// Committer stages every working-tree change and commits it
type Committer struct {
	root    string
	author  Author
	timeout time.Duration
	now     func() time.Time
	logger  *zap.SugaredLogger
}

// New creates a committer for the repository containing root
func New(root string, author Author, timeout time.Duration, log *zap.SugaredLogger) *Committer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Committer{root: root, author: author, timeout: timeout, now: time.Now, logger: log}
}

// Message builds the commit message for a published version
func Message(version, sourceName string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "feat(data): update to version %s\n\n", version)
	fmt.Fprintf(&b, "Data update from: %s\n", sourceName)
	fmt.Fprintf(&b, "Updated on: %s\n", at.Format("2006-01-02"))
	fmt.Fprintf(&b, "Dashboard version: %s\n\n", version)
	b.WriteString("Auto-generated by refresh\n")
	return b.String()
}

// Commit stages all changes and commits them with Message. It returns the
// new commit hash. Failures are marked ErrVCSUnavailable when there is no
// repository and ErrVCSCommitFailed otherwise.
//
// go-git calls cannot be interrupted, so the timeout and ctx are checked
// between steps; once Commit returns nothing is left writing to .git.
func (c *Committer) Commit(ctx context.Context, version, sourceName string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	hash, err := c.commit(ctx, version, sourceName)
	if err != nil {
		return "", err
	}
	logger.FromContext(ctx, c.logger).Infow("Committed published data",
		logger.FieldVersion, version,
		"commit", hash[:7],
	)
	return hash, nil
}

func interrupted(ctx context.Context, step string) error {
	if err := ctx.Err(); err != nil {
		return errors.Mark(errors.Wrapf(err, "commit stopped before %s", step), errors.ErrVCSCommitFailed)
	}
	return nil
}

func (c *Committer) commit(ctx context.Context, version, sourceName string) (string, error) {
	if err := interrupted(ctx, "opening the repository"); err != nil {
		return "", err
	}
	repo, err := git.PlainOpenWithOptions(c.root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", errors.WithHint(
				errors.Mark(errors.Newf("%s is not inside a git repository", c.root), errors.ErrVCSUnavailable),
				"run `git init` in the project root or drop --commit",
			)
		}
		return "", errors.Mark(errors.Wrap(err, "failed to open repository"), errors.ErrVCSUnavailable)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "repository has no worktree"), errors.ErrVCSUnavailable)
	}

	if err := interrupted(ctx, "staging"); err != nil {
		return "", err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", errors.Mark(errors.Wrap(err, "failed to stage changes"), errors.ErrVCSCommitFailed)
	}

	if err := interrupted(ctx, "committing"); err != nil {
		return "", err
	}
	now := c.now()
	hash, err := wt.Commit(Message(version, sourceName, now), &git.CommitOptions{
		Author: &object.Signature{
			Name:  c.author.Name,
			Email: c.author.Email,
			When:  now,
		},
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", errors.WithHint(
				errors.Mark(errors.Wrap(err, "nothing to commit"), errors.ErrVCSCommitFailed),
				"the published artifact did not change",
			)
		}
		return "", errors.Mark(errors.Wrap(err, "commit rejected"), errors.ErrVCSCommitFailed)
	}
	return hash.String(), nil
}
