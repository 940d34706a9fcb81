package git

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
)

// Author is the identity recorded on release commits and tags.
type Author struct {
	Name  string
	Email string
}

// Client performs release operations on one repository.
type Client struct {
	repo   *git.Repository
	root   string
	author Author
	now    func() time.Time
}

// Open finds the repository containing dir (searching parent directories).
func Open(dir string, author Author) (*Client, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, classify(err, "open", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, classify(err, "worktree", dir)
	}
	return &Client{repo: repo, root: wt.Filesystem.Root(), author: author, now: time.Now}, nil
}

// Root returns the worktree root.
func (c *Client) Root() string { return c.root }

// Add stages path, which may be absolute or relative to the worktree root.
func (c *Client) Add(path string) error {
	rel, err := c.relative(path)
	if err != nil {
		return err
	}
	wt, err := c.repo.Worktree()
	if err != nil {
		return classify(err, "add", path)
	}
	if _, err := wt.Add(rel); err != nil {
		return classify(err, "add", path)
	}
	slog.Debug("Staged file", logfields.Path(rel))
	return nil
}

// Commit records the staged changes and returns the new commit hash.
func (c *Client) Commit(message string) (string, error) {
	wt, err := c.repo.Worktree()
	if err != nil {
		return "", classify(err, "commit", message)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: c.signature()})
	if err != nil {
		return "", classify(err, "commit", message)
	}
	slog.Info("Committed release", slog.String("commit", hash.String()[:8]), slog.String("message", message))
	return hash.String(), nil
}

// Tag creates an annotated tag named name on HEAD.
func (c *Client) Tag(name string) error {
	head, err := c.repo.Head()
	if err != nil {
		return classify(err, "tag", name)
	}
	_, err = c.repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Tagger:  c.signature(),
		Message: name,
	})
	if err != nil {
		return classify(err, "tag", name)
	}
	slog.Info("Tagged release", slog.String("tag", name), slog.String("commit", head.Hash().String()[:8]))
	return nil
}

// HasTag reports whether a tag exists.
func (c *Client) HasTag(name string) (bool, error) {
	_, err := c.repo.Tag(name)
	if errors.Is(err, git.ErrTagNotFound) {
		return false, nil
	}
	if err != nil {
		return false, classify(err, "tag", name)
	}
	return true, nil
}

// HeadMessage returns the message of the HEAD commit.
func (c *Client) HeadMessage() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", classify(err, "head", "")
	}
	commit, err := c.repo.CommitObject(head.Hash())
	if err != nil {
		return "", classify(err, "head", head.Hash().String())
	}
	return strings.TrimSpace(commit.Message), nil
}

func (c *Client) signature() *object.Signature {
	return &object.Signature{Name: c.author.Name, Email: c.author.Email, When: c.now()}
}

func (c *Client) relative(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path), nil
	}
	rel, err := filepath.Rel(c.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ferrors.VCSError(fmt.Sprintf("%s is outside the repository", path)).
			WithContext("path", path).
			WithContext("root", c.root).
			Build()
	}
	return filepath.ToSlash(rel), nil
}

// classify translates go-git errors into VCS errors.
func classify(err error, op, subject string) error {
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}
	msg := "git " + op + " failed"
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		msg = "not a git repository"
	case errors.Is(err, git.ErrTagExists):
		msg = fmt.Sprintf("tag %s already exists", subject)
	case errors.Is(err, git.ErrEmptyCommit):
		msg = "nothing to commit"
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		msg = "repository has no commits"
	}
	return ferrors.VCSError(msg).
		WithCause(err).
		WithContext("op", op).
		WithContext("subject", subject).
		Build()
}
