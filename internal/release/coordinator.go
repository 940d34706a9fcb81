package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/buildmaster/internal/eventstore"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/metrics"
	"git.home.luguber.info/inful/buildmaster/internal/notify"
	"git.home.luguber.info/inful/buildmaster/internal/observability"
	"git.home.luguber.info/inful/buildmaster/internal/packager"
	"git.home.luguber.info/inful/buildmaster/internal/transport"
	"git.home.luguber.info/inful/buildmaster/internal/versioning"
)

// VersionRecord reads and bumps the Version Record.
type VersionRecord interface {
	Path() string
	Read() (versioning.Record, error)
	Bump() (versioning.Record, error)
}

// VCS records the release in version control.
type VCS interface {
	Add(path string) error
	Commit(message string) (string, error)
	Tag(name string) error
}

// Journal persists release step outcomes.
type Journal interface {
	ReleaseStepCompleted(ctx context.Context, step, label, state string) error
	ReleaseStepFailed(ctx context.Context, step, label string, err error) error
}

// BuildFunc runs build targets through the task scheduler.
type BuildFunc func(ctx context.Context, targets ...string) error

// Options configures a Coordinator.
type Options struct {
	Project      string
	RunID        string
	Record       VersionRecord
	VCS          VCS
	Build        BuildFunc
	BuildTargets []string
	DistDir      string
	Artifacts    []string // Packaged artifact names, e.g. "cotta" for cotta.jar and cotta-src.zip
	Target       transport.Target
	TagPrefix    string
	CommitPrefix string
	Announcer    notify.Announcer
	Journal      Journal
	Recorder     metrics.Recorder
}

// Result describes a finished release run.
type Result struct {
	Label    string
	Tag      string
	Commit   string
	Steps    []Step
	Uploaded []string
}

// Coordinator drives one release through its state machine.
type Coordinator struct {
	opts   Options
	state  State
	label  string
	result Result
}

// New creates a coordinator in the idle state.
func New(opts Options) *Coordinator {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Announcer == nil {
		opts.Announcer = notify.Nop{}
	}
	return &Coordinator{opts: opts, state: StateIdle}
}

// State returns the current state.
func (c *Coordinator) State() State { return c.state }

// Label returns the label of the release in progress.
func (c *Coordinator) Label() string { return c.label }

// Run performs a full release starting with the bump.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	return c.RunFrom(ctx, StepBump, "")
}

// RunFrom performs the steps from the given one onwards. Every step after
// the bump needs the label of the release in progress.
func (c *Coordinator) RunFrom(ctx context.Context, from Step, label string) (Result, error) {
	if _, err := ParseStep(string(from)); err != nil {
		return Result{}, err
	}
	if from != StepBump {
		if err := c.checkLabel(label); err != nil {
			return Result{}, err
		}
		c.label = label
		c.result.Label = label
		c.result.Tag = c.tagName()
	}
	c.state = from.Before()

	started := false
	for _, step := range Steps {
		if step == from {
			started = true
		}
		if !started {
			continue
		}
		if err := c.runStep(ctx, step); err != nil {
			return c.result, err
		}
	}

	c.announce(ctx)
	c.state = StateIdle
	return c.result, nil
}

// checkLabel rejects malformed labels and labels ahead of the version record.
func (c *Coordinator) checkLabel(label string) error {
	if _, _, err := versioning.ParseLabel(label); err != nil {
		return err
	}
	rec, err := c.opts.Record.Read()
	if err != nil {
		return err
	}
	cmp, err := versioning.CompareLabels(label, rec.Label())
	if err != nil {
		return err
	}
	if cmp > 0 {
		return ferrors.ValidationError(fmt.Sprintf("release %s is ahead of the version record (%s)", label, rec.Label())).
			WithContext("label", label).
			WithContext("path", c.opts.Record.Path()).
			Build()
	}
	return nil
}

// Resume continues the release recorded at pos: a failed step is retried,
// otherwise the run continues with the step after the last completed one.
func (c *Coordinator) Resume(ctx context.Context, pos eventstore.ReleasePosition) (Result, error) {
	from, err := ResumeStep(pos)
	if err != nil {
		return Result{}, err
	}
	observability.InfoContext(ctx, "Resuming release", logfields.Label(pos.Label), logfields.Step(string(from)))
	return c.RunFrom(ctx, from, pos.Label)
}

// ResumeStep returns the step a resumed release starts at.
func ResumeStep(pos eventstore.ReleasePosition) (Step, error) {
	step, err := ParseStep(pos.Step)
	if err != nil {
		return "", err
	}
	if pos.Failed {
		return step, nil
	}
	next, ok := step.Next()
	if !ok {
		return "", ferrors.ValidationError(fmt.Sprintf("release %s already completed", pos.Label)).
			WithContext("label", pos.Label).
			Build()
	}
	return next, nil
}

func (c *Coordinator) runStep(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = observability.WithStep(ctx, string(step))
	observability.InfoContext(ctx, "Release step started", logfields.Label(c.label))

	start := time.Now()
	err := c.execute(ctx, step)
	elapsed := time.Since(start)

	c.opts.Recorder.IncReleaseStep(string(step), metrics.ResultFor(err))
	if err != nil {
		observability.ErrorContext(ctx, "Release step failed", logfields.Label(c.label), logfields.Duration(elapsed), logfields.Error(err))
		c.journalFailed(ctx, step, err)
		return err
	}

	c.state = step.After()
	c.result.Steps = append(c.result.Steps, step)
	observability.InfoContext(ctx, "Release step finished",
		logfields.Label(c.label), logfields.Duration(elapsed), slog.String("state", string(c.state)))
	c.journalCompleted(ctx, step)
	return nil
}

func (c *Coordinator) execute(ctx context.Context, step Step) error {
	switch step {
	case StepBump:
		return c.bump()
	case StepBuild:
		return c.build(ctx)
	case StepCommit:
		return c.commit()
	case StepTag:
		return c.tag()
	case StepRename:
		return c.rename()
	case StepUpload:
		return c.upload(ctx)
	default:
		return ferrors.InternalError(fmt.Sprintf("unhandled release step %s", step)).Build()
	}
}

func (c *Coordinator) bump() error {
	rec, err := c.opts.Record.Bump()
	if err != nil {
		return err
	}
	c.label = rec.Label()
	c.result.Label = c.label
	c.result.Tag = c.tagName()
	return nil
}

func (c *Coordinator) build(ctx context.Context) error {
	if c.opts.Build == nil || len(c.opts.BuildTargets) == 0 {
		return nil
	}
	return c.opts.Build(ctx, c.opts.BuildTargets...)
}

func (c *Coordinator) commit() error {
	if err := c.opts.VCS.Add(c.opts.Record.Path()); err != nil {
		return c.vcsFailure(StepCommit, "cannot stage version record", err)
	}
	hash, err := c.opts.VCS.Commit(c.commitMessage())
	if err != nil {
		return c.vcsFailure(StepCommit, "cannot commit version record", err)
	}
	c.result.Commit = hash
	return nil
}

func (c *Coordinator) tag() error {
	if err := c.opts.VCS.Tag(c.tagName()); err != nil {
		return c.vcsFailure(StepTag, fmt.Sprintf("cannot create tag %s", c.tagName()), err)
	}
	return nil
}

// vcsFailure reports a version-control error as a transport failure of the
// step. A classified cause keeps its own category in the chain.
func (c *Coordinator) vcsFailure(step Step, msg string, err error) error {
	return ferrors.TransportFailure(msg).
		WithCause(err).
		WithContext("step", string(step)).
		WithContext("label", c.label).
		Build()
}

type renamePair struct {
	from, to string
}

// renamePairs lists every unversioned artifact with its versioned name.
func (c *Coordinator) renamePairs() []renamePair {
	pairs := make([]renamePair, 0, 2*len(c.opts.Artifacts))
	for _, name := range c.opts.Artifacts {
		pairs = append(pairs,
			renamePair{packager.CompiledName(name), packager.VersionedCompiledName(name, c.label)},
			renamePair{packager.SourceName(name), packager.VersionedSourceName(name, c.label)},
		)
	}
	return pairs
}

// rename checks every source before moving anything. Pairs whose target
// already exists and whose source is gone were renamed by an earlier run.
func (c *Coordinator) rename() error {
	var pending []renamePair
	var missing []string
	for _, p := range c.renamePairs() {
		from := filepath.Join(c.opts.DistDir, p.from)
		to := filepath.Join(c.opts.DistDir, p.to)
		switch {
		case isFile(from):
			pending = append(pending, p)
		case isFile(to):
			slog.Debug("Artifact already renamed", logfields.Artifact(p.to))
		default:
			missing = append(missing, p.from)
		}
	}
	if len(missing) > 0 {
		return ferrors.ArtifactNotFound(fmt.Sprintf("missing artifacts in %s: %s", c.opts.DistDir, strings.Join(missing, ", "))).
			WithContext("path", c.opts.DistDir).
			WithContext("artifacts", missing).
			WithContext("label", c.label).
			Build()
	}

	for _, p := range pending {
		from := filepath.Join(c.opts.DistDir, p.from)
		to := filepath.Join(c.opts.DistDir, p.to)
		if err := os.Rename(from, to); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, fmt.Sprintf("rename %s to %s", p.from, p.to)).
				WithContext("path", from).
				Build()
		}
		slog.Info("Renamed artifact", logfields.Artifact(p.to))
	}
	return nil
}

func (c *Coordinator) upload(ctx context.Context) error {
	c.result.Uploaded = nil
	for _, p := range c.renamePairs() {
		local := filepath.Join(c.opts.DistDir, p.to)
		if !isFile(local) {
			return ferrors.ArtifactNotFound(fmt.Sprintf("artifact %s not found", p.to)).
				WithContext("path", local).
				WithContext("label", c.label).
				Build()
		}
		if err := c.opts.Target.Upload(ctx, local, p.to); err != nil {
			var ce *ferrors.ClassifiedError
			if errors.As(err, &ce) {
				return ce.WithContext("artifact", p.to)
			}
			return ferrors.TransportFailure(fmt.Sprintf("upload %s failed", p.to)).
				WithCause(err).
				WithContext("artifact", p.to).
				Build()
		}
		c.result.Uploaded = append(c.result.Uploaded, p.to)
	}
	return nil
}

// announce publishes the release; a failure only produces a warning.
func (c *Coordinator) announce(ctx context.Context) {
	if c.state != StateUploaded {
		return
	}
	err := c.opts.Announcer.Announce(ctx, notify.Release{
		Project:   c.opts.Project,
		Label:     c.label,
		Tag:       c.tagName(),
		Artifacts: c.result.Uploaded,
		Remote:    c.opts.Target.Remote,
		RunID:     c.opts.RunID,
		Time:      time.Now().UTC(),
	})
	if err != nil {
		observability.WarnContext(ctx, "Release announcement failed", logfields.Label(c.label), logfields.Error(err))
	}
}

func (c *Coordinator) journalCompleted(ctx context.Context, step Step) {
	if c.opts.Journal == nil {
		return
	}
	if err := c.opts.Journal.ReleaseStepCompleted(ctx, string(step), c.label, string(c.state)); err != nil {
		observability.WarnContext(ctx, "Failed to journal release step", logfields.Error(err))
	}
}

func (c *Coordinator) journalFailed(ctx context.Context, step Step, stepErr error) {
	if c.opts.Journal == nil {
		return
	}
	if err := c.opts.Journal.ReleaseStepFailed(ctx, string(step), c.label, stepErr); err != nil {
		observability.WarnContext(ctx, "Failed to journal release step", logfields.Error(err))
	}
}

func (c *Coordinator) tagName() string { return c.opts.TagPrefix + c.label }

func (c *Coordinator) commitMessage() string {
	return strings.TrimSpace(c.opts.CommitPrefix + " " + c.label)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
