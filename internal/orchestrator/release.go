package orchestrator

import (
	"context"

	"git.home.luguber.info/inful/buildmaster/internal/eventstore"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/git"
	"git.home.luguber.info/inful/buildmaster/internal/notify"
	"git.home.luguber.info/inful/buildmaster/internal/release"
	"git.home.luguber.info/inful/buildmaster/internal/site"
	"git.home.luguber.info/inful/buildmaster/internal/transport"
	"git.home.luguber.info/inful/buildmaster/internal/versioning"
)

// ReleaseRequest selects where a release run starts.
type ReleaseRequest struct {
	From   release.Step // Empty runs the full release
	Label  string       // Label of the release in progress, required with From
	Resume bool         // Continue from the last journaled release step
}

// Coordinator assembles a release coordinator from the release configuration.
// Its build step runs through this session's scheduler.
func (s *Session) Coordinator() (*release.Coordinator, error) {
	rc := s.Config.Release
	if rc.Record == "" {
		return nil, ferrors.ConfigError("release.record is not configured").Build()
	}

	vcs, err := git.Open(s.Config.Project.Root, git.Author{Name: rc.Author.Name, Email: rc.Author.Email})
	if err != nil {
		return nil, err
	}
	target, err := transport.NewTarget(rc.Transport, s.runner)
	if err != nil {
		return nil, err
	}

	var announcer notify.Announcer = notify.Nop{}
	if rc.Announce.Enabled() {
		announcer = notify.NewNATSAnnouncer(rc.Announce.NATSURL, rc.Announce.Subject)
	}

	return release.New(release.Options{
		Project:      s.Config.Project.Name,
		RunID:        s.RunID,
		Record:       versioning.NewStore(rc.Record, rc.NumberKey, rc.BuildKey),
		VCS:          vcs,
		Build:        s.Run,
		BuildTargets: rc.BuildTargets,
		DistDir:      s.Config.Project.DistDir,
		Artifacts:    rc.Artifacts,
		Target:       target,
		TagPrefix:    rc.TagPrefix,
		CommitPrefix: rc.CommitPrefix,
		Announcer:    announcer,
		Journal:      s.Journal,
		Recorder:     s.Recorder,
	}), nil
}

// Release runs the release described by req.
func (s *Session) Release(ctx context.Context, req ReleaseRequest) (release.Result, error) {
	c, err := s.Coordinator()
	if err != nil {
		return release.Result{}, err
	}

	switch {
	case req.Resume:
		// The current run has journaled nothing yet, so the latest step
		// event belongs to an earlier run.
		pos, found, err := eventstore.LastReleasePosition(ctx, s.store)
		if err != nil {
			return release.Result{}, err
		}
		if !found {
			return release.Result{}, ferrors.ValidationError("no journaled release to resume").Build()
		}
		return c.Resume(ctx, pos)
	case req.From != "":
		return c.RunFrom(ctx, req.From, req.Label)
	default:
		return c.Run(ctx)
	}
}

// SiteBuilder assembles the site builder, with an upload target when the
// site transport names a remote.
func (s *Session) SiteBuilder() (*site.Builder, error) {
	sc := s.Config.Site
	var target *transport.Target
	if sc.Transport.Remote != "" {
		t, err := transport.NewTarget(sc.Transport, s.runner)
		if err != nil {
			return nil, err
		}
		target = &t
	}
	return site.NewBuilder(sc, target)
}
