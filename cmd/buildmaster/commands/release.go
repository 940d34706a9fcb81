package commands

import (
	"context"
	"strings"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/orchestrator"
	"git.home.luguber.info/inful/buildmaster/internal/release"
)

// ReleaseCmd implements the 'release' command.
type ReleaseCmd struct {
	From   string `name:"from" help:"Start at this step (bump, build, commit, tag, rename, upload)"`
	Label  string `name:"label" help:"Label of the release in progress, required with --from after bump"`
	Resume bool   `name:"resume" help:"Continue the last journaled release"`
}

func (r *ReleaseCmd) Validate() error {
	if r.Resume && r.From != "" {
		return ferrors.ValidationError("--resume and --from are mutually exclusive").Build()
	}
	if r.From != "" {
		if _, err := release.ParseStep(r.From); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReleaseCmd) Run(ctx context.Context, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	s, err := orchestrator.Open(ctx, cfg, orchestrator.Options{Command: "release"})
	if err != nil {
		return err
	}

	res, err := s.Release(s.Context(), orchestrator.ReleaseRequest{
		From:   release.Step(r.From),
		Label:  r.Label,
		Resume: r.Resume,
	})
	if err == nil {
		printf("Released %s (tag %s)\n", res.Label, res.Tag)
		if len(res.Uploaded) > 0 {
			printf("Uploaded: %s\n", strings.Join(res.Uploaded, ", "))
		}
	}
	return s.Finish(err)
}
