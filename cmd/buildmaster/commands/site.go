package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/orchestrator"
	"git.home.luguber.info/inful/buildmaster/internal/site"
)

// SiteCmd implements the 'site' command.
type SiteCmd struct{}

func (c *SiteCmd) Run(ctx context.Context, root *CLI) error {
	return runTargets(ctx, root, "site", []string{orchestrator.TaskSite}, orchestrator.TestOverrides{})
}

// PublishSiteCmd implements the 'publish-site' command.
type PublishSiteCmd struct{}

func (c *PublishSiteCmd) Run(ctx context.Context, root *CLI) error {
	return runTargets(ctx, root, "publish-site", []string{orchestrator.TaskPublishSite}, orchestrator.TestOverrides{})
}

// SitePreviewCmd implements the 'site-preview' command.
type SitePreviewCmd struct {
	Addr string `name:"addr" help:"Listen address (overrides site.preview.addr)"`
}

func (c *SitePreviewCmd) Run(ctx context.Context, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Site.Preview.Addr = c.Addr
	}
	p := site.NewPreview(cfg.Site)
	slog.Info("Starting site preview", slog.String("addr", cfg.Site.Preview.Addr), logfields.Path(p.Dir()))
	printf("Serving %s on http://%s\n", cfg.Site.ContentDir, cfg.Site.Preview.Addr)
	return p.Serve(ctx)
}
