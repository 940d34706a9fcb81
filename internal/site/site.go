package site

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/transport"
	"git.home.luguber.info/inful/buildmaster/internal/workspace"
)

// Report is a directory copied into the served tree.
type Report struct {
	Source string
	Target string // Path below the served directory
}

// Builder renders the site into the served directory and uploads it.
type Builder struct {
	renderer   *Renderer
	contentDir string
	serveDir   string
	reports    []Report
	target     *transport.Target
}

// NewBuilder creates a builder from the site configuration. target may be
// nil when the site is not uploaded.
func NewBuilder(cfg config.SiteConfig, target *transport.Target) (*Builder, error) {
	renderer, err := NewRenderer(cfg.Template, cfg.Properties)
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(cfg.Reports))
	for _, r := range cfg.Reports {
		reports = append(reports, Report{Source: r.Source, Target: r.Target})
	}
	return &Builder{
		renderer:   renderer,
		contentDir: cfg.ContentDir,
		serveDir:   cfg.ServeDir,
		reports:    reports,
		target:     target,
	}, nil
}

// ServeDir returns the served directory.
func (b *Builder) ServeDir() string { return b.serveDir }

// Build renders the content tree into a staging directory next to the
// served directory, copies the reports in, then deletes the served
// directory and moves the stage into its place.
func (b *Builder) Build(ctx context.Context) (Stats, error) {
	start := time.Now()
	parent := filepath.Dir(b.serveDir)
	stage := workspace.NewManager(parent, "site")
	if err := stage.Create(); err != nil {
		return Stats{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot create site stage").
			WithContext("path", parent).
			Build()
	}
	defer func() {
		if err := stage.Cleanup(); err != nil {
			slog.Warn("Failed to remove site stage", logfields.Path(stage.GetPath()), logfields.Error(err))
		}
	}()

	stats, err := b.renderer.RenderTree(ctx, b.contentDir, stage.GetPath())
	if err != nil {
		return stats, err
	}
	if err := b.copyReports(stage.GetPath()); err != nil {
		return stats, err
	}

	if err := os.RemoveAll(b.serveDir); err != nil {
		return stats, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot remove served directory").
			WithContext("path", b.serveDir).
			Build()
	}
	if err := os.Rename(stage.GetPath(), b.serveDir); err != nil {
		return stats, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot move site into place").
			WithContext("path", b.serveDir).
			Build()
	}
	stage.Release()
	if err := os.Chmod(b.serveDir, 0o755); err != nil {
		slog.Warn("Failed to set served directory permissions", logfields.Path(b.serveDir), logfields.Error(err))
	}

	slog.Info("Site built",
		logfields.Path(b.serveDir),
		slog.Int("rendered", stats.Rendered),
		slog.Int("copied", stats.Copied),
		logfields.Duration(time.Since(start)))
	return stats, nil
}

// copyReports copies each report directory into root. A missing report
// source is skipped with a warning.
func (b *Builder) copyReports(root string) error {
	for _, r := range b.reports {
		if !fsutil.Exists(r.Source) {
			slog.Warn("Site report not found; skipping", logfields.Path(r.Source))
			continue
		}
		dst := filepath.Join(root, filepath.FromSlash(r.Target))
		if err := fsutil.CopyDir(r.Source, dst); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, fmt.Sprintf("cannot copy report %s", r.Target)).
				WithContext("path", r.Source).
				Build()
		}
		slog.Debug("Copied site report", logfields.Path(r.Source), slog.String("target", r.Target))
	}
	return nil
}

// Publish builds the site and uploads the served directory to the site remote.
func (b *Builder) Publish(ctx context.Context) (Stats, error) {
	stats, err := b.Build(ctx)
	if err != nil {
		return stats, err
	}
	if b.target == nil || b.target.Remote == "" {
		slog.Info("No site remote configured; skipping upload")
		return stats, nil
	}
	if err := b.target.Transport.Copy(ctx, b.serveDir, b.target.Remote); err != nil {
		return stats, err
	}
	slog.Info("Site published", logfields.Remote(b.target.Remote))
	return stats, nil
}
