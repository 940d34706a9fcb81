package commands

import (
	"context"

	"git.home.luguber.info/inful/buildmaster/internal/orchestrator"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Modules []string `arg:"" optional:"" help:"Modules to build (default: all)"`
}

func (b *BuildCmd) Run(ctx context.Context, root *CLI) error {
	return runTargets(ctx, root, "build", targetsFor(b.Modules, orchestrator.TaskCompile, orchestrator.BuildTask), orchestrator.TestOverrides{})
}

// TestCmd implements the 'test' command.
type TestCmd struct {
	Modules  []string `arg:"" optional:"" help:"Modules whose configured tests run (default: all)"`
	Coverage bool     `help:"Run every test under the coverage wrapper"`
	Params   []string `short:"p" name:"param" help:"Extra parameter passed to the test engine (repeatable)"`
	Advisory bool     `help:"Record test failures without failing the run"`
}

func (t *TestCmd) Run(ctx context.Context, root *CLI) error {
	overrides := orchestrator.TestOverrides{Coverage: t.Coverage, Params: t.Params, Advisory: t.Advisory}
	return runTargets(ctx, root, "test", targetsFor(t.Modules, orchestrator.TaskTest, orchestrator.TestTask), overrides)
}

// PackageCmd implements the 'package' command.
type PackageCmd struct {
	Names []string `arg:"" optional:"" help:"Packages to build (default: all)"`
}

func (p *PackageCmd) Run(ctx context.Context, root *CLI) error {
	return runTargets(ctx, root, "package", targetsFor(p.Names, orchestrator.TaskPackage, orchestrator.PackageTask), orchestrator.TestOverrides{})
}

// DocsCmd implements the 'docs' command.
type DocsCmd struct {
	Names []string `arg:"" optional:"" help:"Documentation sets to generate (default: all)"`
}

func (d *DocsCmd) Run(ctx context.Context, root *CLI) error {
	return runTargets(ctx, root, "docs", targetsFor(d.Names, orchestrator.TaskDocs, orchestrator.DocsTask), orchestrator.TestOverrides{})
}

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(ctx context.Context, root *CLI) error {
	return runTargets(ctx, root, "clean", []string{orchestrator.TaskClean}, orchestrator.TestOverrides{})
}

// RunCmd implements the 'run' command.
type RunCmd struct {
	Tasks []string `arg:"" help:"Task names, e.g. build:core test:ftp package:cotta"`
}

func (r *RunCmd) Run(ctx context.Context, root *CLI) error {
	return runTargets(ctx, root, "run", r.Tasks, orchestrator.TestOverrides{})
}
