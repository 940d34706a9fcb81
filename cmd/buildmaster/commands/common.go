package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	"git.home.luguber.info/inful/buildmaster/internal/orchestrator"
)

// LogLevelEnv overrides the log level when --verbose is not given.
const LogLevelEnv = "BUILDMASTER_LOG_LEVEL"

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"buildmaster.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build       BuildCmd       `cmd:"" help:"Compile modules and everything they use"`
	Test        TestCmd        `cmd:"" help:"Compile and run configured tests"`
	Package     PackageCmd     `cmd:"" help:"Build packaged artifacts into the dist directory"`
	Docs        DocsCmd        `cmd:"" help:"Generate API documentation"`
	Clean       CleanCmd       `cmd:"" help:"Remove build, report and dist directories"`
	Run         RunCmd         `cmd:"" help:"Run arbitrary tasks by name"`
	Plan        PlanCmd        `cmd:"" help:"Print the execution order of tasks without running them"`
	Release     ReleaseCmd     `cmd:"" help:"Bump the version, build, commit, tag, rename and upload"`
	Site        SiteCmd        `cmd:"" help:"Render the documentation site into the served directory"`
	PublishSite PublishSiteCmd `cmd:"" name:"publish-site" help:"Render the site and upload it"`
	SitePreview SitePreviewCmd `cmd:"" name:"site-preview" help:"Serve the site locally and rebuild on change"`
	History     HistoryCmd     `cmd:"" help:"List recent runs from the journal"`
	Init        InitCmd        `cmd:"" help:"Write an example configuration file"`
	Info        VersionCmd     `cmd:"" name:"info" help:"Show build information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// LoadConfig loads the file named by --config.
func (c *CLI) LoadConfig() (*config.Config, error) {
	return config.Load(c.Config)
}

// parseLogLevel returns debug for --verbose, otherwise the level named by
// BUILDMASTER_LOG_LEVEL, otherwise info.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runTargets opens a session, runs targets and finishes the session.
func runTargets(ctx context.Context, root *CLI, command string, targets []string, tests orchestrator.TestOverrides) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	s, err := orchestrator.Open(ctx, cfg, orchestrator.Options{Command: command, Targets: targets, Tests: tests})
	if err != nil {
		return err
	}
	return s.Finish(s.Run(s.Context(), targets...))
}

// targetsFor maps names to per-item task names, or the aggregate when none
// are given.
func targetsFor(names []string, aggregate string, task func(string) string) []string {
	if len(names) == 0 {
		return []string{aggregate}
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, task(n))
	}
	return out
}

func printf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stdout, format, args...)
}
