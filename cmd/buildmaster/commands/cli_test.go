package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	"git.home.luguber.info/inful/buildmaster/internal/orchestrator"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli,
		kong.Name("buildmaster"),
		kong.Vars{"version": "test"},
		kong.BindTo(t.Context(), (*context.Context)(nil)),
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)
	return parser
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		env     string
		verbose bool
		want    slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"", true, slog.LevelDebug},
		{"error", true, slog.LevelDebug},
		{"WARN", false, slog.LevelWarn},
		{"debug", false, slog.LevelDebug},
		{"error", false, slog.LevelError},
		{"bogus", false, slog.LevelInfo},
	}
	for _, tc := range cases {
		t.Setenv(LogLevelEnv, tc.env)
		assert.Equal(t, tc.want, parseLogLevel(tc.verbose), "env=%q verbose=%v", tc.env, tc.verbose)
	}
}

func TestTargetsFor(t *testing.T) {
	assert.Equal(t, []string{"compile"}, targetsFor(nil, orchestrator.TaskCompile, orchestrator.BuildTask))
	assert.Equal(t, []string{"build:core", "build:ftp"}, targetsFor([]string{"core", "ftp"}, orchestrator.TaskCompile, orchestrator.BuildTask))
}

func TestParseTestFlags(t *testing.T) {
	var cli CLI
	_, err := newParser(t, &cli).Parse([]string{"-c", "x.yaml", "test", "core", "--coverage", "--param=-Xmx1g", "--param=-ea"})
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, cli.Test.Modules)
	assert.True(t, cli.Test.Coverage)
	assert.Equal(t, []string{"-Xmx1g", "-ea"}, cli.Test.Params)
	assert.Equal(t, "x.yaml", filepath.Base(cli.Config))
}

func TestReleaseValidation(t *testing.T) {
	var cli CLI
	_, err := newParser(t, &cli).Parse([]string{"release", "--from", "tag", "--label", "1.0b42"})
	require.NoError(t, err)
	assert.Equal(t, "tag", cli.Release.From)

	_, err = newParser(t, &CLI{}).Parse([]string{"release", "--from", "deploy"})
	require.Error(t, err)

	_, err = newParser(t, &CLI{}).Parse([]string{"release", "--from", "tag", "--resume"})
	require.Error(t, err)
}

func TestInitThenPlan(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.DefaultFile)
	require.NoError(t, RunInit(cfgPath, false))
	require.Error(t, RunInit(cfgPath, false))
	require.NoError(t, RunInit(cfgPath, true))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	s, err := orchestrator.Open(t.Context(), cfg, orchestrator.Options{Command: "plan"})
	require.NoError(t, err)
	plan, err := s.Plan(orchestrator.PackageTask("cotta"))
	require.NoError(t, err)
	require.NoError(t, s.Finish(nil))

	assert.Equal(t, []string{"build:asserts", "build:testbase", "build:core", "build:ftp", "package:cotta"}, plan)
	_, err = os.Stat(cfg.Journal.Path)
	assert.NoError(t, err)
}
