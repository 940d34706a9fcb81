package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	"git.home.luguber.info/inful/buildmaster/internal/eventstore"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/git"
	"git.home.luguber.info/inful/buildmaster/internal/toolchain"
	"git.home.luguber.info/inful/buildmaster/internal/versioning"
)

// fakeRunner plays javac by writing one class file into the -d directory,
// and answers every other command with testCode.
type fakeRunner struct {
	calls    [][]string
	testCode int
}

func (f *fakeRunner) Run(_ context.Context, inv toolchain.Invocation) (int, string, error) {
	f.calls = append(f.calls, slices.Clone(inv.Args))
	if inv.Args[0] != "javac" {
		return f.testCode, "", nil
	}
	out := inv.Args[2]
	if err := os.MkdirAll(out, 0o750); err != nil {
		return 0, "", err
	}
	return 0, "", os.WriteFile(filepath.Join(out, "Compiled.class"), []byte("bytecode"), 0o600)
}

func (f *fakeRunner) count(tool string) int {
	n := 0
	for _, c := range f.calls {
		if c[0] == tool {
			n++
		}
	}
	return n
}

const projectYAML = `
version: "1"
project:
  name: cotta
modules:
  - name: asserts
  - name: core
    test_source: test
    uses: [asserts]
  - name: ftp
    uses: [core]
    tests_with: [asserts]
toolchain:
  compile: [javac, -d, "{output}", "@sources"]
  test: [runtests, "@params", "@tests"]
  coverage: [cover, --]
tests:
  - module: core
    pattern: "*Test.java"
    params: [-Xmx512m]
packages:
  - name: cotta
    primary: core
    embed: [ftp]
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newProject(t *testing.T, yamlText string) *config.Config {
	t.Helper()
	root := t.TempDir()
	for _, m := range []string{"asserts", "core", "ftp"} {
		writeFile(t, filepath.Join(root, m, "src", "pkg", m+".java"), "class X {}")
	}
	writeFile(t, filepath.Join(root, "core", "test", "pkg", "CoreTest.java"), "class CoreTest {}")
	cfg, err := config.Parse([]byte(yamlText), root)
	require.NoError(t, err)
	return cfg
}

func openSession(t *testing.T, cfg *config.Config, runner *fakeRunner, opts Options) *Session {
	t.Helper()
	store, err := eventstore.NewSQLiteStore(eventstore.MemoryPath)
	require.NoError(t, err)
	opts.Runner = runner
	opts.Output = &discard{}
	opts.Store = store
	s, err := Open(t.Context(), cfg, opts)
	require.NoError(t, err)
	return s
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestCompileBuildsEachModuleOnceInOrder(t *testing.T) {
	cfg := newProject(t, projectYAML)
	runner := &fakeRunner{}
	s := openSession(t, cfg, runner, Options{Command: "build", Targets: []string{TaskCompile}})

	err := s.Run(s.Context(), BuildTask("ftp"), TaskCompile, BuildTask("core"))
	require.NoError(t, s.Finish(err))

	assert.Equal(t, []string{"build:asserts", "build:core", "build:ftp"}, s.Scheduler.Executed())
	assert.Equal(t, 3, runner.count("javac"))
}

func TestTestTaskAppliesOverrides(t *testing.T) {
	cfg := newProject(t, projectYAML)
	runner := &fakeRunner{}
	s := openSession(t, cfg, runner, Options{
		Command: "test",
		Tests:   TestOverrides{Coverage: true, Params: []string{"-Dtrace=on"}},
	})

	err := s.Run(s.Context(), TaskTest)
	require.NoError(t, s.Finish(err))

	var testCall []string
	for _, c := range runner.calls {
		if c[0] == "cover" {
			testCall = c
		}
	}
	require.NotNil(t, testCall)
	assert.Equal(t, []string{"cover", "--", "runtests", "-Xmx512m", "-Dtrace=on", "pkg.CoreTest"}, testCall)
	assert.Equal(t, []string{"build:asserts", "build:core", "test:core"}, s.Scheduler.Executed())
}

func TestTestFailureStopsRun(t *testing.T) {
	cfg := newProject(t, projectYAML)
	runner := &fakeRunner{testCode: 1}
	s := openSession(t, cfg, runner, Options{Command: "test"})

	err := s.Run(s.Context(), TaskTest, TaskPackage)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTest))
	assert.False(t, s.Scheduler.Completed(PackageTask("cotta")))
	require.Error(t, s.Finish(err))
}

func TestAdvisoryOverrideKeepsRunGoing(t *testing.T) {
	cfg := newProject(t, projectYAML)
	runner := &fakeRunner{testCode: 1}
	s := openSession(t, cfg, runner, Options{Command: "test", Tests: TestOverrides{Advisory: true}})

	err := s.Run(s.Context(), TaskTest)
	require.NoError(t, s.Finish(err))
	assert.True(t, s.Scheduler.Completed(TestTask("core")))
}

func TestPackageTaskWritesArtifacts(t *testing.T) {
	cfg := newProject(t, projectYAML)
	runner := &fakeRunner{}
	s := openSession(t, cfg, runner, Options{Command: "package"})

	err := s.Run(s.Context(), TaskPackage)
	require.NoError(t, s.Finish(err))

	assert.FileExists(t, filepath.Join(cfg.Project.DistDir, "cotta.jar"))
	assert.FileExists(t, filepath.Join(cfg.Project.DistDir, "cotta-src.zip"))
}

func TestPlanDoesNotRunActions(t *testing.T) {
	cfg := newProject(t, projectYAML)
	runner := &fakeRunner{}
	s := openSession(t, cfg, runner, Options{Command: "plan"})

	plan, err := s.Plan(PackageTask("cotta"))
	require.NoError(t, err)
	assert.Equal(t, []string{"build:asserts", "build:core", "build:ftp", "package:cotta"}, plan)
	assert.Empty(t, runner.calls)
	require.NoError(t, s.Finish(nil))
}

func TestModuleCycleRejectedBeforeAnyAction(t *testing.T) {
	cfg := newProject(t, projectYAML)
	cfg.Modules[0].Uses = []string{"ftp"}
	runner := &fakeRunner{}

	_, err := Open(t.Context(), cfg, Options{Runner: runner, Store: mustMemoryStore(t)})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCycle))
	assert.Empty(t, runner.calls)
}

func TestCleanRemovesOutputs(t *testing.T) {
	cfg := newProject(t, projectYAML)
	runner := &fakeRunner{}
	s := openSession(t, cfg, runner, Options{Command: "clean"})

	require.NoError(t, s.Run(s.Context(), TaskPackage))
	require.DirExists(t, cfg.Project.DistDir)
	require.NoError(t, s.Run(s.Context(), TaskClean))
	require.NoError(t, s.Finish(nil))

	assert.NoDirExists(t, cfg.Project.DistDir)
	assert.NoDirExists(t, cfg.Project.BuildDir)
	assert.DirExists(t, cfg.Project.Root)
}

func TestHistoryRecordsFinishedRuns(t *testing.T) {
	cfg := newProject(t, projectYAML)
	runner := &fakeRunner{testCode: 1}

	s, err := Open(t.Context(), cfg, Options{Command: "test", Targets: []string{TaskTest}, Runner: runner, Output: discard{}})
	require.NoError(t, err)
	runErr := s.Run(s.Context(), TaskTest)
	require.Error(t, s.Finish(runErr))

	runs, err := History(t.Context(), cfg, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, s.RunID, runs[0].RunID)
	assert.Equal(t, "test", runs[0].Command)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Equal(t, TestTask("core"), runs[0].FailedTask)
	assert.Equal(t, 3, runs[0].TasksRun)
}

func TestReleaseResumeFromJournal(t *testing.T) {
	cfg := newProject(t, projectYAML+`
release:
  record: version.properties
  artifacts: [cotta]
  transport:
    remote: published
`)
	root := cfg.Project.Root
	writeFile(t, filepath.Join(root, "version.properties"), "Implementation-Version: 1.0\nImplementation-Build: 41\n")
	_, err := gogit.PlainInit(root, false)
	require.NoError(t, err)

	// A file where the remote directory belongs makes every upload fail.
	remote := filepath.Join(root, "published")
	writeFile(t, remote, "in the way")

	runner := &fakeRunner{}
	first, err := Open(t.Context(), cfg, Options{Command: "release", Runner: runner, Output: discard{}})
	require.NoError(t, err)
	_, relErr := first.Release(first.Context(), ReleaseRequest{})
	require.Error(t, relErr)
	assert.True(t, ferrors.HasCategory(relErr, ferrors.CategoryTransport))
	require.Error(t, first.Finish(relErr))

	require.NoError(t, os.Remove(remote))

	second, err := Open(t.Context(), cfg, Options{Command: "release", Runner: runner, Output: discard{}})
	require.NoError(t, err)
	result, relErr := second.Release(second.Context(), ReleaseRequest{Resume: true})
	require.NoError(t, second.Finish(relErr))

	assert.Equal(t, "1.0b42", result.Label)
	assert.Equal(t, []string{"cotta-1.0b42.jar", "cotta-1.0b42-src.zip"}, result.Uploaded)
	assert.FileExists(t, filepath.Join(remote, "cotta-1.0b42.jar"))
	assert.FileExists(t, filepath.Join(remote, "cotta-1.0b42-src.zip"))

	rec, err := versioning.NewStore(cfg.Release.Record, cfg.Release.NumberKey, cfg.Release.BuildKey).Read()
	require.NoError(t, err)
	assert.Equal(t, 42, rec.Build)

	repo, err := git.Open(root, git.Author{})
	require.NoError(t, err)
	tagged, err := repo.HasTag("version-1.0b42")
	require.NoError(t, err)
	assert.True(t, tagged)
}

func TestPublishSiteCopiesServedTree(t *testing.T) {
	cfg := newProject(t, projectYAML+`
site:
  transport:
    remote: site-remote
`)
	root := cfg.Project.Root
	writeFile(t, filepath.Join(cfg.Site.ContentDir, "css", "style.css"), "body {}")

	s := openSession(t, cfg, &fakeRunner{}, Options{Command: "site"})
	err := s.Run(s.Context(), TaskPublishSite)
	require.NoError(t, s.Finish(err))

	assert.FileExists(t, filepath.Join(cfg.Site.ServeDir, "css", "style.css"))
	data, err := os.ReadFile(filepath.Join(root, "site-remote", "css", "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body {}", string(data))
}

func mustMemoryStore(t *testing.T) eventstore.Store {
	t.Helper()
	store, err := eventstore.NewSQLiteStore(eventstore.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
