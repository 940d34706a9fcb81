package testrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar"

	"git.home.luguber.info/inful/buildmaster/internal/build"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/metrics"
	"git.home.luguber.info/inful/buildmaster/internal/module"
	"git.home.luguber.info/inful/buildmaster/internal/observability"
	"git.home.luguber.info/inful/buildmaster/internal/toolchain"
)

// Report file names inside a module's report directory.
const (
	ReportFile = "report.json"
	LogFile    = "engine.log"
)

// Status is the outcome recorded in a report.
type Status string

const (
	StatusPassed          Status = "passed"
	StatusFailed          Status = "failed"
	StatusAdvisoryFailure Status = "advisory_failure"
	StatusNoTests         Status = "no_tests"
)

// Identifier formats for discovered test files.
const (
	FormatClass = "class" // a/b/FooTest.java -> a.b.FooTest
	FormatPath  = "path"  // absolute file path
)

// Request selects and parameterizes the tests of one module. Exactly one of
// Pattern and TestID is set.
type Request struct {
	Module   string
	Pattern  string
	TestID   string
	Coverage bool
	Params   []string
	Advisory bool
}

// Report is written as JSON next to the engine log.
type Report struct {
	Module     string    `json:"module"`
	Status     Status    `json:"status"`
	Tests      []string  `json:"tests"`
	Coverage   bool      `json:"coverage"`
	Params     []string  `json:"params,omitempty"`
	Advisory   bool      `json:"advisory"`
	ExitCode   int       `json:"exit_code"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Log        string    `json:"log"`
}

// TestCompiler compiles a module's test sources.
type TestCompiler interface {
	BuildTests(ctx context.Context, name string) (*build.Result, error)
}

// Runner runs module tests.
type Runner struct {
	modules     *module.Set
	compiler    TestCompiler
	engine      toolchain.TestEngine
	reportRoot  string
	classFormat string
	sourceExt   []string
	workDir     string
	recorder    metrics.Recorder
}

// NewRunner creates a test runner writing reports under reportRoot.
func NewRunner(modules *module.Set, compiler TestCompiler, engine toolchain.TestEngine, reportRoot, classFormat string, sourceExt []string, workDir string) *Runner {
	if classFormat == "" {
		classFormat = FormatClass
	}
	return &Runner{
		modules:     modules,
		compiler:    compiler,
		engine:      engine,
		reportRoot:  reportRoot,
		classFormat: classFormat,
		sourceExt:   sourceExt,
		workDir:     workDir,
		recorder:    metrics.NoopRecorder{},
	}
}

// WithRecorder sets the metrics recorder used for advisory failures.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// ReportDir returns the report directory of a module.
func (r *Runner) ReportDir(name string) string {
	return filepath.Join(r.reportRoot, name)
}

// Run compiles and runs the selected tests of a module. A failing run returns
// TestFailure unless the request is advisory, in which case the failure is
// logged and recorded in the report only.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	m, ok := r.modules.Get(req.Module)
	if !ok {
		return nil, ferrors.ValidationError(fmt.Sprintf("unknown module %q", req.Module)).Build()
	}
	if (req.Pattern == "") == (req.TestID == "") {
		return nil, ferrors.ValidationError("exactly one of pattern or test id must be given").
			WithContext("module", req.Module).Build()
	}
	ctx = observability.WithModule(ctx, m.Name)

	if err := build.RequireOutputs(m.Name, []*module.Module{m}); err != nil {
		return nil, err
	}
	if _, err := r.compiler.BuildTests(ctx, m.Name); err != nil {
		return nil, err
	}

	tests, err := r.selectTests(m, req)
	if err != nil {
		return nil, err
	}

	reportDir := r.ReportDir(m.Name)
	if err := fsutil.ReplaceDir(reportDir); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot reset report directory").
			WithContext("path", reportDir).Build()
	}

	rep := &Report{
		Module:    m.Name,
		Tests:     tests,
		Coverage:  req.Coverage,
		Params:    req.Params,
		Advisory:  req.Advisory,
		StartedAt: time.Now().UTC(),
		Log:       filepath.Join(reportDir, LogFile),
	}

	if len(tests) == 0 {
		rep.Status = StatusNoTests
		observability.WarnContext(ctx, "No tests matched", slog.String("pattern", req.Pattern))
		return rep, writeReport(reportDir, rep)
	}

	classpath, err := r.modules.TestClasspath(m.Name)
	if err != nil {
		return nil, err
	}

	outcome, err := r.runEngine(ctx, m.Name, tests, classpath, req, reportDir, rep.Log)
	rep.DurationMS = time.Since(rep.StartedAt).Milliseconds()
	if err != nil {
		return nil, err
	}
	rep.ExitCode = outcome.ExitCode

	switch {
	case outcome.Passed():
		rep.Status = StatusPassed
		observability.InfoContext(ctx, "Tests passed", logfields.Count(len(tests)))
	case req.Advisory:
		rep.Status = StatusAdvisoryFailure
		r.recorder.IncTaskResult("test:"+m.Name, metrics.ResultAdvisory)
		observability.WarnContext(ctx, "Advisory tests failed", logfields.Path(rep.Log))
	default:
		rep.Status = StatusFailed
	}

	if err := writeReport(reportDir, rep); err != nil {
		return nil, err
	}

	if rep.Status == StatusFailed {
		return rep, ferrors.TestFailure(fmt.Sprintf("tests of module %s failed", m.Name)).
			WithContext("module", m.Name).
			WithContext("exit_code", outcome.ExitCode).
			WithContext("path", rep.Log).
			Build()
	}
	return rep, nil
}

func (r *Runner) runEngine(ctx context.Context, name string, tests, classpath []string, req Request, reportDir, logPath string) (toolchain.TestOutcome, error) {
	logFile, err := os.Create(logPath)
	if err != nil {
		return toolchain.TestOutcome{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot create engine log").
			WithContext("path", logPath).Build()
	}
	defer func() { _ = logFile.Close() }()

	return r.engine.RunTests(ctx, toolchain.TestRequest{
		Module:    name,
		Tests:     tests,
		Classpath: classpath,
		Params:    req.Params,
		Coverage:  req.Coverage,
		ReportDir: reportDir,
		Dir:       r.workDir,
		Log:       logFile,
	})
}

// selectTests returns the explicit test id, or the identifiers of files under
// the module's test source directory matching the pattern.
func (r *Runner) selectTests(m *module.Module, req Request) ([]string, error) {
	if req.TestID != "" {
		return []string{req.TestID}, nil
	}
	if _, err := path.Match(req.Pattern, ""); err != nil {
		return nil, ferrors.ConfigError(fmt.Sprintf("invalid test pattern %q", req.Pattern)).
			WithContext("module", m.Name).Build()
	}
	// Patterns without a slash match the file name anywhere in the tree.
	matchPath := strings.Contains(req.Pattern, "/")
	files, err := fsutil.FindFiles(m.TestSourceDir, func(rel string, d fs.DirEntry) bool {
		name := d.Name()
		if matchPath {
			name = rel
		}
		ok, _ := doublestar.Match(req.Pattern, name)
		return ok
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot scan test sources").
			WithContext("path", m.TestSourceDir).Build()
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, r.identifier(m.TestSourceDir, f))
	}
	return ids, nil
}

func (r *Runner) identifier(root, file string) string {
	if r.classFormat == FormatPath {
		return file
	}
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return file
	}
	rel = filepath.ToSlash(rel)
	for _, ext := range r.sourceExt {
		if strings.HasSuffix(rel, ext) {
			rel = strings.TrimSuffix(rel, ext)
			break
		}
	}
	return strings.ReplaceAll(rel, "/", ".")
}

func writeReport(dir string, rep *Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "cannot encode test report").Build()
	}
	p := filepath.Join(dir, ReportFile)
	if err := fsutil.AtomicWriteFile(p, append(data, '\n'), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot write test report").
			WithContext("path", p).Build()
	}
	return nil
}
