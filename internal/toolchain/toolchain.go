package toolchain

import (
	"context"
	"fmt"
	"io"
	"strings"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

// CompileRequest describes the compilation of one module.
type CompileRequest struct {
	Module        string
	SourceDir     string
	Sources       []string
	OutputDir     string
	Classpath     []string
	TargetVersion string
	Dir           string
}

// Compiler turns a module's sources into compiled output.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) error
}

// TestRequest describes one test engine invocation.
type TestRequest struct {
	Module    string
	Tests     []string
	Classpath []string
	Params    []string
	Coverage  bool
	ReportDir string
	Dir       string
	Log       io.Writer
}

// TestOutcome is what the engine reported. A non-zero exit code is a test
// failure, not an error.
type TestOutcome struct {
	ExitCode int
	Tail     string
}

// Passed reports whether the engine exited successfully.
func (o TestOutcome) Passed() bool { return o.ExitCode == 0 }

// TestEngine runs selected tests against a classpath.
type TestEngine interface {
	RunTests(ctx context.Context, req TestRequest) (TestOutcome, error)
}

// DocRequest describes one API documentation run.
type DocRequest struct {
	Name       string
	SourceDirs []string
	Sources    []string
	OutputDir  string
	Classpath  []string
	Dir        string
}

// DocTool generates API documentation.
type DocTool interface {
	Generate(ctx context.Context, req DocRequest) error
}

// Toolchain implements Compiler, TestEngine and DocTool with configured
// command templates.
type Toolchain struct {
	cfg    config.ToolchainConfig
	runner Runner
	output io.Writer
}

// New creates a toolchain. A nil runner uses ExecRunner; output receives the
// compiler and doc tool output (nil discards it).
func New(cfg config.ToolchainConfig, runner Runner, output io.Writer) *Toolchain {
	if runner == nil {
		runner = ExecRunner{}
	}
	if output == nil {
		output = io.Discard
	}
	return &Toolchain{cfg: cfg, runner: runner, output: output}
}

func (t *Toolchain) joinPath(entries []string) string {
	return strings.Join(entries, t.cfg.PathListSep)
}

// Compile runs the compile template.
func (t *Toolchain) Compile(ctx context.Context, req CompileRequest) error {
	args := Expand(t.cfg.Compile, Vars{
		Output:    req.OutputDir,
		Classpath: t.joinPath(req.Classpath),
		Source:    req.SourceDir,
		Module:    req.Module,
		Target:    req.TargetVersion,
	}, Lists{Sources: req.Sources})

	code, tail, err := t.runner.Run(ctx, Invocation{Args: args, Dir: req.Dir, Output: t.output})
	if err != nil {
		return err
	}
	if code != 0 {
		return ferrors.BuildError(fmt.Sprintf("compilation of module %s failed with exit code %d", req.Module, code)).
			WithContext("module", req.Module).
			WithContext("exit_code", code).
			WithContext("output", tail).
			Build()
	}
	return nil
}

// RunTests runs the test template, wrapped in the coverage template when
// coverage is requested and configured.
func (t *Toolchain) RunTests(ctx context.Context, req TestRequest) (TestOutcome, error) {
	if len(t.cfg.Test) == 0 {
		return TestOutcome{}, ferrors.ConfigError("toolchain.test is not configured").Build()
	}
	tmpl := t.cfg.Test
	if req.Coverage && len(t.cfg.Coverage) > 0 {
		tmpl = append(append([]string{}, t.cfg.Coverage...), t.cfg.Test...)
	}
	args := Expand(tmpl, Vars{
		Classpath: t.joinPath(req.Classpath),
		Module:    req.Module,
		Report:    req.ReportDir,
	}, Lists{Tests: req.Tests, Params: req.Params})

	out := req.Log
	if out == nil {
		out = t.output
	}
	code, tail, err := t.runner.Run(ctx, Invocation{Args: args, Dir: req.Dir, Output: out})
	if err != nil {
		return TestOutcome{}, err
	}
	return TestOutcome{ExitCode: code, Tail: tail}, nil
}

// Generate runs the doc template.
func (t *Toolchain) Generate(ctx context.Context, req DocRequest) error {
	if len(t.cfg.Doc) == 0 {
		return ferrors.ConfigError("toolchain.doc is not configured").Build()
	}
	args := Expand(t.cfg.Doc, Vars{
		Output:    req.OutputDir,
		Classpath: t.joinPath(req.Classpath),
		Source:    t.joinPath(req.SourceDirs),
		Module:    req.Name,
	}, Lists{Sources: req.Sources})

	code, tail, err := t.runner.Run(ctx, Invocation{Args: args, Dir: req.Dir, Output: t.output})
	if err != nil {
		return err
	}
	if code != 0 {
		return ferrors.BuildError(fmt.Sprintf("documentation %s failed with exit code %d", req.Name, code)).
			WithContext("docs", req.Name).
			WithContext("exit_code", code).
			WithContext("output", tail).
			Build()
	}
	return nil
}

var (
	_ Compiler   = (*Toolchain)(nil)
	_ TestEngine = (*Toolchain)(nil)
	_ DocTool    = (*Toolchain)(nil)
)
