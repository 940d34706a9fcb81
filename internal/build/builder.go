package build

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/module"
	"git.home.luguber.info/inful/buildmaster/internal/observability"
	"git.home.luguber.info/inful/buildmaster/internal/toolchain"
)

// Result summarizes one module build.
type Result struct {
	Module    string
	OutputDir string
	Sources   int
	Resources int
	Duration  time.Duration
}

// Builder compiles modules of a set.
type Builder struct {
	modules   *module.Set
	compiler  toolchain.Compiler
	sourceExt []string
	workDir   string
}

// NewBuilder creates a builder. sourceExt selects which files under a source
// directory are compiled; every other file is copied into the output.
func NewBuilder(modules *module.Set, compiler toolchain.Compiler, sourceExt []string, workDir string) *Builder {
	return &Builder{modules: modules, compiler: compiler, sourceExt: sourceExt, workDir: workDir}
}

// Build compiles the named module. Every module it uses must already have
// non-empty output. The module's output directory is replaced; no other
// output is touched.
func (b *Builder) Build(ctx context.Context, name string) (*Result, error) {
	m, ok := b.modules.Get(name)
	if !ok {
		return nil, ferrors.ValidationError(fmt.Sprintf("unknown module %q", name)).Build()
	}
	ctx = observability.WithModule(ctx, name)
	start := time.Now()

	deps, err := b.modules.Dependencies(name)
	if err != nil {
		return nil, err
	}
	if err := RequireOutputs(name, deps); err != nil {
		return nil, err
	}

	classpath, err := b.modules.CompileClasspath(name)
	if err != nil {
		return nil, err
	}

	res, err := b.compileTree(ctx, m.Name, m.SourceDir, m.OutputDir, m.TargetVersion, classpath)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	observability.InfoContext(ctx, "Module built",
		logfields.Path(m.OutputDir),
		logfields.Count(res.Sources),
		logfields.Duration(res.Duration))
	return res, nil
}

// BuildTests compiles the module's test sources into its test output
// directory against the test classpath. Modules without test sources are a
// no-op.
func (b *Builder) BuildTests(ctx context.Context, name string) (*Result, error) {
	m, ok := b.modules.Get(name)
	if !ok {
		return nil, ferrors.ValidationError(fmt.Sprintf("unknown module %q", name)).Build()
	}
	if !m.HasTests() {
		return &Result{Module: name}, nil
	}
	ctx = observability.WithModule(ctx, name)

	required := []*module.Module{m}
	for _, tw := range m.TestsWith {
		required = append(required, b.modules.MustGet(tw))
	}
	if err := RequireOutputs(name, required); err != nil {
		return nil, err
	}

	classpath, err := b.modules.TestClasspath(name)
	if err != nil {
		return nil, err
	}
	classpath = slices.DeleteFunc(classpath, func(p string) bool { return p == m.TestOutputDir })

	res, err := b.compileTree(ctx, m.Name+" tests", m.TestSourceDir, m.TestOutputDir, m.TargetVersion, classpath)
	if err != nil {
		return nil, err
	}
	observability.DebugContext(ctx, "Module tests compiled", logfields.Count(res.Sources))
	return res, nil
}

func (b *Builder) compileTree(ctx context.Context, label, srcDir, outDir, target string, classpath []string) (*Result, error) {
	if !fsutil.Exists(srcDir) {
		return nil, ferrors.BuildError(fmt.Sprintf("source directory of %s not found", label)).
			WithContext("module", label).
			WithContext("path", srcDir).
			Build()
	}

	if err := fsutil.ReplaceDir(outDir); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot reset output directory").
			WithContext("path", outDir).Build()
	}

	sources, resources, err := b.partition(srcDir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot scan source directory").
			WithContext("path", srcDir).Build()
	}

	if len(sources) > 0 {
		err := b.compiler.Compile(ctx, toolchain.CompileRequest{
			Module:        label,
			SourceDir:     srcDir,
			Sources:       sources,
			OutputDir:     outDir,
			Classpath:     classpath,
			TargetVersion: target,
			Dir:           b.workDir,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, r := range resources {
		rel, err := filepath.Rel(srcDir, r)
		if err != nil {
			return nil, err
		}
		if err := fsutil.CopyFile(r, filepath.Join(outDir, rel)); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot copy resource").
				WithContext("path", r).Build()
		}
	}

	ok, err := fsutil.HasFiles(outDir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot inspect output").
			WithContext("path", outDir).Build()
	}
	if !ok {
		return nil, ferrors.BuildError(fmt.Sprintf("build of %s produced no output", label)).
			WithContext("module", label).
			WithContext("path", outDir).
			Build()
	}

	return &Result{Module: label, OutputDir: outDir, Sources: len(sources), Resources: len(resources)}, nil
}

// partition splits the files under dir into compilable sources and resources.
func (b *Builder) partition(dir string) (sources, resources []string, err error) {
	all, err := fsutil.FindFiles(dir, func(string, fs.DirEntry) bool { return true })
	if err != nil {
		return nil, nil, err
	}
	for _, f := range all {
		if b.isSource(f) {
			sources = append(sources, f)
		} else {
			resources = append(resources, f)
		}
	}
	return sources, resources, nil
}

func (b *Builder) isSource(path string) bool {
	for _, ext := range b.sourceExt {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// RequireOutputs fails with MissingBuildOutput naming the first module of
// deps whose output directory is missing or empty.
func RequireOutputs(requester string, deps []*module.Module) error {
	for _, d := range deps {
		ok, err := fsutil.HasFiles(d.OutputDir)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot inspect module output").
				WithContext("path", d.OutputDir).Build()
		}
		if !ok {
			return ferrors.MissingBuildOutput(fmt.Sprintf("module %s has not been built", d.Name)).
				WithContext("module", requester).
				WithContext("dependency", d.Name).
				WithContext("path", d.OutputDir).
				Build()
		}
	}
	return nil
}
