package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/module"
	"git.home.luguber.info/inful/buildmaster/internal/toolchain"
)

// APIDocDir is the directory below dist holding generated API documentation.
const APIDocDir = "api"

// DocGenerator produces API documentation for groups of modules.
type DocGenerator struct {
	modules   *module.Set
	tool      toolchain.DocTool
	sourceExt []string
	distDir   string
	workDir   string
}

// NewDocGenerator creates a generator writing to <distDir>/api/<name>.
func NewDocGenerator(modules *module.Set, tool toolchain.DocTool, sourceExt []string, distDir, workDir string) *DocGenerator {
	return &DocGenerator{modules: modules, tool: tool, sourceExt: sourceExt, distDir: distDir, workDir: workDir}
}

// OutputDir returns the documentation directory of a doc set.
func (g *DocGenerator) OutputDir(name string) string {
	return filepath.Join(g.distDir, APIDocDir, name)
}

// Generate documents the sources of the named modules. The modules must be
// built so their classpath resolves.
func (g *DocGenerator) Generate(ctx context.Context, name string, moduleNames []string) (string, error) {
	start := time.Now()
	mods := make([]*module.Module, 0, len(moduleNames))
	for _, n := range moduleNames {
		m, ok := g.modules.Get(n)
		if !ok {
			return "", ferrors.ValidationError(fmt.Sprintf("unknown module %q in doc set %s", n, name)).Build()
		}
		mods = append(mods, m)
	}
	if err := RequireOutputs("docs:"+name, mods); err != nil {
		return "", err
	}

	var sourceDirs, sources, classpath []string
	seen := map[string]bool{}
	for _, m := range mods {
		sourceDirs = append(sourceDirs, m.SourceDir)
		files, err := fsutil.FindFilesByExtension(m.SourceDir, g.sourceExt...)
		if err != nil {
			return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot list sources").
				WithContext("module", m.Name).
				WithContext("path", m.SourceDir).
				Build()
		}
		sources = append(sources, files...)

		cp, err := g.modules.CompileClasspath(m.Name)
		if err != nil {
			return "", err
		}
		for _, entry := range append([]string{m.OutputDir}, cp...) {
			if !seen[entry] {
				seen[entry] = true
				classpath = append(classpath, entry)
			}
		}
	}
	if len(sources) == 0 {
		return "", ferrors.BuildError(fmt.Sprintf("doc set %s has no sources", name)).
			WithContext("modules", moduleNames).
			Build()
	}

	out := g.OutputDir(name)
	if err := fsutil.ReplaceDir(out); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot prepare doc output").
			WithContext("path", out).
			Build()
	}
	if err := g.tool.Generate(ctx, toolchain.DocRequest{
		Name:       name,
		SourceDirs: sourceDirs,
		Sources:    sources,
		OutputDir:  out,
		Classpath:  classpath,
		Dir:        g.workDir,
	}); err != nil {
		return "", err
	}

	slog.Info("API documentation generated",
		slog.String("doc_set", name),
		logfields.Path(out),
		logfields.Count(len(sources)),
		logfields.Duration(time.Since(start)))
	return out, nil
}
