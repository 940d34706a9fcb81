// Package module models the declared modules of a project and derives their
// dependency graph and classpaths.
package module

import (
	"fmt"
	"slices"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
	"git.home.luguber.info/inful/buildmaster/internal/graph"
)

// Module is one buildable unit. Paths are absolute.
type Module struct {
	Name          string
	Root          string
	TargetVersion string
	SourceDir     string
	TestSourceDir string
	TestResources string
	OutputDir     string
	TestOutputDir string
	Uses          []string
	UsesFiles     []string
	UsesFilesIn   []string
	TestsWith     []string
}

// HasTests reports whether the module declares a test source directory.
func (m *Module) HasTests() bool { return m.TestSourceDir != "" }

// Set holds every declared module in declaration order together with the
// graph of their "uses" edges.
type Set struct {
	modules []*Module
	byName  map[string]*Module
	graph   *graph.Graph
}

// NewSet builds a module set from configuration. The uses graph is checked for
// unknown references and cycles before the set is returned.
func NewSet(decls []config.ModuleConfig) (*Set, error) {
	s := &Set{byName: make(map[string]*Module, len(decls)), graph: graph.New()}
	for _, d := range decls {
		m := &Module{
			Name:          d.Name,
			Root:          d.Root,
			TargetVersion: d.TargetVersion,
			SourceDir:     d.Source,
			TestSourceDir: d.TestSource,
			TestResources: d.TestResources,
			OutputDir:     d.Output,
			TestOutputDir: d.TestOutput,
			Uses:          slices.Clone(d.Uses),
			UsesFiles:     slices.Clone(d.UsesFiles),
			UsesFilesIn:   slices.Clone(d.UsesFilesIn),
			TestsWith:     slices.Clone(d.TestsWith),
		}
		if err := s.graph.AddNode(m.Name, m.Uses...); err != nil {
			return nil, err
		}
		s.modules = append(s.modules, m)
		s.byName[m.Name] = m
	}
	for _, m := range s.modules {
		for _, tw := range m.TestsWith {
			if _, ok := s.byName[tw]; !ok {
				return nil, ferrors.ConfigError(fmt.Sprintf("module %s tests with unknown module %s", m.Name, tw)).
					WithContext("module", m.Name).Build()
			}
		}
	}
	if err := s.graph.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the named module.
func (s *Set) Get(name string) (*Module, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// MustGet returns the named module and panics if it does not exist. It is
// intended for names already validated against the set.
func (s *Set) MustGet(name string) *Module {
	m, ok := s.byName[name]
	if !ok {
		panic("module: unknown module " + name)
	}
	return m
}

// All returns the modules in declaration order.
func (s *Set) All() []*Module { return slices.Clone(s.modules) }

// Names returns module names in declaration order.
func (s *Set) Names() []string { return s.graph.Nodes() }

// Graph exposes the uses graph.
func (s *Set) Graph() *graph.Graph { return s.graph }

// BuildOrder returns the given modules and their transitive dependencies,
// dependencies first. No names means every module.
func (s *Set) BuildOrder(names ...string) ([]string, error) {
	return s.graph.TopologicalOrder(names...)
}

// Dependencies returns the transitive uses closure of name, dependencies first.
func (s *Set) Dependencies(name string) ([]*Module, error) {
	names, err := s.graph.Closure(name)
	if err != nil {
		return nil, err
	}
	out := make([]*Module, 0, len(names))
	for _, n := range names {
		out = append(out, s.byName[n])
	}
	return out, nil
}

// ExternalArtifacts returns the external files a module uses directly: each
// uses_files entry, then every file of each uses_files_in directory.
func (m *Module) ExternalArtifacts() ([]string, error) {
	out := make([]string, 0, len(m.UsesFiles))
	for _, f := range m.UsesFiles {
		if !fsutil.Exists(f) {
			return nil, ferrors.BuildError(fmt.Sprintf("external artifact %s of module %s not found", f, m.Name)).
				WithContext("module", m.Name).
				WithContext("path", f).
				Build()
		}
		out = append(out, f)
	}
	for _, dir := range m.UsesFilesIn {
		files, err := fsutil.ListFiles(dir)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryBuild, fmt.Sprintf("cannot list external artifacts of module %s", m.Name)).
				WithContext("module", m.Name).
				WithContext("path", dir).
				Build()
		}
		out = append(out, files...)
	}
	return out, nil
}
