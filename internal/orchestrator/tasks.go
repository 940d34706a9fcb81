package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/packager"
	"git.home.luguber.info/inful/buildmaster/internal/task"
	"git.home.luguber.info/inful/buildmaster/internal/testrunner"
)

// Aggregate task names.
const (
	TaskCompile     = "compile"
	TaskTest        = "test"
	TaskPackage     = "package"
	TaskDocs        = "docs"
	TaskClean       = "clean"
	TaskSite        = "site"
	TaskPublishSite = "publish-site"
)

// BuildTask returns the task name building a module.
func BuildTask(module string) string { return "build:" + module }

// TestTask returns the task name testing a module.
func TestTask(module string) string { return "test:" + module }

// PackageTask returns the task name producing a package.
func PackageTask(name string) string { return "package:" + name }

// DocsTask returns the task name generating a doc set.
func DocsTask(name string) string { return "docs:" + name }

func (s *Session) registerTasks() error {
	cfg := s.Config
	var all []task.Task

	var builds []string
	for _, m := range s.Modules.All() {
		name := m.Name
		prereqs := make([]string, 0, len(m.Uses))
		for _, u := range m.Uses {
			prereqs = append(prereqs, BuildTask(u))
		}
		all = append(all, task.Task{
			Name:          BuildTask(name),
			Description:   "Compile module " + name,
			Prerequisites: prereqs,
			Action: func(ctx context.Context) error {
				_, err := s.Builder.Build(ctx, name)
				return err
			},
		})
		builds = append(builds, BuildTask(name))
	}
	all = append(all, task.Task{Name: TaskCompile, Description: "Compile every module", Prerequisites: builds})

	var tests []string
	for _, tc := range cfg.Tests {
		req := s.testRequest(tc)
		m := s.Modules.MustGet(tc.Module)
		prereqs := []string{BuildTask(tc.Module)}
		for _, w := range m.TestsWith {
			prereqs = append(prereqs, BuildTask(w))
		}
		all = append(all, task.Task{
			Name:          TestTask(tc.Module),
			Description:   "Run tests of module " + tc.Module,
			Prerequisites: prereqs,
			Action: func(ctx context.Context) error {
				_, err := s.Tests.Run(ctx, req)
				return err
			},
		})
		tests = append(tests, TestTask(tc.Module))
	}
	all = append(all, task.Task{Name: TaskTest, Description: "Run every configured test", Prerequisites: tests})

	var packages []string
	for _, pc := range cfg.Packages {
		spec := packager.Spec{Name: pc.Name, Primary: pc.Primary, Embed: pc.Embed, Manifest: pc.Manifest}
		prereqs := []string{BuildTask(pc.Primary)}
		for _, e := range pc.Embed {
			prereqs = append(prereqs, BuildTask(e))
		}
		all = append(all, task.Task{
			Name:          PackageTask(pc.Name),
			Description:   "Package " + pc.Name,
			Prerequisites: prereqs,
			Action: func(ctx context.Context) error {
				_, err := s.Packager.Package(ctx, spec)
				return err
			},
		})
		packages = append(packages, PackageTask(pc.Name))
	}
	all = append(all, task.Task{Name: TaskPackage, Description: "Build every package", Prerequisites: packages})

	var docs []string
	for _, dc := range cfg.Docs {
		name, mods := dc.Name, slices.Clone(dc.Modules)
		prereqs := make([]string, 0, len(mods))
		for _, m := range mods {
			prereqs = append(prereqs, BuildTask(m))
		}
		all = append(all, task.Task{
			Name:          DocsTask(name),
			Description:   "Generate API documentation " + name,
			Prerequisites: prereqs,
			Action: func(ctx context.Context) error {
				_, err := s.Docs.Generate(ctx, name, mods)
				return err
			},
		})
		docs = append(docs, DocsTask(name))
	}
	all = append(all,
		task.Task{Name: TaskDocs, Description: "Generate every API documentation set", Prerequisites: docs},
		task.Task{Name: TaskClean, Description: "Remove build, report and dist directories", Action: s.clean},
		task.Task{Name: TaskSite, Description: "Render the site into the served directory", Action: s.buildSite},
		task.Task{Name: TaskPublishSite, Description: "Render and upload the site", Action: s.publishSite},
	)

	for _, t := range all {
		if err := s.Registry.Register(t); err != nil {
			return err
		}
	}
	// Unknown prerequisites surface here, before any task runs.
	if _, err := s.Registry.Graph(); err != nil {
		return err
	}
	return nil
}

func (s *Session) testRequest(tc config.TestConfig) testrunner.Request {
	req := testrunner.Request{
		Module:   tc.Module,
		Pattern:  tc.Pattern,
		TestID:   tc.TestID,
		Coverage: tc.Coverage || s.opts.Tests.Coverage,
		Params:   append(slices.Clone(tc.Params), s.opts.Tests.Params...),
		Advisory: tc.Advisory || s.opts.Tests.Advisory,
	}
	return req
}

func (s *Session) clean(ctx context.Context) error {
	p := s.Config.Project
	dirs := []string{p.BuildDir, p.ReportDir, p.DistDir}
	for _, m := range s.Modules.All() {
		dirs = append(dirs, m.OutputDir, m.TestOutputDir)
	}
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if dir == "" || dir == p.Root {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot remove directory").
				WithContext("path", dir).
				Build()
		}
		slog.Debug("Removed", logfields.Path(dir))
	}
	return nil
}

func (s *Session) buildSite(ctx context.Context) error {
	b, err := s.SiteBuilder()
	if err != nil {
		return err
	}
	_, err = b.Build(ctx)
	return err
}

func (s *Session) publishSite(ctx context.Context) error {
	b, err := s.SiteBuilder()
	if err != nil {
		return err
	}
	_, err = b.Publish(ctx)
	return err
}
