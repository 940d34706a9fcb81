package config

import (
	"fmt"
	"regexp"
	"slices"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/graph"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateConfig checks references and required fields. It runs after
// defaults so that every path is already resolved.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg, modules: map[string]bool{}, packages: map[string]bool{}}
	for _, step := range []func() error{
		v.validateVersion,
		v.validateModules,
		v.validateToolchain,
		v.validateTests,
		v.validatePackages,
		v.validateDocs,
		v.validateRelease,
		v.validateSite,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config   *Config
	modules  map[string]bool
	packages map[string]bool
}

func invalid(section, format string, args ...any) error {
	return ferrors.ConfigError(fmt.Sprintf(format, args...)).
		WithContext("section", section).
		Build()
}

func (cv *configurationValidator) validateVersion() error {
	if cv.config.Version != CurrentVersion {
		return invalid("version", "unsupported configuration version: %q (expected %q)", cv.config.Version, CurrentVersion)
	}
	return nil
}

func (cv *configurationValidator) validateModules() error {
	if len(cv.config.Modules) == 0 {
		return invalid("modules", "at least one module must be declared")
	}
	for _, m := range cv.config.Modules {
		if !namePattern.MatchString(m.Name) {
			return invalid("modules", "invalid module name %q", m.Name)
		}
		if cv.modules[m.Name] {
			return invalid("modules", "duplicate module name: %s", m.Name)
		}
		cv.modules[m.Name] = true
	}
	for _, m := range cv.config.Modules {
		for _, dep := range m.Uses {
			if !cv.modules[dep] {
				return invalid("modules", "module %s uses unknown module %s", m.Name, dep)
			}
		}
		for _, dep := range m.TestsWith {
			if !cv.modules[dep] {
				return invalid("modules", "module %s tests with unknown module %s", m.Name, dep)
			}
		}
	}
	return cv.validateUsesGraph()
}

// validateUsesGraph rejects cycles in the uses edges, self-use included.
func (cv *configurationValidator) validateUsesGraph() error {
	g := graph.New()
	for _, m := range cv.config.Modules {
		if err := g.AddNode(m.Name, m.Uses...); err != nil {
			return err
		}
	}
	return g.Validate()
}

func (cv *configurationValidator) validateToolchain() error {
	tc := cv.config.Toolchain
	if len(tc.Compile) == 0 {
		return invalid("toolchain", "toolchain.compile command is required")
	}
	if len(cv.config.Tests) > 0 && len(tc.Test) == 0 {
		return invalid("toolchain", "toolchain.test command is required when tests are configured")
	}
	if len(cv.config.Docs) > 0 && len(tc.Doc) == 0 {
		return invalid("toolchain", "toolchain.doc command is required when docs are configured")
	}
	if tc.TestClassFmt != "class" && tc.TestClassFmt != "path" {
		return invalid("toolchain", "test_class_format must be class or path, got %q", tc.TestClassFmt)
	}
	return nil
}

func (cv *configurationValidator) validateTests() error {
	seen := map[string]bool{}
	for _, t := range cv.config.Tests {
		if !cv.modules[t.Module] {
			return invalid("tests", "tests reference unknown module %s", t.Module)
		}
		if seen[t.Module] {
			return invalid("tests", "duplicate tests entry for module %s", t.Module)
		}
		seen[t.Module] = true
		if (t.Pattern == "") == (t.TestID == "") {
			return invalid("tests", "tests for %s need exactly one of pattern or test_id", t.Module)
		}
		if m, _ := cv.config.Module(t.Module); m.TestSource == "" {
			return invalid("tests", "module %s has tests but no test_source", t.Module)
		}
	}
	return nil
}

func (cv *configurationValidator) validatePackages() error {
	for _, p := range cv.config.Packages {
		if !namePattern.MatchString(p.Name) {
			return invalid("packages", "invalid package name %q", p.Name)
		}
		if cv.packages[p.Name] {
			return invalid("packages", "duplicate package name: %s", p.Name)
		}
		cv.packages[p.Name] = true
		if !cv.modules[p.Primary] {
			return invalid("packages", "package %s has unknown primary module %q", p.Name, p.Primary)
		}
		for _, e := range p.Embed {
			if !cv.modules[e] {
				return invalid("packages", "package %s embeds unknown module %s", p.Name, e)
			}
			if e == p.Primary {
				return invalid("packages", "package %s embeds its primary module", p.Name)
			}
		}
	}
	return nil
}

func (cv *configurationValidator) validateDocs() error {
	seen := map[string]bool{}
	for _, d := range cv.config.Docs {
		if !namePattern.MatchString(d.Name) {
			return invalid("docs", "invalid doc set name %q", d.Name)
		}
		if seen[d.Name] {
			return invalid("docs", "duplicate doc set: %s", d.Name)
		}
		seen[d.Name] = true
		if len(d.Modules) == 0 {
			return invalid("docs", "doc set %s lists no modules", d.Name)
		}
		for _, m := range d.Modules {
			if !cv.modules[m] {
				return invalid("docs", "doc set %s references unknown module %s", d.Name, m)
			}
		}
	}
	return nil
}

func (cv *configurationValidator) validateRelease() error {
	r := cv.config.Release
	if len(r.Artifacts) == 0 {
		return nil
	}
	if r.Record == "" {
		return invalid("release", "release.record is required when release artifacts are configured")
	}
	if r.NumberKey == r.BuildKey {
		return invalid("release", "release number_key and build_key must differ")
	}
	seen := map[string]bool{}
	for _, a := range r.Artifacts {
		if !cv.packages[a] {
			return invalid("release", "release artifact %s is not a configured package", a)
		}
		if seen[a] {
			return invalid("release", "release artifact %s listed twice", a)
		}
		seen[a] = true
	}
	return validateTransport("release", r.Transport)
}

func (cv *configurationValidator) validateSite() error {
	s := cv.config.Site
	if slices.Contains([]string{s.ContentDir, cv.config.Project.Root}, s.ServeDir) {
		return invalid("site", "site.serve_dir must not be the content directory or project root")
	}
	for _, r := range s.Reports {
		if r.Source == "" || r.Target == "" {
			return invalid("site", "site reports need source and target")
		}
	}
	if s.Transport.Remote == "" {
		return nil
	}
	return validateTransport("site", s.Transport)
}

func validateTransport(section string, t TransportConfig) error {
	switch t.Kind {
	case TransportLocal, TransportSCP:
		if t.Remote == "" {
			return invalid(section, "%s.transport.remote is required", section)
		}
	case TransportS3:
		if t.S3.Endpoint == "" || t.S3.Bucket == "" {
			return invalid(section, "%s.transport.s3 needs endpoint and bucket", section)
		}
	default:
		return invalid(section, "unknown transport kind %q (expected local, scp or s3)", t.Kind)
	}
	return nil
}
