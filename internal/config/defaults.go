package config

import (
	"path/filepath"
	"strings"
)

// Default values applied when the corresponding field is omitted.
const (
	DefaultBuildDir     = "build"
	DefaultReportDir    = "build/reports"
	DefaultDistDir      = "dist"
	DefaultSourceDir    = "src"
	DefaultNumberKey    = "Implementation-Version"
	DefaultBuildKey     = "Implementation-Build"
	DefaultTagPrefix    = "version-"
	DefaultCommitPrefix = "releasing"
	DefaultBuildTarget  = "package"
	DefaultJournalPath  = ".buildmaster/journal.db"
	DefaultContentDir   = "site/content"
	DefaultServeDir     = "htdocs"
	DefaultPreviewAddr  = "127.0.0.1:8000"
	DefaultSCPCommand   = "scp"
	DefaultAuthorName   = "buildmaster"
	DefaultAuthorEmail  = "buildmaster@localhost"
)

// applyDefaults fills omitted fields and resolves every relative path against
// the project root, which itself resolves against the config file directory.
func applyDefaults(cfg *Config) {
	p := &cfg.Project
	if p.Root == "" {
		p.Root = "."
	}
	p.Root = resolve(cfg.baseDir, p.Root)
	root := p.Root
	p.BuildDir = resolve(root, orDefault(p.BuildDir, DefaultBuildDir))
	p.ReportDir = resolve(root, orDefault(p.ReportDir, DefaultReportDir))
	p.DistDir = resolve(root, orDefault(p.DistDir, DefaultDistDir))
	if p.Name == "" {
		p.Name = filepath.Base(root)
	}

	for i := range cfg.Modules {
		applyModuleDefaults(&cfg.Modules[i], cfg)
	}

	tc := &cfg.Toolchain
	if len(tc.SourceExt) == 0 {
		tc.SourceExt = []string{".java"}
	}
	if tc.PathListSep == "" {
		tc.PathListSep = string(filepath.ListSeparator)
	}
	if tc.TestClassFmt == "" {
		tc.TestClassFmt = "class"
	}

	for i := range cfg.Packages {
		if cfg.Packages[i].Manifest != "" {
			cfg.Packages[i].Manifest = resolve(root, cfg.Packages[i].Manifest)
		}
	}

	r := &cfg.Release
	if r.Record != "" {
		r.Record = resolve(root, r.Record)
	}
	r.NumberKey = orDefault(r.NumberKey, DefaultNumberKey)
	r.BuildKey = orDefault(r.BuildKey, DefaultBuildKey)
	r.TagPrefix = orDefault(r.TagPrefix, DefaultTagPrefix)
	r.CommitPrefix = orDefault(r.CommitPrefix, DefaultCommitPrefix)
	if len(r.BuildTargets) == 0 {
		r.BuildTargets = []string{DefaultBuildTarget}
	}
	r.Author.Name = orDefault(r.Author.Name, DefaultAuthorName)
	r.Author.Email = orDefault(r.Author.Email, DefaultAuthorEmail)
	applyTransportDefaults(&r.Transport, root)
	if r.Announce.Enabled() && r.Announce.Subject == "" {
		r.Announce.Subject = "buildmaster.release." + p.Name
	}

	s := &cfg.Site
	s.ContentDir = resolve(root, orDefault(s.ContentDir, DefaultContentDir))
	if s.Template != "" {
		s.Template = resolve(root, s.Template)
	}
	s.ServeDir = resolve(root, orDefault(s.ServeDir, DefaultServeDir))
	for i := range s.Reports {
		s.Reports[i].Source = resolve(root, s.Reports[i].Source)
	}
	if s.Properties == nil {
		s.Properties = map[string]string{}
	}
	for _, k := range SiteProperties {
		if _, ok := s.Properties[k]; !ok {
			s.Properties[k] = ""
		}
	}
	s.Preview.Addr = orDefault(s.Preview.Addr, DefaultPreviewAddr)
	s.Preview.Dir = resolve(root, orDefault(s.Preview.Dir, filepath.Join(p.BuildDir, "preview")))
	applyTransportDefaults(&s.Transport, root)

	cfg.Journal.Path = resolve(root, orDefault(cfg.Journal.Path, DefaultJournalPath))
	if cfg.Metrics.Textfile != "" {
		cfg.Metrics.Textfile = resolve(root, cfg.Metrics.Textfile)
	}
}

func applyModuleDefaults(m *ModuleConfig, cfg *Config) {
	root := cfg.Project.Root
	if m.Root == "" {
		m.Root = m.Name
	}
	m.Root = resolve(root, m.Root)
	m.Source = resolve(m.Root, orDefault(m.Source, DefaultSourceDir))
	if m.TestSource != "" {
		m.TestSource = resolve(m.Root, m.TestSource)
	}
	if m.TestResources != "" {
		m.TestResources = resolve(m.Root, m.TestResources)
	}
	m.Output = resolve(root, orDefault(m.Output, filepath.Join(cfg.Project.BuildDir, m.Name, "classes")))
	m.TestOutput = resolve(root, orDefault(m.TestOutput, filepath.Join(cfg.Project.BuildDir, m.Name, "test-classes")))
	for i := range m.UsesFiles {
		m.UsesFiles[i] = resolve(root, m.UsesFiles[i])
	}
	for i := range m.UsesFilesIn {
		m.UsesFilesIn[i] = resolve(root, m.UsesFilesIn[i])
	}
}

func applyTransportDefaults(t *TransportConfig, root string) {
	if t.Kind == "" {
		t.Kind = TransportLocal
	}
	t.Kind = TransportKind(strings.ToLower(string(t.Kind)))
	if t.Kind == TransportLocal && t.Remote != "" {
		t.Remote = resolve(root, t.Remote)
	}
	if t.Kind == TransportSCP {
		t.SCP.Command = orDefault(t.SCP.Command, DefaultSCPCommand)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	abs, err := filepath.Abs(filepath.Join(base, p))
	if err != nil {
		return filepath.Join(base, p)
	}
	return abs
}
