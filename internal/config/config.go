package config

// CurrentVersion is the configuration format version written by Init.
const CurrentVersion = "1"

// DefaultFile is the configuration file name looked up when -c is not given.
const DefaultFile = "buildmaster.yaml"

// Config is the root of buildmaster.yaml.
type Config struct {
	Version   string          `yaml:"version"`
	Project   ProjectConfig   `yaml:"project"`
	Modules   []ModuleConfig  `yaml:"modules"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Tests     []TestConfig    `yaml:"tests,omitempty"`
	Packages  []PackageConfig `yaml:"packages,omitempty"`
	Docs      []DocConfig     `yaml:"docs,omitempty"`
	Release   ReleaseConfig   `yaml:"release,omitempty"`
	Site      SiteConfig      `yaml:"site,omitempty"`
	Journal   JournalConfig   `yaml:"journal,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`

	// baseDir is the directory containing the loaded file; relative paths resolve against it.
	baseDir string
}

// ProjectConfig holds the top-level directory layout.
type ProjectConfig struct {
	Name      string `yaml:"name"`
	Root      string `yaml:"root,omitempty"`
	BuildDir  string `yaml:"build_dir,omitempty"`  // Parent of default module outputs
	ReportDir string `yaml:"report_dir,omitempty"` // Test reports, one subdirectory per module
	DistDir   string `yaml:"dist_dir,omitempty"`   // Packaged artifacts and API docs
}

// ModuleConfig declares one buildable module.
type ModuleConfig struct {
	Name          string   `yaml:"name"`
	Root          string   `yaml:"root"`
	TargetVersion string   `yaml:"target_version,omitempty"` // Opaque marker passed to the compiler
	Source        string   `yaml:"source,omitempty"`
	TestSource    string   `yaml:"test_source,omitempty"`
	TestResources string   `yaml:"test_resources,omitempty"`
	Output        string   `yaml:"output,omitempty"`
	TestOutput    string   `yaml:"test_output,omitempty"`
	Uses          []string `yaml:"uses,omitempty"`          // Other modules, in declaration order
	UsesFiles     []string `yaml:"uses_files,omitempty"`    // Single external artifacts
	UsesFilesIn   []string `yaml:"uses_files_in,omitempty"` // Every file of these directories
	TestsWith     []string `yaml:"tests_with,omitempty"`    // Modules on the test classpath only
}

// ToolchainConfig describes the external compiler, test engine and doc tool.
//
// Command templates are argument lists. Within an argument the placeholders
// {output}, {classpath}, {source}, {module}, {report} and {target} are
// replaced; an argument that is exactly @sources, @tests or @params expands to
// the corresponding list.
type ToolchainConfig struct {
	Compile      []string `yaml:"compile"`
	Test         []string `yaml:"test,omitempty"`
	Coverage     []string `yaml:"coverage,omitempty"` // Prefix wrapped around Test when coverage is on
	Doc          []string `yaml:"doc,omitempty"`
	SourceExt    []string `yaml:"source_ext,omitempty"`
	PathListSep  string   `yaml:"path_list_separator,omitempty"`
	TestClassFmt string   `yaml:"test_class_format,omitempty"` // "class" maps a/b/FooTest.java to a.b.FooTest; "path" keeps paths
}

// TestConfig selects the tests to run for a module.
type TestConfig struct {
	Module   string   `yaml:"module"`
	Pattern  string   `yaml:"pattern,omitempty"` // File name glob, e.g. *Test.java
	TestID   string   `yaml:"test_id,omitempty"` // Single explicit test identifier
	Coverage bool     `yaml:"coverage,omitempty"`
	Params   []string `yaml:"params,omitempty"`
	Advisory bool     `yaml:"advisory,omitempty"`
}

// PackageConfig describes one packaged artifact pair (<name>.jar, <name>-src.zip).
type PackageConfig struct {
	Name     string   `yaml:"name"`
	Primary  string   `yaml:"primary"`
	Embed    []string `yaml:"embed,omitempty"`
	Manifest string   `yaml:"manifest,omitempty"`
}

// DocConfig describes one API documentation set written to <dist>/api/<name>.
type DocConfig struct {
	Name    string   `yaml:"name"`
	Modules []string `yaml:"modules"`
}

// TransportKind selects how files reach a remote location.
type TransportKind string

const (
	TransportLocal TransportKind = "local"
	TransportSCP   TransportKind = "scp"
	TransportS3    TransportKind = "s3"
)

// TransportConfig configures an upload target.
type TransportConfig struct {
	Kind   TransportKind `yaml:"kind,omitempty"`
	Remote string        `yaml:"remote"` // Directory, user@host:/path, or key prefix
	SCP    SCPConfig     `yaml:"scp,omitempty"`
	S3     S3Config      `yaml:"s3,omitempty"`
}

// SCPConfig configures the secure-copy client.
type SCPConfig struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
}

// S3Config configures an S3-compatible object store.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
}

// ReleaseConfig configures the release coordinator.
type ReleaseConfig struct {
	Record       string          `yaml:"record"`
	NumberKey    string          `yaml:"number_key,omitempty"`
	BuildKey     string          `yaml:"build_key,omitempty"`
	TagPrefix    string          `yaml:"tag_prefix,omitempty"`
	CommitPrefix string          `yaml:"commit_prefix,omitempty"`
	BuildTargets []string        `yaml:"build_targets,omitempty"`
	Artifacts    []string        `yaml:"artifacts,omitempty"`
	Transport    TransportConfig `yaml:"transport,omitempty"`
	Announce     AnnounceConfig  `yaml:"announce,omitempty"`
	Author       AuthorConfig    `yaml:"author,omitempty"`
}

// AuthorConfig is the commit and tag identity used by releases.
type AuthorConfig struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// AnnounceConfig configures the optional release announcement.
type AnnounceConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Enabled reports whether an announcement should be published.
func (a AnnounceConfig) Enabled() bool { return a.NATSURL != "" }

// SiteConfig configures the documentation site builder.
type SiteConfig struct {
	ContentDir string            `yaml:"content_dir,omitempty"`
	Template   string            `yaml:"template,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"` // release, prerelease, snapshot
	ServeDir   string            `yaml:"serve_dir,omitempty"`
	Reports    []SiteReport      `yaml:"reports,omitempty"`
	Transport  TransportConfig   `yaml:"transport,omitempty"`
	Preview    PreviewConfig     `yaml:"preview,omitempty"`
}

// SiteReport copies a report directory into the served tree.
type SiteReport struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// PreviewConfig configures the local preview server.
type PreviewConfig struct {
	Addr string `yaml:"addr,omitempty"`
	Dir  string `yaml:"dir,omitempty"`
}

// JournalConfig locates the run journal database.
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig configures the Prometheus textfile written at the end of a run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// SiteProperties are the fixed template property names.
var SiteProperties = []string{"release", "prerelease", "snapshot"}

// Module returns the module config with the given name.
func (c *Config) Module(name string) (ModuleConfig, bool) {
	for _, m := range c.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return ModuleConfig{}, false
}

// Package returns the package config with the given name.
func (c *Config) Package(name string) (PackageConfig, bool) {
	for _, p := range c.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return PackageConfig{}, false
}

// BaseDir returns the directory the configuration was loaded from.
func (c *Config) BaseDir() string { return c.baseDir }
