package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

// Load reads, expands, defaults and validates a configuration file.
//
// .env and .env.local next to the file are loaded first, then ${VAR}
// references in the YAML are expanded from the environment.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid configuration path").
			WithContext("path", configPath).Build()
	}
	baseDir := filepath.Dir(absPath)

	if _, err := loadEnvFiles(baseDir); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to load .env file").
			WithContext("path", baseDir).Build()
	}

	data, err := os.ReadFile(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ferrors.ConfigError("configuration file not found").
			WithContext("path", absPath).Build()
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", absPath).Build()
	}

	cfg, err := Parse(data, baseDir)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration bytes as if they were loaded from baseDir.
// Unknown keys are rejected.
func Parse(data []byte, baseDir string) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse configuration").Build()
	}
	cfg.baseDir = baseDir

	applyDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).Build()
	}

	data, err := yaml.Marshal(ExampleConfig())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal example config").Build()
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}

// ExampleConfig returns the configuration written by Init: a library with an
// assertion module, a shared test base, a core and an optional ftp extension.
func ExampleConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Project: ProjectConfig{Name: "cotta", BuildDir: DefaultBuildDir, ReportDir: DefaultReportDir, DistDir: DefaultDistDir},
		Modules: []ModuleConfig{
			{Name: "asserts", Root: "asserts", TargetVersion: "1.5", Source: "src", TestSource: "test", UsesFiles: []string{"lib/junit.jar"}},
			{Name: "testbase", Root: "testbase", TargetVersion: "1.5", Uses: []string{"asserts"}, UsesFiles: []string{"lib/junit.jar"}},
			{Name: "core", Root: "core", TargetVersion: "1.5", TestSource: "test", Uses: []string{"testbase"}, UsesFiles: []string{"lib/junit.jar"}},
			{Name: "ftp", Root: "ftp", TargetVersion: "1.5", TestSource: "test", Uses: []string{"core"}, UsesFilesIn: []string{"ftp/lib"}, TestsWith: []string{"testbase"}},
		},
		Toolchain: ToolchainConfig{
			Compile:  []string{"javac", "-source", "{target}", "-target", "{target}", "-d", "{output}", "-cp", "{classpath}", "@sources"},
			Test:     []string{"java", "@params", "-cp", "{classpath}", "org.junit.runner.JUnitCore", "@tests"},
			Coverage: []string{"cobertura-run", "--datafile", "{report}/cobertura.ser", "--"},
			Doc:      []string{"javadoc", "-d", "{output}", "-sourcepath", "{source}", "-classpath", "{classpath}", "@sources"},
		},
		Tests: []TestConfig{
			{Module: "asserts", Pattern: "*Test.java", Coverage: true},
			{Module: "core", Pattern: "*Test.java", Coverage: true},
			{Module: "ftp", TestID: "net.sf.cotta.ftp.AllTests", Params: []string{"-Xmx512m"}},
		},
		Packages: []PackageConfig{
			{Name: "cotta-asserts", Primary: "asserts"},
			{Name: "cotta-testbase", Primary: "testbase"},
			{Name: "cotta", Primary: "core", Embed: []string{"ftp"}, Manifest: "core/src/META-INF/MANIFEST.MF"},
		},
		Docs: []DocConfig{{Name: "cotta", Modules: []string{"core", "ftp"}}},
		Release: ReleaseConfig{
			Record:    "core/src/META-INF/MANIFEST.MF",
			Artifacts: []string{"cotta", "cotta-testbase"},
			Transport: TransportConfig{Kind: TransportSCP, Remote: "${RELEASE_HOST}:/home/groups/c/co/cotta/htdocs/builds"},
		},
		Site: SiteConfig{
			ContentDir: DefaultContentDir,
			Template:   "site/template.html",
			Properties: map[string]string{"release": "1.0", "prerelease": "", "snapshot": ""},
			ServeDir:   DefaultServeDir,
			Reports: []SiteReport{
				{Source: "dist/api/cotta", Target: "javadoc"},
				{Source: "build/reports", Target: "reports"},
			},
			Transport: TransportConfig{Kind: TransportSCP, Remote: "${SITE_HOST}:/home/groups/c/co/cotta"},
		},
		Metrics: MetricsConfig{Textfile: "build/buildmaster.prom"},
	}
}
