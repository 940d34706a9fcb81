package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

const minimalYAML = `
version: "1"
project:
  name: demo
modules:
  - name: asserts
  - name: core
    uses: [asserts]
    test_source: test
    uses_files: [lib/junit.jar]
toolchain:
  compile: [javac, -d, "{output}", "@sources"]
  test: [java, "@tests"]
tests:
  - module: core
    pattern: "*Test.java"
packages:
  - name: demo
    primary: core
    embed: [asserts]
release:
  record: core/src/META-INF/MANIFEST.MF
  artifacts: [demo]
  transport:
    remote: published
`

func TestParseAppliesDefaults(t *testing.T) {
	base := t.TempDir()
	cfg, err := Parse([]byte(minimalYAML), base)
	require.NoError(t, err)

	assert.Equal(t, base, cfg.Project.Root)
	assert.Equal(t, filepath.Join(base, "build"), cfg.Project.BuildDir)
	assert.Equal(t, filepath.Join(base, "dist"), cfg.Project.DistDir)

	core, ok := cfg.Module("core")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(base, "core"), core.Root)
	assert.Equal(t, filepath.Join(base, "core", "src"), core.Source)
	assert.Equal(t, filepath.Join(base, "core", "test"), core.TestSource)
	assert.Equal(t, filepath.Join(base, "build", "core", "classes"), core.Output)
	assert.Equal(t, []string{filepath.Join(base, "lib", "junit.jar")}, core.UsesFiles)

	r := cfg.Release
	assert.Equal(t, filepath.Join(base, "core", "src", "META-INF", "MANIFEST.MF"), r.Record)
	assert.Equal(t, DefaultNumberKey, r.NumberKey)
	assert.Equal(t, DefaultBuildKey, r.BuildKey)
	assert.Equal(t, "version-", r.TagPrefix)
	assert.Equal(t, "releasing", r.CommitPrefix)
	assert.Equal(t, []string{"package"}, r.BuildTargets)
	assert.Equal(t, TransportLocal, r.Transport.Kind)
	assert.Equal(t, filepath.Join(base, "published"), r.Transport.Remote)

	assert.Equal(t, filepath.Join(base, "htdocs"), cfg.Site.ServeDir)
	for _, k := range SiteProperties {
		_, ok := cfg.Site.Properties[k]
		assert.True(t, ok, "property %s should default", k)
	}
	assert.Equal(t, filepath.Join(base, ".buildmaster", "journal.db"), cfg.Journal.Path)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"wrong version", `version: "9"
modules: [{name: a}]
toolchain: {compile: [cc]}`},
		{"no modules", `version: "1"
toolchain: {compile: [cc]}`},
		{"duplicate module", `version: "1"
modules: [{name: a}, {name: a}]
toolchain: {compile: [cc]}`},
		{"unknown uses", `version: "1"
modules: [{name: a, uses: [b]}]
toolchain: {compile: [cc]}`},
		{"missing compile", `version: "1"
modules: [{name: a}]`},
		{"test needs selection", `version: "1"
modules: [{name: a, test_source: t}]
toolchain: {compile: [cc], test: [run]}
tests: [{module: a}]`},
		{"test pattern and id", `version: "1"
modules: [{name: a, test_source: t}]
toolchain: {compile: [cc], test: [run]}
tests: [{module: a, pattern: "*Test.java", test_id: x.AllTests}]`},
		{"package unknown primary", `version: "1"
modules: [{name: a}]
toolchain: {compile: [cc]}
packages: [{name: p, primary: b}]`},
		{"release unknown artifact", `version: "1"
modules: [{name: a}]
toolchain: {compile: [cc]}
packages: [{name: p, primary: a}]
release: {record: VERSION, artifacts: [q], transport: {remote: out}}`},
		{"release bad transport", `version: "1"
modules: [{name: a}]
toolchain: {compile: [cc]}
packages: [{name: p, primary: a}]
release: {record: VERSION, artifacts: [p], transport: {kind: ftp, remote: out}}`},
		{"s3 without bucket", `version: "1"
modules: [{name: a}]
toolchain: {compile: [cc]}
packages: [{name: p, primary: a}]
release: {record: VERSION, artifacts: [p], transport: {kind: s3, s3: {endpoint: localhost:9000}}}`},
		{"unknown field", `version: "1"
modules: [{name: a, colour: red}]
toolchain: {compile: [cc]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), t.TempDir())
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig), "got %v", err)
		})
	}
}

func TestUsesCyclesAreCycleErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		cycle string
	}{
		{"self use", `version: "1"
modules: [{name: a, uses: [a]}]
toolchain: {compile: [cc]}`, "a -> a"},
		{"two modules", `version: "1"
modules: [{name: a, uses: [b]}, {name: b, uses: [a]}]
toolchain: {compile: [cc]}`, "a -> b -> a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), t.TempDir())
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCycle), "got %v", err)
			assert.False(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
			cycle, _ := ferrors.GetContextString(err, "cycle")
			assert.Equal(t, tt.cycle, cycle)
		})
	}
}

func TestLoadExpandsEnvFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	const key = "BUILDMASTER_TEST_REMOTE_DIR"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=from-dotenv\n"), 0o600))
	yamlText := `version: "1"
modules: [{name: a}]
toolchain: {compile: [cc]}
packages: [{name: p, primary: a}]
release: {record: VERSION, artifacts: [p], transport: {kind: scp, remote: "host:${` + key + `}"}}
`
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "host:from-dotenv", cfg.Release.Transport.Remote)
	assert.Equal(t, DefaultSCPCommand, cfg.Release.Transport.SCP.Command)
	assert.Equal(t, dir, cfg.BaseDir())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInitWritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)

	require.NoError(t, Init(path, false))
	err := Init(path, false)
	require.Error(t, err, "second init without force must fail")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Modules, 4)
	pkg, ok := cfg.Package("cotta")
	require.True(t, ok)
	assert.Equal(t, []string{"ftp"}, pkg.Embed)
	assert.Equal(t, "net.sf.cotta.ftp.AllTests", cfg.Tests[2].TestID)
}
