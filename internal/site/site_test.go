package site

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/transport"
)

const testTemplate = `<html><head><title>{{.Title}}</title></head>
<body class="{{.CenterClass}}" data-root="{{.Root}}">{{.Body}}<footer>{{index .Properties "release"}}</footer></body></html>`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func siteConfig(t *testing.T) config.SiteConfig {
	t.Helper()
	root := t.TempDir()
	content := filepath.Join(root, "content")
	writeFile(t, filepath.Join(content, "index.html"), "<html><head><title>Cotta</title></head><body><p>Welcome</p></body></html>")
	writeFile(t, filepath.Join(content, "about.html"), "<title>About Cotta</title><p>About us</p>")
	writeFile(t, filepath.Join(content, "docs.md"), "# Documentation\n\nUse *TFile*.\n")
	tmpl := filepath.Join(root, "template.html")
	writeFile(t, tmpl, testTemplate)

	return config.SiteConfig{
		ContentDir: content,
		Template:   tmpl,
		Properties: map[string]string{"release": "1.3.1", "prerelease": "n/a", "snapshot": "n/a"},
		ServeDir:   filepath.Join(root, "htdocs"),
		Preview:    config.PreviewConfig{Dir: filepath.Join(root, "build", "preview")},
	}
}

func TestBuildRendersLayoutsAndReplacesServedTree(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.ServeDir, "stale.html"), "old")
	reports := filepath.Join(filepath.Dir(cfg.ServeDir), "build", "reports", "core")
	writeFile(t, filepath.Join(reports, "report.json"), `{"status":"passed"}`)
	cfg.Reports = []config.SiteReport{
		{Source: reports, Target: "reports/core"},
		{Source: filepath.Join(filepath.Dir(cfg.ServeDir), "missing"), Target: "javadoc"},
	}

	b, err := NewBuilder(cfg, nil)
	require.NoError(t, err)
	stats, err := b.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, Stats{Rendered: 3}, stats)

	index := readFile(t, filepath.Join(cfg.ServeDir, "index.html"))
	assert.Contains(t, index, `class="Content3Column"`)
	assert.Contains(t, index, "<title>Cotta</title>")
	assert.Contains(t, index, "<p>Welcome</p>")
	assert.Contains(t, index, "<footer>1.3.1</footer>")

	about := readFile(t, filepath.Join(cfg.ServeDir, "about.html"))
	assert.Contains(t, about, `class="Content2Column"`)
	assert.Contains(t, about, "<title>About Cotta</title>")

	docs := readFile(t, filepath.Join(cfg.ServeDir, "docs.html"))
	assert.Contains(t, docs, `class="Content2Column"`)
	assert.Contains(t, docs, "<title>Documentation</title>")
	assert.Contains(t, docs, "<em>TFile</em>")

	assert.NoFileExists(t, filepath.Join(cfg.ServeDir, "stale.html"))
	assert.FileExists(t, filepath.Join(cfg.ServeDir, "reports", "core", "report.json"))
	assert.NoDirExists(t, filepath.Join(cfg.ServeDir, "javadoc"))

	entries, err := os.ReadDir(filepath.Dir(cfg.ServeDir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "buildmaster-site-", "stage directory left behind")
	}
}

func TestBuildCopiesOtherFilesVerbatim(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.ContentDir, "style.css"), "body{}")
	writeFile(t, filepath.Join(cfg.ContentDir, "samples", "document-sample.java"), "//START TFILE-OPEN")
	writeFile(t, filepath.Join(cfg.ContentDir, "guide", "release-notes.html"), "<p>Notes</p>")

	b, err := NewBuilder(cfg, nil)
	require.NoError(t, err)
	stats, err := b.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Rendered)
	assert.Equal(t, 2, stats.Copied)

	assert.Equal(t, "body{}", readFile(t, filepath.Join(cfg.ServeDir, "style.css")))
	assert.Equal(t, "//START TFILE-OPEN", readFile(t, filepath.Join(cfg.ServeDir, "samples", "document-sample.java")))

	notes := readFile(t, filepath.Join(cfg.ServeDir, "guide", "release-notes.html"))
	assert.Contains(t, notes, "<title>Release Notes</title>")
	assert.Contains(t, notes, `data-root="../"`)
}

func TestBuildDefaultTemplate(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Template = ""

	b, err := NewBuilder(cfg, nil)
	require.NoError(t, err)
	_, err = b.Build(t.Context())
	require.NoError(t, err)

	index := readFile(t, filepath.Join(cfg.ServeDir, "index.html"))
	assert.Contains(t, index, `<div class="Content3Column">`)
	assert.Contains(t, index, "Release 1.3.1")
}

func TestBuildFailureKeepsServedTree(t *testing.T) {
	cfg := siteConfig(t)
	writeFile(t, filepath.Join(cfg.ServeDir, "index.html"), "live")
	cfg.ContentDir = filepath.Join(t.TempDir(), "missing")

	b, err := NewBuilder(cfg, nil)
	require.NoError(t, err)
	_, err = b.Build(t.Context())
	require.Error(t, err)
	assert.Equal(t, "live", readFile(t, filepath.Join(cfg.ServeDir, "index.html")))
}

func TestNewBuilderMissingTemplate(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Template = filepath.Join(t.TempDir(), "nope.html")
	_, err := NewBuilder(cfg, nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestPublishUploadsServedTree(t *testing.T) {
	cfg := siteConfig(t)
	remote := filepath.Join(t.TempDir(), "cotta")
	b, err := NewBuilder(cfg, &transport.Target{Transport: transport.Local{}, Remote: remote})
	require.NoError(t, err)

	_, err = b.Publish(t.Context())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(remote, "index.html"))
	assert.FileExists(t, filepath.Join(remote, "docs.html"))
}

func TestCenterClass(t *testing.T) {
	tests := map[string]string{
		"index.html":        IndexCenterClass,
		"docs/index.md":     IndexCenterClass,
		"about.html":        PageCenterClass,
		"docs.md":           PageCenterClass,
		"indexing.html":     PageCenterClass,
		"guide/reindex.htm": PageCenterClass,
	}
	for rel, want := range tests {
		assert.Equal(t, want, CenterClass(rel), rel)
	}
	assert.Empty(t, rootPrefix("index.html"))
	assert.Equal(t, "../../", rootPrefix("a/b/c.html"))
}

func TestPreviewRebuildAndServe(t *testing.T) {
	cfg := siteConfig(t)
	p := NewPreview(cfg)
	require.NoError(t, p.Rebuild(t.Context()))

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/about.html")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "About us")

	writeFile(t, filepath.Join(cfg.ContentDir, "about.html"), "<p>Changed</p>")
	require.NoError(t, p.Rebuild(t.Context()))
	resp, err = http.Get(srv.URL + "/about.html")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "Changed")

	require.NoError(t, os.Remove(cfg.Template))
	require.Error(t, p.Rebuild(t.Context()))
	resp, err = http.Get(srv.URL + "/about.html")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPreviewRelevant(t *testing.T) {
	cfg := siteConfig(t)
	p := NewPreview(cfg)
	assert.True(t, p.relevant(filepath.Join(cfg.ContentDir, "index.html")))
	assert.False(t, p.relevant(filepath.Join(cfg.ContentDir, ".index.html.swp")))
	assert.False(t, p.relevant(filepath.Join(cfg.ContentDir, "index.html~")))
	assert.True(t, p.relevant(cfg.Template))
	assert.False(t, p.relevant(filepath.Join(filepath.Dir(cfg.Template), "other.txt")))
}
