package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
)

// Page is the data passed to the site template.
type Page struct {
	Path        string // Output path relative to the site root, slash separated
	Root        string // Relative prefix from the page to the site root, e.g. "../"
	Title       string
	Body        template.HTML
	CenterClass string
	Index       bool
	Properties  map[string]string
}

// Stats counts the files produced by a render.
type Stats struct {
	Rendered int
	Copied   int
}

// Renderer turns a content tree into a site tree.
type Renderer struct {
	tmpl   *template.Template
	props  map[string]string
	md     goldmark.Markdown
	titler cases.Caser
}

// NewRenderer loads the page template. An empty templatePath selects the
// built-in template.
func NewRenderer(templatePath string, props map[string]string) (*Renderer, error) {
	tmpl, err := loadTemplate(templatePath)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		tmpl:   tmpl,
		props:  props,
		md:     goldmark.New(),
		titler: cases.Title(language.English),
	}, nil
}

// IsIndex reports whether a content path is an index item.
func IsIndex(rel string) bool {
	base := path.Base(filepath.ToSlash(rel))
	return strings.TrimSuffix(base, path.Ext(base)) == "index"
}

// CenterClass returns the layout class for a content path.
func CenterClass(rel string) string {
	if IsIndex(rel) {
		return IndexCenterClass
	}
	return PageCenterClass
}

// RenderTree renders every file below contentDir into outDir, which must exist.
func (r *Renderer) RenderTree(ctx context.Context, contentDir, outDir string) (Stats, error) {
	var stats Stats
	files, err := fsutil.FindFiles(contentDir, func(_ string, d fs.DirEntry) bool { return d.Type().IsRegular() })
	if err != nil {
		return stats, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot list site content").
			WithContext("path", contentDir).
			Build()
	}
	if files == nil && !fsutil.Exists(contentDir) {
		return stats, ferrors.ConfigError(fmt.Sprintf("site content directory %s does not exist", contentDir)).
			WithContext("path", contentDir).
			Build()
	}

	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rel, err := filepath.Rel(contentDir, src)
		if err != nil {
			return stats, ferrors.InternalError("content file outside content directory").WithCause(err).Build()
		}
		rendered, err := r.renderFile(src, rel, outDir)
		if err != nil {
			return stats, err
		}
		if rendered {
			stats.Rendered++
		} else {
			stats.Copied++
		}
	}
	slog.Debug("Rendered site content", logfields.Path(outDir), slog.Int("rendered", stats.Rendered), slog.Int("copied", stats.Copied))
	return stats, nil
}

func (r *Renderer) renderFile(src, rel, outDir string) (bool, error) {
	rel = filepath.ToSlash(rel)
	ext := strings.ToLower(path.Ext(rel))

	var title string
	var body []byte
	outRel := rel
	switch ext {
	case ".html", ".htm":
		data, err := os.ReadFile(src)
		if err != nil {
			return false, readFailure(err, src)
		}
		title, body, err = splitHTML(data)
		if err != nil {
			return false, ferrors.BuildError(fmt.Sprintf("cannot parse %s", rel)).WithCause(err).WithContext("path", src).Build()
		}
	case ".md", ".markdown":
		data, err := os.ReadFile(src)
		if err != nil {
			return false, readFailure(err, src)
		}
		title, body, err = r.convertMarkdown(data)
		if err != nil {
			return false, ferrors.BuildError(fmt.Sprintf("cannot convert %s", rel)).WithCause(err).WithContext("path", src).Build()
		}
		outRel = strings.TrimSuffix(rel, path.Ext(rel)) + ".html"
	default:
		if err := fsutil.CopyFile(src, filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, fmt.Sprintf("cannot copy %s", rel)).
				WithContext("path", src).
				Build()
		}
		return false, nil
	}

	if title == "" {
		title = r.titleFromName(rel)
	}
	page := Page{
		Path:        outRel,
		Root:        rootPrefix(outRel),
		Title:       title,
		Body:        template.HTML(body), //nolint:gosec // content tree is trusted site source
		CenterClass: CenterClass(rel),
		Index:       IsIndex(rel),
		Properties:  r.props,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, page); err != nil {
		return false, ferrors.BuildError(fmt.Sprintf("cannot render %s", rel)).WithCause(err).WithContext("path", src).Build()
	}
	dst := filepath.Join(outDir, filepath.FromSlash(outRel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot create output directory").WithContext("path", dst).Build()
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, fmt.Sprintf("cannot write %s", outRel)).WithContext("path", dst).Build()
	}
	return true, nil
}

// titleFromName derives a title such as "Release Notes" from release-notes.html.
func (r *Renderer) titleFromName(rel string) string {
	base := path.Base(rel)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return r.titler.String(base)
}

// splitHTML extracts the <title> text and the inner HTML of <body>.
func splitHTML(data []byte) (string, []byte, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", nil, err
	}

	var title string
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if title == "" {
					title = strings.TrimSpace(nodeText(n))
				}
			case atom.Body:
				if body == nil {
					body = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var buf bytes.Buffer
	if body != nil {
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", nil, err
			}
		}
	}
	return title, bytes.TrimSpace(buf.Bytes()), nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// convertMarkdown renders Markdown and takes the title from the first
// level-one heading.
func (r *Renderer) convertMarkdown(src []byte) (string, []byte, error) {
	root := r.md.Parser().Parse(text.NewReader(src))

	var title string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if h, ok := n.(*gmast.Heading); ok && entering && h.Level == 1 {
			title = headingText(h, src)
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, root); err != nil {
		return "", nil, err
	}
	return title, buf.Bytes(), nil
}

func headingText(h gmast.Node, src []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(h, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if t, ok := n.(*gmast.Text); ok && entering {
			sb.Write(t.Segment.Value(src))
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// rootPrefix returns "../" once per directory level of rel.
func rootPrefix(rel string) string {
	depth := strings.Count(rel, "/")
	return strings.Repeat("../", depth)
}

func readFailure(err error, path string) error {
	return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot read site content").
		WithContext("path", path).
		Build()
}
