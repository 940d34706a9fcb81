package packager

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"git.home.luguber.info/inful/buildmaster/internal/build"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/module"
	"git.home.luguber.info/inful/buildmaster/internal/observability"
)

// ManifestPath is the archive path of the manifest override.
const ManifestPath = "META-INF/MANIFEST.MF"

// Kind distinguishes the two artifacts of a package.
type Kind string

const (
	KindCompiled Kind = "compiled"
	KindSource   Kind = "source"
)

// Artifact is one file produced by the packager.
type Artifact struct {
	Name string
	Kind Kind
	Path string
	Size int64
}

// CompiledName returns the file name of a compiled bundle.
func CompiledName(name string) string { return name + ".jar" }

// SourceName returns the file name of a source bundle.
func SourceName(name string) string { return name + "-src.zip" }

// VersionedCompiledName returns the compiled bundle name carrying a label.
func VersionedCompiledName(name, label string) string { return name + "-" + label + ".jar" }

// VersionedSourceName returns the source bundle name carrying a label.
func VersionedSourceName(name, label string) string { return name + "-" + label + "-src.zip" }

// Spec describes one package.
type Spec struct {
	Name     string
	Primary  string
	Embed    []string
	Manifest string // optional file written to META-INF/MANIFEST.MF
}

// Packager writes artifacts into a dist directory.
type Packager struct {
	modules *module.Set
	distDir string
}

// New creates a packager.
func New(modules *module.Set, distDir string) *Packager {
	return &Packager{modules: modules, distDir: distDir}
}

// DistDir returns the artifact directory.
func (p *Packager) DistDir() string { return p.distDir }

// Package writes <dist>/<name>.jar and <dist>/<name>-src.zip. Every included
// module must have a non-empty output directory.
func (p *Packager) Package(ctx context.Context, spec Spec) ([]Artifact, error) {
	mods := make([]*module.Module, 0, 1+len(spec.Embed))
	for _, name := range append([]string{spec.Primary}, spec.Embed...) {
		m, ok := p.modules.Get(name)
		if !ok {
			return nil, ferrors.ValidationError(fmt.Sprintf("package %s references unknown module %q", spec.Name, name)).Build()
		}
		mods = append(mods, m)
	}

	if err := build.RequireOutputs(spec.Primary, mods); err != nil {
		return nil, err
	}
	if spec.Manifest != "" && !fsutil.Exists(spec.Manifest) {
		return nil, ferrors.BuildError(fmt.Sprintf("manifest %s for package %s not found", spec.Manifest, spec.Name)).
			WithContext("path", spec.Manifest).Build()
	}

	if err := os.MkdirAll(p.distDir, 0o750); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot create dist directory").
			WithContext("path", p.distDir).Build()
	}

	var compiled, sources []tree
	for _, m := range mods {
		compiled = append(compiled, tree{root: m.OutputDir})
		sources = append(sources, tree{root: m.SourceDir})
	}

	jar, err := p.write(ctx, spec.Name, KindCompiled, CompiledName(spec.Name), compiled, spec.Manifest)
	if err != nil {
		return nil, err
	}
	src, err := p.write(ctx, spec.Name, KindSource, SourceName(spec.Name), sources, "")
	if err != nil {
		return nil, err
	}
	return []Artifact{jar, src}, nil
}

type tree struct {
	root string
}

func (p *Packager) write(ctx context.Context, name string, kind Kind, fileName string, trees []tree, manifest string) (Artifact, error) {
	target := filepath.Join(p.distDir, fileName)
	tmp, err := os.CreateTemp(p.distDir, "."+fileName+".tmp-*")
	if err != nil {
		return Artifact{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot create temporary artifact").
			WithContext("path", p.distDir).Build()
	}
	tmpName := tmp.Name()
	fail := func(err error) (Artifact, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return Artifact{}, ferrors.WrapError(err, ferrors.CategoryBuild, fmt.Sprintf("cannot write %s", fileName)).
			WithContext("artifact", fileName).Build()
	}

	zw := zip.NewWriter(tmp)
	seen := map[string]bool{}
	if manifest != "" {
		if err := addFile(zw, manifest, ManifestPath); err != nil {
			return fail(err)
		}
		seen[ManifestPath] = true
	}
	for _, t := range trees {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := addTree(zw, t.root, seen); err != nil {
			return fail(err)
		}
	}
	if err := zw.Close(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return Artifact{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot move artifact into place").
			WithContext("path", target).Build()
	}

	info, err := os.Stat(target)
	if err != nil {
		return Artifact{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot stat artifact").
			WithContext("path", target).Build()
	}
	observability.InfoContext(ctx, "Artifact written",
		logfields.Artifact(fileName),
		logfields.Path(target),
		logfields.Count(len(seen)),
		slog.String("size", humanize.Bytes(uint64(info.Size()))))
	return Artifact{Name: name, Kind: kind, Path: target, Size: info.Size()}, nil
}

// addTree adds every regular file under root. Entries already present keep
// their first occurrence, so the manifest override and earlier modules win.
func addTree(zw *zip.Writer, root string, seen map[string]bool) error {
	if !fsutil.Exists(root) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if seen[name] {
			return nil
		}
		seen[name] = true
		return addFile(zw, path, name)
	})
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	hdr.Modified = info.ModTime().Truncate(2 * time.Second)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// Extract unpacks an artifact into dest and returns the extracted entry names.
// Entries escaping dest are rejected.
func Extract(artifact, dest string) ([]string, error) {
	zr, err := zip.OpenReader(artifact)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryArtifact, "cannot open artifact").
			WithContext("path", artifact).Build()
	}
	defer func() { _ = zr.Close() }()

	cleanDest := filepath.Clean(dest) + string(os.PathSeparator)
	var names []string
	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, cleanDest) {
			return nil, ferrors.ValidationError(fmt.Sprintf("archive entry %q escapes destination", f.Name)).
				WithContext("path", artifact).Build()
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return nil, err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot extract entry").
				WithContext("path", target).Build()
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
