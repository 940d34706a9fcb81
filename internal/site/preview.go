package site

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/fsutil"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/workspace"
)

// debounceDelay coalesces bursts of file events into one render.
const debounceDelay = 300 * time.Millisecond

// Preview serves the rendered content tree over HTTP and re-renders it
// whenever the content or the template changes.
type Preview struct {
	cfg  config.SiteConfig
	ws   *workspace.Manager
	addr string

	mu      sync.Mutex
	lastErr error
}

// NewPreview prepares a preview server rendering into cfg.Preview.Dir.
func NewPreview(cfg config.SiteConfig) *Preview {
	dir := cfg.Preview.Dir
	return &Preview{
		cfg:  cfg,
		ws:   workspace.NewPersistentManager(filepath.Dir(dir), filepath.Base(dir)),
		addr: cfg.Preview.Addr,
	}
}

// Dir returns the directory the preview renders into.
func (p *Preview) Dir() string { return p.ws.GetPath() }

// Rebuild renders the content tree into the preview directory. The template
// is reloaded every time so template edits show up too.
func (p *Preview) Rebuild(ctx context.Context) error {
	err := p.rebuild(ctx)
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	return err
}

func (p *Preview) rebuild(ctx context.Context) error {
	renderer, err := NewRenderer(p.cfg.Template, p.cfg.Properties)
	if err != nil {
		return err
	}
	if err := p.ws.Create(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot create preview directory").Build()
	}
	if err := fsutil.ReplaceDir(p.Dir()); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot reset preview directory").
			WithContext("path", p.Dir()).
			Build()
	}
	stats, err := renderer.RenderTree(ctx, p.cfg.ContentDir, p.Dir())
	if err != nil {
		return err
	}
	slog.Info("Preview rendered", slog.Int("rendered", stats.Rendered), slog.Int("copied", stats.Copied))
	return nil
}

// Handler serves the preview directory. While the last render failed, every
// request gets the error instead of stale pages.
func (p *Preview) Handler() http.Handler {
	files := http.FileServer(http.Dir(p.Dir()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		lastErr := p.lastErr
		p.mu.Unlock()
		if lastErr != nil {
			http.Error(w, "render failed: "+lastErr.Error(), http.StatusInternalServerError)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// Serve renders once, then serves until ctx is cancelled.
func (p *Preview) Serve(ctx context.Context) error {
	if err := p.Rebuild(ctx); err != nil {
		slog.Error("Initial preview render failed", logfields.Error(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.InternalError("cannot start file watcher").WithCause(err).Build()
	}
	defer func() { _ = watcher.Close() }()
	addDirsRecursive(watcher, p.cfg.ContentDir)
	if p.cfg.Template != "" {
		if err := watcher.Add(filepath.Dir(p.cfg.Template)); err != nil {
			slog.Warn("Cannot watch template directory", logfields.Path(p.cfg.Template), logfields.Error(err))
		}
	}

	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return ferrors.ConfigError("cannot listen on " + p.addr).WithCause(err).WithContext("addr", p.addr).Build()
	}
	server := &http.Server{Handler: p.Handler(), ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ln) }()
	slog.Info("Preview server listening", slog.String("url", "http://"+ln.Addr().String()))

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Preview server shutdown error", logfields.Error(err))
			}
			return nil
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return ferrors.InternalError("preview server failed").WithCause(err).Build()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !p.relevant(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					addDirsRecursive(watcher, ev.Name)
				}
			}
			slog.Debug("Content change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})
		case <-rebuild:
			if err := p.Rebuild(ctx); err != nil {
				slog.Warn("Preview render failed", logfields.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// relevant filters out editor temp files and, in the template directory,
// every file but the template.
func (p *Preview) relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "#") ||
		strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	if p.cfg.Template != "" && filepath.Dir(path) == filepath.Dir(p.cfg.Template) &&
		!strings.HasPrefix(path, p.cfg.ContentDir+string(filepath.Separator)) {
		return path == p.cfg.Template
	}
	return true
}

func addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}
