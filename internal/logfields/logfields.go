package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTask       = "task"
	KeyModule     = "module"
	KeyStep       = "step"
	KeyLabel      = "label"
	KeyArtifact   = "artifact"
	KeyPath       = "path"
	KeyRemote     = "remote"
	KeyCommand    = "command"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Task(name string) slog.Attr         { return slog.String(KeyTask, name) }
func Module(name string) slog.Attr       { return slog.String(KeyModule, name) }
func Step(name string) slog.Attr         { return slog.String(KeyStep, name) }
func Label(label string) slog.Attr       { return slog.String(KeyLabel, label) }
func Artifact(name string) slog.Attr     { return slog.String(KeyArtifact, name) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Remote(r string) slog.Attr          { return slog.String(KeyRemote, r) }
func Command(c string) slog.Attr         { return slog.String(KeyCommand, c) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Duration(d time.Duration) slog.Attr { return DurationMS(float64(d.Microseconds()) / 1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
