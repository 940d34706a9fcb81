package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-123")
	ctx = WithTask(ctx, "build:core")
	ctx = WithModule(ctx, "core")
	ctx = WithStep(ctx, "bump")

	lc := GetContext(ctx)
	if lc.RunID != "run-123" {
		t.Errorf("expected run-123, got %s", lc.RunID)
	}
	if lc.Task != "build:core" {
		t.Errorf("expected build:core, got %s", lc.Task)
	}
	if lc.Module != "core" {
		t.Errorf("expected core, got %s", lc.Module)
	}
	if lc.Step != "bump" {
		t.Errorf("expected bump, got %s", lc.Step)
	}
}

func TestOverwriteKeepsOtherFields(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithTask(ctx, "a")
	ctx = WithTask(ctx, "b")

	lc := GetContext(ctx)
	if lc.RunID != "run-1" || lc.Task != "b" {
		t.Errorf("unexpected context %+v", lc)
	}
}

func TestInfoContextIncludesAttributes(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := WithTask(WithRunID(context.Background(), "run-9"), "test:ftp")
	InfoContext(ctx, "Task started", slog.Int("attempt", 1))
	DebugContext(ctx, "Debug line")

	out := buf.String()
	for _, want := range []string{"run.id=run-9", "task=test:ftp", "attempt=1", "Debug line"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output: %s", want, out)
		}
	}
}
