package errors

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("invalid input").Build(), 2},
		{"cycle", CycleDetected("cycle").Build(), 3},
		{"config", ConfigError("bad config").Build(), 7},
		{"transport", TransportFailure("scp failed").Build(), 8},
		{"artifact", ArtifactNotFound("missing jar").Build(), 9},
		{"vcs", VCSError("tag exists").Build(), 13},
		{
			name: "task failure reports test cause",
			err: TaskFailed("task failed").
				WithCause(TestFailure("tests failed").Build()).
				Build(),
			expected: 4,
		},
		{"bare task failure", TaskFailed("task failed").WithCause(errors.New("boom")).Build(), 11},
		{"unclassified error", errors.New("unknown error"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adapter.ExitCodeFor(tt.err)
			if got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	err := TaskFailed("task failed").
		WithContext("task", "test:core").
		WithCause(TestFailure("tests failed").Build()).
		Build()

	got := quiet.FormatError(err)
	if !strings.Contains(got, "task failed (task test:core): tests failed") {
		t.Errorf("unexpected quiet format: %q", got)
	}
	if v := verbose.FormatError(err); v != err.Error() {
		t.Errorf("verbose format should be full error, got %q", v)
	}

	resumable := TransportFailure("upload failed").Build()
	if !strings.Contains(quiet.FormatError(resumable), "--resume") {
		t.Error("expected resume hint for transport failures")
	}
	if quiet.FormatError(nil) != "" {
		t.Error("nil error should format to empty string")
	}
	if quiet.FormatError(errors.New("x")) != "Error: x" {
		t.Error("unexpected format for unclassified error")
	}
}
