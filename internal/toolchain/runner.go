package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
)

// Invocation is one external process call.
type Invocation struct {
	Args []string
	Dir  string
	// Output receives combined stdout and stderr in addition to the captured tail.
	Output io.Writer
}

// Runner executes invocations. It returns the process exit code; err is
// reserved for failures to start or wait for the process.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (exitCode int, tail string, err error)
}

// ExecRunner runs invocations with os/exec.
type ExecRunner struct{}

// tailLimit bounds the output kept for error messages.
const tailLimit = 4 << 10

func (ExecRunner) Run(ctx context.Context, inv Invocation) (int, string, error) {
	if len(inv.Args) == 0 {
		return -1, "", ferrors.ValidationError("empty command").Build()
	}

	cmd := exec.CommandContext(ctx, inv.Args[0], inv.Args[1:]...)
	cmd.Dir = inv.Dir
	setProcessGroup(cmd)

	tail := &tailBuffer{limit: tailLimit}
	var w io.Writer = tail
	if inv.Output != nil {
		w = io.MultiWriter(tail, inv.Output)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	slog.Debug("Running external command", logfields.Command(strings.Join(inv.Args, " ")), logfields.Path(inv.Dir))
	err := cmd.Run()
	if err == nil {
		return 0, tail.String(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, tail.String(), ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), tail.String(), nil
	}
	return -1, tail.String(), ferrors.WrapError(err, ferrors.CategoryBuild, fmt.Sprintf("failed to start %s", inv.Args[0])).
		WithContext("command", inv.Args[0]).Build()
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(t.buf.String())
}
