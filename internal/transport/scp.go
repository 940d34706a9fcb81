package transport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/toolchain"
)

// SCP copies through an external secure-copy client.
type SCP struct {
	command string
	args    []string
	runner  toolchain.Runner
}

// NewSCP builds an SCP transport. An empty command uses "scp".
func NewSCP(command string, args []string, runner toolchain.Runner) *SCP {
	if command == "" {
		command = config.DefaultSCPCommand
	}
	if runner == nil {
		runner = toolchain.ExecRunner{}
	}
	return &SCP{command: command, args: args, runner: runner}
}

func (s *SCP) Copy(ctx context.Context, localPath, remotePath string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return failure(err, "cannot read "+localPath, localPath, remotePath)
	}

	argv := append([]string{s.command}, s.args...)
	source := localPath
	if info.IsDir() {
		// "dir/." copies the contents into remotePath, like Local and S3.
		argv = append(argv, "-r")
		source = strings.TrimRight(localPath, string(os.PathSeparator)) + string(os.PathSeparator) + "."
	}
	argv = append(argv, source, remotePath)

	code, tail, err := s.runner.Run(ctx, toolchain.Invocation{Args: argv})
	if err != nil {
		return failure(err, fmt.Sprintf("%s could not run", s.command), localPath, remotePath)
	}
	if code != 0 {
		return failure(nil, fmt.Sprintf("%s exited with status %d: %s", s.command, code, strings.TrimSpace(tail)), localPath, remotePath)
	}
	slog.Info("Uploaded", logfields.Path(localPath), logfields.Remote(remotePath))
	return nil
}
