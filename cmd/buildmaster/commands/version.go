package commands

import (
	"context"

	"git.home.luguber.info/inful/buildmaster/internal/version"
)

// VersionCmd implements the 'info' command.
type VersionCmd struct{}

func (v *VersionCmd) Run(_ context.Context, _ *CLI) error {
	printf("%s\n", version.Get())
	return nil
}
