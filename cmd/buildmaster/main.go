package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildmaster/cmd/buildmaster/commands"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("buildmaster"),
		kong.Description("Build, test, package, release and publish multi-module projects."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Get().Version},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := parser.Run(&cli)
	if err != nil {
		cancel()
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
