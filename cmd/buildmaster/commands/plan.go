package commands

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/orchestrator"
)

// PlanCmd implements the 'plan' command.
type PlanCmd struct {
	Tasks []string `arg:"" optional:"" help:"Target tasks (default: package)"`
	List  bool     `short:"l" help:"List every registered task instead"`
}

func (p *PlanCmd) Run(ctx context.Context, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	s, err := orchestrator.Open(ctx, cfg, orchestrator.Options{Command: "plan", Targets: p.Tasks})
	if err != nil {
		return err
	}

	if p.List {
		for _, name := range s.Registry.Names() {
			t, _ := s.Registry.Get(name)
			printf("%-28s %s\n", name, t.Description)
		}
		return s.Finish(nil)
	}

	targets := p.Tasks
	if len(targets) == 0 {
		targets = []string{orchestrator.TaskPackage}
	}
	plan, err := s.Plan(targets...)
	if err == nil {
		slog.Debug("Resolved plan", logfields.Count(len(plan)))
		printf("%s\n", strings.Join(plan, "\n"))
	}
	return s.Finish(err)
}
