package commands

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/buildmaster/internal/orchestrator"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" default:"10" help:"Number of runs to show"`
	JSON  bool `name:"json" help:"Print runs as JSON"`
}

func (h *HistoryCmd) Run(ctx context.Context, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	runs, err := orchestrator.History(ctx, cfg, h.Limit)
	if err != nil {
		return err
	}

	if h.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = w.Write([]byte("STARTED\tCOMMAND\tSTATUS\tDURATION\tTASKS\tDETAIL\n"))
	for _, r := range runs {
		detail := r.FailedTask
		if r.ReleaseLabel != "" {
			detail = strings.TrimSpace(r.ReleaseLabel + " " + strings.Join(r.ReleaseSteps, ","))
		}
		duration := "-"
		if r.CompletedAt != nil {
			duration = r.Duration.Round(time.Millisecond).String()
		}
		_, _ = w.Write([]byte(strings.Join([]string{
			humanize.Time(r.StartedAt),
			r.Command,
			r.Status,
			duration,
			humanize.Comma(int64(r.TasksRun)),
			detail,
		}, "\t") + "\n"))
	}
	return w.Flush()
}
