package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildmaster/internal/build"
	"git.home.luguber.info/inful/buildmaster/internal/config"
	"git.home.luguber.info/inful/buildmaster/internal/eventstore"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/metrics"
	"git.home.luguber.info/inful/buildmaster/internal/module"
	"git.home.luguber.info/inful/buildmaster/internal/observability"
	"git.home.luguber.info/inful/buildmaster/internal/packager"
	"git.home.luguber.info/inful/buildmaster/internal/task"
	"git.home.luguber.info/inful/buildmaster/internal/testrunner"
	"git.home.luguber.info/inful/buildmaster/internal/toolchain"
)

// TestOverrides adjust every configured test run from the command line.
type TestOverrides struct {
	Coverage bool     // Force coverage on
	Params   []string // Appended to configured parameters
	Advisory bool     // Treat every failure as advisory
}

// Options configures a Session.
type Options struct {
	Command string
	Targets []string
	// Runner executes external tools; nil uses os/exec.
	Runner toolchain.Runner
	// Output receives tool output; nil uses stdout.
	Output io.Writer
	// Store overrides the journal database configured in cfg.
	Store eventstore.Store
	Tests TestOverrides
}

// Session is the orchestration context of one run.
type Session struct {
	RunID     string
	Config    *config.Config
	Modules   *module.Set
	Registry  *task.Registry
	Scheduler *task.Scheduler
	Recorder  metrics.Recorder
	Journal   *eventstore.Journal

	Toolchain *toolchain.Toolchain
	Builder   *build.Builder
	Tests     *testrunner.Runner
	Packager  *packager.Packager
	Docs      *build.DocGenerator

	opts     Options
	runner   toolchain.Runner
	store    eventstore.Store
	registry *prom.Registry
	started  time.Time
	ctx      context.Context
}

// Open builds the session for cfg, registers every task and journals the
// start of the run. The caller must call Finish.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Session, error) {
	modules, err := module.NewSet(cfg.Modules)
	if err != nil {
		return nil, err
	}

	runner := opts.Runner
	if runner == nil {
		runner = toolchain.ExecRunner{}
	}
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	store := opts.Store
	if store == nil {
		store, err = eventstore.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
	}

	s := &Session{
		RunID:    uuid.NewString(),
		Config:   cfg,
		Modules:  modules,
		Registry: task.NewRegistry(),
		Recorder: metrics.NoopRecorder{},
		opts:     opts,
		runner:   runner,
		store:    store,
		started:  time.Now(),
	}
	if cfg.Metrics.Textfile != "" {
		s.registry = prom.NewRegistry()
		s.Recorder = metrics.NewPrometheusRecorder(s.registry)
	}
	s.Journal = eventstore.NewJournal(store, s.RunID)
	s.ctx = observability.WithRunID(ctx, s.RunID)

	root := cfg.Project.Root
	s.Toolchain = toolchain.New(cfg.Toolchain, runner, output)
	s.Builder = build.NewBuilder(modules, s.Toolchain, cfg.Toolchain.SourceExt, root)
	s.Tests = testrunner.NewRunner(modules, s.Builder, s.Toolchain,
		cfg.Project.ReportDir, cfg.Toolchain.TestClassFmt, cfg.Toolchain.SourceExt, root).
		WithRecorder(s.Recorder)
	s.Packager = packager.New(modules, cfg.Project.DistDir)
	s.Docs = build.NewDocGenerator(modules, s.Toolchain, cfg.Toolchain.SourceExt, cfg.Project.DistDir, root)

	if err := s.registerTasks(); err != nil {
		_ = store.Close()
		return nil, err
	}
	s.Scheduler = task.NewScheduler(s.Registry, task.WithRecorder(s.Recorder), task.WithObserver(s))

	if err := s.Journal.RunStarted(s.ctx, opts.Command, opts.Targets); err != nil {
		slog.Warn("Failed to journal run start", logfields.Error(err))
	}
	observability.InfoContext(s.ctx, "Run started", slog.String("command", opts.Command), slog.Any("targets", opts.Targets))
	return s, nil
}

// Context returns ctx-scoped logging context carrying the run ID.
func (s *Session) Context() context.Context { return s.ctx }

// Store returns the journal store.
func (s *Session) Store() eventstore.Store { return s.store }

// Run executes targets through the scheduler.
func (s *Session) Run(ctx context.Context, targets ...string) error {
	return s.Scheduler.Run(ctx, targets...)
}

// Plan returns the execution order for targets without running anything.
func (s *Session) Plan(targets ...string) ([]string, error) {
	return s.Registry.Plan(targets...)
}

// Finish journals the outcome, records run metrics, writes the metrics
// textfile and closes the journal. It returns runErr unchanged.
func (s *Session) Finish(runErr error) error {
	elapsed := time.Since(s.started)
	outcome := metrics.ResultFor(runErr)
	s.Recorder.ObserveRunDuration(s.opts.Command, elapsed)
	s.Recorder.IncRunOutcome(outcome)

	ctx := context.WithoutCancel(s.ctx)
	if err := s.Journal.RunFinished(ctx, string(outcome), elapsed, runErr); err != nil {
		slog.Warn("Failed to journal run end", logfields.Error(err))
	}
	if err := metrics.WriteTextfile(s.Config.Metrics.Textfile, s.registry); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(s.Config.Metrics.Textfile), logfields.Error(err))
	}
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close run journal", logfields.Error(err))
	}

	if runErr == nil {
		observability.InfoContext(ctx, "Run finished", slog.String("command", s.opts.Command), logfields.Duration(elapsed))
	}
	return runErr
}

// TaskStarted journals a task start.
func (s *Session) TaskStarted(ctx context.Context, name string) {
	if err := s.Journal.TaskStarted(ctx, name); err != nil {
		slog.Warn("Failed to journal task start", logfields.Task(name), logfields.Error(err))
	}
}

// TaskFinished journals a task outcome.
func (s *Session) TaskFinished(ctx context.Context, name string, d time.Duration, taskErr error) {
	if err := s.Journal.TaskFinished(ctx, name, string(metrics.ResultFor(taskErr)), d, taskErr); err != nil {
		slog.Warn("Failed to journal task end", logfields.Task(name), logfields.Error(err))
	}
}
