package task

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
	"git.home.luguber.info/inful/buildmaster/internal/metrics"
	"git.home.luguber.info/inful/buildmaster/internal/observability"
)

// Observer is notified around every executed task action.
type Observer interface {
	TaskStarted(ctx context.Context, name string)
	TaskFinished(ctx context.Context, name string, d time.Duration, err error)
}

// Scheduler executes tasks from a Registry. One Scheduler belongs to one run:
// its completed set spans every Run call, so a task shared by several targets
// or requested again later still executes once.
type Scheduler struct {
	registry  *Registry
	recorder  metrics.Recorder
	observers []Observer
	completed map[string]bool
	executed  []string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// NewScheduler creates a scheduler with an empty completed set.
func NewScheduler(reg *Registry, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:  reg,
		recorder:  metrics.NoopRecorder{},
		completed: map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes targets and their transitive prerequisites. The whole plan is
// validated before the first action runs.
func (s *Scheduler) Run(ctx context.Context, targets ...string) error {
	plan, err := s.registry.Plan(targets...)
	if err != nil {
		return err
	}

	slog.Debug("Execution plan resolved", slog.Any("tasks", plan), logfields.Count(len(plan)))

	for _, name := range plan {
		if s.completed[name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.execute(ctx, name); err != nil {
			return err
		}
		s.completed[name] = true
	}
	return nil
}

// Completed reports whether name already ran in this scheduler's run.
func (s *Scheduler) Completed(name string) bool {
	return s.completed[name]
}

// Executed returns the names of tasks whose actions ran, in execution order.
func (s *Scheduler) Executed() []string {
	return slices.Clone(s.executed)
}

func (s *Scheduler) execute(ctx context.Context, name string) error {
	t, _ := s.registry.Get(name)
	if t.Action == nil {
		return nil
	}

	ctx = observability.WithTask(ctx, name)
	observability.InfoContext(ctx, "Task started")
	for _, o := range s.observers {
		o.TaskStarted(ctx, name)
	}

	start := time.Now()
	err := t.Action(ctx)
	elapsed := time.Since(start)
	s.executed = append(s.executed, name)

	s.recorder.ObserveTaskDuration(name, elapsed)
	s.recorder.IncTaskResult(name, metrics.ResultFor(err))
	for _, o := range s.observers {
		o.TaskFinished(ctx, name, elapsed, err)
	}

	if err != nil {
		observability.ErrorContext(ctx, "Task failed", logfields.Duration(elapsed), logfields.Error(err))
		return ferrors.TaskFailed(fmt.Sprintf("task %s failed", name)).
			WithContext("task", name).
			WithCause(err).
			Build()
	}
	observability.InfoContext(ctx, "Task finished", logfields.Duration(elapsed))
	return nil
}
