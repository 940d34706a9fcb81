package eventstore

import (
	"context"
	"sync"
	"time"
)

const (
	runStatusRunning   = "running"
	runStatusSucceeded = "succeeded"
	runStatusFailed    = "failed"
)

// RunSummary is a read model summarizing one orchestrator run.
type RunSummary struct {
	RunID        string        `json:"run_id"`
	Command      string        `json:"command"`
	Targets      []string      `json:"targets,omitempty"`
	Status       string        `json:"status"` // "running", "succeeded", "failed"
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	TasksRun     int           `json:"tasks_run"`
	FailedTask   string        `json:"failed_task,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	ReleaseLabel string        `json:"release_label,omitempty"`
	ReleaseSteps []string      `json:"release_steps,omitempty"` // Completed steps in order
}

// RunHistoryProjection maintains an in-memory view of run history,
// reconstructed from the journal.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	history []*RunSummary // newest first
	maxSize int
}

// NewRunHistoryProjection creates a projection backed by store.
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 20
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from every event in the store.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = nil
	for _, event := range events {
		p.applyEventLocked(event)
	}
	p.sortHistoryLocked()
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	return nil
}

// Apply processes a single event.
func (p *RunHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *RunHistoryProjection) applyEventLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}

	summary, exists := p.runs[runID]
	if !exists {
		summary = &RunSummary{RunID: runID, Status: runStatusRunning, StartedAt: event.Timestamp()}
		p.runs[runID] = summary
		p.history = append([]*RunSummary{summary}, p.history...)
	}

	switch event.Type() {
	case TypeRunStarted:
		var data RunStartedData
		if Decode(event, &data) == nil {
			summary.Command = data.Command
			summary.Targets = data.Targets
		}
		summary.StartedAt = event.Timestamp()

	case TypeTaskFinished:
		var data TaskFinishedData
		if Decode(event, &data) == nil {
			summary.TasksRun++
			if data.Error != "" && data.Result == "failed" {
				summary.FailedTask = data.Task
			}
		}

	case TypeReleaseStepCompleted:
		var data ReleaseStepData
		if Decode(event, &data) == nil {
			summary.ReleaseLabel = data.Label
			summary.ReleaseSteps = append(summary.ReleaseSteps, data.Step)
		}

	case TypeReleaseStepFailed:
		var data ReleaseStepData
		if Decode(event, &data) == nil && data.Label != "" {
			summary.ReleaseLabel = data.Label
		}

	case TypeRunFinished:
		var data RunFinishedData
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt)
		summary.Status = runStatusSucceeded
		if Decode(event, &data) == nil {
			if data.Error != "" {
				summary.Status = runStatusFailed
				summary.ErrorMessage = data.Error
			}
		}
	}
}

// sortHistoryLocked sorts history by start time, newest first.
func (p *RunHistoryProjection) sortHistoryLocked() {
	for i := 1; i < len(p.history); i++ {
		for j := i; j > 0 && p.history[j].StartedAt.After(p.history[j-1].StartedAt); j-- {
			p.history[j], p.history[j-1] = p.history[j-1], p.history[j]
		}
	}
}

// GetHistory returns up to the configured number of runs, newest first.
func (p *RunHistoryProjection) GetHistory() []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := min(len(p.history), p.maxSize)
	result := make([]RunSummary, n)
	for i := range n {
		result[i] = *p.history[i]
	}
	return result
}

// GetRun returns the summary for one run.
func (p *RunHistoryProjection) GetRun(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *summary, true
}

// ReleasePosition is where the most recent release stopped.
type ReleasePosition struct {
	RunID  string
	Label  string
	Step   string // Last step journaled
	Failed bool   // Step failed rather than completed
	At     time.Time
}

// LastReleasePosition returns the newest release step event, or ok=false when
// no release was ever journaled.
func LastReleasePosition(ctx context.Context, store Store) (ReleasePosition, bool, error) {
	completed, err := store.Latest(ctx, TypeReleaseStepCompleted)
	if err != nil {
		return ReleasePosition{}, false, err
	}
	failed, err := store.Latest(ctx, TypeReleaseStepFailed)
	if err != nil {
		return ReleasePosition{}, false, err
	}

	latest := completed
	if failed != nil && (latest == nil || failed.ID() > latest.ID()) {
		latest = failed
	}
	if latest == nil {
		return ReleasePosition{}, false, nil
	}

	var data ReleaseStepData
	if err := Decode(latest, &data); err != nil {
		return ReleasePosition{}, false, err
	}
	return ReleasePosition{
		RunID:  latest.RunID(),
		Label:  data.Label,
		Step:   data.Step,
		Failed: latest.Type() == TypeReleaseStepFailed,
		At:     latest.Timestamp(),
	}, true, nil
}
