package eventstore

import (
	"context"
	"encoding/json"
	"time"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

// Event type names as stored in the journal.
const (
	TypeRunStarted           = "RunStarted"
	TypeRunFinished          = "RunFinished"
	TypeTaskStarted          = "TaskStarted"
	TypeTaskFinished         = "TaskFinished"
	TypeReleaseStepCompleted = "ReleaseStepCompleted"
	TypeReleaseStepFailed    = "ReleaseStepFailed"
)

// RunStartedData is the payload of a RunStarted event.
type RunStartedData struct {
	Command string   `json:"command"`
	Targets []string `json:"targets,omitempty"`
}

// RunFinishedData is the payload of a RunFinished event.
type RunFinishedData struct {
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// TaskStartedData is the payload of a TaskStarted event.
type TaskStartedData struct {
	Task string `json:"task"`
}

// TaskFinishedData is the payload of a TaskFinished event.
type TaskFinishedData struct {
	Task       string `json:"task"`
	Result     string `json:"result"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ReleaseStepData is the payload of release step events.
type ReleaseStepData struct {
	Step  string `json:"step"`
	Label string `json:"label"`
	State string `json:"state,omitempty"` // Coordinator state after the step
	Error string `json:"error,omitempty"`
}

func newEvent(runID, eventType string, data any) (*BaseEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, ferrors.JournalError("failed to marshal " + eventType + " payload").
			WithCause(err).
			WithContext("run_id", runID).
			Build()
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}, nil
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID, command string, targets []string) (*BaseEvent, error) {
	return newEvent(runID, TypeRunStarted, RunStartedData{Command: command, Targets: targets})
}

// NewRunFinished creates a RunFinished event; runErr may be nil.
func NewRunFinished(runID, outcome string, duration time.Duration, runErr error) (*BaseEvent, error) {
	data := RunFinishedData{Outcome: outcome, DurationMS: duration.Milliseconds()}
	if runErr != nil {
		data.Error = runErr.Error()
	}
	return newEvent(runID, TypeRunFinished, data)
}

// NewTaskStarted creates a TaskStarted event.
func NewTaskStarted(runID, task string) (*BaseEvent, error) {
	return newEvent(runID, TypeTaskStarted, TaskStartedData{Task: task})
}

// NewTaskFinished creates a TaskFinished event.
func NewTaskFinished(runID, task, result string, duration time.Duration, taskErr error) (*BaseEvent, error) {
	data := TaskFinishedData{Task: task, Result: result, DurationMS: duration.Milliseconds()}
	if taskErr != nil {
		data.Error = taskErr.Error()
	}
	return newEvent(runID, TypeTaskFinished, data)
}

// NewReleaseStepCompleted records that a release step finished, leaving the coordinator in state.
func NewReleaseStepCompleted(runID, step, label, state string) (*BaseEvent, error) {
	return newEvent(runID, TypeReleaseStepCompleted, ReleaseStepData{Step: step, Label: label, State: state})
}

// NewReleaseStepFailed records that a release step failed.
func NewReleaseStepFailed(runID, step, label string, stepErr error) (*BaseEvent, error) {
	data := ReleaseStepData{Step: step, Label: label}
	if stepErr != nil {
		data.Error = stepErr.Error()
	}
	return newEvent(runID, TypeReleaseStepFailed, data)
}

// Decode unmarshals an event payload into v.
func Decode(e Event, v any) error {
	if err := json.Unmarshal(e.Payload(), v); err != nil {
		return ferrors.JournalError("failed to decode " + e.Type() + " payload").
			WithCause(err).
			WithContext("run_id", e.RunID()).
			Build()
	}
	return nil
}

// Journal appends typed events for one run.
type Journal struct {
	store Store
	runID string
}

// NewJournal binds a store to a run ID.
func NewJournal(store Store, runID string) *Journal {
	return &Journal{store: store, runID: runID}
}

// RunID returns the run the journal writes for.
func (j *Journal) RunID() string { return j.runID }

// Store returns the underlying store.
func (j *Journal) Store() Store { return j.store }

func (j *Journal) record(ctx context.Context, e *BaseEvent, err error) error {
	if err != nil {
		return err
	}
	return j.store.Append(ctx, e.EventRunID, e.EventType, e.EventPayload, e.EventMetadata)
}

// RunStarted journals the start of the run.
func (j *Journal) RunStarted(ctx context.Context, command string, targets []string) error {
	e, err := NewRunStarted(j.runID, command, targets)
	return j.record(ctx, e, err)
}

// RunFinished journals the end of the run.
func (j *Journal) RunFinished(ctx context.Context, outcome string, d time.Duration, runErr error) error {
	e, err := NewRunFinished(j.runID, outcome, d, runErr)
	return j.record(ctx, e, err)
}

// TaskStarted journals the start of a task.
func (j *Journal) TaskStarted(ctx context.Context, task string) error {
	e, err := NewTaskStarted(j.runID, task)
	return j.record(ctx, e, err)
}

// TaskFinished journals the outcome of a task.
func (j *Journal) TaskFinished(ctx context.Context, task, result string, d time.Duration, taskErr error) error {
	e, err := NewTaskFinished(j.runID, task, result, d, taskErr)
	return j.record(ctx, e, err)
}

// ReleaseStepCompleted journals a completed release step.
func (j *Journal) ReleaseStepCompleted(ctx context.Context, step, label, state string) error {
	e, err := NewReleaseStepCompleted(j.runID, step, label, state)
	return j.record(ctx, e, err)
}

// ReleaseStepFailed journals a failed release step.
func (j *Journal) ReleaseStepFailed(ctx context.Context, step, label string, stepErr error) error {
	e, err := NewReleaseStepFailed(j.runID, step, label, stepErr)
	return j.record(ctx, e, err)
}
