package release

import (
	"fmt"
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

// Step names one release step.
type Step string

const (
	StepBump   Step = "bump"
	StepBuild  Step = "build"
	StepCommit Step = "commit"
	StepTag    Step = "tag"
	StepRename Step = "rename"
	StepUpload Step = "upload"
)

// Steps lists the release steps in execution order.
var Steps = []Step{StepBump, StepBuild, StepCommit, StepTag, StepRename, StepUpload}

// State is the coordinator state.
type State string

const (
	StateIdle      State = "idle"
	StateBumped    State = "bumped"
	StateCommitted State = "committed"
	StateTagged    State = "tagged"
	StateRenamed   State = "renamed"
	StateUploaded  State = "uploaded"
)

var stateAfter = map[Step]State{
	StepBump:   StateBumped,
	StepBuild:  StateBumped,
	StepCommit: StateCommitted,
	StepTag:    StateTagged,
	StepRename: StateRenamed,
	StepUpload: StateUploaded,
}

// After returns the state reached once step completes.
func (s Step) After() State { return stateAfter[s] }

// Before returns the state the coordinator must be in for step to run.
func (s Step) Before() State {
	i := slices.Index(Steps, s)
	if i <= 0 {
		return StateIdle
	}
	return Steps[i-1].After()
}

// ParseStep validates a step name.
func ParseStep(name string) (Step, error) {
	s := Step(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(Steps, s) {
		return s, nil
	}
	names := make([]string, len(Steps))
	for i, st := range Steps {
		names[i] = string(st)
	}
	return "", ferrors.ValidationError(fmt.Sprintf("unknown release step %q (expected one of %s)", name, strings.Join(names, ", "))).
		WithContext("step", name).
		Build()
}

// Next returns the step following s, or ok=false after the last step.
func (s Step) Next() (Step, bool) {
	i := slices.Index(Steps, s)
	if i < 0 || i == len(Steps)-1 {
		return "", false
	}
	return Steps[i+1], true
}
