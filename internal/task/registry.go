package task

import (
	"context"
	"fmt"
	"slices"

	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/graph"
)

// Action is the work performed by a task.
type Action func(ctx context.Context) error

// Task is a named unit of work with ordered prerequisites. A nil Action makes
// the task a pure aggregate of its prerequisites.
type Task struct {
	Name          string
	Description   string
	Prerequisites []string
	Action        Action
}

// Registry holds task definitions in registration order.
type Registry struct {
	tasks map[string]Task
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: map[string]Task{}}
}

// Register adds a task. Duplicate names are configuration errors.
func (r *Registry) Register(t Task) error {
	if t.Name == "" {
		return ferrors.ValidationError("task name cannot be empty").Build()
	}
	if _, exists := r.tasks[t.Name]; exists {
		return ferrors.ConfigError(fmt.Sprintf("duplicate task %q", t.Name)).
			WithContext("task", t.Name).Build()
	}
	t.Prerequisites = slices.Clone(t.Prerequisites)
	r.tasks[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Get returns the named task.
func (r *Registry) Get(name string) (Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns task names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Graph builds the prerequisite graph of every registered task.
func (r *Registry) Graph() (*graph.Graph, error) {
	g := graph.New()
	for _, name := range r.order {
		if err := g.AddNode(name, r.tasks[name].Prerequisites...); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Plan returns the execution order for targets without running anything.
// Unknown targets or prerequisites and cycles are reported here.
func (r *Registry) Plan(targets ...string) ([]string, error) {
	if len(targets) == 0 {
		return nil, ferrors.ValidationError("no targets given").Build()
	}
	for _, t := range targets {
		if _, ok := r.tasks[t]; !ok {
			return nil, ferrors.ValidationError(fmt.Sprintf("unknown task %q", t)).
				WithContext("task", t).Build()
		}
	}
	g, err := r.Graph()
	if err != nil {
		return nil, err
	}
	return g.TopologicalOrder(targets...)
}
