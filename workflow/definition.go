package workflow

import (
	"fmt"
	"time"

	"github.com/claimflow/claimflow"
)

// Definition-level defaults, applied by NewDefinition to steps that do not
// set their own budgets. They match claimflow.DefaultConfig.
const (
	DefaultMaxRetries = 3
	DefaultTimeout    = 300 * time.Second
)

// StepDefinition is the static description of one named unit of work.
type StepDefinition struct {
	// Name uniquely identifies the step within its workflow.
	Name string `json:"name"`

	// Executor is the registry name of the capability this step invokes.
	// Empty means the step name itself.
	Executor string `json:"executor"`

	// Description is a human-readable summary, carried into logs.
	Description string `json:"description,omitempty"`

	// DependsOn lists step names that must have completed before this
	// step runs. A skipped dependency does not satisfy the edge.
	DependsOn []string `json:"depends_on,omitempty"`

	// MaxRetries is the attempt budget (attempts are numbered
	// 1..MaxRetries). Zero means DefaultMaxRetries.
	MaxRetries int `json:"max_retries,omitempty"`

	// Timeout is the per-attempt deadline. Zero means DefaultTimeout.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Definition is an ordered collection of step definitions forming a DAG.
// Construct one with NewDefinition; a Definition that exists is valid.
type Definition struct {
	workflowType string
	steps        []StepDefinition
	index        map[string]int // step name → position in steps
}

// NewDefinition validates the step list and returns an immutable
// Definition. Validation failures wrap claimflow.ErrInvalidDefinition
// (or claimflow.ErrCyclicDependency for cycles) and are configuration
// faults: they happen before any execution and are never retried.
func NewDefinition(workflowType string, steps []StepDefinition) (*Definition, error) {
	if workflowType == "" {
		return nil, fmt.Errorf("%w: empty workflow type", claimflow.ErrInvalidDefinition)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", claimflow.ErrInvalidDefinition)
	}

	index := make(map[string]int, len(steps))
	normalized := make([]StepDefinition, len(steps))

	for i, step := range steps {
		if step.Name == "" {
			return nil, fmt.Errorf("%w: step %d has no name", claimflow.ErrInvalidDefinition, i)
		}
		if _, dup := index[step.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate step name %q", claimflow.ErrInvalidDefinition, step.Name)
		}
		index[step.Name] = i

		if step.Executor == "" {
			step.Executor = step.Name
		}
		if step.MaxRetries <= 0 {
			step.MaxRetries = DefaultMaxRetries
		}
		if step.Timeout <= 0 {
			step.Timeout = DefaultTimeout
		}
		normalized[i] = step
	}

	// Dependency names must refer to declared steps.
	for _, step := range normalized {
		for _, dep := range step.DependsOn {
			if dep == step.Name {
				return nil, fmt.Errorf("%w: step %q depends on itself", claimflow.ErrCyclicDependency, step.Name)
			}
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("%w: step %q depends on unknown step %q",
					claimflow.ErrInvalidDefinition, step.Name, dep)
			}
		}
	}

	if cycle := findCycle(normalized, index); cycle != "" {
		return nil, fmt.Errorf("%w: involving step %q", claimflow.ErrCyclicDependency, cycle)
	}

	return &Definition{
		workflowType: workflowType,
		steps:        normalized,
		index:        index,
	}, nil
}

// findCycle runs an iterative three-color DFS over the DependsOn relation.
// It returns the name of a step on a cycle, or "" if the graph is acyclic.
func findCycle(steps []StepDefinition, index map[string]int) string {
	const (
		white = iota // unvisited
		gray         // on the current DFS path
		black        // fully explored
	)
	color := make([]int, len(steps))

	var visit func(i int) string
	visit = func(i int) string {
		color[i] = gray
		for _, dep := range steps[i].DependsOn {
			j := index[dep]
			switch color[j] {
			case gray:
				return steps[j].Name
			case white:
				if name := visit(j); name != "" {
					return name
				}
			}
		}
		color[i] = black
		return ""
	}

	for i := range steps {
		if color[i] == white {
			if name := visit(i); name != "" {
				return name
			}
		}
	}
	return ""
}

// Type returns the workflow type this definition describes.
func (d *Definition) Type() string { return d.workflowType }

// Steps returns the step definitions in declared (execution) order.
// The returned slice must not be modified.
func (d *Definition) Steps() []StepDefinition { return d.steps }

// Len returns the number of steps.
func (d *Definition) Len() int { return len(d.steps) }

// Step returns the definition of the named step.
func (d *Definition) Step(name string) (StepDefinition, bool) {
	i, ok := d.index[name]
	if !ok {
		return StepDefinition{}, false
	}
	return d.steps[i], true
}

// StepAt returns the step definition at position i in declared order.
func (d *Definition) StepAt(i int) StepDefinition { return d.steps[i] }

// DependenciesMet reports whether every dependency of step has a COMPLETED
// result in results. A SKIPPED dependency does not satisfy the edge, so an
// upstream failure is never masked by a chain of skips.
func DependenciesMet(step StepDefinition, results map[string]*StepResult) bool {
	for _, dep := range step.DependsOn {
		r, ok := results[dep]
		if !ok || r.Status != StepCompleted {
			return false
		}
	}
	return true
}

// UnmetDependencies returns the dependency names of step that do not have a
// COMPLETED result. Used to record why a step was skipped.
func UnmetDependencies(step StepDefinition, results map[string]*StepResult) []string {
	var unmet []string
	for _, dep := range step.DependsOn {
		r, ok := results[dep]
		if !ok || r.Status != StepCompleted {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}
