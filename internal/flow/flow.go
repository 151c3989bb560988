// Package flow runs a directed acyclic graph of named steps, starting each
// step as soon as everything it depends on has finished. A failing step
// cancels the rest of the run.
package flow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Step is one unit of work in a flow. After names the steps that must
// complete before Run is called; an empty After makes the step a root.
type Step struct {
	Name  string
	After []string
	Run   func(ctx context.Context) error
}

// Flow is an ordered collection of steps forming a DAG.
type Flow struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// New creates an empty flow.
func New(name string, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{name: name, logger: logger}
}

// Add appends a step. Validation happens at Run time so steps can be added
// in any order.
func (f *Flow) Add(step Step) *Flow {
	f.steps = append(f.steps, step)
	return f
}

// Steps returns the step names in registration order.
func (f *Flow) Steps() []string {
	names := make([]string, len(f.steps))
	for i, s := range f.steps {
		names[i] = s.Name
	}
	return names
}

// validate checks for empty or duplicate names, unknown dependencies, and
// cycles.
func (f *Flow) validate() error {
	byName := make(map[string]*Step, len(f.steps))
	for i := range f.steps {
		s := &f.steps[i]
		if s.Name == "" {
			return fmt.Errorf("flow %s: step %d has no name", f.name, i)
		}
		if s.Run == nil {
			return fmt.Errorf("flow %s: step %q has no run function", f.name, s.Name)
		}
		if _, dup := byName[s.Name]; dup {
			return fmt.Errorf("flow %s: duplicate step %q", f.name, s.Name)
		}
		byName[s.Name] = s
	}

	for _, s := range f.steps {
		for _, dep := range s.After {
			if _, ok := byName[dep]; !ok {
				return fmt.Errorf("flow %s: step %q depends on unknown step %q", f.name, s.Name, dep)
			}
		}
	}

	// Kahn's algorithm; anything left over sits on a cycle.
	indegree := make(map[string]int, len(f.steps))
	dependents := make(map[string][]string, len(f.steps))
	for _, s := range f.steps {
		indegree[s.Name] = len(s.After)
		for _, dep := range s.After {
			dependents[dep] = append(dependents[dep], s.Name)
		}
	}
	var queue []string
	for name, d := range indegree {
		if d == 0 {
			queue = append(queue, name)
		}
	}
	resolved := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		resolved++
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if resolved != len(f.steps) {
		var cyclic []string
		for name, d := range indegree {
			if d > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return fmt.Errorf("flow %s: dependency cycle involving %s", f.name, strings.Join(cyclic, ", "))
	}
	return nil
}

// Run executes the flow. Each step starts the moment its dependencies have
// all succeeded. The first error cancels every step still waiting and is
// returned once all started steps have unwound.
func (f *Flow) Run(ctx context.Context) error {
	if err := f.validate(); err != nil {
		return err
	}

	done := make(map[string]chan struct{}, len(f.steps))
	for _, s := range f.steps {
		done[s.Name] = make(chan struct{})
	}

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	f.logger.Info("flow starting", zap.String("flow", f.name), zap.Int("steps", len(f.steps)))

	for i := range f.steps {
		step := f.steps[i]
		g.Go(func() error {
			for _, dep := range step.After {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-done[dep]:
				}
			}

			stepStart := time.Now()
			f.logger.Info("step starting", zap.String("flow", f.name), zap.String("step", step.Name))
			if err := step.Run(ctx); err != nil {
				f.logger.Error("step failed",
					zap.String("flow", f.name), zap.String("step", step.Name), zap.Error(err))
				return fmt.Errorf("step %s: %w", step.Name, err)
			}
			f.logger.Info("step complete",
				zap.String("flow", f.name), zap.String("step", step.Name),
				zap.Duration("elapsed", time.Since(stepStart)))

			close(done[step.Name])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	f.logger.Info("flow complete",
		zap.String("flow", f.name), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Plot renders the dependency graph as a Mermaid flowchart.
func (f *Flow) Plot() string {
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")
	for _, s := range f.steps {
		if len(s.After) == 0 {
			fmt.Fprintf(&sb, "    %s\n", mermaidID(s.Name))
			continue
		}
		for _, dep := range s.After {
			fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(dep), mermaidID(s.Name))
		}
	}
	return sb.String()
}

func mermaidID(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
