// Package problem defines the scheduling problem instance: the operations to
// perform, the precedence dependencies between them, and the worker roster
// with per-operation qualifications.
//
// A Problem is plain data. It is built once by the caller, normalized, and
// then treated as read-only by the formulation and search code. The JSON
// field names are part of the wire contract between the host process and the
// isolated solver worker, and of the exported schedule file format; they must
// not change.
package problem

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Operation is a single unit of work. Duration is expressed in whole time
// units (minutes in the original system). WorkersNeeded is the exact number
// of qualified workers that must be committed for the full duration.
type Operation struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Duration      int    `json:"duration"`
	WorkersNeeded int    `json:"workers_needed"`
}

// Dependency orders two operations: Succ may not start before Pred ends.
type Dependency struct {
	Pred string
	Succ string
}

// Worker is a member of the roster. Operations lists the operation *names*
// (not ids) the worker is qualified for; two operations sharing a name share
// the same qualified pool.
type Worker struct {
	Name       string   `json:"name"`
	Operations []string `json:"operations"`
}

// Problem is a complete, static instance. It is owned by the caller and
// copied across the process boundary; nothing in this package mutates it
// after Normalize.
type Problem struct {
	Operations   []Operation
	Dependencies []Dependency
	Workers      []Worker
}

// Normalize clamps malformed numeric fields to their safe minimums, matching
// the upstream editors which default bad input rather than reject it.
// Duration and WorkersNeeded both clamp to 1, and an unnamed operation gets
// a placeholder name so qualification matching stays well defined.
func (p *Problem) Normalize() {
	for i := range p.Operations {
		op := &p.Operations[i]
		if op.Duration < 1 {
			op.Duration = 1
		}
		if op.WorkersNeeded < 1 {
			op.WorkersNeeded = 1
		}
		if op.Name == "" {
			op.Name = "unnamed"
		}
	}
}

// Validate reports structural defects that Normalize cannot repair: missing
// or duplicate operation ids, duplicate worker names, and dependencies
// referencing unknown ids, all accumulated into one error. It does not check
// the dependency graph for cycles; a cyclic instance surfaces later as an
// infeasible model.
func (p *Problem) Validate() error {
	var errs *multierror.Error

	seen := make(map[string]struct{}, len(p.Operations))
	for _, op := range p.Operations {
		if op.ID == "" {
			errs = multierror.Append(errs, fmt.Errorf("operation %q has no id", op.Name))
			continue
		}
		if _, dup := seen[op.ID]; dup {
			errs = multierror.Append(errs, fmt.Errorf("duplicate operation id %q", op.ID))
			continue
		}
		seen[op.ID] = struct{}{}
	}

	for _, d := range p.Dependencies {
		if _, ok := seen[d.Pred]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("dependency references unknown predecessor %q", d.Pred))
		}
		if _, ok := seen[d.Succ]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("dependency references unknown successor %q", d.Succ))
		}
	}

	workers := make(map[string]struct{}, len(p.Workers))
	for _, w := range p.Workers {
		if _, dup := workers[w.Name]; dup {
			errs = multierror.Append(errs, fmt.Errorf("duplicate worker %q", w.Name))
			continue
		}
		workers[w.Name] = struct{}{}
	}

	return errs.ErrorOrNil()
}

// Horizon is the trivial upper bound on any feasible makespan: the length of
// a fully sequential plan.
func (p *Problem) Horizon() int {
	total := 0
	for _, op := range p.Operations {
		total += op.Duration
	}
	return total
}

// QualifiedWorkers returns the roster indices of workers qualified for the
// given operation name, in roster order.
func (p *Problem) QualifiedWorkers(opName string) []int {
	var idxs []int
	for i, w := range p.Workers {
		for _, name := range w.Operations {
			if name == opName {
				idxs = append(idxs, i)
				break
			}
		}
	}
	return idxs
}

// Empty reports whether the instance has no operations. Empty instances are
// solved trivially without entering the solver fault domain.
func (p *Problem) Empty() bool {
	return len(p.Operations) == 0
}
