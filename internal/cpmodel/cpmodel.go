// Package cpmodel translates a problem.Problem into the search encoding the
// solver branches over: per-operation start/end variables bounded by the
// horizon, precedence arcs, qualified worker index sets with exact staffing
// counts, and makespan lower bounds.
//
// Decidably infeasible instances are rejected here, before any search: an
// operation whose qualified pool is smaller than its staffing need can never
// be scheduled, and a cyclic precedence relation admits no start-time
// assignment at all. Both surface as an *InfeasibleError, which the driver
// reports as the same "no schedule" outcome an exhaustive search would reach.
package cpmodel

import (
	"fmt"

	"github.com/vk/crewplan/internal/graph"
	"github.com/vk/crewplan/internal/problem"
)

// InfeasibleError marks an instance proven unsatisfiable during formulation.
type InfeasibleError struct {
	Reason string
}

// Error implements the error interface.
func (e *InfeasibleError) Error() string {
	return "infeasible instance: " + e.Reason
}

// Model is the solver-facing encoding of one instance. Operations are
// referred to by their index in Ops throughout; all slices are parallel to
// Ops unless stated otherwise. A Model is built once per solve and read-only
// afterwards.
type Model struct {
	Ops     []problem.Operation
	Workers []problem.Worker

	// Horizon bounds every start and end variable: the makespan of a fully
	// sequential plan.
	Horizon int

	// Qualified[i] holds the roster indices allowed to staff Ops[i], in
	// roster order. Exactly Ops[i].WorkersNeeded of them must be committed
	// for the whole of the operation's interval.
	Qualified [][]int

	// Preds[i] holds the indices of operations that must end before Ops[i]
	// starts.
	Preds [][]int

	// Order is a precedence-respecting ordering of operation indices.
	Order []int

	// Tails[i] is the longest duration chain from Ops[i] (inclusive) to a
	// sink: once Ops[i] starts at t, no schedule finishes before t+Tails[i].
	Tails []int

	// LowerBound is the best known proof floor for the makespan: the maximum
	// of the critical path length and the aggregate workload bound.
	LowerBound int
}

// Build formulates the encoding for a normalized problem instance.
// Dependencies naming unknown operation ids are ignored, mirroring the
// upstream editor contract. The returned error is an *InfeasibleError for
// unsatisfiable instances and a plain error for malformed ones.
func Build(p *problem.Problem) (*Model, error) {
	index := make(map[string]int, len(p.Operations))
	for i, op := range p.Operations {
		if _, dup := index[op.ID]; dup {
			return nil, fmt.Errorf("duplicate operation id %q", op.ID)
		}
		index[op.ID] = i
	}

	m := &Model{
		Ops:       p.Operations,
		Workers:   p.Workers,
		Horizon:   p.Horizon(),
		Qualified: make([][]int, len(p.Operations)),
		Preds:     make([][]int, len(p.Operations)),
	}

	// Qualification fast path: a pool smaller than the staffing need can
	// never satisfy the exact-count constraint, so skip the search entirely.
	for i, op := range p.Operations {
		pool := p.QualifiedWorkers(op.Name)
		if len(pool) < op.WorkersNeeded {
			return nil, &InfeasibleError{
				Reason: fmt.Sprintf("operation %q needs %d workers but only %d are qualified",
					op.Name, op.WorkersNeeded, len(pool)),
			}
		}
		m.Qualified[i] = pool
	}

	g := graph.New()
	for _, op := range p.Operations {
		g.AddNode(op.ID, op.Duration)
	}
	for _, d := range p.Dependencies {
		pi, okP := index[d.Pred]
		si, okS := index[d.Succ]
		if !okP || !okS {
			continue
		}
		if pi == si {
			// start(a) >= end(a) with duration >= 1 can never hold.
			return nil, &InfeasibleError{Reason: fmt.Sprintf("operation %q depends on itself", d.Pred)}
		}
		if err := g.AddEdge(d.Pred, d.Succ); err != nil {
			return nil, err
		}
		m.Preds[si] = append(m.Preds[si], pi)
	}

	sorted, err := g.TopoSort()
	if err != nil {
		// A cyclic precedence relation has no satisfying assignment.
		return nil, &InfeasibleError{Reason: err.Error()}
	}
	m.Order = make([]int, len(sorted))
	for i, id := range sorted {
		m.Order[i] = index[id]
	}

	tails, err := g.TailLengths()
	if err != nil {
		return nil, &InfeasibleError{Reason: err.Error()}
	}
	m.Tails = make([]int, len(p.Operations))
	critical := 0
	for id, t := range tails {
		m.Tails[index[id]] = t
		if t > critical {
			critical = t
		}
	}

	m.LowerBound = critical
	if wb := m.workloadBound(); wb > m.LowerBound {
		m.LowerBound = wb
	}
	return m, nil
}

// workloadBound divides the total worker-time demand by the roster size,
// rounded up. With an empty roster the qualification fast path has already
// rejected every instance that reaches here with work to do.
func (m *Model) workloadBound() int {
	if len(m.Workers) == 0 {
		return 0
	}
	work := 0
	for _, op := range m.Ops {
		work += op.Duration * op.WorkersNeeded
	}
	return (work + len(m.Workers) - 1) / len(m.Workers)
}
