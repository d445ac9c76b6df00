// Package solver searches the cpmodel encoding for a minimal-makespan
// schedule. The search is an exact branch-and-bound over serial schedule
// generation: it enumerates precedence-feasible operation sequences together
// with qualified worker subsets, placing each operation at the earliest time
// its chosen workers are jointly free. For a regular objective like makespan
// this enumeration covers the active schedules of every fixed assignment, so
// exhausting it proves optimality.
//
// A greedy first pass seeds the incumbent, which guarantees that any
// qualification- and cycle-feasible instance yields at least a FEASIBLE
// result before the time budget runs out.
package solver

import (
	"context"
	"time"

	"github.com/vk/crewplan/internal/ctxlog"
	"github.com/vk/crewplan/internal/cpmodel"
)

// Status is the termination state of a search.
type Status int

const (
	// Unknown means the search produced no verdict (budget exhausted with no
	// incumbent, or cancelled before it started).
	Unknown Status = iota
	// Optimal means the incumbent's makespan is proven minimal.
	Optimal
	// Feasible means a valid schedule was found but the budget expired
	// before the search space was exhausted.
	Feasible
	// Infeasible means no valid schedule exists.
	Infeasible
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// Solution is a concrete assignment of start times and workers, indexed in
// parallel with the model's operations.
type Solution struct {
	Starts   []int
	Assigned [][]int // roster indices per operation, ascending
	Makespan int
	Proven   bool // optimality proven within the budget
}

// DefaultBudget bounds the internal search wall clock, matching the original
// engine's 30-second solver parameter.
const DefaultBudget = 30 * time.Second

// Solve searches the model within the given wall-clock budget. A zero budget
// means DefaultBudget. The returned solution is nil exactly when the status
// is Infeasible or Unknown.
func Solve(ctx context.Context, m *cpmodel.Model, budget time.Duration) (*Solution, Status) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if len(m.Ops) == 0 {
		return &Solution{Makespan: 0, Proven: true}, Optimal
	}
	if ctx.Err() != nil {
		return nil, Unknown
	}

	s := newSearch(m, time.Now().Add(budget))

	// Seed the incumbent so a budget expiry still yields a schedule.
	s.greedy()

	exhausted := s.dfs(ctx)

	logger := ctxlog.FromContext(ctx)
	if s.best == nil {
		logger.Debug("Search ended with no incumbent.", "nodes", s.nodes)
		return nil, Unknown
	}
	if exhausted || s.bestMakespan == m.LowerBound {
		s.best.Proven = true
		logger.Debug("Search proved optimality.", "makespan", s.bestMakespan, "nodes", s.nodes)
		return s.best, Optimal
	}
	logger.Debug("Budget expired with incumbent.", "makespan", s.bestMakespan, "nodes", s.nodes)
	return s.best, Feasible
}

// span is a half-open busy interval [start, end) on one worker's timeline.
type span struct {
	start, end int
}

type search struct {
	m        *cpmodel.Model
	deadline time.Time

	// Per-worker committed intervals. Entries are pushed when an operation
	// is placed and popped on backtrack, so each slice acts as a stack.
	busy [][]span

	starts    []int
	ends      []int
	assigned  [][]int
	scheduled []bool
	nPlaced   int
	maxEnd    int
	timedOut  bool
	nodes     uint64

	best         *Solution
	bestMakespan int
}

func newSearch(m *cpmodel.Model, deadline time.Time) *search {
	n := len(m.Ops)
	return &search{
		m:            m,
		deadline:     deadline,
		busy:         make([][]span, len(m.Workers)),
		starts:       make([]int, n),
		ends:         make([]int, n),
		assigned:     make([][]int, n),
		scheduled:    make([]bool, n),
		bestMakespan: m.Horizon + 1,
	}
}

// earliestStart finds the first t >= est at which every worker in combo is
// free for the whole of [t, t+dur). Advancing t to the end of a conflicting
// interval can introduce new conflicts on other workers, so the scan repeats
// until a full pass finds none.
func (s *search) earliestStart(combo []int, est, dur int) int {
	t := est
	for {
		moved := false
		for _, w := range combo {
			for _, sp := range s.busy[w] {
				if sp.start < t+dur && t < sp.end {
					if sp.end > t {
						t = sp.end
						moved = true
					}
				}
			}
		}
		if !moved {
			return t
		}
	}
}

// free reports whether worker w has no commitment overlapping [t, t+dur).
func (s *search) free(w, t, dur int) bool {
	for _, sp := range s.busy[w] {
		if sp.start < t+dur && t < sp.end {
			return false
		}
	}
	return true
}

// readyTime is the earliest start permitted by the operation's scheduled
// predecessors. Callers only place an operation once every predecessor is
// scheduled, so this is its final earliest-start bound.
func (s *search) readyTime(op int) int {
	est := 0
	for _, p := range s.m.Preds[op] {
		if s.ends[p] > est {
			est = s.ends[p]
		}
	}
	return est
}

func (s *search) place(op, t int, combo []int) (prevMaxEnd int) {
	dur := s.m.Ops[op].Duration
	s.starts[op] = t
	s.ends[op] = t + dur
	s.assigned[op] = combo
	s.scheduled[op] = true
	s.nPlaced++
	for _, w := range combo {
		s.busy[w] = append(s.busy[w], span{t, t + dur})
	}
	prevMaxEnd = s.maxEnd
	if t+dur > s.maxEnd {
		s.maxEnd = t + dur
	}
	return prevMaxEnd
}

func (s *search) unplace(op, prevMaxEnd int, combo []int) {
	s.scheduled[op] = false
	s.nPlaced--
	s.assigned[op] = nil
	for _, w := range combo {
		s.busy[w] = s.busy[w][:len(s.busy[w])-1]
	}
	s.maxEnd = prevMaxEnd
}

func (s *search) record() {
	sol := &Solution{
		Starts:   make([]int, len(s.starts)),
		Assigned: make([][]int, len(s.assigned)),
		Makespan: s.maxEnd,
	}
	copy(sol.Starts, s.starts)
	for i, combo := range s.assigned {
		dup := make([]int, len(combo))
		copy(dup, combo)
		sol.Assigned[i] = dup
	}
	s.best = sol
	s.bestMakespan = s.maxEnd
}

// dfs is the branch-and-bound loop. At each level it branches over every
// eligible operation (all predecessors placed) and every qualified worker
// combination, bounding with the incumbent makespan and the operation's tail
// length. Returns false once the budget expires or optimality is proven.
func (s *search) dfs(ctx context.Context) bool {
	if s.outOfTime(ctx) {
		return false
	}

	if s.nPlaced == len(s.m.Ops) {
		if s.maxEnd < s.bestMakespan {
			s.record()
			if s.bestMakespan == s.m.LowerBound {
				// Nothing below the proof floor exists; stop searching.
				return false
			}
		}
		return true
	}

	if s.maxEnd >= s.bestMakespan {
		return true
	}

	exhaustive := true
	for _, op := range s.m.Order {
		if s.scheduled[op] || !s.predsPlaced(op) {
			continue
		}
		est := s.readyTime(op)
		dur := s.m.Ops[op].Duration
		needed := s.m.Ops[op].WorkersNeeded

		cont := forEachCombination(s.m.Qualified[op], needed, func(combo []int) bool {
			if s.outOfTime(ctx) {
				return false
			}
			t := s.earliestStart(combo, est, dur)
			bound := t + s.m.Tails[op]
			if bound >= s.bestMakespan {
				return true // dominated, try the next combination
			}
			prev := s.place(op, t, combo)
			ok := s.dfs(ctx)
			s.unplace(op, prev, combo)
			return ok
		})
		if !cont {
			exhaustive = false
			break
		}
	}
	return exhaustive
}

// outOfTime samples the clock every 256 visits to keep the hot path cheap.
func (s *search) outOfTime(ctx context.Context) bool {
	if s.timedOut {
		return true
	}
	s.nodes++
	if s.nodes&0xff != 0 {
		return false
	}
	if ctx.Err() != nil || time.Now().After(s.deadline) {
		s.timedOut = true
		return true
	}
	return false
}

func (s *search) predsPlaced(op int) bool {
	for _, p := range s.m.Preds[op] {
		if !s.scheduled[p] {
			return false
		}
	}
	return true
}

// greedy builds one schedule with a serial pass in topological order,
// staffing each operation with the first qualified workers free at the
// earliest time enough of them are available. It always succeeds for a model
// that passed formulation, establishing the initial incumbent.
func (s *search) greedy() {
	type placement struct {
		op    int
		prev  int
		combo []int
	}
	var placed []placement

	for _, op := range s.m.Order {
		est := s.readyTime(op)
		dur := s.m.Ops[op].Duration
		needed := s.m.Ops[op].WorkersNeeded
		pool := s.m.Qualified[op]

		t := est
		var combo []int
		for {
			combo = combo[:0]
			for _, w := range pool {
				if s.free(w, t, dur) {
					combo = append(combo, w)
					if len(combo) == needed {
						break
					}
				}
			}
			if len(combo) == needed {
				break
			}
			// Advance to the next time any pool worker frees up.
			next := -1
			for _, w := range pool {
				for _, sp := range s.busy[w] {
					if sp.end > t && (next == -1 || sp.end < next) {
						next = sp.end
					}
				}
			}
			if next == -1 {
				// No commitments left to wait out; the pool size check in
				// formulation guarantees this pass succeeds immediately.
				t++
				continue
			}
			t = next
		}

		chosen := make([]int, len(combo))
		copy(chosen, combo)
		prev := s.place(op, t, chosen)
		placed = append(placed, placement{op, prev, chosen})
	}

	s.record()

	// Rewind so the exact search starts from a clean state.
	for i := len(placed) - 1; i >= 0; i-- {
		p := placed[i]
		s.unplace(p.op, p.prev, p.combo)
	}
}

// forEachCombination invokes fn with every k-element subset of pool, in
// lexicographic order of pool indices. fn returning false stops the
// enumeration; forEachCombination then also returns false.
func forEachCombination(pool []int, k int, fn func([]int) bool) bool {
	combo := make([]int, k)
	var rec func(from, depth int) bool
	rec = func(from, depth int) bool {
		if depth == k {
			return fn(combo)
		}
		for i := from; i <= len(pool)-(k-depth); i++ {
			combo[depth] = pool[i]
			if !rec(i+1, depth+1) {
				return false
			}
		}
		return true
	}
	return rec(0, 0)
}
