// Package schedule turns raw solver output into the presentation-ready
// schedule structure consumed by renderers and the JSON export. The JSON
// field names and nesting form a stable interchange contract and must be
// preserved exactly.
package schedule

import (
	"math"
	"sort"

	"github.com/vk/crewplan/internal/cpmodel"
	"github.com/vk/crewplan/internal/solver"
)

// Assignment is one scheduled operation: its time window and the workers
// committed to it. Workers is sorted ascending and always has exactly
// workers_needed entries. DurationHours is display-only, derived from the
// minute-valued duration.
type Assignment struct {
	OperationID   string   `json:"operation_id"`
	OperationName string   `json:"operation_name"`
	Start         int      `json:"start"`
	End           int      `json:"end"`
	Duration      int      `json:"duration"`
	DurationHours float64  `json:"duration_hours"`
	Workers       []string `json:"workers"`
}

// Schedule is a complete solve result. Makespan is the maximum end over all
// assignments, zero exactly when the operation set is empty. MakespanHours
// is display-only.
type Schedule struct {
	Makespan      int          `json:"makespan"`
	MakespanHours float64      `json:"makespan_hours"`
	Assignments   []Assignment `json:"assignments"`
}

// Empty returns the trivial schedule for an instance with no operations.
func Empty() *Schedule {
	return &Schedule{Makespan: 0, MakespanHours: 0, Assignments: []Assignment{}}
}

// Assemble materializes the solver's index-based solution against the model
// it was solved from. Worker names are listed ascending and assignments are
// ordered by (start, operation_name) for stable presentation.
func Assemble(m *cpmodel.Model, sol *solver.Solution) *Schedule {
	assignments := make([]Assignment, 0, len(m.Ops))
	for i, op := range m.Ops {
		names := make([]string, 0, len(sol.Assigned[i]))
		for _, w := range sol.Assigned[i] {
			names = append(names, m.Workers[w].Name)
		}
		sort.Strings(names)

		start := sol.Starts[i]
		assignments = append(assignments, Assignment{
			OperationID:   op.ID,
			OperationName: op.Name,
			Start:         start,
			End:           start + op.Duration,
			Duration:      op.Duration,
			DurationHours: hours(op.Duration),
			Workers:       names,
		})
	}

	sort.SliceStable(assignments, func(a, b int) bool {
		if assignments[a].Start != assignments[b].Start {
			return assignments[a].Start < assignments[b].Start
		}
		return assignments[a].OperationName < assignments[b].OperationName
	})

	return &Schedule{
		Makespan:      sol.Makespan,
		MakespanHours: hours(sol.Makespan),
		Assignments:   assignments,
	}
}

// hours converts whole minutes to hours rounded to two decimals, matching
// the original export format.
func hours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}
