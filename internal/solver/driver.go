package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/crewplan/internal/ctxlog"
	"github.com/vk/crewplan/internal/cpmodel"
	"github.com/vk/crewplan/internal/problem"
)

// Driver is the solve entry point used by the isolated worker. It formulates
// the encoding, runs the search, and collapses termination states into the
// caller contract: a solution for Optimal/Feasible, a nil solution for
// Infeasible/Unknown, and a non-nil error only for faults in the engine
// itself.
type Driver struct {
	// Budget bounds the search wall clock. Zero means DefaultBudget.
	Budget time.Duration
}

// BuildSchedule solves one instance. The returned model is non-nil whenever
// a solution is, and carries the operation/worker tables needed to interpret
// the solution's indices.
func (d Driver) BuildSchedule(ctx context.Context, model *cpmodel.Model) (sol *Solution, err error) {
	// A defect in the search must surface as an engine fault, never as a
	// quiet "no schedule".
	defer func() {
		if r := recover(); r != nil {
			sol = nil
			err = fmt.Errorf("solver panic: %v", r)
		}
	}()

	logger := ctxlog.FromContext(ctx)

	sol, status := Solve(ctx, model, d.Budget)
	logger.Info("Search finished.",
		"status", status.String(),
		"lower_bound", model.LowerBound,
	)

	switch status {
	case Optimal, Feasible:
		return sol, nil
	default:
		return nil, nil
	}
}

// Formulate builds the encoding for a normalized problem, translating the
// decidably-infeasible cases into the same nil-model "no schedule" outcome
// the search would reach. Errors are reserved for malformed instances.
func Formulate(ctx context.Context, p *problem.Problem) (*cpmodel.Model, error) {
	model, err := cpmodel.Build(p)
	if err != nil {
		var inf *cpmodel.InfeasibleError
		if errors.As(err, &inf) {
			ctxlog.FromContext(ctx).Info("Instance infeasible before search.", "reason", inf.Reason)
			return nil, nil
		}
		return nil, err
	}
	return model, nil
}
