package solverproc

import (
	"context"
	"time"

	"github.com/vk/crewplan/internal/ctxlog"
	"github.com/vk/crewplan/internal/schedule"
	"github.com/vk/crewplan/internal/solver"
)

// Handle runs one solve inside the worker process and folds every outcome
// into a Response. Only engine faults set OK to false; infeasible or
// timed-out instances are OK with a null result, which the host reports as
// "no schedule".
func Handle(ctx context.Context, req *Request, budget time.Duration) *Response {
	logger := ctxlog.FromContext(ctx)

	p := req.Problem()
	p.Normalize()

	if p.Empty() {
		return &Response{OK: true, Result: schedule.Empty()}
	}

	logger.Info("Solving instance.",
		"operations", len(p.Operations),
		"dependencies", len(p.Dependencies),
		"workers", len(p.Workers),
	)

	model, err := solver.Formulate(ctx, p)
	if err != nil {
		return &Response{OK: false, Error: err.Error()}
	}
	if model == nil {
		return &Response{OK: true, Result: nil}
	}

	sol, err := solver.Driver{Budget: budget}.BuildSchedule(ctx, model)
	if err != nil {
		return &Response{OK: false, Error: err.Error()}
	}
	if sol == nil {
		return &Response{OK: true, Result: nil}
	}
	return &Response{OK: true, Result: schedule.Assemble(model, sol)}
}
