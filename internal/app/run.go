package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vk/crewplan/internal/ctxlog"
	"github.com/vk/crewplan/internal/planfile"
	"github.com/vk/crewplan/internal/schedule"
	"github.com/vk/crewplan/internal/solverproc"
)

// ErrNoSchedule is returned by a one-shot run when the instance admits no
// schedule (or none was found within the time budget). It is an expected
// outcome, distinct from engine faults.
var ErrNoSchedule = errors.New("no feasible schedule found")

// Run executes the configured mode: serve when a listen address is set,
// otherwise a one-shot solve of the plan file.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if a.config.ListenAddr != "" {
		return a.serve(ctx)
	}
	return a.solveOnce(ctx)
}

// solveOnce loads the plan, solves it across the isolation boundary, renders
// the schedule table, and optionally exports the schedule JSON.
func (a *App) solveOnce(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	p, err := planfile.Load(a.config.PlanPath)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}
	logger.Info("Plan loaded.",
		"path", a.config.PlanPath,
		"operations", len(p.Operations),
		"dependencies", len(p.Dependencies),
		"workers", len(p.Workers),
	)

	sched, err := a.client.Solve(ctx, p)
	if err != nil {
		var crash *solverproc.CrashError
		if errors.As(err, &crash) {
			logger.Error("Solver worker crashed.", "error", crash.Err, "stderr", crash.Stderr)
		}
		return err
	}
	if sched == nil {
		logger.Warn("No schedule found.",
			"hint", "check worker qualifications and dependency cycles")
		return ErrNoSchedule
	}

	a.renderSchedule(sched)

	if a.config.OutPath != "" {
		if err := exportSchedule(a.config.OutPath, sched); err != nil {
			return fmt.Errorf("failed to export schedule: %w", err)
		}
		logger.Info("Schedule exported.", "path", a.config.OutPath)
	}
	return nil
}

// exportSchedule writes the schedule in the stable interchange format.
func exportSchedule(path string, sched *schedule.Schedule) error {
	data, err := json.MarshalIndent(sched, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
