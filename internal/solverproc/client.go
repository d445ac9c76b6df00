package solverproc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/crewplan/internal/ctxlog"
	"github.com/vk/crewplan/internal/problem"
	"github.com/vk/crewplan/internal/schedule"
)

// DefaultTimeout caps the full round trip to the worker process. It is
// deliberately above the worker's internal search budget so a well-behaved
// worker always answers before the host gives up.
const DefaultTimeout = 60 * time.Second

// WorkerBinary is the name of the isolated solver executable.
const WorkerBinary = "crewplan-solver"

// CrashError reports that the worker process died, produced no parseable
// output, or could not be started at all. It signals an engine or
// environment defect, never a property of the instance.
type CrashError struct {
	Err    error
	Stderr string
}

// Error implements the error interface.
func (e *CrashError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("solver process crashed: %v\nstderr:\n%s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("solver process crashed: %v", e.Err)
}

// Unwrap supports errors.Is/As against the underlying cause.
func (e *CrashError) Unwrap() error { return e.Err }

// SolverError reports that the worker exited cleanly but signalled an
// internal solve failure.
type SolverError struct {
	Message string
}

// Error implements the error interface.
func (e *SolverError) Error() string {
	return "solver error: " + e.Message
}

// Client launches one worker process per solve. Concurrent Solve calls are
// independent; nothing is shared or cached between them.
type Client struct {
	// BinPath locates the worker executable. Empty means: a sibling of the
	// current executable if present, otherwise resolve WorkerBinary on PATH.
	BinPath string

	// Timeout is the hard round-trip ceiling. Zero means DefaultTimeout.
	Timeout time.Duration

	// Budget, when positive, is forwarded to the worker as its internal
	// search budget.
	Budget time.Duration
}

// Solve sends the problem to an isolated worker and waits for its response.
// A nil schedule with a nil error means no schedule exists or none was found
// in time. Instances with no operations are answered locally without
// spawning anything.
func (c *Client) Solve(ctx context.Context, p *problem.Problem) (*schedule.Schedule, error) {
	if p.Empty() {
		return schedule.Empty(), nil
	}

	payload, err := json.Marshal(NewRequest(p))
	if err != nil {
		return nil, fmt.Errorf("failed to encode solve request: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bin, err := c.resolveBinary()
	if err != nil {
		return nil, &CrashError{Err: err}
	}

	var args []string
	if c.Budget > 0 {
		args = append(args, "--budget", c.Budget.String())
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Spawning solver worker.", "bin", bin, "timeout", timeout)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	// exec.CommandContext kills the worker on deadline, so a timed-out solve
	// leaves nothing behind. The contract reports it as "no schedule", the
	// same verdict as an instance the search could not crack in time.
	if ctx.Err() != nil {
		logger.Warn("Solver worker timed out.", "timeout", timeout)
		return nil, nil
	}
	if runErr != nil {
		return nil, &CrashError{Err: runErr, Stderr: strings.TrimSpace(stderr.String())}
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil, &CrashError{
			Err:    errors.New("worker produced no output"),
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, &CrashError{
			Err:    fmt.Errorf("malformed worker response: %w", err),
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}

	if !resp.OK {
		return nil, &SolverError{Message: resp.Error}
	}
	return resp.Result, nil
}

// resolveBinary prefers an explicit path, then a worker installed next to
// the host executable, then PATH.
func (c *Client) resolveBinary() (string, error) {
	if c.BinPath != "" {
		return c.BinPath, nil
	}
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), WorkerBinary)
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	bin, err := exec.LookPath(WorkerBinary)
	if err != nil {
		return "", fmt.Errorf("worker binary %q not found: %w", WorkerBinary, err)
	}
	return bin, nil
}
