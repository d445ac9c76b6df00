// crewplan-solver is the isolated execution unit for the scheduling search.
// It reads one JSON solve request from stdin, runs the constraint search,
// and writes one JSON response to stdout. Logs go to stderr so stdout stays
// clean for the wire response. A crash here takes down only this process;
// the host reports it as a solver fault.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/vk/crewplan/internal/ctxlog"
	"github.com/vk/crewplan/internal/solver"
	"github.com/vk/crewplan/internal/solverproc"
)

func main() {
	os.Exit(realMain(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]))
}

func realMain(stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("crewplan-solver", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	budgetFlag := flagSet.Duration("budget", solver.DefaultBudget, "Wall-clock search budget.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level: 'debug', 'info', 'warn', 'error'.")
	if err := flagSet.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if *logLevelFlag == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	resp := solve(ctx, stdin, *budgetFlag)

	enc := json.NewEncoder(stdout)
	if err := enc.Encode(resp); err != nil {
		fmt.Fprintf(stderr, "failed to encode response: %v\n", err)
		return 1
	}
	return 0
}

// solve decodes the request and answers it. Decode failures are reported in
// the response rather than by exit code, so the host can tell a bad request
// from a crashed worker.
func solve(ctx context.Context, stdin io.Reader, budget time.Duration) *solverproc.Response {
	var req solverproc.Request
	if err := json.NewDecoder(stdin).Decode(&req); err != nil {
		return &solverproc.Response{OK: false, Error: "malformed request: " + err.Error()}
	}
	return solverproc.Handle(ctx, &req, budget)
}
