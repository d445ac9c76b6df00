// Package cli parses the crewplan host's command line into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/crewplan/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("crewplan", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
crewplan - builds a minimal-makespan schedule for dependent, multi-worker
operations, solving in an isolated worker process.

Usage:
  crewplan [options] [PLAN_PATH]

Arguments:
  PLAN_PATH
    Path to an HCL plan file with operation, dependency and worker blocks.

Options:
`)
		flagSet.PrintDefaults()
	}

	planFlag := flagSet.String("plan", "", "Path to the plan file.")
	outFlag := flagSet.String("out", "", "Write the solved schedule as JSON to this path.")
	listenFlag := flagSet.String("listen", "", "Run an HTTP solve server on this address instead of a one-shot solve.")
	solverBinFlag := flagSet.String("solver-bin", "", "Path to the solver worker binary. Defaults to auto-discovery.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Hard round-trip ceiling per solve. 0 uses the built-in default (60s).")
	budgetFlag := flagSet.Duration("budget", 0, "Solver's internal search budget. 0 uses the worker default (30s).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := *planFlag
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	listen := *listenFlag
	if path == "" && listen == "" {
		flagSet.Usage()
		return nil, true, nil
	}
	if path != "" && listen != "" {
		return nil, false, &ExitError{Code: 2, Message: "choose either a plan file or --listen, not both"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *timeoutFlag < 0 || *budgetFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "timeout and budget must not be negative"}
	}
	if *timeoutFlag > 0 && *budgetFlag > 0 && *budgetFlag >= *timeoutFlag {
		return nil, false, &ExitError{Code: 2, Message: "budget must be strictly below timeout, or the worker can never answer in time"}
	}

	return &app.Config{
		PlanPath:   path,
		OutPath:    *outFlag,
		ListenAddr: listen,
		SolverBin:  *solverBinFlag,
		Timeout:    *timeoutFlag,
		Budget:     *budgetFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	}, false, nil
}
