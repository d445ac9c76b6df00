// Package app wires the crewplan host together: configuration, logging, the
// plan loader, the isolation-boundary client, and the two front ends (a
// one-shot CLI solve and an HTTP solve server).
package app

import (
	"io"
	"log/slog"
	"time"

	"github.com/vk/crewplan/internal/solverproc"
)

// Config holds everything an App needs to run.
type Config struct {
	// PlanPath is the HCL plan file for a one-shot solve.
	PlanPath string

	// OutPath, when set, receives the solved schedule as JSON.
	OutPath string

	// ListenAddr, when set, starts the HTTP solve server instead of a
	// one-shot solve.
	ListenAddr string

	// SolverBin overrides worker binary discovery.
	SolverBin string

	// Timeout is the hard round-trip ceiling per solve. Zero means
	// solverproc.DefaultTimeout.
	Timeout time.Duration

	// Budget is the worker's internal search budget. Zero means the worker
	// default.
	Budget time.Duration

	LogFormat string
	LogLevel  string
}

// App is an initialized host instance with its own isolated logger.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	client *solverproc.Client
}

// New constructs the application from a parsed configuration.
func New(outW io.Writer, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		client: &solverproc.Client{
			BinPath: cfg.SolverBin,
			Timeout: cfg.Timeout,
			Budget:  cfg.Budget,
		},
	}
}
