// Package solverproc is the fault-containment boundary around the solve. The
// search runs inside a dedicated worker process (cmd/crewplan-solver) so a
// crash or runaway search degrades into a reportable error instead of taking
// down the host. Host and worker exchange one JSON request and one JSON
// response over the worker's stdin/stdout; stderr is reserved for worker
// logs and is captured as diagnostics on failure.
package solverproc

import (
	"github.com/vk/crewplan/internal/problem"
	"github.com/vk/crewplan/internal/schedule"
)

// Request is the serialized problem instance sent to the worker. Field names
// are frozen wire contract.
type Request struct {
	Operations   []problem.Operation  `json:"operations"`
	Dependencies []problem.Dependency `json:"dependencies"`
	Workers      []problem.Worker     `json:"workers"`
}

// NewRequest copies a problem into its wire form.
func NewRequest(p *problem.Problem) *Request {
	return &Request{
		Operations:   p.Operations,
		Dependencies: p.Dependencies,
		Workers:      p.Workers,
	}
}

// Problem converts the wire form back into a problem instance.
func (r *Request) Problem() *problem.Problem {
	return &problem.Problem{
		Operations:   r.Operations,
		Dependencies: r.Dependencies,
		Workers:      r.Workers,
	}
}

// Response is the worker's single reply. OK false carries an engine error in
// Error; OK true carries either a schedule or null for "no schedule found".
type Response struct {
	OK     bool               `json:"ok"`
	Result *schedule.Schedule `json:"result"`
	Error  string             `json:"error,omitempty"`
}
