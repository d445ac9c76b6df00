// Package planfile loads a scheduling problem instance from an HCL plan
// file. A plan declares operation blocks (labelled by id), worker blocks
// (labelled by name), and precedence either as standalone dependency blocks
// or as an `after` list on the operation itself:
//
//	operation "prep" {
//	  name           = "Preparation"
//	  duration       = 30
//	  workers_needed = 2
//	}
//
//	operation "weld" {
//	  name     = "Welding"
//	  duration = 45
//	  after    = ["prep"]
//	}
//
//	worker "Alice" {
//	  operations = ["Preparation", "Welding"]
//	  color      = "#e06c75"
//	}
//
// Durations are in minutes; the constants minute, hour, and day are in scope
// for expressions like `duration = 2 * hour`.
//
// Numeric fields are clamped to their minimums rather than rejected; only
// structural defects (duplicate ids, dangling references) fail the load, and
// all of them are reported together.
package planfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/crewplan/internal/problem"
)

// evalContext exposes time-unit constants so durations read naturally:
// `duration = 2 * hour`. The base unit is a minute.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"minute": cty.NumberIntVal(1),
			"hour":   cty.NumberIntVal(60),
			"day":    cty.NumberIntVal(60 * 24),
		},
	}
}

type planHCL struct {
	Operations   []operationHCL  `hcl:"operation,block"`
	Dependencies []dependencyHCL `hcl:"dependency,block"`
	Workers      []workerHCL     `hcl:"worker,block"`
}

type operationHCL struct {
	ID            string   `hcl:"id,label"`
	Name          string   `hcl:"name,optional"`
	Duration      int      `hcl:"duration,optional"`
	WorkersNeeded int      `hcl:"workers_needed,optional"`
	After         []string `hcl:"after,optional"`
}

type dependencyHCL struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

type workerHCL struct {
	Name       string   `hcl:"name,label"`
	Operations []string `hcl:"operations"`
	// Color is a display hint; accepted so plans can annotate workers, but
	// the solver does not use it.
	Color string `hcl:"color,optional"`
}

// Load parses and validates one plan file into a normalized problem.
func Load(path string) (*problem.Problem, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, diags)
	}
	return decode(file.Body)
}

// LoadBytes parses a plan held in memory, used by tests and embedded plans.
func LoadBytes(src []byte, filename string) (*problem.Problem, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse plan %s: %w", filename, diags)
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (*problem.Problem, error) {
	var plan planHCL
	if diags := gohcl.DecodeBody(body, evalContext(), &plan); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode plan: %w", diags)
	}

	p := &problem.Problem{}

	for _, op := range plan.Operations {
		name := op.Name
		if name == "" {
			name = op.ID
		}
		p.Operations = append(p.Operations, problem.Operation{
			ID:            op.ID,
			Name:          name,
			Duration:      op.Duration,
			WorkersNeeded: op.WorkersNeeded,
		})
		for _, pred := range op.After {
			p.Dependencies = append(p.Dependencies, problem.Dependency{Pred: pred, Succ: op.ID})
		}
	}

	for _, d := range plan.Dependencies {
		p.Dependencies = append(p.Dependencies, problem.Dependency{Pred: d.From, Succ: d.To})
	}
	for _, w := range plan.Workers {
		p.Workers = append(p.Workers, problem.Worker{
			Name:       w.Name,
			Operations: w.Operations,
		})
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	p.Normalize()
	return p, nil
}
