// Package templategen turns a plain-language description into an SPX-GC
// HTML template and its field descriptor.
package templategen

import (
	"context"

	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
)

// Request describes a single generation.
type Request = orchestrator.Request

// Result is the outcome of a generation.
type Result = orchestrator.Result

// Option configures an orchestrator.
type Option = orchestrator.Option

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Generate loads the model, runs a single generation, and returns the
// result. It is the simplest entry point for callers that need one template.
func Generate(ctx context.Context, prompt string, options ...Option) (Result, error) {
	gen := orchestrator.New(options...)
	if err := gen.EnsureInitialized(ctx); err != nil {
		return Result{}, err
	}
	return gen.Generate(ctx, Request{Prompt: prompt})
}
