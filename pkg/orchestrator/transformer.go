package orchestrator

import (
	"context"
)

// Transformer mutates a successful Result before it is stored and returned.
// Implementations can inject metadata into the document or rewrite the
// descriptor. A Transformer error turns the result into a failure.
type Transformer interface {
	Transform(ctx context.Context, result *Result) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, result *Result) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, result *Result) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, result)
}

// Chain runs transformers in order, stopping at the first error.
func Chain(transformers ...Transformer) Transformer {
	return TransformerFunc(func(ctx context.Context, result *Result) error {
		for _, t := range transformers {
			if t == nil {
				continue
			}
			if err := t.Transform(ctx, result); err != nil {
				return err
			}
		}
		return nil
	})
}
