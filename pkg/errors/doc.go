// Package errors provides structured error types for better observability
// and programmatic error handling across the engine.
//
// Graph resolution, option freezing, recipe evaluation, and artifact
// publication all report failures as a StructuredError whose Code places the
// failure in one of the engine's error classes and whose Context names the
// node and lifecycle phase involved.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeRecipeEvaluation,
//	    "build callback failed",
//	    cause,
//	    map[string]any{
//	        errors.ContextNode:  "pocketsphinx/5.0.1",
//	        errors.ContextPhase: "build",
//	    },
//	)
//
//	if errors.IsCode(err, errors.ErrCodeRecipeEvaluation) {
//	    // ...
//	}
package errors
