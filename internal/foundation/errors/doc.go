// Package errors provides foundational, type-safe error primitives used across buildmaster.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: error kind (cycle, task, test, version, artifact, transport, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: how an operator should re-run (never, user action)
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLI adapter for exit codes and error presentation
//
// The orchestrator never retries on its own. A retry strategy only tells the
// operator whether re-invoking the failed step makes sense.
//
// Example usage:
//
//	err := errors.ArtifactNotFound("unversioned artifact missing").
//		WithContext("path", path).
//		WithCause(statErr).
//		Build()
package errors
