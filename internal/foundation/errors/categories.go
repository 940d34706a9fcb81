package errors

import "maps"

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryConfig represents user-facing configuration and input errors.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// CategoryCycle is raised by graph validation before any task runs.
	CategoryCycle ErrorCategory = "cycle_detected"
	// CategoryTask wraps the failure of a task action and aborts the run.
	CategoryTask ErrorCategory = "task_failed"
	// CategoryMissingOutput is raised when a step runs before its prerequisite produced output.
	CategoryMissingOutput ErrorCategory = "missing_build_output"
	// CategoryTest is kept apart from CategoryTask so callers may treat it as advisory.
	CategoryTest ErrorCategory = "test_failure"
	// CategoryVersion means the Version Record could not be read or written.
	CategoryVersion ErrorCategory = "version_persistence"
	// CategoryArtifact means an expected unversioned artifact is absent.
	CategoryArtifact ErrorCategory = "artifact_not_found"
	// CategoryTransport covers upload and version-control failures.
	CategoryTransport ErrorCategory = "transport_failure"

	// CategoryBuild represents compiler and packaging errors.
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryJournal    ErrorCategory = "journal"
	// CategoryVCS marks go-git failures; the release wraps them in CategoryTransport.
	CategoryVCS ErrorCategory = "vcs"

	// CategoryInternal represents programming errors.
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution completely
	SeverityError   ErrorSeverity = "error"   // Fails the current operation
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// RetryStrategy indicates how an operator should react to an error.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"  // Permanent failure, don't re-run
	RetryResume     RetryStrategy = "resume" // Re-run the failed suffix of the pipeline
	RetryUserAction RetryStrategy = "user"   // Requires user intervention first
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext)
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
