package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
// This makes error creation consistent and discoverable throughout the codebase.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError, // Default severity
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithRetry sets the retry strategy.
func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

// WithCause sets the wrapped error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Resumable marks the error as recoverable by re-running the failed step.
func (b *ErrorBuilder) Resumable() *ErrorBuilder {
	return b.WithRetry(RetryResume)
}

// UserAction sets the retry strategy to require user action.
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	return b.WithRetry(RetryUserAction)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for common error patterns

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().UserAction()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal().UserAction()
}

// CycleDetected creates a graph cycle error.
func CycleDetected(message string) *ErrorBuilder {
	return NewError(CategoryCycle, message).Fatal().UserAction()
}

// TaskFailed creates a task failure error.
func TaskFailed(message string) *ErrorBuilder {
	return NewError(CategoryTask, message).Fatal()
}

// MissingBuildOutput creates an error for a step that ran before its prerequisite.
func MissingBuildOutput(message string) *ErrorBuilder {
	return NewError(CategoryMissingOutput, message).Fatal().UserAction()
}

// TestFailure creates a test failure error.
func TestFailure(message string) *ErrorBuilder {
	return NewError(CategoryTest, message)
}

// VersionPersistenceFailure creates a Version Record read/write error.
func VersionPersistenceFailure(message string) *ErrorBuilder {
	return NewError(CategoryVersion, message).Fatal().UserAction()
}

// ArtifactNotFound creates a missing-artifact error.
func ArtifactNotFound(message string) *ErrorBuilder {
	return NewError(CategoryArtifact, message).Fatal().UserAction()
}

// TransportFailure creates an upload or version-control error. The release is
// left in a resumable intermediate state.
func TransportFailure(message string) *ErrorBuilder {
	return NewError(CategoryTransport, message).Resumable()
}

// BuildError creates a compile or packaging error.
func BuildError(message string) *ErrorBuilder {
	return NewError(CategoryBuild, message).Fatal()
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

// JournalError creates a run journal error.
func JournalError(message string) *ErrorBuilder {
	return NewError(CategoryJournal, message)
}

// VCSError creates a version-control error. Release steps that fail here can
// be re-run with --from.
func VCSError(message string) *ErrorBuilder {
	return NewError(CategoryVCS, message).Resumable()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
