package eventstore

import (
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = ferrors.JournalError("could not open run journal database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = ferrors.JournalError("failed to initialize run journal schema").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = ferrors.JournalError("failed to append event to run journal").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = ferrors.JournalError("failed to query run journal").Build()
)

// wrap attaches a cause to one of the sentinel errors above.
func wrap(sentinel *ferrors.ClassifiedError, err error) error {
	return ferrors.WrapError(err, sentinel.Category(), sentinel.Message()).Build()
}
