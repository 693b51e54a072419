package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrNotFound is returned when a lookup by local id, guid or name does
	// not match any stored entity.
	ErrNotFound = errors.New("entity was not found")

	// ErrAlreadyExists is returned by Add when an entity with the same local
	// id or guid is already stored.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity lacks the identifiers an
	// operation needs, e.g. Update without both local id and guid.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrStorageClosed is returned by [AsyncStorage] once it has been closed.
	ErrStorageClosed = errors.New("local storage is closed")

	// ErrUnsupportedOperation is returned by [AsyncStorage] for a request
	// whose operation or entity type it does not know.
	ErrUnsupportedOperation = errors.New("unsupported storage operation")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a result
	// row fails.
	ErrScanningRow = errors.New("failed to scan entity row")

	// ErrEncodingPayload is returned when an entity cannot be serialized to
	// or from its JSON payload column.
	ErrEncodingPayload = errors.New("failed to encode entity payload")
)
