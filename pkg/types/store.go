package types

// Store is the transactional object store the ACL facade is written against.
type Store interface {
	// Commit applies all operations atomically and returns one result object
	// per operation. Created objects carry their assigned identifiers. A
	// non-nil error means nothing was applied.
	Commit(ops []Operation) ([]Object, error)

	// Get returns every object that matches at least one query object.
	// Attributes missing from a query object match any value.
	Get(query []Object) ([]Object, error)
}

// Backend is a Store with an attach/detach lifecycle.
type Backend interface {
	Store

	// Attach opens the backend on the configured data directory.
	Attach(config Config) error

	// Detach releases the backend's resources. It is idempotent.
	Detach() error
}
