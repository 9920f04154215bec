// Package sqlite provides the public factory for the SQLite ACL store while
// keeping the implementation internal.
package sqlite

import (
	"github.com/pion/logging"

	"github.com/mesh-intelligence/nasacl/internal/sqlite"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// NewBackend creates a detached SQLite store. A nil factory disables
// logging.
//
// Example:
//
//	store := sqlite.NewBackend(logging.NewDefaultLoggerFactory())
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".nasacl-db",
//	})
//	defer store.Detach()
func NewBackend(loggerFactory logging.LoggerFactory) types.Backend {
	return sqlite.NewBackend(loggerFactory)
}
