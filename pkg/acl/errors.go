package acl

import "fmt"

// Op names the operation a MutationError reports.
type Op string

// Mutating operations.
const (
	OpCreate  Op = "create"
	OpAppend  Op = "append"
	OpModify  Op = "mod"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
	OpClear   Op = "clear"
)

// Entity names what an operation acted on.
type Entity string

// Entities.
const (
	EntityTable      Entity = "Table"
	EntityEntry      Entity = "Entry"
	EntityCounter    Entity = "Counter"
	EntityStats      Entity = "Counter Stats"
	EntityFilter     Entity = "Entry filter"
	EntityAction     Entity = "Entry action"
	EntityFilterList Entity = "Entry filter-list"
	EntityActionList Entity = "Entry action-list"
)

// MutationError reports a failed create, set or delete transaction.
type MutationError struct {
	Op     Op
	Entity Entity
	Err    error
}

func (e *MutationError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Entity, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MutationError) Unwrap() error { return e.Err }

// QueryError reports a failed store query. ID is zero when every object of
// the entity was queried.
type QueryError struct {
	Entity Entity
	ID     uint64
	Err    error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("CPS Get failed for ACL %s %s", e.Entity, idString(e.ID))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *QueryError) Unwrap() error { return e.Err }
