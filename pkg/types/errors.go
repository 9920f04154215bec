package types

import "errors"

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Store operation errors. Store implementations wrap these with the object
// they refer to; callers match them with errors.Is.
var (
	ErrNotFound         = errors.New("object not found")
	ErrInvalidID        = errors.New("invalid object ID")
	ErrInvalidData      = errors.New("invalid object data")
	ErrAlreadyExists    = errors.New("object already exists")
	ErrNotEmpty         = errors.New("table still has entries or counters")
	ErrInUse            = errors.New("object is referenced by an entry")
	ErrFilterNotAllowed = errors.New("filter type not allowed in table")
	ErrIDExhausted      = errors.New("identifier space exhausted")
	ErrEmptyTransaction = errors.New("transaction has no operations")
	ErrUnsupportedOp    = errors.New("operation not supported for object kind")
)

// Value and name errors.
var (
	ErrUnknownName  = errors.New("unknown name")
	ErrValueKind    = errors.New("value kind does not match type")
	ErrInvalidValue = errors.New("invalid value")
)
