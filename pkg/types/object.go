package types

import (
	"fmt"
	"sort"
	"strings"
)

// ObjectKind names the class of a store object.
type ObjectKind string

// Object kinds. ObjEntryFilter and ObjEntryAction address a single filter or
// action of an existing entry.
const (
	ObjTable       ObjectKind = "table"
	ObjEntry       ObjectKind = "entry"
	ObjEntryFilter ObjectKind = "entry-filter"
	ObjEntryAction ObjectKind = "entry-action"
	ObjCounter     ObjectKind = "counter"
	ObjStats       ObjectKind = "stats"
)

// Attr names an attribute of a store object.
type Attr string

// Object attributes and the Go type each one carries.
const (
	AttrSwitchID      Attr = "switch-id"            // uint32
	AttrTableID       Attr = "table-id"             // uint64
	AttrEntryID       Attr = "entry-id"             // uint64
	AttrCounterID     Attr = "counter-id"           // uint64
	AttrStage         Attr = "stage"                // Stage
	AttrPriority      Attr = "priority"             // uint32
	AttrAllowedFields Attr = "allowed-match-fields" // []FilterType
	AttrMatch         Attr = "match"                // []Filter
	AttrAction        Attr = "action"               // []Action
	AttrFilterType    Attr = "filter-type"          // FilterType
	AttrFilterValue   Attr = "filter-value"         // Value
	AttrActionType    Attr = "action-type"          // ActionType
	AttrActionValue   Attr = "action-value"         // Value
	AttrCounterTypes  Attr = "counter-types"        // []CounterType
	AttrMatchedBytes  Attr = "matched-bytes"        // uint64
	AttrMatchedPkts   Attr = "matched-packets"      // uint64
)

// Object is the generic representation exchanged with a Store. Attributes
// that are absent act as wildcards in queries.
type Object struct {
	Kind  ObjectKind
	Attrs map[Attr]any
}

// NewObject returns an empty object of the given kind.
func NewObject(kind ObjectKind) Object {
	return Object{Kind: kind, Attrs: make(map[Attr]any)}
}

// Set stores an attribute value.
func (o *Object) Set(a Attr, v any) {
	if o.Attrs == nil {
		o.Attrs = make(map[Attr]any)
	}
	o.Attrs[a] = v
}

// Has reports whether the attribute is present.
func (o Object) Has(a Attr) bool {
	_, ok := o.Attrs[a]
	return ok
}

// Clone returns a copy of o whose attribute map can be modified freely.
func (o Object) Clone() Object {
	c := NewObject(o.Kind)
	for a, v := range o.Attrs {
		c.Attrs[a] = v
	}
	return c
}

// Uint64 returns an integer attribute widened to uint64.
func (o Object) Uint64(a Attr) (uint64, bool) {
	switch v := o.Attrs[a].(type) {
	case uint64:
		return v, true
	case uint32:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	}
	return 0, false
}

// Uint32 returns an integer attribute narrowed to uint32.
func (o Object) Uint32(a Attr) (uint32, bool) {
	v, ok := o.Uint64(a)
	if !ok || v > 1<<32-1 {
		return 0, false
	}
	return uint32(v), true
}

// Lookup returns attribute a of o as a T.
func Lookup[T any](o Object, a Attr) (T, bool) {
	v, ok := o.Attrs[a].(T)
	return v, ok
}

// String renders the object kind and its attributes in name order.
func (o Object) String() string {
	names := make([]string, 0, len(o.Attrs))
	for a := range o.Attrs {
		names = append(names, string(a))
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(string(o.Kind))
	b.WriteString("{")
	for i, n := range names {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%v", n, o.Attrs[Attr(n)])
	}
	b.WriteString("}")
	return b.String()
}

// OpKind is the kind of change a transaction operation makes.
type OpKind string

// Operation kinds.
const (
	OpCreate OpKind = "create"
	OpSet    OpKind = "set"
	OpDelete OpKind = "delete"
)

// Operation is one change within a transaction.
type Operation struct {
	Kind   OpKind
	Object Object
}
