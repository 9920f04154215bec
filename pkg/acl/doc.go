// Package acl is the ACL management facade: one method per administrative
// operation on ACL tables, entries, counters and counter statistics.
//
// Every mutating method builds one store object, commits it as a
// single-operation transaction and returns a *MutationError when the commit
// fails. Print methods query the store and write each result; a failed query
// writes a one-line diagnostic instead, is logged, and is not returned.
//
// Identifiers are assigned by the store and are never zero, so a zero id in
// a print or query call means "all".
package acl
