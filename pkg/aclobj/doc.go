// Package aclobj builds and reads the store objects for ACL tables, entries,
// counters and counter statistics.
//
// Each handle is constructed either from named fields (New* for objects being
// created, *Ref for objects addressed by key) or from an object returned by
// the store (*FromObject). Data serializes a handle, ExtractID reads back the
// identifier the store assigned, and PrintObj renders it for humans.
package aclobj
