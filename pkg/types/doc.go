// Package types defines the ACL model shared by the facade, the typed object
// layer and the store: enumerations with name/number maps, typed filter and
// action values, generic store objects, the Store contract and the sentinel
// errors returned by store implementations.
package types
