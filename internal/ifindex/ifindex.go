// Package ifindex maps switch port names to kernel interface indexes through
// netlink.
package ifindex

import (
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// Resolver looks up links by name and by index.
type Resolver struct {
	byName  func(name string) (netlink.Link, error)
	byIndex func(index int) (netlink.Link, error)
}

// New returns a Resolver backed by the host's netlink socket.
func New() *Resolver {
	return &Resolver{byName: netlink.LinkByName, byIndex: netlink.LinkByIndex}
}

// Index returns the ifindex of the named link.
func (r *Resolver) Index(name string) (uint32, error) {
	link, err := r.byName(name)
	if err != nil {
		return 0, fmt.Errorf("port %q: %v: %w", name, err, types.ErrInvalidValue)
	}
	idx := link.Attrs().Index
	if idx <= 0 {
		return 0, fmt.Errorf("port %q has no ifindex: %w", name, types.ErrInvalidValue)
	}
	return uint32(idx), nil
}

// Name returns the link name for an ifindex, or the index in decimal when
// the host has no such link.
func (r *Resolver) Name(index uint32) string {
	link, err := r.byIndex(int(index))
	if err != nil || link.Attrs().Name == "" {
		return fmt.Sprint(index)
	}
	return link.Attrs().Name
}

// Parser returns a value parser that accepts port names as well as
// numeric ifindexes.
func (r *Resolver) Parser() types.ValueParser {
	return types.ValueParser{ResolvePort: r.Index}
}
