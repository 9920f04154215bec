package aclobj

import (
	"fmt"
	"io"
	"strings"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// CounterParams holds the named fields of a counter being created. Empty
// Types counts bytes.
type CounterParams struct {
	SwitchID uint32
	TableID  uint64
	Types    []types.CounterType
}

// Counter is a handle on an ACL counter object.
type Counter struct {
	SwitchID  uint32              `json:"switch_id"`
	TableID   uint64              `json:"table_id"`
	CounterID uint64              `json:"counter_id"`
	Types     []types.CounterType `json:"types"`

	keyOnly bool
}

// NewCounter returns a handle for a counter to be created.
func NewCounter(p CounterParams) *Counter {
	ct := append([]types.CounterType(nil), p.Types...)
	if len(ct) == 0 {
		ct = []types.CounterType{types.CounterBytes}
	}
	return &Counter{SwitchID: p.SwitchID, TableID: p.TableID, Types: ct}
}

// CounterRef returns a handle addressing a counter by key. Zero ids act as
// wildcards.
func CounterRef(switchID uint32, tableID, counterID uint64) *Counter {
	return &Counter{SwitchID: switchID, TableID: tableID, CounterID: counterID, keyOnly: true}
}

// CounterFromObject reads a counter handle from a store object.
func CounterFromObject(o types.Object) (*Counter, error) {
	if o.Kind != types.ObjCounter {
		return nil, fmt.Errorf("%s object is not a counter: %w", o.Kind, types.ErrInvalidData)
	}
	c := &Counter{}
	c.SwitchID, _ = o.Uint32(types.AttrSwitchID)
	c.TableID, _ = o.Uint64(types.AttrTableID)
	c.CounterID, _ = o.Uint64(types.AttrCounterID)
	c.Types, _ = types.Lookup[[]types.CounterType](o, types.AttrCounterTypes)
	return c, nil
}

// Data serializes the handle.
func (c *Counter) Data() types.Object {
	o := types.NewObject(types.ObjCounter)
	o.Set(types.AttrSwitchID, c.SwitchID)
	if c.TableID != 0 {
		o.Set(types.AttrTableID, c.TableID)
	}
	if c.CounterID != 0 {
		o.Set(types.AttrCounterID, c.CounterID)
	}
	if !c.keyOnly {
		o.Set(types.AttrCounterTypes, append([]types.CounterType(nil), c.Types...))
	}
	return o
}

// ExtractID returns the counter identifier.
func (c *Counter) ExtractID() uint64 { return c.CounterID }

// PrintObj writes a human-readable rendering of the counter.
func (c *Counter) PrintObj(w io.Writer) {
	names := make([]string, len(c.Types))
	for i, t := range c.Types {
		names[i] = t.String()
	}
	fmt.Fprintf(w, "ACL Counter %d in table %d (switch %d)\n", c.CounterID, c.TableID, c.SwitchID)
	fmt.Fprintf(w, "  types: %s\n", strings.Join(names, ", "))
}
