package aclobj

import (
	"fmt"
	"io"
	"strings"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// TableParams holds the named fields of a table being created.
type TableParams struct {
	SwitchID uint32
	Stage    types.Stage
	Priority uint32
}

// Table is a handle on an ACL table object.
type Table struct {
	SwitchID       uint32             `json:"switch_id"`
	TableID        uint64             `json:"table_id"`
	Stage          types.Stage        `json:"stage"`
	Priority       uint32             `json:"priority"`
	AllowedFilters []types.FilterType `json:"allowed_filters"`

	keyOnly bool
}

// NewTable returns a handle for a table to be created.
func NewTable(p TableParams) *Table {
	return &Table{SwitchID: p.SwitchID, Stage: p.Stage, Priority: p.Priority}
}

// TableRef returns a handle addressing a table by key. A zero tableID
// addresses every table of the switch.
func TableRef(switchID uint32, tableID uint64) *Table {
	return &Table{SwitchID: switchID, TableID: tableID, keyOnly: true}
}

// TableFromObject reads a table handle from a store object.
func TableFromObject(o types.Object) (*Table, error) {
	if o.Kind != types.ObjTable {
		return nil, fmt.Errorf("%s object is not a table: %w", o.Kind, types.ErrInvalidData)
	}
	t := &Table{}
	t.SwitchID, _ = o.Uint32(types.AttrSwitchID)
	t.TableID, _ = o.Uint64(types.AttrTableID)
	t.Priority, _ = o.Uint32(types.AttrPriority)
	t.Stage, _ = types.Lookup[types.Stage](o, types.AttrStage)
	t.AllowedFilters, _ = types.Lookup[[]types.FilterType](o, types.AttrAllowedFields)
	return t, nil
}

// AddAllowFilter adds a filter type entries of this table may match on.
func (t *Table) AddAllowFilter(ft types.FilterType) {
	for _, f := range t.AllowedFilters {
		if f == ft {
			return
		}
	}
	t.AllowedFilters = append(t.AllowedFilters, ft)
	t.keyOnly = false
}

// Data serializes the handle.
func (t *Table) Data() types.Object {
	o := types.NewObject(types.ObjTable)
	o.Set(types.AttrSwitchID, t.SwitchID)
	if t.TableID != 0 {
		o.Set(types.AttrTableID, t.TableID)
	}
	if t.keyOnly {
		return o
	}
	o.Set(types.AttrStage, t.Stage)
	o.Set(types.AttrPriority, t.Priority)
	allowed := make([]types.FilterType, len(t.AllowedFilters))
	copy(allowed, t.AllowedFilters)
	o.Set(types.AttrAllowedFields, allowed)
	return o
}

// ExtractID returns the table identifier.
func (t *Table) ExtractID() uint64 { return t.TableID }

// PrintObj writes a human-readable rendering of the table.
func (t *Table) PrintObj(w io.Writer) {
	names := make([]string, len(t.AllowedFilters))
	for i, f := range t.AllowedFilters {
		names[i] = f.String()
	}
	fmt.Fprintf(w, "ACL Table %d (switch %d)\n", t.TableID, t.SwitchID)
	fmt.Fprintf(w, "  stage:          %s\n", t.Stage)
	fmt.Fprintf(w, "  priority:       %d\n", t.Priority)
	fmt.Fprintf(w, "  allowed fields: %s\n", strings.Join(names, ", "))
}
