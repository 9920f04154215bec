package aclobj

import (
	"fmt"
	"io"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// EntryParams holds the named fields of an entry being created.
type EntryParams struct {
	SwitchID uint32
	TableID  uint64
	Priority uint32
}

// Entry is a handle on an ACL entry object, or on a single filter or action
// of an entry when it was built with EntryFilterRef or EntryActionRef.
type Entry struct {
	SwitchID uint32         `json:"switch_id"`
	TableID  uint64         `json:"table_id"`
	EntryID  uint64         `json:"entry_id"`
	Priority uint32         `json:"priority"`
	Filters  []types.Filter `json:"filters"`
	Actions  []types.Action `json:"actions"`

	filterType types.FilterType
	actionType types.ActionType
	value      types.Value

	hasPriority bool
	hasMatch    bool
	hasAction   bool
}

// NewEntry returns a handle for an entry to be created.
func NewEntry(p EntryParams) *Entry {
	return &Entry{
		SwitchID:    p.SwitchID,
		TableID:     p.TableID,
		Priority:    p.Priority,
		hasPriority: true,
		hasMatch:    true,
		hasAction:   true,
	}
}

// EntryRef returns a handle addressing an entry by key. A zero entryID
// addresses every entry of the table, a zero tableID every entry of the
// switch. Filters and actions added to a reference replace the entry's
// whole filter or action list when the handle is committed with a set.
func EntryRef(switchID uint32, tableID, entryID uint64) *Entry {
	return &Entry{SwitchID: switchID, TableID: tableID, EntryID: entryID}
}

// EntryFilterRef returns a handle addressing one filter of an entry.
func EntryFilterRef(switchID uint32, tableID, entryID uint64, ft types.FilterType) *Entry {
	return &Entry{SwitchID: switchID, TableID: tableID, EntryID: entryID, filterType: ft}
}

// EntryActionRef returns a handle addressing one action of an entry.
func EntryActionRef(switchID uint32, tableID, entryID uint64, at types.ActionType) *Entry {
	return &Entry{SwitchID: switchID, TableID: tableID, EntryID: entryID, actionType: at}
}

// EntryFromObject reads an entry handle from a store object.
func EntryFromObject(o types.Object) (*Entry, error) {
	e := &Entry{}
	e.SwitchID, _ = o.Uint32(types.AttrSwitchID)
	e.TableID, _ = o.Uint64(types.AttrTableID)
	e.EntryID, _ = o.Uint64(types.AttrEntryID)
	switch o.Kind {
	case types.ObjEntry:
		e.Priority, e.hasPriority = o.Uint32(types.AttrPriority)
		e.Filters, e.hasMatch = types.Lookup[[]types.Filter](o, types.AttrMatch)
		e.Actions, e.hasAction = types.Lookup[[]types.Action](o, types.AttrAction)
	case types.ObjEntryFilter:
		e.filterType, _ = types.Lookup[types.FilterType](o, types.AttrFilterType)
		e.value, _ = types.Lookup[types.Value](o, types.AttrFilterValue)
	case types.ObjEntryAction:
		e.actionType, _ = types.Lookup[types.ActionType](o, types.AttrActionType)
		e.value, _ = types.Lookup[types.Value](o, types.AttrActionValue)
	default:
		return nil, fmt.Errorf("%s object is not an entry: %w", o.Kind, types.ErrInvalidData)
	}
	return e, nil
}

// AddMatchFilter adds a filter, replacing an earlier one of the same type.
func (e *Entry) AddMatchFilter(ft types.FilterType, v types.Value) {
	e.hasMatch = true
	for i := range e.Filters {
		if e.Filters[i].Type == ft {
			e.Filters[i].Value = v
			return
		}
	}
	e.Filters = append(e.Filters, types.Filter{Type: ft, Value: v})
}

// AddAction adds an action, replacing an earlier one of the same type.
func (e *Entry) AddAction(at types.ActionType, v types.Value) {
	if v == nil {
		v = types.NoValue{}
	}
	e.hasAction = true
	for i := range e.Actions {
		if e.Actions[i].Type == at {
			e.Actions[i].Value = v
			return
		}
	}
	e.Actions = append(e.Actions, types.Action{Type: at, Value: v})
}

// SetFilterVal sets the value of the filter an EntryFilterRef addresses.
func (e *Entry) SetFilterVal(v types.Value) { e.value = v }

// SetActionVal sets the value of the action an EntryActionRef addresses.
func (e *Entry) SetActionVal(v types.Value) {
	if v == nil {
		v = types.NoValue{}
	}
	e.value = v
}

// FilterType returns the filter an EntryFilterRef addresses, or zero.
func (e *Entry) FilterType() types.FilterType { return e.filterType }

// ActionType returns the action an EntryActionRef addresses, or zero.
func (e *Entry) ActionType() types.ActionType { return e.actionType }

// Value returns the value set on a single filter or action handle.
func (e *Entry) Value() types.Value { return e.value }

// Data serializes the handle.
func (e *Entry) Data() types.Object {
	kind := types.ObjEntry
	switch {
	case e.filterType != 0:
		kind = types.ObjEntryFilter
	case e.actionType != 0:
		kind = types.ObjEntryAction
	}
	o := types.NewObject(kind)
	o.Set(types.AttrSwitchID, e.SwitchID)
	if e.TableID != 0 {
		o.Set(types.AttrTableID, e.TableID)
	}
	if e.EntryID != 0 {
		o.Set(types.AttrEntryID, e.EntryID)
	}
	switch kind {
	case types.ObjEntryFilter:
		o.Set(types.AttrFilterType, e.filterType)
		if e.value != nil {
			o.Set(types.AttrFilterValue, e.value)
		}
	case types.ObjEntryAction:
		o.Set(types.AttrActionType, e.actionType)
		if e.value != nil {
			o.Set(types.AttrActionValue, e.value)
		}
	default:
		if e.hasPriority {
			o.Set(types.AttrPriority, e.Priority)
		}
		if e.hasMatch {
			filters := append([]types.Filter(nil), e.Filters...)
			types.SortFilters(filters)
			o.Set(types.AttrMatch, filters)
		}
		if e.hasAction {
			actions := append([]types.Action(nil), e.Actions...)
			types.SortActions(actions)
			o.Set(types.AttrAction, actions)
		}
	}
	return o
}

// ExtractID returns the entry identifier.
func (e *Entry) ExtractID() uint64 { return e.EntryID }

// PrintObj writes a human-readable rendering of the entry.
func (e *Entry) PrintObj(w io.Writer) {
	fmt.Fprintf(w, "ACL Entry %d in table %d (switch %d)\n", e.EntryID, e.TableID, e.SwitchID)
	switch {
	case e.filterType != 0:
		fmt.Fprintf(w, "  filter %s: %s\n", e.filterType, valueString(e.value))
		return
	case e.actionType != 0:
		fmt.Fprintf(w, "  action %s: %s\n", e.actionType, valueString(e.value))
		return
	}
	fmt.Fprintf(w, "  priority: %d\n", e.Priority)
	for _, f := range e.Filters {
		fmt.Fprintf(w, "  filter %s: %s\n", f.Type, valueString(f.Value))
	}
	for _, a := range e.Actions {
		fmt.Fprintf(w, "  action %s: %s\n", a.Type, valueString(a.Value))
	}
}

func valueString(v types.Value) string {
	if v == nil || v.Kind() == types.ValueNone {
		return "-"
	}
	return v.String()
}
