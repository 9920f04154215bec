package acl

import (
	"github.com/mesh-intelligence/nasacl/pkg/aclobj"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// AppendEntryFilter adds one filter to an existing entry without touching
// its other filters.
func (m *Manager) AppendEntryFilter(tableID, entryID uint64, ft types.FilterType, fv types.Value) error {
	e := aclobj.EntryFilterRef(m.switchID, tableID, entryID, ft)
	e.SetFilterVal(fv)
	_, err := m.commit(types.OpCreate, e.Data(), OpAppend, EntityFilter)
	return err
}

// ModEntryFilter overwrites the value of a filter already on the entry.
func (m *Manager) ModEntryFilter(tableID, entryID uint64, ft types.FilterType, fv types.Value) error {
	e := aclobj.EntryFilterRef(m.switchID, tableID, entryID, ft)
	e.SetFilterVal(fv)
	_, err := m.commit(types.OpSet, e.Data(), OpModify, EntityFilter)
	return err
}

// RemoveEntryFilter removes one filter from the entry.
func (m *Manager) RemoveEntryFilter(tableID, entryID uint64, ft types.FilterType) error {
	e := aclobj.EntryFilterRef(m.switchID, tableID, entryID, ft)
	_, err := m.commit(types.OpDelete, e.Data(), OpRemove, EntityFilter)
	return err
}

// AppendEntryAction adds one action to an existing entry without touching
// its other actions.
func (m *Manager) AppendEntryAction(tableID, entryID uint64, at types.ActionType, av types.Value) error {
	e := aclobj.EntryActionRef(m.switchID, tableID, entryID, at)
	e.SetActionVal(av)
	_, err := m.commit(types.OpCreate, e.Data(), OpAppend, EntityAction)
	return err
}

// ModEntryAction overwrites the value of an action already on the entry.
func (m *Manager) ModEntryAction(tableID, entryID uint64, at types.ActionType, av types.Value) error {
	e := aclobj.EntryActionRef(m.switchID, tableID, entryID, at)
	e.SetActionVal(av)
	_, err := m.commit(types.OpSet, e.Data(), OpModify, EntityAction)
	return err
}

// RemoveEntryAction removes one action from the entry.
func (m *Manager) RemoveEntryAction(tableID, entryID uint64, at types.ActionType) error {
	e := aclobj.EntryActionRef(m.switchID, tableID, entryID, at)
	_, err := m.commit(types.OpDelete, e.Data(), OpRemove, EntityAction)
	return err
}

// ReplaceEntryFilterList overwrites the entry's whole filter list with
// filters. Actions are not touched.
func (m *Manager) ReplaceEntryFilterList(tableID, entryID uint64, filters types.FilterMap) error {
	e := aclobj.EntryRef(m.switchID, tableID, entryID)
	for ft, fv := range filters {
		e.AddMatchFilter(ft, fv)
	}
	obj := e.Data()
	if !obj.Has(types.AttrMatch) {
		obj.Set(types.AttrMatch, []types.Filter{})
	}
	_, err := m.commit(types.OpSet, obj, OpReplace, EntityFilterList)
	return err
}

// ReplaceEntryActionList overwrites the entry's whole action list with
// actions. Filters are not touched.
func (m *Manager) ReplaceEntryActionList(tableID, entryID uint64, actions types.ActionMap) error {
	e := aclobj.EntryRef(m.switchID, tableID, entryID)
	for at, av := range actions {
		e.AddAction(at, av)
	}
	obj := e.Data()
	if !obj.Has(types.AttrAction) {
		obj.Set(types.AttrAction, []types.Action{})
	}
	_, err := m.commit(types.OpSet, obj, OpReplace, EntityActionList)
	return err
}
