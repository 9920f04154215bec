package acl

import (
	"fmt"

	"github.com/mesh-intelligence/nasacl/pkg/aclobj"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// CreateTable creates a table whose entries may match on allowFilters and
// returns the table id assigned by the store.
func (m *Manager) CreateTable(stage types.Stage, prio uint32, allowFilters []types.FilterType, switchID uint32) (uint64, error) {
	t := aclobj.NewTable(aclobj.TableParams{SwitchID: m.switchFor(switchID), Stage: stage, Priority: prio})
	for _, f := range allowFilters {
		t.AddAllowFilter(f)
	}
	return m.create(t.Data(), EntityTable, func(o types.Object) (uint64, error) {
		t, err := aclobj.TableFromObject(o)
		if err != nil {
			return 0, err
		}
		return t.ExtractID(), nil
	})
}

// CreateEntry creates an entry in table tableID with every filter of
// filters and every action of actions, and returns the entry id assigned by
// the store.
func (m *Manager) CreateEntry(tableID uint64, prio uint32, filters types.FilterMap, actions types.ActionMap, switchID uint32) (uint64, error) {
	e := aclobj.NewEntry(aclobj.EntryParams{SwitchID: m.switchFor(switchID), TableID: tableID, Priority: prio})
	for ft, fv := range filters {
		e.AddMatchFilter(ft, fv)
	}
	for at, av := range actions {
		e.AddAction(at, av)
	}
	return m.create(e.Data(), EntityEntry, func(o types.Object) (uint64, error) {
		e, err := aclobj.EntryFromObject(o)
		if err != nil {
			return 0, err
		}
		return e.ExtractID(), nil
	})
}

// CreateCounter creates a counter in table tableID counting counterTypes
// (bytes when empty) and returns the counter id assigned by the store.
func (m *Manager) CreateCounter(tableID uint64, counterTypes []types.CounterType, switchID uint32) (uint64, error) {
	c := aclobj.NewCounter(aclobj.CounterParams{SwitchID: m.switchFor(switchID), TableID: tableID, Types: counterTypes})
	return m.create(c.Data(), EntityCounter, func(o types.Object) (uint64, error) {
		c, err := aclobj.CounterFromObject(o)
		if err != nil {
			return 0, err
		}
		return c.ExtractID(), nil
	})
}

// create commits obj and reads the assigned id back from the first result.
func (m *Manager) create(obj types.Object, entity Entity, extract func(types.Object) (uint64, error)) (uint64, error) {
	res, err := m.commit(types.OpCreate, obj, OpCreate, entity)
	if err != nil {
		return 0, err
	}
	out, err := created(res, entity)
	if err != nil {
		return 0, err
	}
	id, err := extract(out)
	if err != nil {
		return 0, &MutationError{Op: OpCreate, Entity: entity, Err: err}
	}
	if id == 0 {
		return 0, &MutationError{
			Op:     OpCreate,
			Entity: entity,
			Err:    fmt.Errorf("no id in commit result: %w", types.ErrInvalidID),
		}
	}
	fmt.Fprintf(m.out, "Created %s %d\n", entity, id)
	return id, nil
}

// DeleteEntry deletes one entry. Filters and actions go with it.
func (m *Manager) DeleteEntry(tableID, entryID uint64) error {
	e := aclobj.EntryRef(m.switchID, tableID, entryID)
	_, err := m.commit(types.OpDelete, e.Data(), OpDelete, EntityEntry)
	return err
}

// DeleteCounter deletes one counter.
func (m *Manager) DeleteCounter(tableID, counterID uint64) error {
	c := aclobj.CounterRef(m.switchID, tableID, counterID)
	_, err := m.commit(types.OpDelete, c.Data(), OpDelete, EntityCounter)
	return err
}

// DeleteTable deletes one table. Its entries and counters are not touched;
// whether a non-empty table can be deleted is up to the store.
func (m *Manager) DeleteTable(tableID uint64) error {
	t := aclobj.TableRef(m.switchID, tableID)
	_, err := m.commit(types.OpDelete, t.Data(), OpDelete, EntityTable)
	return err
}
