package acl

import (
	"fmt"

	"github.com/mesh-intelligence/nasacl/pkg/aclobj"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// Tables returns table tableID, or every table of the switch when tableID
// is zero.
func (m *Manager) Tables(tableID uint64) ([]*aclobj.Table, error) {
	objs, err := m.get(aclobj.TableRef(m.switchID, tableID).Data(), EntityTable, tableID)
	if err != nil {
		return nil, err
	}
	return convert(objs, EntityTable, tableID, aclobj.TableFromObject)
}

// Entries returns the matching entries. Zero ids act as wildcards.
func (m *Manager) Entries(tableID, entryID uint64) ([]*aclobj.Entry, error) {
	objs, err := m.get(aclobj.EntryRef(m.switchID, tableID, entryID).Data(), EntityEntry, entryID)
	if err != nil {
		return nil, err
	}
	return convert(objs, EntityEntry, entryID, aclobj.EntryFromObject)
}

// Counters returns the matching counters. Zero ids act as wildcards.
func (m *Manager) Counters(tableID, counterID uint64) ([]*aclobj.Counter, error) {
	objs, err := m.get(aclobj.CounterRef(m.switchID, tableID, counterID).Data(), EntityCounter, counterID)
	if err != nil {
		return nil, err
	}
	return convert(objs, EntityCounter, counterID, aclobj.CounterFromObject)
}

// Stats returns the statistics of the matching counters. Zero ids act as
// wildcards.
func (m *Manager) Stats(tableID, counterID uint64) ([]*aclobj.Stats, error) {
	objs, err := m.get(aclobj.StatsRef(m.switchID, tableID, counterID).Data(), EntityStats, counterID)
	if err != nil {
		return nil, err
	}
	return convert(objs, EntityStats, counterID, aclobj.StatsFromObject)
}

// ClearStats resets the byte and packet counts of one counter.
func (m *Manager) ClearStats(tableID, counterID uint64) error {
	s := aclobj.StatsRef(m.switchID, tableID, counterID)
	s.SetCounts(0, 0)
	_, err := m.commit(types.OpSet, s.Data(), OpClear, EntityStats)
	return err
}

// PrintTable writes table tableID, or every table when tableID is zero.
func (m *Manager) PrintTable(tableID uint64) {
	tables, err := m.Tables(tableID)
	if err != nil {
		m.queryFailed(err)
		return
	}
	for _, t := range tables {
		t.PrintObj(m.out)
	}
}

// PrintEntry writes the matching entries.
func (m *Manager) PrintEntry(tableID, entryID uint64) {
	entries, err := m.Entries(tableID, entryID)
	if err != nil {
		m.queryFailed(err)
		return
	}
	for _, e := range entries {
		e.PrintObj(m.out)
	}
}

// PrintCounter writes the matching counters.
func (m *Manager) PrintCounter(tableID, counterID uint64) {
	counters, err := m.Counters(tableID, counterID)
	if err != nil {
		m.queryFailed(err)
		return
	}
	for _, c := range counters {
		c.PrintObj(m.out)
	}
}

// PrintStats writes the statistics of the matching counters.
func (m *Manager) PrintStats(tableID, counterID uint64) {
	stats, err := m.Stats(tableID, counterID)
	if err != nil {
		m.queryFailed(err)
		return
	}
	for _, s := range stats {
		s.PrintObj(m.out)
	}
}

func (m *Manager) get(query types.Object, entity Entity, id uint64) ([]types.Object, error) {
	objs, err := m.store.Get([]types.Object{query})
	if err != nil {
		return nil, &QueryError{Entity: entity, ID: id, Err: err}
	}
	return objs, nil
}

// queryFailed writes the diagnostic for a failed print query.
func (m *Manager) queryFailed(err error) {
	if qe, ok := err.(*QueryError); ok {
		fmt.Fprintf(m.out, "CPS Get failed for ACL %s %s\n", qe.Entity, idString(qe.ID))
	} else {
		fmt.Fprintln(m.out, err)
	}
	if m.log != nil {
		m.log.Errorf("%v", err)
	}
}

func idString(id uint64) string {
	if id == 0 {
		return "*"
	}
	return fmt.Sprint(id)
}

func convert[T any](objs []types.Object, entity Entity, id uint64, from func(types.Object) (T, error)) ([]T, error) {
	out := make([]T, 0, len(objs))
	for _, o := range objs {
		v, err := from(o)
		if err != nil {
			return nil, &QueryError{Entity: entity, ID: id, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}
