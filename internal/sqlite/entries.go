package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

func (c *txn) createEntry(o types.Object) (types.Object, error) {
	k := keyOf(o)
	if err := k.need(false, false); err != nil {
		return types.Object{}, err
	}
	allowed, err := c.allowedFilters(k)
	if err != nil {
		return types.Object{}, err
	}
	prio, _ := o.Uint32(types.AttrPriority)
	match, _ := types.Lookup[[]types.Filter](o, types.AttrMatch)
	actions, _ := types.Lookup[[]types.Action](o, types.AttrAction)
	if err := checkFilters(match, allowed); err != nil {
		return types.Object{}, err
	}
	if err := c.checkActions(k, actions); err != nil {
		return types.Object{}, err
	}

	id, err := c.allocID(entryScope(k.sw, k.table), c.limits.entry, func(id uint64) (bool, error) {
		return c.entryExists(key{sw: k.sw, table: k.table, entry: id})
	})
	if err != nil {
		return types.Object{}, err
	}
	k.entry = id

	if _, err := c.tx.Exec(`INSERT INTO acl_entries (switch_id, table_id, entry_id, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, k.sw, k.table, k.entry, prio, c.now, c.now); err != nil {
		return types.Object{}, fmt.Errorf("inserting entry: %w", err)
	}
	if err := c.insertFilters(k, match); err != nil {
		return types.Object{}, err
	}
	if err := c.insertActions(k, actions); err != nil {
		return types.Object{}, err
	}
	c.touch("acl_entries", "acl_entry_filters", "acl_entry_actions", "id_generators")
	return c.readOne(queryEntries, k.object(types.ObjEntry))
}

// setEntry updates the priority and replaces the match or action list of
// an entry; absent attributes are left alone.
func (c *txn) setEntry(o types.Object) (types.Object, error) {
	k := keyOf(o)
	if err := k.need(true, false); err != nil {
		return types.Object{}, err
	}
	allowed, err := c.allowedFilters(k)
	if err != nil {
		return types.Object{}, err
	}
	ok, err := c.entryExists(k)
	if err != nil {
		return types.Object{}, err
	}
	if !ok {
		return types.Object{}, notFound("entry", k.entry)
	}

	if prio, ok := o.Uint32(types.AttrPriority); ok {
		if _, err := c.tx.Exec("UPDATE acl_entries SET priority = ? WHERE switch_id = ? AND table_id = ? AND entry_id = ?",
			prio, k.sw, k.table, k.entry); err != nil {
			return types.Object{}, fmt.Errorf("updating priority: %w", err)
		}
	}
	if o.Has(types.AttrMatch) {
		match, _ := types.Lookup[[]types.Filter](o, types.AttrMatch)
		if err := checkFilters(match, allowed); err != nil {
			return types.Object{}, err
		}
		if _, err := c.tx.Exec("DELETE FROM acl_entry_filters WHERE switch_id = ? AND table_id = ? AND entry_id = ?",
			k.sw, k.table, k.entry); err != nil {
			return types.Object{}, fmt.Errorf("clearing filters: %w", err)
		}
		if err := c.insertFilters(k, match); err != nil {
			return types.Object{}, err
		}
		c.touch("acl_entry_filters")
	}
	if o.Has(types.AttrAction) {
		actions, _ := types.Lookup[[]types.Action](o, types.AttrAction)
		if err := c.checkActions(k, actions); err != nil {
			return types.Object{}, err
		}
		if _, err := c.tx.Exec("DELETE FROM acl_entry_actions WHERE switch_id = ? AND table_id = ? AND entry_id = ?",
			k.sw, k.table, k.entry); err != nil {
			return types.Object{}, fmt.Errorf("clearing actions: %w", err)
		}
		if err := c.insertActions(k, actions); err != nil {
			return types.Object{}, err
		}
		c.touch("acl_entry_actions")
	}
	if err := c.touchEntry(k); err != nil {
		return types.Object{}, err
	}
	return c.readOne(queryEntries, k.object(types.ObjEntry))
}

func (c *txn) deleteEntry(o types.Object) (types.Object, error) {
	k := keyOf(o)
	if err := k.need(true, false); err != nil {
		return types.Object{}, err
	}
	ok, err := c.entryExists(k)
	if err != nil {
		return types.Object{}, err
	}
	if !ok {
		return types.Object{}, notFound("entry", k.entry)
	}
	for _, table := range []string{"acl_entry_filters", "acl_entry_actions", "acl_entries"} {
		if _, err := c.tx.Exec("DELETE FROM "+table+" WHERE switch_id = ? AND table_id = ? AND entry_id = ?",
			k.sw, k.table, k.entry); err != nil {
			return types.Object{}, fmt.Errorf("deleting from %s: %w", table, err)
		}
		c.touch(table)
	}
	return k.object(types.ObjEntry), nil
}

// entryFilter appends (create), modifies (set) or removes (delete) one
// filter of an existing entry.
func (c *txn) entryFilter(op types.OpKind, o types.Object) (types.Object, error) {
	k := keyOf(o)
	if err := k.need(true, false); err != nil {
		return types.Object{}, err
	}
	ft, ok := types.Lookup[types.FilterType](o, types.AttrFilterType)
	if !ok || !ft.Valid() {
		return types.Object{}, fmt.Errorf("filter-type missing: %w", types.ErrInvalidData)
	}
	allowed, err := c.allowedFilters(k)
	if err != nil {
		return types.Object{}, err
	}
	if ok, err := c.entryExists(k); err != nil {
		return types.Object{}, err
	} else if !ok {
		return types.Object{}, notFound("entry", k.entry)
	}
	present, err := c.exists(`SELECT 1 FROM acl_entry_filters
		WHERE switch_id = ? AND table_id = ? AND entry_id = ? AND filter_type = ?`,
		k.sw, k.table, k.entry, ft.String())
	if err != nil {
		return types.Object{}, err
	}

	res := k.object(types.ObjEntryFilter)
	res.Set(types.AttrFilterType, ft)

	switch op {
	case types.OpCreate, types.OpSet:
		if op == types.OpCreate && present {
			return types.Object{}, fmt.Errorf("entry %d filter %s: %w", k.entry, ft, types.ErrAlreadyExists)
		}
		if op == types.OpSet && !present {
			return types.Object{}, fmt.Errorf("entry %d filter %s: %w", k.entry, ft, types.ErrNotFound)
		}
		val, _ := types.Lookup[types.Value](o, types.AttrFilterValue)
		f := types.Filter{Type: ft, Value: val}
		if err := checkFilters([]types.Filter{f}, allowed); err != nil {
			return types.Object{}, err
		}
		if op == types.OpSet {
			if _, err := c.tx.Exec(`DELETE FROM acl_entry_filters
				WHERE switch_id = ? AND table_id = ? AND entry_id = ? AND filter_type = ?`,
				k.sw, k.table, k.entry, ft.String()); err != nil {
				return types.Object{}, fmt.Errorf("replacing filter: %w", err)
			}
		}
		if err := c.insertFilters(k, []types.Filter{f}); err != nil {
			return types.Object{}, err
		}
		res.Set(types.AttrFilterValue, val)
	case types.OpDelete:
		if !present {
			return types.Object{}, fmt.Errorf("entry %d filter %s: %w", k.entry, ft, types.ErrNotFound)
		}
		if _, err := c.tx.Exec(`DELETE FROM acl_entry_filters
			WHERE switch_id = ? AND table_id = ? AND entry_id = ? AND filter_type = ?`,
			k.sw, k.table, k.entry, ft.String()); err != nil {
			return types.Object{}, fmt.Errorf("removing filter: %w", err)
		}
	default:
		return types.Object{}, fmt.Errorf("%s on %s: %w", op, o.Kind, types.ErrUnsupportedOp)
	}
	c.touch("acl_entry_filters")
	return res, c.touchEntry(k)
}

// entryAction appends (create), modifies (set) or removes (delete) one
// action of an existing entry.
func (c *txn) entryAction(op types.OpKind, o types.Object) (types.Object, error) {
	k := keyOf(o)
	if err := k.need(true, false); err != nil {
		return types.Object{}, err
	}
	at, ok := types.Lookup[types.ActionType](o, types.AttrActionType)
	if !ok || !at.Valid() {
		return types.Object{}, fmt.Errorf("action-type missing: %w", types.ErrInvalidData)
	}
	if ok, err := c.entryExists(k); err != nil {
		return types.Object{}, err
	} else if !ok {
		return types.Object{}, notFound("entry", k.entry)
	}
	present, err := c.exists(`SELECT 1 FROM acl_entry_actions
		WHERE switch_id = ? AND table_id = ? AND entry_id = ? AND action_type = ?`,
		k.sw, k.table, k.entry, at.String())
	if err != nil {
		return types.Object{}, err
	}

	res := k.object(types.ObjEntryAction)
	res.Set(types.AttrActionType, at)

	switch op {
	case types.OpCreate, types.OpSet:
		if op == types.OpCreate && present {
			return types.Object{}, fmt.Errorf("entry %d action %s: %w", k.entry, at, types.ErrAlreadyExists)
		}
		if op == types.OpSet && !present {
			return types.Object{}, fmt.Errorf("entry %d action %s: %w", k.entry, at, types.ErrNotFound)
		}
		val, _ := types.Lookup[types.Value](o, types.AttrActionValue)
		a := types.Action{Type: at, Value: val}
		if err := c.checkActions(k, []types.Action{a}); err != nil {
			return types.Object{}, err
		}
		if op == types.OpSet {
			if _, err := c.tx.Exec(`DELETE FROM acl_entry_actions
				WHERE switch_id = ? AND table_id = ? AND entry_id = ? AND action_type = ?`,
				k.sw, k.table, k.entry, at.String()); err != nil {
				return types.Object{}, fmt.Errorf("replacing action: %w", err)
			}
		}
		if err := c.insertActions(k, []types.Action{a}); err != nil {
			return types.Object{}, err
		}
		if val != nil {
			res.Set(types.AttrActionValue, val)
		}
	case types.OpDelete:
		if !present {
			return types.Object{}, fmt.Errorf("entry %d action %s: %w", k.entry, at, types.ErrNotFound)
		}
		if _, err := c.tx.Exec(`DELETE FROM acl_entry_actions
			WHERE switch_id = ? AND table_id = ? AND entry_id = ? AND action_type = ?`,
			k.sw, k.table, k.entry, at.String()); err != nil {
			return types.Object{}, fmt.Errorf("removing action: %w", err)
		}
	default:
		return types.Object{}, fmt.Errorf("%s on %s: %w", op, o.Kind, types.ErrUnsupportedOp)
	}
	c.touch("acl_entry_actions")
	return res, c.touchEntry(k)
}

func (c *txn) touchEntry(k key) error {
	if _, err := c.tx.Exec("UPDATE acl_entries SET updated_at = ? WHERE switch_id = ? AND table_id = ? AND entry_id = ?",
		c.now, k.sw, k.table, k.entry); err != nil {
		return fmt.Errorf("updating entry: %w", err)
	}
	c.touch("acl_entries")
	return nil
}

// checkFilters validates each filter, rejects duplicate types and types the
// table does not allow.
func checkFilters(fs []types.Filter, allowed map[types.FilterType]bool) error {
	seen := make(map[types.FilterType]bool, len(fs))
	for _, f := range fs {
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.Type] {
			return fmt.Errorf("filter %s given twice: %w", f.Type, types.ErrInvalidData)
		}
		seen[f.Type] = true
		if !allowed[f.Type] {
			return fmt.Errorf("filter %s: %w", f.Type, types.ErrFilterNotAllowed)
		}
	}
	return nil
}

// checkActions validates each action and resolves SET_COUNTER references
// against the entry's table.
func (c *txn) checkActions(k key, as []types.Action) error {
	seen := make(map[types.ActionType]bool, len(as))
	for _, a := range as {
		if err := a.Validate(); err != nil {
			return err
		}
		if seen[a.Type] {
			return fmt.Errorf("action %s given twice: %w", a.Type, types.ErrInvalidData)
		}
		seen[a.Type] = true
		if a.Type != types.ActionSetCounter {
			continue
		}
		id, _ := a.Value.(types.ObjectID)
		ok, err := c.counterExists(key{sw: k.sw, table: k.table, counter: uint64(id)})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("SET_COUNTER: %w", notFound("counter", uint64(id)))
		}
	}
	return nil
}

func (c *txn) insertFilters(k key, fs []types.Filter) error {
	for _, f := range fs {
		val, err := types.EncodeValue(f.Value)
		if err != nil {
			return err
		}
		if _, err := c.tx.Exec(`INSERT INTO acl_entry_filters (switch_id, table_id, entry_id, filter_type, value)
			VALUES (?, ?, ?, ?, ?)`, k.sw, k.table, k.entry, f.Type.String(), string(val)); err != nil {
			return fmt.Errorf("inserting filter %s: %w", f.Type, err)
		}
	}
	return nil
}

func (c *txn) insertActions(k key, as []types.Action) error {
	for _, a := range as {
		v := a.Value
		if v == nil {
			v = types.NoValue{}
		}
		val, err := types.EncodeValue(v)
		if err != nil {
			return err
		}
		if _, err := c.tx.Exec(`INSERT INTO acl_entry_actions (switch_id, table_id, entry_id, action_type, value)
			VALUES (?, ?, ?, ?, ?)`, k.sw, k.table, k.entry, a.Type.String(), string(val)); err != nil {
			return fmt.Errorf("inserting action %s: %w", a.Type, err)
		}
	}
	return nil
}
