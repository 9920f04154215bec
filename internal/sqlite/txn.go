package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// txn applies operations within one SQL transaction and records which
// tables changed.
type txn struct {
	tx     *sql.Tx
	limits idLimits
	now    string
	dirty  map[string]bool
}

func (c *txn) touch(tables ...string) {
	for _, t := range tables {
		c.dirty[t] = true
	}
}

func (c *txn) apply(op types.Operation) (types.Object, error) {
	o := op.Object
	switch o.Kind {
	case types.ObjTable:
		switch op.Kind {
		case types.OpCreate:
			return c.createTable(o)
		case types.OpDelete:
			return c.deleteTable(o)
		}
	case types.ObjEntry:
		switch op.Kind {
		case types.OpCreate:
			return c.createEntry(o)
		case types.OpSet:
			return c.setEntry(o)
		case types.OpDelete:
			return c.deleteEntry(o)
		}
	case types.ObjEntryFilter:
		return c.entryFilter(op.Kind, o)
	case types.ObjEntryAction:
		return c.entryAction(op.Kind, o)
	case types.ObjCounter:
		switch op.Kind {
		case types.OpCreate:
			return c.createCounter(o)
		case types.OpDelete:
			return c.deleteCounter(o)
		}
	case types.ObjStats:
		if op.Kind == types.OpSet {
			return c.setStats(o)
		}
	}
	return types.Object{}, fmt.Errorf("%s on %s: %w", op.Kind, o.Kind, types.ErrUnsupportedOp)
}

// journal records the transaction in the transactions table.
func (c *txn) journal(id string, summary []string) error {
	ops, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding journal: %w", err)
	}
	if _, err := c.tx.Exec("INSERT INTO transactions (txn_id, committed_at, operations) VALUES (?, ?, ?)",
		id, c.now, string(ops)); err != nil {
		return fmt.Errorf("journalling transaction: %w", err)
	}
	c.touch("transactions")
	return nil
}

// key holds the identifying attributes of an object. Absent ids are zero.
type key struct {
	sw      uint32
	table   uint64
	entry   uint64
	counter uint64
}

func keyOf(o types.Object) key {
	var k key
	k.sw, _ = o.Uint32(types.AttrSwitchID)
	k.table, _ = o.Uint64(types.AttrTableID)
	k.entry, _ = o.Uint64(types.AttrEntryID)
	k.counter, _ = o.Uint64(types.AttrCounterID)
	return k
}

// need checks that every named id of k is set.
func (k key) need(entry, counter bool) error {
	if k.table == 0 {
		return fmt.Errorf("table-id missing: %w", types.ErrInvalidID)
	}
	if entry && k.entry == 0 {
		return fmt.Errorf("entry-id missing: %w", types.ErrInvalidID)
	}
	if counter && k.counter == 0 {
		return fmt.Errorf("counter-id missing: %w", types.ErrInvalidID)
	}
	return nil
}

func (k key) object(kind types.ObjectKind) types.Object {
	o := types.NewObject(kind)
	o.Set(types.AttrSwitchID, k.sw)
	if k.table != 0 {
		o.Set(types.AttrTableID, k.table)
	}
	if k.entry != 0 {
		o.Set(types.AttrEntryID, k.entry)
	}
	if k.counter != 0 {
		o.Set(types.AttrCounterID, k.counter)
	}
	return o
}

func (c *txn) exists(query string, args ...any) (bool, error) {
	var one int
	err := c.tx.QueryRow(query, args...).Scan(&one)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *txn) tableExists(k key) (bool, error) {
	return c.exists("SELECT 1 FROM acl_tables WHERE switch_id = ? AND table_id = ?", k.sw, k.table)
}

func (c *txn) entryExists(k key) (bool, error) {
	return c.exists("SELECT 1 FROM acl_entries WHERE switch_id = ? AND table_id = ? AND entry_id = ?",
		k.sw, k.table, k.entry)
}

func (c *txn) counterExists(k key) (bool, error) {
	return c.exists("SELECT 1 FROM acl_counters WHERE switch_id = ? AND table_id = ? AND counter_id = ?",
		k.sw, k.table, k.counter)
}

func notFound(what string, id uint64) error {
	return fmt.Errorf("%s %d: %w", what, id, types.ErrNotFound)
}

// Tables

func (c *txn) createTable(o types.Object) (types.Object, error) {
	k := keyOf(o)
	stage, _ := types.Lookup[types.Stage](o, types.AttrStage)
	if !stage.Valid() {
		return types.Object{}, fmt.Errorf("stage %d: %w", uint32(stage), types.ErrInvalidData)
	}
	prio, _ := o.Uint32(types.AttrPriority)
	requested, _ := types.Lookup[[]types.FilterType](o, types.AttrAllowedFields)

	allowed := make([]types.FilterType, 0, len(requested))
	seen := make(map[types.FilterType]bool)
	for _, ft := range requested {
		if !ft.Valid() {
			return types.Object{}, fmt.Errorf("allowed filter %d: %w", uint32(ft), types.ErrInvalidData)
		}
		if !seen[ft] {
			seen[ft] = true
			allowed = append(allowed, ft)
		}
	}
	sort.Slice(allowed, func(i, j int) bool { return allowed[i] < allowed[j] })
	allowedJSON, err := json.Marshal(allowed)
	if err != nil {
		return types.Object{}, err
	}

	id, err := c.allocID(tableScope(k.sw), c.limits.table, func(id uint64) (bool, error) {
		return c.tableExists(key{sw: k.sw, table: id})
	})
	if err != nil {
		return types.Object{}, err
	}
	k.table = id

	if _, err := c.tx.Exec(`INSERT INTO acl_tables (switch_id, table_id, stage, priority, allowed_filters, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, k.sw, k.table, stage.String(), prio, string(allowedJSON), c.now); err != nil {
		return types.Object{}, fmt.Errorf("inserting table: %w", err)
	}
	c.touch("acl_tables", "id_generators")
	return c.readOne(queryTables, k.object(types.ObjTable))
}

func (c *txn) deleteTable(o types.Object) (types.Object, error) {
	k := keyOf(o)
	if err := k.need(false, false); err != nil {
		return types.Object{}, err
	}
	ok, err := c.tableExists(k)
	if err != nil {
		return types.Object{}, err
	}
	if !ok {
		return types.Object{}, notFound("table", k.table)
	}

	var entries, counters int
	if err := c.tx.QueryRow("SELECT COUNT(*) FROM acl_entries WHERE switch_id = ? AND table_id = ?",
		k.sw, k.table).Scan(&entries); err != nil {
		return types.Object{}, err
	}
	if err := c.tx.QueryRow("SELECT COUNT(*) FROM acl_counters WHERE switch_id = ? AND table_id = ?",
		k.sw, k.table).Scan(&counters); err != nil {
		return types.Object{}, err
	}
	if entries > 0 || counters > 0 {
		return types.Object{}, fmt.Errorf("table %d has %d entries and %d counters: %w",
			k.table, entries, counters, types.ErrNotEmpty)
	}

	if _, err := c.tx.Exec("DELETE FROM acl_tables WHERE switch_id = ? AND table_id = ?", k.sw, k.table); err != nil {
		return types.Object{}, fmt.Errorf("deleting table: %w", err)
	}
	if _, err := c.tx.Exec("DELETE FROM id_generators WHERE scope IN (?, ?)",
		entryScope(k.sw, k.table), counterScope(k.sw, k.table)); err != nil {
		return types.Object{}, fmt.Errorf("deleting id generators: %w", err)
	}
	c.touch("acl_tables", "id_generators")
	return k.object(types.ObjTable), nil
}

// allowedFilters returns the filter types the table accepts, or
// ErrNotFound if the table does not exist.
func (c *txn) allowedFilters(k key) (map[types.FilterType]bool, error) {
	var raw string
	err := c.tx.QueryRow("SELECT allowed_filters FROM acl_tables WHERE switch_id = ? AND table_id = ?",
		k.sw, k.table).Scan(&raw)
	if isNoRows(err) {
		return nil, notFound("table", k.table)
	}
	if err != nil {
		return nil, err
	}
	var list []types.FilterType
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("table %d allowed filters: %w", k.table, err)
	}
	allowed := make(map[types.FilterType]bool, len(list))
	for _, ft := range list {
		allowed[ft] = true
	}
	return allowed, nil
}

// readOne runs a query function inside the transaction and returns its
// single result.
func (c *txn) readOne(q func(queryer, types.Object) ([]types.Object, error), o types.Object) (types.Object, error) {
	objs, err := q(c.tx, o)
	if err != nil {
		return types.Object{}, err
	}
	if len(objs) != 1 {
		return types.Object{}, fmt.Errorf("reading back %s: %w", o, types.ErrNotFound)
	}
	return objs[0], nil
}
