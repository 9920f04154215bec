package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// keyColumns maps key attributes to their column names.
var keyColumns = []struct {
	attr types.Attr
	col  string
}{
	{types.AttrSwitchID, "switch_id"},
	{types.AttrTableID, "table_id"},
	{types.AttrEntryID, "entry_id"},
	{types.AttrCounterID, "counter_id"},
}

// where builds a WHERE clause from the key attributes present in q, limited
// to the given columns. Absent attributes match everything.
func where(q types.Object, cols ...string) (string, []any) {
	allowed := make(map[string]bool, len(cols))
	for _, c := range cols {
		allowed[c] = true
	}
	var conds []string
	var args []any
	for _, kc := range keyColumns {
		if !allowed[kc.col] {
			continue
		}
		v, ok := q.Uint64(kc.attr)
		if !ok {
			continue
		}
		conds = append(conds, kc.col+" = ?")
		args = append(args, v)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func queryTables(db queryer, q types.Object) ([]types.Object, error) {
	w, args := where(q, "switch_id", "table_id")
	rows, err := db.Query("SELECT switch_id, table_id, stage, priority, allowed_filters FROM acl_tables"+
		w+" ORDER BY switch_id, table_id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	defer rows.Close()

	var out []types.Object
	for rows.Next() {
		var k key
		var stageName, allowedRaw string
		var prio uint32
		if err := rows.Scan(&k.sw, &k.table, &stageName, &prio, &allowedRaw); err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		stage, err := types.ParseStage(stageName)
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", k.table, err)
		}
		var allowed []types.FilterType
		if err := json.Unmarshal([]byte(allowedRaw), &allowed); err != nil {
			return nil, fmt.Errorf("table %d allowed filters: %w", k.table, err)
		}
		o := k.object(types.ObjTable)
		o.Set(types.AttrStage, stage)
		o.Set(types.AttrPriority, prio)
		o.Set(types.AttrAllowedFields, allowed)
		out = append(out, o)
	}
	return out, rows.Err()
}

func queryEntries(db queryer, q types.Object) ([]types.Object, error) {
	w, args := where(q, "switch_id", "table_id", "entry_id")
	rows, err := db.Query("SELECT switch_id, table_id, entry_id, priority FROM acl_entries"+
		w+" ORDER BY switch_id, table_id, entry_id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}

	type entryRow struct {
		k    key
		prio uint32
	}
	var found []entryRow
	for rows.Next() {
		var r entryRow
		if err := rows.Scan(&r.k.sw, &r.k.table, &r.k.entry, &r.prio); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		found = append(found, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	out := make([]types.Object, 0, len(found))
	for _, r := range found {
		ko := r.k.object(types.ObjEntry)
		filters, err := queryEntryFilters(db, ko)
		if err != nil {
			return nil, err
		}
		actions, err := queryEntryActions(db, ko)
		if err != nil {
			return nil, err
		}

		match := make([]types.Filter, 0, len(filters))
		for _, f := range filters {
			ft, _ := types.Lookup[types.FilterType](f, types.AttrFilterType)
			v, _ := types.Lookup[types.Value](f, types.AttrFilterValue)
			match = append(match, types.Filter{Type: ft, Value: v})
		}
		types.SortFilters(match)
		acts := make([]types.Action, 0, len(actions))
		for _, a := range actions {
			at, _ := types.Lookup[types.ActionType](a, types.AttrActionType)
			v, _ := types.Lookup[types.Value](a, types.AttrActionValue)
			acts = append(acts, types.Action{Type: at, Value: v})
		}
		types.SortActions(acts)

		o := r.k.object(types.ObjEntry)
		o.Set(types.AttrPriority, r.prio)
		o.Set(types.AttrMatch, match)
		o.Set(types.AttrAction, acts)
		out = append(out, o)
	}
	return out, nil
}

func queryEntryFilters(db queryer, q types.Object) ([]types.Object, error) {
	w, args := where(q, "switch_id", "table_id", "entry_id")
	if ft, ok := types.Lookup[types.FilterType](q, types.AttrFilterType); ok {
		w, args = andType(w, args, "filter_type", ft.String())
	}
	return queryScoped(db, "acl_entry_filters", "filter_type", w, args, func(o *types.Object, name string, v types.Value) error {
		ft, err := types.ParseFilterType(name)
		if err != nil {
			return err
		}
		o.Kind = types.ObjEntryFilter
		o.Set(types.AttrFilterType, ft)
		o.Set(types.AttrFilterValue, v)
		return nil
	})
}

func queryEntryActions(db queryer, q types.Object) ([]types.Object, error) {
	w, args := where(q, "switch_id", "table_id", "entry_id")
	if at, ok := types.Lookup[types.ActionType](q, types.AttrActionType); ok {
		w, args = andType(w, args, "action_type", at.String())
	}
	return queryScoped(db, "acl_entry_actions", "action_type", w, args, func(o *types.Object, name string, v types.Value) error {
		at, err := types.ParseActionType(name)
		if err != nil {
			return err
		}
		o.Kind = types.ObjEntryAction
		o.Set(types.AttrActionType, at)
		if v.Kind() != types.ValueNone {
			o.Set(types.AttrActionValue, v)
		}
		return nil
	})
}

func andType(w string, args []any, col, name string) (string, []any) {
	if w == "" {
		return " WHERE " + col + " = ?", []any{name}
	}
	return w + " AND " + col + " = ?", append(args, name)
}

// queryScoped reads filter or action rows and lets fill turn each into an
// object.
func queryScoped(db queryer, table, typeCol, w string, args []any,
	fill func(o *types.Object, name string, v types.Value) error) ([]types.Object, error) {
	rows, err := db.Query("SELECT switch_id, table_id, entry_id, "+typeCol+", value FROM "+table+
		w+" ORDER BY switch_id, table_id, entry_id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var out []types.Object
	for rows.Next() {
		var k key
		var name, raw string
		if err := rows.Scan(&k.sw, &k.table, &k.entry, &name, &raw); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		v, err := types.DecodeValue([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("entry %d %s: %w", k.entry, name, err)
		}
		o := k.object(types.ObjEntry)
		if err := fill(&o, name, v); err != nil {
			return nil, fmt.Errorf("entry %d: %w", k.entry, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// queryCounters reads counters as counter objects or as stats objects.
func queryCounters(db queryer, q types.Object, kind types.ObjectKind) ([]types.Object, error) {
	w, args := where(q, "switch_id", "table_id", "counter_id")
	rows, err := db.Query("SELECT switch_id, table_id, counter_id, counter_types, matched_bytes, matched_packets FROM acl_counters"+
		w+" ORDER BY switch_id, table_id, counter_id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying counters: %w", err)
	}
	defer rows.Close()

	var out []types.Object
	for rows.Next() {
		var k key
		var typesRaw string
		var bytes, pkts int64
		if err := rows.Scan(&k.sw, &k.table, &k.counter, &typesRaw, &bytes, &pkts); err != nil {
			return nil, fmt.Errorf("scanning counter: %w", err)
		}
		o := k.object(kind)
		if kind == types.ObjStats {
			o.Set(types.AttrMatchedBytes, uint64(bytes))
			o.Set(types.AttrMatchedPkts, uint64(pkts))
		} else {
			var cts []types.CounterType
			if err := json.Unmarshal([]byte(typesRaw), &cts); err != nil {
				return nil, fmt.Errorf("counter %d types: %w", k.counter, err)
			}
			o.Set(types.AttrCounterTypes, cts)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func counterReader(kind types.ObjectKind) func(queryer, types.Object) ([]types.Object, error) {
	return func(db queryer, q types.Object) ([]types.Object, error) {
		return queryCounters(db, q, kind)
	}
}
