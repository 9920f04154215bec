package sqlite

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

func (c *txn) createCounter(o types.Object) (types.Object, error) {
	k := keyOf(o)
	if err := k.need(false, false); err != nil {
		return types.Object{}, err
	}
	if ok, err := c.tableExists(k); err != nil {
		return types.Object{}, err
	} else if !ok {
		return types.Object{}, notFound("table", k.table)
	}

	requested, _ := types.Lookup[[]types.CounterType](o, types.AttrCounterTypes)
	if len(requested) == 0 {
		requested = []types.CounterType{types.CounterBytes}
	}
	var counterTypes []types.CounterType
	seen := make(map[types.CounterType]bool)
	for _, ct := range requested {
		if !ct.Valid() {
			return types.Object{}, fmt.Errorf("counter type %d: %w", uint32(ct), types.ErrInvalidData)
		}
		if !seen[ct] {
			seen[ct] = true
			counterTypes = append(counterTypes, ct)
		}
	}
	sort.Slice(counterTypes, func(i, j int) bool { return counterTypes[i] < counterTypes[j] })
	typesJSON, err := json.Marshal(counterTypes)
	if err != nil {
		return types.Object{}, err
	}

	id, err := c.allocID(counterScope(k.sw, k.table), c.limits.counter, func(id uint64) (bool, error) {
		return c.counterExists(key{sw: k.sw, table: k.table, counter: id})
	})
	if err != nil {
		return types.Object{}, err
	}
	k.counter = id

	if _, err := c.tx.Exec(`INSERT INTO acl_counters (switch_id, table_id, counter_id, counter_types, created_at)
		VALUES (?, ?, ?, ?, ?)`, k.sw, k.table, k.counter, string(typesJSON), c.now); err != nil {
		return types.Object{}, fmt.Errorf("inserting counter: %w", err)
	}
	c.touch("acl_counters", "id_generators")
	return c.readOne(counterReader(types.ObjCounter), k.object(types.ObjCounter))
}

func (c *txn) deleteCounter(o types.Object) (types.Object, error) {
	k := keyOf(o)
	if err := k.need(false, true); err != nil {
		return types.Object{}, err
	}
	if ok, err := c.counterExists(k); err != nil {
		return types.Object{}, err
	} else if !ok {
		return types.Object{}, notFound("counter", k.counter)
	}

	users, err := c.counterUsers(k)
	if err != nil {
		return types.Object{}, err
	}
	if len(users) > 0 {
		return types.Object{}, fmt.Errorf("counter %d used by entries %v: %w", k.counter, users, types.ErrInUse)
	}

	if _, err := c.tx.Exec("DELETE FROM acl_counters WHERE switch_id = ? AND table_id = ? AND counter_id = ?",
		k.sw, k.table, k.counter); err != nil {
		return types.Object{}, fmt.Errorf("deleting counter: %w", err)
	}
	c.touch("acl_counters")
	return k.object(types.ObjCounter), nil
}

// counterUsers returns the ids of entries whose SET_COUNTER action points
// at the counter.
func (c *txn) counterUsers(k key) ([]uint64, error) {
	rows, err := c.tx.Query(`SELECT entry_id, value FROM acl_entry_actions
		WHERE switch_id = ? AND table_id = ? AND action_type = ?`,
		k.sw, k.table, types.ActionSetCounter.String())
	if err != nil {
		return nil, fmt.Errorf("querying counter users: %w", err)
	}
	defer rows.Close()

	var users []uint64
	for rows.Next() {
		var entry uint64
		var raw string
		if err := rows.Scan(&entry, &raw); err != nil {
			return nil, err
		}
		v, err := types.DecodeValue([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("entry %d SET_COUNTER: %w", entry, err)
		}
		if id, ok := v.(types.ObjectID); ok && uint64(id) == k.counter {
			users = append(users, entry)
		}
	}
	return users, rows.Err()
}

// setStats overwrites the matched byte and packet counts that are present.
func (c *txn) setStats(o types.Object) (types.Object, error) {
	k := keyOf(o)
	if err := k.need(false, true); err != nil {
		return types.Object{}, err
	}
	if ok, err := c.counterExists(k); err != nil {
		return types.Object{}, err
	} else if !ok {
		return types.Object{}, notFound("counter", k.counter)
	}

	for attr, col := range map[types.Attr]string{
		types.AttrMatchedBytes: "matched_bytes",
		types.AttrMatchedPkts:  "matched_packets",
	} {
		n, ok := o.Uint64(attr)
		if !ok {
			continue
		}
		if _, err := c.tx.Exec("UPDATE acl_counters SET "+col+" = ? WHERE switch_id = ? AND table_id = ? AND counter_id = ?",
			int64(n), k.sw, k.table, k.counter); err != nil {
			return types.Object{}, fmt.Errorf("updating %s: %w", col, err)
		}
	}
	c.touch("acl_counters")
	return c.readOne(counterReader(types.ObjStats), k.object(types.ObjStats))
}
