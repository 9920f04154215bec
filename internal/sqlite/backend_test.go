package sqlite

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

func attach(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend(nil)
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func commitOne(b *Backend, kind types.OpKind, o types.Object) (types.Object, error) {
	res, err := b.Commit([]types.Operation{{Kind: kind, Object: o}})
	if err != nil {
		return types.Object{}, err
	}
	return res[0], nil
}

func tableObject(allowed ...types.FilterType) types.Object {
	o := types.NewObject(types.ObjTable)
	o.Set(types.AttrSwitchID, uint32(0))
	o.Set(types.AttrStage, types.StageIngress)
	o.Set(types.AttrPriority, uint32(10))
	o.Set(types.AttrAllowedFields, allowed)
	return o
}

func createTable(t *testing.T, b *Backend, allowed ...types.FilterType) uint64 {
	t.Helper()
	res, err := commitOne(b, types.OpCreate, tableObject(allowed...))
	require.NoError(t, err)
	id, ok := res.Uint64(types.AttrTableID)
	require.True(t, ok)
	return id
}

func ref(kind types.ObjectKind, table, entry, counter uint64) types.Object {
	o := types.NewObject(kind)
	o.Set(types.AttrSwitchID, uint32(0))
	if table != 0 {
		o.Set(types.AttrTableID, table)
	}
	if entry != 0 {
		o.Set(types.AttrEntryID, entry)
	}
	if counter != 0 {
		o.Set(types.AttrCounterID, counter)
	}
	return o
}

func createEntry(t *testing.T, b *Backend, table uint64, match []types.Filter, actions []types.Action) uint64 {
	t.Helper()
	o := ref(types.ObjEntry, table, 0, 0)
	o.Set(types.AttrPriority, uint32(100))
	o.Set(types.AttrMatch, match)
	o.Set(types.AttrAction, actions)
	res, err := commitOne(b, types.OpCreate, o)
	require.NoError(t, err)
	id, ok := res.Uint64(types.AttrEntryID)
	require.True(t, ok)
	return id
}

func createCounter(t *testing.T, b *Backend, table uint64) uint64 {
	t.Helper()
	o := ref(types.ObjCounter, table, 0, 0)
	o.Set(types.AttrCounterTypes, []types.CounterType{types.CounterPackets, types.CounterBytes})
	res, err := commitOne(b, types.OpCreate, o)
	require.NoError(t, err)
	id, ok := res.Uint64(types.AttrCounterID)
	require.True(t, ok)
	return id
}

func srcIP(s string) types.Filter {
	return types.Filter{Type: types.FilterSrcIP, Value: types.IPMatch{
		Addr: netip.MustParseAddr(s),
		Mask: netip.MustParseAddr("255.255.255.255"),
	}}
}

func drop() types.Action {
	return types.Action{Type: types.ActionPacketAction, Value: types.PacketDrop}
}

func TestBackend_AttachDetach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend(nil)
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	require.NoError(t, b.Attach(cfg))
	assert.FileExists(t, filepath.Join(dir, dbFile))
	assert.ErrorIs(t, b.Attach(cfg), types.ErrAlreadyAttached)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach is idempotent")

	_, err := b.Commit([]types.Operation{{Kind: types.OpCreate, Object: tableObject()}})
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Get([]types.Object{types.NewObject(types.ObjTable)})
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Transactions()
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestBackend_AttachRejectsBadConfig(t *testing.T) {
	b := NewBackend(nil)
	assert.ErrorIs(t, b.Attach(types.Config{DataDir: t.TempDir()}), types.ErrBackendEmpty)
	assert.ErrorIs(t, b.Attach(types.Config{Backend: "etcd", DataDir: t.TempDir()}), types.ErrBackendUnknown)
}

func TestBackend_EmptyCommit(t *testing.T) {
	b := attach(t, t.TempDir())
	_, err := b.Commit(nil)
	assert.ErrorIs(t, err, types.ErrEmptyTransaction)
}

func TestBackend_CreateTable(t *testing.T) {
	b := attach(t, t.TempDir())

	res, err := commitOne(b, types.OpCreate, tableObject(types.FilterDstIP, types.FilterSrcIP, types.FilterSrcIP))
	require.NoError(t, err)

	id, _ := res.Uint64(types.AttrTableID)
	assert.Equal(t, uint64(1), id)
	stage, _ := types.Lookup[types.Stage](res, types.AttrStage)
	assert.Equal(t, types.StageIngress, stage)
	prio, _ := res.Uint32(types.AttrPriority)
	assert.Equal(t, uint32(10), prio)
	allowed, _ := types.Lookup[[]types.FilterType](res, types.AttrAllowedFields)
	assert.Equal(t, []types.FilterType{types.FilterSrcIP, types.FilterDstIP}, allowed)

	got, err := b.Get([]types.Object{ref(types.ObjTable, id, 0, 0)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, res.Attrs, got[0].Attrs)
}

func TestBackend_CreateTableInvalidStage(t *testing.T) {
	b := attach(t, t.TempDir())
	o := tableObject()
	o.Set(types.AttrStage, types.Stage(9))
	_, err := commitOne(b, types.OpCreate, o)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestBackend_IDAllocationWraps(t *testing.T) {
	b := attach(t, t.TempDir())
	b.limits.table = 3

	ids := []uint64{createTable(t, b), createTable(t, b), createTable(t, b)}
	assert.Equal(t, []uint64{1, 2, 3}, ids)

	_, err := commitOne(b, types.OpCreate, tableObject())
	assert.ErrorIs(t, err, types.ErrIDExhausted)

	_, err = commitOne(b, types.OpDelete, ref(types.ObjTable, 2, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), createTable(t, b), "wraps to the lowest free id")
}

func TestBackend_IDsAreMonotonic(t *testing.T) {
	b := attach(t, t.TempDir())
	first := createTable(t, b)
	_, err := commitOne(b, types.OpDelete, ref(types.ObjTable, first, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, first+1, createTable(t, b), "a freed id is not reused before wrap-around")
}

func TestBackend_EntryLifecycle(t *testing.T) {
	b := attach(t, t.TempDir())
	table := createTable(t, b, types.FilterSrcIP, types.FilterL4DstPort)

	entry := createEntry(t, b, table, []types.Filter{srcIP("10.0.0.1")}, []types.Action{drop()})
	assert.Equal(t, uint64(1), entry)

	got, err := b.Get([]types.Object{ref(types.ObjEntry, table, entry, 0)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	match, _ := types.Lookup[[]types.Filter](got[0], types.AttrMatch)
	require.Len(t, match, 1)
	assert.Equal(t, "10.0.0.1/255.255.255.255", match[0].Value.String())
	actions, _ := types.Lookup[[]types.Action](got[0], types.AttrAction)
	assert.Equal(t, []types.Action{drop()}, actions)

	set := ref(types.ObjEntry, table, entry, 0)
	set.Set(types.AttrPriority, uint32(7))
	set.Set(types.AttrMatch, []types.Filter{{Type: types.FilterL4DstPort, Value: types.U16Match{Data: 80, Mask: 0xffff}}})
	res, err := commitOne(b, types.OpSet, set)
	require.NoError(t, err)
	prio, _ := res.Uint32(types.AttrPriority)
	assert.Equal(t, uint32(7), prio)
	match, _ = types.Lookup[[]types.Filter](res, types.AttrMatch)
	require.Len(t, match, 1)
	assert.Equal(t, types.FilterL4DstPort, match[0].Type)
	actions, _ = types.Lookup[[]types.Action](res, types.AttrAction)
	assert.Len(t, actions, 1, "action list untouched when absent")

	_, err = commitOne(b, types.OpDelete, ref(types.ObjEntry, table, entry, 0))
	require.NoError(t, err)
	got, err = b.Get([]types.Object{ref(types.ObjEntry, table, 0, 0)})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = commitOne(b, types.OpDelete, ref(types.ObjEntry, table, entry, 0))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBackend_EntryRules(t *testing.T) {
	b := attach(t, t.TempDir())
	table := createTable(t, b, types.FilterSrcIP)

	tests := []struct {
		name    string
		table   uint64
		match   []types.Filter
		actions []types.Action
		wantErr error
	}{
		{
			name:    "missing table",
			table:   99,
			match:   []types.Filter{srcIP("10.0.0.1")},
			wantErr: types.ErrNotFound,
		},
		{
			name:    "filter not allowed",
			table:   table,
			match:   []types.Filter{{Type: types.FilterDSCP, Value: types.U8Match{Data: 1, Mask: 0xff}}},
			wantErr: types.ErrFilterNotAllowed,
		},
		{
			name:    "value kind mismatch",
			table:   table,
			match:   []types.Filter{{Type: types.FilterSrcIP, Value: types.U8Match{Data: 1, Mask: 0xff}}},
			wantErr: types.ErrValueKind,
		},
		{
			name:    "action value out of range",
			table:   table,
			actions: []types.Action{{Type: types.ActionSetDSCP, Value: types.U8Value(64)}},
			wantErr: types.ErrInvalidValue,
		},
		{
			name:    "set counter to missing counter",
			table:   table,
			actions: []types.Action{{Type: types.ActionSetCounter, Value: types.ObjectID(5)}},
			wantErr: types.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := ref(types.ObjEntry, tt.table, 0, 0)
			o.Set(types.AttrMatch, tt.match)
			o.Set(types.AttrAction, tt.actions)
			_, err := commitOne(b, types.OpCreate, o)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBackend_EntryFilterOps(t *testing.T) {
	b := attach(t, t.TempDir())
	table := createTable(t, b, types.FilterSrcIP, types.FilterDstIP)
	entry := createEntry(t, b, table, []types.Filter{srcIP("10.0.0.1")}, nil)

	scoped := func(ft types.FilterType, v types.Value) types.Object {
		o := ref(types.ObjEntryFilter, table, entry, 0)
		o.Set(types.AttrFilterType, ft)
		if v != nil {
			o.Set(types.AttrFilterValue, v)
		}
		return o
	}
	dst := types.IPMatch{Addr: netip.MustParseAddr("10.1.0.0"), Mask: netip.MustParseAddr("255.255.0.0")}

	_, err := commitOne(b, types.OpCreate, scoped(types.FilterSrcIP, srcIP("10.0.0.2").Value))
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	_, err = commitOne(b, types.OpSet, scoped(types.FilterDstIP, dst))
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = commitOne(b, types.OpCreate, scoped(types.FilterDstIP, dst))
	require.NoError(t, err)

	_, err = commitOne(b, types.OpSet, scoped(types.FilterSrcIP, srcIP("10.0.0.9").Value))
	require.NoError(t, err)

	got, err := b.Get([]types.Object{scoped(types.FilterSrcIP, nil)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	v, _ := types.Lookup[types.Value](got[0], types.AttrFilterValue)
	assert.Equal(t, "10.0.0.9/255.255.255.255", v.String())

	_, err = commitOne(b, types.OpDelete, scoped(types.FilterSrcIP, nil))
	require.NoError(t, err)
	_, err = commitOne(b, types.OpDelete, scoped(types.FilterSrcIP, nil))
	assert.ErrorIs(t, err, types.ErrNotFound)

	entries, err := b.Get([]types.Object{ref(types.ObjEntry, table, entry, 0)})
	require.NoError(t, err)
	match, _ := types.Lookup[[]types.Filter](entries[0], types.AttrMatch)
	require.Len(t, match, 1)
	assert.Equal(t, types.FilterDstIP, match[0].Type)
}

func TestBackend_EntryActionOps(t *testing.T) {
	b := attach(t, t.TempDir())
	table := createTable(t, b, types.FilterSrcIP)
	counter := createCounter(t, b, table)
	entry := createEntry(t, b, table, nil, []types.Action{drop()})

	scoped := func(at types.ActionType, v types.Value) types.Object {
		o := ref(types.ObjEntryAction, table, entry, 0)
		o.Set(types.AttrActionType, at)
		if v != nil {
			o.Set(types.AttrActionValue, v)
		}
		return o
	}

	_, err := commitOne(b, types.OpCreate, scoped(types.ActionFlood, nil))
	require.NoError(t, err)
	_, err = commitOne(b, types.OpCreate, scoped(types.ActionSetCounter, types.ObjectID(counter)))
	require.NoError(t, err)
	_, err = commitOne(b, types.OpCreate, scoped(types.ActionPacketAction, types.PacketForward))
	assert.ErrorIs(t, err, types.ErrAlreadyExists)
	_, err = commitOne(b, types.OpSet, scoped(types.ActionPacketAction, types.PacketForward))
	require.NoError(t, err)
	_, err = commitOne(b, types.OpDelete, scoped(types.ActionSetDSCP, nil))
	assert.ErrorIs(t, err, types.ErrNotFound)

	entries, err := b.Get([]types.Object{ref(types.ObjEntry, table, entry, 0)})
	require.NoError(t, err)
	actions, _ := types.Lookup[[]types.Action](entries[0], types.AttrAction)
	require.Len(t, actions, 3)
	assert.Equal(t, types.Action{Type: types.ActionPacketAction, Value: types.PacketForward}, actions[0])
	assert.Equal(t, types.ActionFlood, actions[1].Type)
	assert.Nil(t, actions[1].Value, "FLOOD carries no value")
	assert.Equal(t, types.Action{Type: types.ActionSetCounter, Value: types.ObjectID(counter)}, actions[2])
}

func TestBackend_CounterInUseAndTableNotEmpty(t *testing.T) {
	b := attach(t, t.TempDir())
	table := createTable(t, b, types.FilterSrcIP)
	counter := createCounter(t, b, table)
	entry := createEntry(t, b, table, nil, []types.Action{{Type: types.ActionSetCounter, Value: types.ObjectID(counter)}})

	_, err := commitOne(b, types.OpDelete, ref(types.ObjTable, table, 0, 0))
	assert.ErrorIs(t, err, types.ErrNotEmpty)

	_, err = commitOne(b, types.OpDelete, ref(types.ObjCounter, table, 0, counter))
	assert.ErrorIs(t, err, types.ErrInUse)

	_, err = commitOne(b, types.OpDelete, ref(types.ObjEntry, table, entry, 0))
	require.NoError(t, err)
	_, err = commitOne(b, types.OpDelete, ref(types.ObjCounter, table, 0, counter))
	require.NoError(t, err)
	_, err = commitOne(b, types.OpDelete, ref(types.ObjTable, table, 0, 0))
	require.NoError(t, err)

	_, err = commitOne(b, types.OpDelete, ref(types.ObjTable, table, 0, 0))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBackend_CounterAndStats(t *testing.T) {
	b := attach(t, t.TempDir())
	table := createTable(t, b)

	o := ref(types.ObjCounter, table, 0, 0)
	res, err := commitOne(b, types.OpCreate, o)
	require.NoError(t, err)
	cts, _ := types.Lookup[[]types.CounterType](res, types.AttrCounterTypes)
	assert.Equal(t, []types.CounterType{types.CounterBytes}, cts, "defaults to byte counting")
	counter, _ := res.Uint64(types.AttrCounterID)

	set := ref(types.ObjStats, table, 0, counter)
	set.Set(types.AttrMatchedBytes, uint64(1500))
	set.Set(types.AttrMatchedPkts, uint64(3))
	_, err = commitOne(b, types.OpSet, set)
	require.NoError(t, err)

	got, err := b.Get([]types.Object{ref(types.ObjStats, table, 0, counter)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	bytes, _ := got[0].Uint64(types.AttrMatchedBytes)
	pkts, _ := got[0].Uint64(types.AttrMatchedPkts)
	assert.Equal(t, uint64(1500), bytes)
	assert.Equal(t, uint64(3), pkts)

	_, err = commitOne(b, types.OpSet, ref(types.ObjStats, table, 0, 42))
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = commitOne(b, types.OpCreate, ref(types.ObjCounter, 77, 0, 0))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBackend_CommitIsAtomic(t *testing.T) {
	b := attach(t, t.TempDir())
	table := createTable(t, b, types.FilterSrcIP)

	good := ref(types.ObjEntry, table, 0, 0)
	good.Set(types.AttrMatch, []types.Filter{srcIP("10.0.0.1")})
	bad := ref(types.ObjEntry, table, 0, 0)
	bad.Set(types.AttrMatch, []types.Filter{{Type: types.FilterTTL, Value: types.U8Match{Data: 1, Mask: 0xff}}})

	_, err := b.Commit([]types.Operation{
		{Kind: types.OpCreate, Object: good},
		{Kind: types.OpCreate, Object: bad},
	})
	assert.ErrorIs(t, err, types.ErrFilterNotAllowed)

	got, err := b.Get([]types.Object{ref(types.ObjEntry, table, 0, 0)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBackend_UnsupportedOps(t *testing.T) {
	b := attach(t, t.TempDir())
	table := createTable(t, b)

	tests := []types.Operation{
		{Kind: types.OpSet, Object: ref(types.ObjTable, table, 0, 0)},
		{Kind: types.OpSet, Object: ref(types.ObjCounter, table, 0, 1)},
		{Kind: types.OpCreate, Object: ref(types.ObjStats, table, 0, 1)},
	}
	for _, op := range tests {
		_, err := b.Commit([]types.Operation{op})
		assert.ErrorIs(t, err, types.ErrUnsupportedOp, "%s %s", op.Kind, op.Object.Kind)
	}
}

func TestBackend_GetWildcards(t *testing.T) {
	b := attach(t, t.TempDir())
	t1 := createTable(t, b)
	t2 := createTable(t, b)
	createCounter(t, b, t1)
	createCounter(t, b, t2)
	createCounter(t, b, t2)

	all, err := b.Get([]types.Object{types.NewObject(types.ObjCounter)})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := b.Get([]types.Object{ref(types.ObjCounter, t2, 0, 0)})
	require.NoError(t, err)
	assert.Len(t, some, 2)

	tables, err := b.Get([]types.Object{ref(types.ObjTable, t1, 0, 0), ref(types.ObjTable, t2, 0, 0)})
	require.NoError(t, err)
	assert.Len(t, tables, 2)
}

func TestBackend_Transactions(t *testing.T) {
	b := attach(t, t.TempDir())
	table := createTable(t, b)
	createCounter(t, b, table)

	txns, err := b.Transactions()
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.NotEqual(t, txns[0].ID, txns[1].ID)
	require.Len(t, txns[0].Operations, 1)
	assert.Contains(t, txns[0].Operations[0], "create table")
	assert.False(t, txns[0].CommittedAt.IsZero())

	_, err = commitOne(b, types.OpDelete, ref(types.ObjTable, 99, 0, 0))
	require.Error(t, err)
	txns, err = b.Transactions()
	require.NoError(t, err)
	assert.Len(t, txns, 2, "failed commits are not journalled")
}

func TestBackend_PersistsAcrossAttach(t *testing.T) {
	dir := t.TempDir()

	b := NewBackend(nil)
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	table := createTable(t, b, types.FilterSrcIP)
	counter := createCounter(t, b, table)
	entry := createEntry(t, b, table, []types.Filter{srcIP("192.168.1.1")},
		[]types.Action{drop(), {Type: types.ActionSetCounter, Value: types.ObjectID(counter)}})
	require.NoError(t, b.Detach())

	b2 := attach(t, dir)
	got, err := b2.Get([]types.Object{ref(types.ObjEntry, table, entry, 0)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	match, _ := types.Lookup[[]types.Filter](got[0], types.AttrMatch)
	require.Len(t, match, 1)
	assert.Equal(t, "192.168.1.1/255.255.255.255", match[0].Value.String())
	actions, _ := types.Lookup[[]types.Action](got[0], types.AttrAction)
	assert.Len(t, actions, 2)

	assert.Equal(t, table+1, createTable(t, b2), "id generator state survives reattach")

	txns, err := b2.Transactions()
	require.NoError(t, err)
	assert.Len(t, txns, 4)

	_, err = os.Stat(filepath.Join(dir, "acl_entries.jsonl"))
	require.NoError(t, err)
}

func TestBackend_FailedWriteBackLeavesNothingApplied(t *testing.T) {
	tests := []struct {
		name    string
		blocked string
	}{
		{"first file", "acl_tables.jsonl"},
		{"middle file", "id_generators.jsonl"},
		{"last file", "transactions.jsonl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			b := attach(t, dir)

			blocked := filepath.Join(dir, tt.blocked)
			require.NoError(t, os.Remove(blocked))
			require.NoError(t, os.Mkdir(blocked, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(blocked, "keep"), nil, 0o644))

			_, err := commitOne(b, types.OpCreate, tableObject())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.blocked)

			got, err := b.Get([]types.Object{types.NewObject(types.ObjTable)})
			require.NoError(t, err)
			assert.Empty(t, got)
			txns, err := b.Transactions()
			require.NoError(t, err)
			assert.Empty(t, txns)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			for _, e := range entries {
				assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()), "temp file %s left behind", e.Name())
				if e.IsDir() {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, e.Name()))
				require.NoError(t, err)
				if filepath.Ext(e.Name()) == ".jsonl" {
					assert.Empty(t, data, "%s restored", e.Name())
				}
			}

			require.NoError(t, os.RemoveAll(blocked))
			require.NoError(t, os.WriteFile(blocked, nil, 0o644))
			assert.Equal(t, uint64(1), createTable(t, b), "failed commit did not consume an id")
		})
	}
}
