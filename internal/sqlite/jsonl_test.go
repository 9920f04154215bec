package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

func TestJSONLFilesCreatedEmptyOnAttach(t *testing.T) {
	dir := t.TempDir()
	attach(t, dir)

	for _, m := range jsonlTableMapping {
		info, err := os.Stat(filepath.Join(dir, m.file))
		require.NoError(t, err, m.file)
		assert.Zero(t, info.Size(), m.file)
	}
}

func TestReadJSONLSkipsBlankAndMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jsonl")
	content := `{"a":1}

not json
{"a":2}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"a":1}`, string(records[0]))
	assert.JSONEq(t, `{"a":2}`, string(records[1]))
}

func TestReadJSONLMissingFile(t *testing.T) {
	_, err := readJSONL(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestWriteJSONLReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	records := []json.RawMessage{json.RawMessage(`{"a":1}`), json.RawMessage(`{"b":2}`)}
	require.NoError(t, writeJSONL(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCommitPersistsOneLinePerRow(t *testing.T) {
	dir := t.TempDir()
	b := attach(t, dir)
	table := createTable(t, b, types.FilterSrcIP)
	createEntry(t, b, table, []types.Filter{srcIP("10.0.0.1")}, []types.Action{drop()})

	data, err := os.ReadFile(filepath.Join(dir, "acl_tables.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "INGRESS", rec["stage"])
	assert.Equal(t, []any{"SRC_IP"}, rec["allowed_filters"], "JSON columns are nested, not quoted")

	data, err = os.ReadFile(filepath.Join(dir, "acl_entry_filters.jsonl"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &rec))
	assert.Equal(t, "SRC_IP", rec["filter_type"])
	assert.Equal(t, map[string]any{"kind": "ipv4-match", "value": "10.0.0.1/255.255.255.255"}, rec["value"])
}

func TestCommitPersistsDeletes(t *testing.T) {
	dir := t.TempDir()
	b := attach(t, dir)
	table := createTable(t, b)
	_, err := commitOne(b, types.OpDelete, ref(types.ObjTable, table, 0, 0))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "acl_tables.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, data)
}
