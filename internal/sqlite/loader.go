package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tableMapping ties a JSONL file to its SQLite table. Columns listed in
// jsonColumns hold JSON text in SQLite and nested JSON in the file.
type tableMapping struct {
	file        string
	table       string
	columns     []string
	order       string
	jsonColumns map[string]bool
}

// jsonlTableMapping lists every persisted table. Tables with foreign keys
// come after the tables they reference.
var jsonlTableMapping = []tableMapping{
	{
		file:        "acl_tables.jsonl",
		table:       "acl_tables",
		columns:     []string{"switch_id", "table_id", "stage", "priority", "allowed_filters", "created_at"},
		order:       "switch_id, table_id",
		jsonColumns: map[string]bool{"allowed_filters": true},
	},
	{
		file:    "acl_entries.jsonl",
		table:   "acl_entries",
		columns: []string{"switch_id", "table_id", "entry_id", "priority", "created_at", "updated_at"},
		order:   "switch_id, table_id, entry_id",
	},
	{
		file:        "acl_entry_filters.jsonl",
		table:       "acl_entry_filters",
		columns:     []string{"switch_id", "table_id", "entry_id", "filter_type", "value"},
		order:       "switch_id, table_id, entry_id, filter_type",
		jsonColumns: map[string]bool{"value": true},
	},
	{
		file:        "acl_entry_actions.jsonl",
		table:       "acl_entry_actions",
		columns:     []string{"switch_id", "table_id", "entry_id", "action_type", "value"},
		order:       "switch_id, table_id, entry_id, action_type",
		jsonColumns: map[string]bool{"value": true},
	},
	{
		file:        "acl_counters.jsonl",
		table:       "acl_counters",
		columns:     []string{"switch_id", "table_id", "counter_id", "counter_types", "matched_bytes", "matched_packets", "created_at"},
		order:       "switch_id, table_id, counter_id",
		jsonColumns: map[string]bool{"counter_types": true},
	},
	{
		file:    "id_generators.jsonl",
		table:   "id_generators",
		columns: []string{"scope", "last_id"},
		order:   "scope",
	},
	{
		file:        "transactions.jsonl",
		table:       "transactions",
		columns:     []string{"txn_id", "committed_at", "operations"},
		order:       "committed_at, txn_id",
		jsonColumns: map[string]bool{"operations": true},
	},
}

// loadAllJSONL reads every JSONL file in dataDir into its table inside one
// transaction. Unknown fields are ignored; records that fail to insert are
// skipped.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range jsonlTableMapping {
		records, err := readJSONL(filepath.Join(dataDir, m.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", m.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, m, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", m.file, m.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts parsed JSONL records into m's table.
func insertRecords(tx *sql.Tx, m tableMapping, records []json.RawMessage) error {
	placeholders := make([]string, len(m.columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		m.table,
		strings.Join(m.columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", m.table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(m.columns))
		for i, col := range m.columns {
			raw, ok := obj[col]
			if !ok || bytes.Equal(raw, []byte("null")) {
				continue
			}
			if m.jsonColumns[col] {
				args[i] = string(raw)
				continue
			}
			args[i] = scalar(raw)
		}

		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}

// scalar converts a JSON number or string to a value SQLite can bind.
func scalar(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// persistTable rewrites m's JSONL file from the current table contents.
func persistTable(q queryer, dataDir string, m tableMapping) error {
	records, err := encodeTable(q, m)
	if err != nil {
		return err
	}
	return writeJSONL(filepath.Join(dataDir, m.file), records)
}

// stagedFile is a JSONL file written to a temp name but not yet in place.
type stagedFile struct {
	m    tableMapping
	path string
	tmp  string
}

// stageTables writes the tables marked dirty to temp files as seen through
// q. On error no temp file is left behind.
func stageTables(q queryer, dataDir string, dirty map[string]bool) ([]stagedFile, error) {
	var staged []stagedFile
	for _, m := range jsonlTableMapping {
		if !dirty[m.table] {
			continue
		}
		records, err := encodeTable(q, m)
		if err == nil {
			path := filepath.Join(dataDir, m.file)
			var tmp string
			if tmp, err = stageJSONL(path, records); err == nil {
				staged = append(staged, stagedFile{m: m, path: path, tmp: tmp})
				continue
			}
		}
		discard(staged)
		return nil, fmt.Errorf("persisting %s: %w", m.file, err)
	}
	return staged, nil
}

func discard(staged []stagedFile) {
	for _, s := range staged {
		os.Remove(s.tmp)
	}
}

// encodeTable returns one JSON record per row of m's table.
func encodeTable(q queryer, m tableMapping) ([]json.RawMessage, error) {
	rows, err := q.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(m.columns, ", "), m.table, m.order))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", m.table, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		vals := make([]any, len(m.columns))
		ptrs := make([]any, len(m.columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", m.table, err)
		}

		obj := make(map[string]any, len(m.columns))
		for i, col := range m.columns {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if s, ok := v.(string); ok && m.jsonColumns[col] {
				v = json.RawMessage(s)
			}
			obj[col] = v
		}
		rec, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s record: %w", m.table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
