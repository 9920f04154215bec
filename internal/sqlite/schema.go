// Package sqlite implements the ACL object store on SQLite. SQLite is the
// query engine; JSONL files in the data directory are the source of truth,
// loaded on Attach and rewritten after every commit.
package sqlite

// Schema DDL for all tables.
const (
	createTables = `CREATE TABLE acl_tables (
    switch_id INTEGER NOT NULL,
    table_id INTEGER NOT NULL,
    stage TEXT NOT NULL,
    priority INTEGER NOT NULL,
    allowed_filters TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (switch_id, table_id)
);`

	createEntries = `CREATE TABLE acl_entries (
    switch_id INTEGER NOT NULL,
    table_id INTEGER NOT NULL,
    entry_id INTEGER NOT NULL,
    priority INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (switch_id, table_id, entry_id),
    FOREIGN KEY (switch_id, table_id) REFERENCES acl_tables(switch_id, table_id)
);`

	createEntryFilters = `CREATE TABLE acl_entry_filters (
    switch_id INTEGER NOT NULL,
    table_id INTEGER NOT NULL,
    entry_id INTEGER NOT NULL,
    filter_type TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (switch_id, table_id, entry_id, filter_type),
    FOREIGN KEY (switch_id, table_id, entry_id)
        REFERENCES acl_entries(switch_id, table_id, entry_id) ON DELETE CASCADE
);`

	createEntryActions = `CREATE TABLE acl_entry_actions (
    switch_id INTEGER NOT NULL,
    table_id INTEGER NOT NULL,
    entry_id INTEGER NOT NULL,
    action_type TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (switch_id, table_id, entry_id, action_type),
    FOREIGN KEY (switch_id, table_id, entry_id)
        REFERENCES acl_entries(switch_id, table_id, entry_id) ON DELETE CASCADE
);`

	createCounters = `CREATE TABLE acl_counters (
    switch_id INTEGER NOT NULL,
    table_id INTEGER NOT NULL,
    counter_id INTEGER NOT NULL,
    counter_types TEXT NOT NULL,
    matched_bytes INTEGER NOT NULL DEFAULT 0,
    matched_packets INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    PRIMARY KEY (switch_id, table_id, counter_id),
    FOREIGN KEY (switch_id, table_id) REFERENCES acl_tables(switch_id, table_id)
);`

	createIDGenerators = `CREATE TABLE id_generators (
    scope TEXT PRIMARY KEY,
    last_id INTEGER NOT NULL
);`

	createTransactions = `CREATE TABLE transactions (
    txn_id TEXT PRIMARY KEY,
    committed_at TEXT NOT NULL,
    operations TEXT NOT NULL
);`
)

// Index DDL for common queries.
const (
	idxEntriesTable          = `CREATE INDEX idx_entries_table ON acl_entries(switch_id, table_id);`
	idxEntryFiltersEntry     = `CREATE INDEX idx_entry_filters_entry ON acl_entry_filters(switch_id, table_id, entry_id);`
	idxEntryActionsEntry     = `CREATE INDEX idx_entry_actions_entry ON acl_entry_actions(switch_id, table_id, entry_id);`
	idxEntryActionsType      = `CREATE INDEX idx_entry_actions_type ON acl_entry_actions(action_type);`
	idxCountersTable         = `CREATE INDEX idx_counters_table ON acl_counters(switch_id, table_id);`
	idxTransactionsCommitted = `CREATE INDEX idx_transactions_committed ON transactions(committed_at);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createTables,
	createEntries,
	createEntryFilters,
	createEntryActions,
	createCounters,
	createIDGenerators,
	createTransactions,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxEntriesTable,
	idxEntryFiltersEntry,
	idxEntryActionsEntry,
	idxEntryActionsType,
	idxCountersTable,
	idxTransactionsCommitted,
}
