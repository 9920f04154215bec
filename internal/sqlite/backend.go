package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// Identifier ranges of the ACL objects on one switch.
const (
	MaxTableID   = 500
	MaxEntryID   = 4094
	MaxCounterID = 4094
)

const dbFile = "acl.db"

type idLimits struct {
	table, entry, counter uint64
}

// Backend implements types.Store using SQLite as the query engine and JSONL
// files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	limits   idLimits
	now      func() time.Time
	log      logging.LeveledLogger
}

// NewBackend creates a detached backend. Call Attach to open it. A nil
// factory disables logging.
func NewBackend(loggerFactory logging.LoggerFactory) *Backend {
	b := &Backend{
		limits: idLimits{table: MaxTableID, entry: MaxEntryID, counter: MaxCounterID},
		now:    time.Now,
	}
	if loggerFactory != nil {
		b.log = loggerFactory.NewLogger("store")
	}
	return b
}

// Attach opens the backend on config.DataDir. The SQLite file is rebuilt
// from the JSONL files every time.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// One connection keeps the pragma and the transaction on the same handle.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("enabling foreign keys: %w", err)
	}

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.attached = true
	if b.log != nil {
		b.log.Infof("attached %s store at %s", config.Backend, dataDir)
	}
	return nil
}

// Detach closes the database. It is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	if b.log != nil {
		b.log.Debugf("detached store at %s", b.config.DataDir)
	}
	return nil
}

// Commit applies ops inside one SQL transaction. The touched tables are
// written back to their JSONL files before the transaction commits, so an
// error leaves both SQLite and the files unchanged.
func (b *Backend) Commit(ops []types.Operation) ([]types.Object, error) {
	if len(ops) == 0 {
		return nil, types.ErrEmptyTransaction
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	tx, err := b.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	c := &txn{
		tx:     tx,
		limits: b.limits,
		now:    b.now().UTC().Format(time.RFC3339),
		dirty:  make(map[string]bool),
	}
	results := make([]types.Object, 0, len(ops))
	summary := make([]string, 0, len(ops))
	for i, op := range ops {
		res, err := c.apply(op)
		if err != nil {
			if b.log != nil {
				b.log.Debugf("rolled back: op %d %s %s: %v", i, op.Kind, op.Object.Kind, err)
			}
			return nil, fmt.Errorf("op %d %s %s: %w", i, op.Kind, op.Object.Kind, err)
		}
		results = append(results, res)
		summary = append(summary, fmt.Sprintf("%s %s", op.Kind, res))
	}

	txnID := generateUUID()
	if err := c.journal(txnID, summary); err != nil {
		return nil, err
	}

	staged, err := stageTables(tx, b.config.DataDir, c.dirty)
	if err != nil {
		if b.log != nil {
			b.log.Errorf("rolled back %s: %v", txnID, err)
		}
		return nil, err
	}
	if err := b.publish(tx, staged); err != nil {
		if b.log != nil {
			b.log.Errorf("rolled back %s: %v", txnID, err)
		}
		return nil, err
	}
	if b.log != nil {
		b.log.Debugf("committed %s with %d operation(s)", txnID, len(ops))
	}
	return results, nil
}

// publish renames the staged files into place and commits tx. On failure
// tx is rolled back and every file already replaced is rewritten from the
// rolled-back tables.
func (b *Backend) publish(tx *sql.Tx, staged []stagedFile) error {
	var replaced []tableMapping
	err := func() error {
		for i, f := range staged {
			if err := os.Rename(f.tmp, f.path); err != nil {
				discard(staged[i:])
				return fmt.Errorf("persisting %s: replacing: %w", f.m.file, err)
			}
			replaced = append(replaced, f.m)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	}()
	if err == nil {
		return nil
	}

	tx.Rollback()
	for _, m := range replaced {
		if rerr := persistTable(b.db, b.config.DataDir, m); rerr != nil && b.log != nil {
			b.log.Errorf("restoring %s: %v", m.file, rerr)
		}
	}
	return err
}

// Get returns every object matching at least one query object.
func (b *Backend) Get(query []types.Object) ([]types.Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	var out []types.Object
	for _, q := range query {
		objs, err := b.get(q)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", q.Kind, err)
		}
		out = append(out, objs...)
	}
	return out, nil
}

func (b *Backend) get(q types.Object) ([]types.Object, error) {
	switch q.Kind {
	case types.ObjTable:
		return queryTables(b.db, q)
	case types.ObjEntry:
		return queryEntries(b.db, q)
	case types.ObjEntryFilter:
		return queryEntryFilters(b.db, q)
	case types.ObjEntryAction:
		return queryEntryActions(b.db, q)
	case types.ObjCounter:
		return queryCounters(b.db, q, types.ObjCounter)
	case types.ObjStats:
		return queryCounters(b.db, q, types.ObjStats)
	}
	return nil, types.ErrUnsupportedOp
}

// Transaction is one journalled commit.
type Transaction struct {
	ID          string    `json:"txn_id"`
	CommittedAt time.Time `json:"committed_at"`
	Operations  []string  `json:"operations"`
}

// Transactions lists committed transactions, oldest first.
func (b *Backend) Transactions() ([]Transaction, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.Query("SELECT txn_id, committed_at, operations FROM transactions ORDER BY committed_at, txn_id")
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var at, ops string
		if err := rows.Scan(&t.ID, &at, &ops); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.CommittedAt, _ = time.Parse(time.RFC3339, at)
		if err := json.Unmarshal([]byte(ops), &t.Operations); err != nil {
			return nil, fmt.Errorf("transaction %s operations: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// generateUUID generates a UUID v7 for transaction ids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
