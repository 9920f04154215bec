package acl

import (
	"fmt"
	"io"
	"os"

	"github.com/pion/logging"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// Config holds the optional settings of a Manager.
type Config struct {
	// Out receives the human-readable output of create and print calls.
	// Defaults to os.Stdout.
	Out io.Writer

	// SwitchID is the switch addressed by calls that do not take one.
	SwitchID uint32

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Manager translates named-parameter calls into store transactions.
// It keeps no state besides its configuration.
type Manager struct {
	store    types.Store
	out      io.Writer
	switchID uint32
	log      logging.LeveledLogger
}

// NewManager returns a Manager committing to store.
func NewManager(store types.Store, config Config) *Manager {
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	m := &Manager{
		store:    store,
		out:      out,
		switchID: config.SwitchID,
	}
	if config.LoggerFactory != nil {
		m.log = config.LoggerFactory.NewLogger("acl")
	}
	return m
}

// SwitchID returns the switch addressed by calls that do not take one.
func (m *Manager) SwitchID() uint32 { return m.switchID }

// switchFor returns id, or the default switch when id is 0.
func (m *Manager) switchFor(id uint32) uint32 {
	if id == 0 {
		return m.switchID
	}
	return id
}

// commit submits obj as a single-operation transaction.
func (m *Manager) commit(kind types.OpKind, obj types.Object, op Op, entity Entity) ([]types.Object, error) {
	if m.log != nil {
		m.log.Debugf("commit %s %s", kind, obj)
	}
	res, err := m.store.Commit([]types.Operation{{Kind: kind, Object: obj}})
	if err != nil {
		if m.log != nil {
			m.log.Warnf("%s %s failed: %v", entity, op, err)
		}
		return nil, &MutationError{Op: op, Entity: entity, Err: err}
	}
	return res, nil
}

// created returns the first object of a create result.
func created(res []types.Object, entity Entity) (types.Object, error) {
	if len(res) == 0 {
		return types.Object{}, &MutationError{
			Op:     OpCreate,
			Entity: entity,
			Err:    fmt.Errorf("empty commit result: %w", types.ErrInvalidData),
		}
	}
	return res[0], nil
}
