package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nasacl/internal/sqlite"
	"github.com/mesh-intelligence/nasacl/pkg/acl"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// sessionStore is the store a session is attached to.
type sessionStore interface {
	types.Backend
	Transactions() ([]sqlite.Transaction, error)
}

// session is an attached store with a manager bound to it.
type session struct {
	store  sessionStore
	mgr    *acl.Manager
	parser types.ValueParser
	log    logging.LeveledLogger
}

// open attaches the store. The caller must defer s.close(). In JSON mode
// the manager's text output is discarded.
func (a *app) open(cmd *cobra.Command) (*session, error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, sysError(err)
	}
	store := sqlite.NewBackend(a.loggerFactory)
	if err := store.Attach(cfg); err != nil {
		a.log.Errorf("attach %s store at %s: %v", cfg.Backend, cfg.DataDir, err)
		return nil, classify(fmt.Errorf("attach store: %w", err))
	}

	var out io.Writer = cmd.OutOrStdout()
	if a.flags.jsonMode {
		out = io.Discard
	}
	mgr := acl.NewManager(store, acl.Config{
		Out:           out,
		SwitchID:      a.switchID,
		LoggerFactory: a.loggerFactory,
	})
	return &session{store: store, mgr: mgr, parser: a.ports.Parser(), log: a.log}, nil
}

func (s *session) close() {
	if err := s.store.Detach(); err != nil {
		s.log.Errorf("detach store: %v", err)
	}
}

// run opens a session, calls fn and classifies its error.
func (a *app) run(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	return classify(fn(s))
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// parseID parses a positional object id.
func parseID(what, arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, userError(fmt.Errorf("%s id %q: %w", what, arg, types.ErrInvalidID))
	}
	return id, nil
}

// optionalIDs parses up to len(names) positional ids; missing ones are zero.
func optionalIDs(args []string, names ...string) ([]uint64, error) {
	ids := make([]uint64, len(names))
	for i, arg := range args {
		id, err := parseID(names[i], arg)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// parseFilters parses repeated TYPE=VALUE pairs into a filter map.
func parseFilters(p types.ValueParser, pairs []string) (types.FilterMap, error) {
	m := make(types.FilterMap, len(pairs))
	for _, pair := range pairs {
		f, err := p.ParseFilterPair(pair)
		if err != nil {
			return nil, userError(err)
		}
		if _, dup := m[f.Type]; dup {
			return nil, userError(fmt.Errorf("filter %s given twice: %w", f.Type, types.ErrInvalidData))
		}
		m[f.Type] = f.Value
	}
	return m, nil
}

// parseActions parses repeated TYPE=VALUE pairs into an action map. Actions
// without a value may omit "=".
func parseActions(p types.ValueParser, pairs []string) (types.ActionMap, error) {
	m := make(types.ActionMap, len(pairs))
	for _, pair := range pairs {
		a, err := p.ParseActionPair(pair)
		if err != nil {
			return nil, userError(err)
		}
		if _, dup := m[a.Type]; dup {
			return nil, userError(fmt.Errorf("action %s given twice: %w", a.Type, types.ErrInvalidData))
		}
		m[a.Type] = a.Value
	}
	return m, nil
}

// splitList splits repeated, comma-separated flag values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type idResult struct {
	Entity string `json:"entity"`
	ID     uint64 `json:"id"`
}

// reportCreated prints the id of a created object in JSON mode; the
// manager has already printed it otherwise.
func (a *app) reportCreated(cmd *cobra.Command, entity acl.Entity, id uint64) error {
	if a.flags.jsonMode {
		return printJSON(cmd, idResult{Entity: string(entity), ID: id})
	}
	return nil
}

// reportDone prints a confirmation for mutations that return no id.
func (a *app) reportDone(cmd *cobra.Command, msg string) error {
	if a.flags.jsonMode {
		return printJSON(cmd, map[string]string{"result": msg})
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}
