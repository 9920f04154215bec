// Package manifest loads a YAML description of ACL tables, counters and
// entries and creates them through the ACL facade.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/nasacl/pkg/acl"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// Manifest is a set of tables to create on one switch.
type Manifest struct {
	// SwitchID defaults to the manager's switch when absent.
	SwitchID *uint32 `yaml:"switch_id"`
	Tables   []Table `yaml:"tables"`
}

// Table describes one ACL table with its counters and entries.
type Table struct {
	Name           string             `yaml:"name"`
	Stage          types.Stage        `yaml:"stage"`
	Priority       uint32             `yaml:"priority"`
	AllowedFilters []types.FilterType `yaml:"allowed_filters"`
	Counters       []Counter          `yaml:"counters"`
	Entries        []Entry            `yaml:"entries"`
}

// Counter is a counter addressed by a name local to its table.
type Counter struct {
	Name  string              `yaml:"name"`
	Types []types.CounterType `yaml:"types"`
}

// Entry lists filters and actions as TYPE: VALUE maps. A SET_COUNTER value
// may name a counter of the same table.
type Entry struct {
	Name     string            `yaml:"name"`
	Priority uint32            `yaml:"priority"`
	Filters  map[string]string `yaml:"filters"`
	Actions  map[string]string `yaml:"actions"`

	filters    types.FilterMap
	actions    types.ActionMap
	counterRef string
}

// ErrInvalid is returned for manifests that parse but do not make sense.
var ErrInvalid = errors.New("invalid manifest")

// Load parses a manifest. Port values must be numeric ifindexes.
func Load(r io.Reader) (*Manifest, error) {
	return LoadWith(r, types.ValueParser{})
}

// LoadWith parses a manifest using parser for filter and action values.
func LoadWith(r io.Reader, parser types.ValueParser) (*Manifest, error) {
	var doc Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document: %w", ErrInvalid)
		}
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if err := doc.resolve(parser); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (doc *Manifest) resolve(parser types.ValueParser) error {
	tableNames := make(map[string]bool)
	for ti := range doc.Tables {
		t := &doc.Tables[ti]
		label := t.label(ti)
		if t.Name != "" {
			if tableNames[t.Name] {
				return fmt.Errorf("%s: duplicate table name: %w", label, ErrInvalid)
			}
			tableNames[t.Name] = true
		}
		if !t.Stage.Valid() {
			return fmt.Errorf("%s: stage is required: %w", label, ErrInvalid)
		}

		counters := make(map[string]bool)
		for ci, c := range t.Counters {
			if c.Name == "" {
				return fmt.Errorf("%s counter %d: name is required: %w", label, ci, ErrInvalid)
			}
			if counters[c.Name] {
				return fmt.Errorf("%s counter %q: duplicate name: %w", label, c.Name, ErrInvalid)
			}
			counters[c.Name] = true
		}

		for ei := range t.Entries {
			e := &t.Entries[ei]
			if err := e.resolve(parser, counters); err != nil {
				return fmt.Errorf("%s entry %s: %w", label, e.label(ei), err)
			}
		}
	}
	return nil
}

func (e *Entry) resolve(parser types.ValueParser, counters map[string]bool) error {
	e.filters = make(types.FilterMap, len(e.Filters))
	for name, text := range e.Filters {
		ft, err := types.ParseFilterType(name)
		if err != nil {
			return err
		}
		v, err := parser.ParseFilter(ft, text)
		if err != nil {
			return err
		}
		e.filters[ft] = v
	}

	e.actions = make(types.ActionMap, len(e.Actions))
	for name, text := range e.Actions {
		at, err := types.ParseActionType(name)
		if err != nil {
			return err
		}
		if at == types.ActionSetCounter && counters[text] {
			e.counterRef = text
			continue
		}
		v, err := parser.ParseAction(at, text)
		if err != nil {
			return err
		}
		e.actions[at] = v
	}
	return nil
}

func (t *Table) label(i int) string {
	if t.Name != "" {
		return fmt.Sprintf("table %q", t.Name)
	}
	return fmt.Sprintf("table %d", i)
}

func (e *Entry) label(i int) string {
	if e.Name != "" {
		return fmt.Sprintf("%q", e.Name)
	}
	return fmt.Sprint(i)
}

// Result holds the ids assigned while applying a manifest.
type Result struct {
	SwitchID uint32        `json:"switch_id" yaml:"switch_id"`
	Tables   []TableResult `json:"tables" yaml:"tables"`
}

// TableResult holds the ids assigned to one table and its objects.
type TableResult struct {
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	TableID  uint64            `json:"table_id" yaml:"table_id"`
	Counters map[string]uint64 `json:"counters,omitempty" yaml:"counters,omitempty"`
	Entries  []uint64          `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Apply creates every table, then its counters, then its entries. On
// failure the returned Result lists what was created before the error.
func Apply(m *acl.Manager, doc *Manifest) (*Result, error) {
	sw := m.SwitchID()
	if doc.SwitchID != nil {
		sw = *doc.SwitchID
	}
	res := &Result{SwitchID: sw}

	for ti := range doc.Tables {
		t := &doc.Tables[ti]
		tid, err := m.CreateTable(t.Stage, t.Priority, t.AllowedFilters, sw)
		if err != nil {
			return res, fmt.Errorf("%s: %w", t.label(ti), err)
		}
		tr := TableResult{Name: t.Name, TableID: tid, Counters: make(map[string]uint64)}

		for _, c := range t.Counters {
			cid, err := m.CreateCounter(tid, c.Types, sw)
			if err != nil {
				res.Tables = append(res.Tables, tr)
				return res, fmt.Errorf("%s counter %q: %w", t.label(ti), c.Name, err)
			}
			tr.Counters[c.Name] = cid
		}

		for ei := range t.Entries {
			e := &t.Entries[ei]
			actions := make(types.ActionMap, len(e.actions)+1)
			for at, v := range e.actions {
				actions[at] = v
			}
			if e.counterRef != "" {
				actions[types.ActionSetCounter] = types.ObjectID(tr.Counters[e.counterRef])
			}
			eid, err := m.CreateEntry(tid, e.Priority, e.filters, actions, sw)
			if err != nil {
				res.Tables = append(res.Tables, tr)
				return res, fmt.Errorf("%s entry %s: %w", t.label(ti), e.label(ei), err)
			}
			tr.Entries = append(tr.Entries, eid)
		}
		res.Tables = append(res.Tables, tr)
	}
	return res, nil
}

// CounterNames returns the counter names of a table result in order.
func (r TableResult) CounterNames() []string {
	names := make([]string, 0, len(r.Counters))
	for n := range r.Counters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
