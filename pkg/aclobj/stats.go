package aclobj

import (
	"fmt"
	"io"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// Stats is a handle on the statistics of one counter.
type Stats struct {
	SwitchID  uint32 `json:"switch_id"`
	TableID   uint64 `json:"table_id"`
	CounterID uint64 `json:"counter_id"`
	Bytes     uint64 `json:"matched_bytes"`
	Packets   uint64 `json:"matched_packets"`

	hasCounts bool
}

// StatsRef returns a handle addressing counter statistics by key. Zero ids
// act as wildcards.
func StatsRef(switchID uint32, tableID, counterID uint64) *Stats {
	return &Stats{SwitchID: switchID, TableID: tableID, CounterID: counterID}
}

// StatsFromObject reads a statistics handle from a store object.
func StatsFromObject(o types.Object) (*Stats, error) {
	if o.Kind != types.ObjStats {
		return nil, fmt.Errorf("%s object is not stats: %w", o.Kind, types.ErrInvalidData)
	}
	s := &Stats{}
	s.SwitchID, _ = o.Uint32(types.AttrSwitchID)
	s.TableID, _ = o.Uint64(types.AttrTableID)
	s.CounterID, _ = o.Uint64(types.AttrCounterID)
	var hasBytes, hasPkts bool
	s.Bytes, hasBytes = o.Uint64(types.AttrMatchedBytes)
	s.Packets, hasPkts = o.Uint64(types.AttrMatchedPkts)
	s.hasCounts = hasBytes || hasPkts
	return s, nil
}

// SetCounts sets the byte and packet counts written by a set operation.
func (s *Stats) SetCounts(bytes, packets uint64) {
	s.Bytes, s.Packets, s.hasCounts = bytes, packets, true
}

// Data serializes the handle.
func (s *Stats) Data() types.Object {
	o := types.NewObject(types.ObjStats)
	o.Set(types.AttrSwitchID, s.SwitchID)
	if s.TableID != 0 {
		o.Set(types.AttrTableID, s.TableID)
	}
	if s.CounterID != 0 {
		o.Set(types.AttrCounterID, s.CounterID)
	}
	if s.hasCounts {
		o.Set(types.AttrMatchedBytes, s.Bytes)
		o.Set(types.AttrMatchedPkts, s.Packets)
	}
	return o
}

// ExtractID returns the counter identifier.
func (s *Stats) ExtractID() uint64 { return s.CounterID }

// PrintObj writes a human-readable rendering of the statistics.
func (s *Stats) PrintObj(w io.Writer) {
	fmt.Fprintf(w, "ACL Counter %d stats in table %d (switch %d)\n", s.CounterID, s.TableID, s.SwitchID)
	fmt.Fprintf(w, "  matched bytes:   %d\n", s.Bytes)
	fmt.Fprintf(w, "  matched packets: %d\n", s.Packets)
}
