package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FilterType identifies the packet field an entry filter matches on.
type FilterType uint32

// Filter types.
const (
	FilterSrcIP FilterType = iota + 1
	FilterDstIP
	FilterSrcIPv6
	FilterDstIPv6
	FilterSrcMAC
	FilterDstMAC
	FilterInPort
	FilterOutPort
	FilterInPorts
	FilterOutPorts
	FilterOuterVLANID
	FilterOuterVLANPri
	FilterOuterVLANCFI
	FilterInnerVLANID
	FilterInnerVLANPri
	FilterInnerVLANCFI
	FilterL4SrcPort
	FilterL4DstPort
	FilterEtherType
	FilterIPProtocol
	FilterDSCP
	FilterECN
	FilterTTL
	FilterIPFlags
	FilterTCPFlags
	FilterIPType
	FilterIPFrag
)

type filterInfo struct {
	name  string
	kind  ValueKind
	limit uint32 // largest allowed data value, 0 for the full width
}

var filterInfos = map[FilterType]filterInfo{
	FilterSrcIP:        {"SRC_IP", ValueIPv4Match, 0},
	FilterDstIP:        {"DST_IP", ValueIPv4Match, 0},
	FilterSrcIPv6:      {"SRC_IPV6", ValueIPv6Match, 0},
	FilterDstIPv6:      {"DST_IPV6", ValueIPv6Match, 0},
	FilterSrcMAC:       {"SRC_MAC", ValueMACMatch, 0},
	FilterDstMAC:       {"DST_MAC", ValueMACMatch, 0},
	FilterInPort:       {"IN_PORT", ValuePort, 0},
	FilterOutPort:      {"OUT_PORT", ValuePort, 0},
	FilterInPorts:      {"IN_PORTS", ValuePortList, 0},
	FilterOutPorts:     {"OUT_PORTS", ValuePortList, 0},
	FilterOuterVLANID:  {"OUTER_VLAN_ID", ValueU16Match, 4095},
	FilterOuterVLANPri: {"OUTER_VLAN_PRI", ValueU8Match, 7},
	FilterOuterVLANCFI: {"OUTER_VLAN_CFI", ValueU8Match, 1},
	FilterInnerVLANID:  {"INNER_VLAN_ID", ValueU16Match, 4095},
	FilterInnerVLANPri: {"INNER_VLAN_PRI", ValueU8Match, 7},
	FilterInnerVLANCFI: {"INNER_VLAN_CFI", ValueU8Match, 1},
	FilterL4SrcPort:    {"L4_SRC_PORT", ValueU16Match, 0},
	FilterL4DstPort:    {"L4_DST_PORT", ValueU16Match, 0},
	FilterEtherType:    {"ETHER_TYPE", ValueU16Match, 0},
	FilterIPProtocol:   {"IP_PROTOCOL", ValueU8Match, 0},
	FilterDSCP:         {"DSCP", ValueU8Match, 63},
	FilterECN:          {"ECN", ValueU8Match, 3},
	FilterTTL:          {"TTL", ValueU8Match, 0},
	FilterIPFlags:      {"IP_FLAGS", ValueU8Match, 7},
	FilterTCPFlags:     {"TCP_FLAGS", ValueU8Match, 0x3f},
	FilterIPType:       {"IP_TYPE", ValueIPType, 0},
	FilterIPFrag:       {"IP_FRAG", ValueIPFrag, 0},
}

var filterTypeNames = func() enumTable[FilterType] {
	names := make(map[FilterType]string, len(filterInfos))
	for t, info := range filterInfos {
		names[t] = info.name
	}
	return newEnumTable("filter type", names)
}()

func (t FilterType) String() string { return filterTypeNames.name(t) }

// Valid reports whether t is a known filter type.
func (t FilterType) Valid() bool { return filterTypeNames.valid(t) }

// ValueKind returns the kind of value a filter of this type carries.
func (t FilterType) ValueKind() ValueKind { return filterInfos[t].kind }

// MarshalText implements encoding.TextMarshaler.
func (t FilterType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FilterType) UnmarshalText(b []byte) error {
	v, err := ParseFilterType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseFilterType parses a filter type name such as "SRC_IP".
func ParseFilterType(s string) (FilterType, error) {
	return filterTypeNames.parse(s, "MATCH_TYPE_")
}

// FilterTypes returns every known filter type in numeric order.
func FilterTypes() []FilterType {
	out := make([]FilterType, 0, len(filterInfos))
	for t := range filterInfos {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Filter is one match condition of an entry.
type Filter struct {
	Type  FilterType
	Value Value
}

// Validate checks that the value kind fits the filter type and that the
// value is within the range of the matched field.
func (f Filter) Validate() error {
	info, ok := filterInfos[f.Type]
	if !ok {
		return fmt.Errorf("filter type %d: %w", uint32(f.Type), ErrUnknownName)
	}
	if f.Value == nil || f.Value.Kind() != info.kind {
		return fmt.Errorf("filter %s wants %s value: %w", f.Type, info.kind, ErrValueKind)
	}
	if err := f.Value.validate(); err != nil {
		return fmt.Errorf("filter %s: %w", f.Type, err)
	}
	if info.limit != 0 {
		if n, ok := scalarOf(f.Value); ok && n > info.limit {
			return fmt.Errorf("filter %s value %d above %d: %w", f.Type, n, info.limit, ErrInvalidValue)
		}
	}
	return nil
}

func (f Filter) String() string { return f.Type.String() + "=" + f.Value.String() }

type filterJSON struct {
	Type  FilterType      `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the filter with a kind-tagged value.
func (f Filter) MarshalJSON() ([]byte, error) {
	v, err := EncodeValue(f.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(filterJSON{Type: f.Type, Value: v})
}

// UnmarshalJSON decodes a filter written by MarshalJSON.
func (f *Filter) UnmarshalJSON(b []byte) error {
	var raw filterJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := DecodeValue(raw.Value)
	if err != nil {
		return fmt.Errorf("filter %s: %w", raw.Type, err)
	}
	f.Type, f.Value = raw.Type, v
	return nil
}

// FilterMap maps filter types to their values; one value per type.
type FilterMap map[FilterType]Value

// Filters returns the map's filters ordered by type.
func (m FilterMap) Filters() []Filter {
	out := make([]Filter, 0, len(m))
	for t, v := range m {
		out = append(out, Filter{Type: t, Value: v})
	}
	SortFilters(out)
	return out
}

// SortFilters orders filters by type.
func SortFilters(fs []Filter) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].Type < fs[j].Type })
}
