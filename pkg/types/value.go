package types

import (
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// ValueKind names the shape of a filter or action value.
type ValueKind string

// Value kinds. Match kinds carry data and mask; the others carry one datum.
const (
	ValueU8Match      ValueKind = "u8-match"
	ValueU16Match     ValueKind = "u16-match"
	ValueIPv4Match    ValueKind = "ipv4-match"
	ValueIPv6Match    ValueKind = "ipv6-match"
	ValueMACMatch     ValueKind = "mac-match"
	ValuePort         ValueKind = "port"
	ValuePortList     ValueKind = "port-list"
	ValueIPType       ValueKind = "ip-type"
	ValueIPFrag       ValueKind = "ip-frag"
	ValuePacketAction ValueKind = "packet-action"
	ValueU8           ValueKind = "u8"
	ValueU16          ValueKind = "u16"
	ValueObjectID     ValueKind = "object-id"
	ValueMAC          ValueKind = "mac"
	ValueIPv4         ValueKind = "ipv4"
	ValueIPv6         ValueKind = "ipv6"
	ValueNone         ValueKind = "none"
)

// Value is a typed filter or action value. The set of implementations is
// closed; each filter and action type accepts exactly one kind.
type Value interface {
	Kind() ValueKind
	String() string
	validate() error
}

// U8Match matches an 8-bit field under a mask.
type U8Match struct {
	Data uint8
	Mask uint8
}

func (U8Match) Kind() ValueKind { return ValueU8Match }

func (v U8Match) String() string {
	if v.Mask == 0xff {
		return strconv.FormatUint(uint64(v.Data), 10)
	}
	return fmt.Sprintf("%d/0x%x", v.Data, v.Mask)
}

func (U8Match) validate() error { return nil }

// U16Match matches a 16-bit field under a mask.
type U16Match struct {
	Data uint16
	Mask uint16
}

func (U16Match) Kind() ValueKind { return ValueU16Match }

func (v U16Match) String() string {
	if v.Mask == 0xffff {
		return strconv.FormatUint(uint64(v.Data), 10)
	}
	return fmt.Sprintf("%d/0x%x", v.Data, v.Mask)
}

func (U16Match) validate() error { return nil }

// IPMatch matches an IPv4 or IPv6 address under an address-shaped mask.
type IPMatch struct {
	Addr netip.Addr
	Mask netip.Addr
}

func (v IPMatch) Kind() ValueKind {
	if v.Addr.Is4() {
		return ValueIPv4Match
	}
	return ValueIPv6Match
}

func (v IPMatch) String() string { return v.Addr.String() + "/" + v.Mask.String() }

func (v IPMatch) validate() error {
	if !v.Addr.IsValid() || !v.Mask.IsValid() || v.Addr.Is4() != v.Mask.Is4() ||
		v.Addr.Zone() != "" || v.Mask.Zone() != "" {
		return fmt.Errorf("ip match %s: %w", v, ErrInvalidValue)
	}
	return nil
}

// MACMatch matches a MAC address under a mask.
type MACMatch struct {
	Addr net.HardwareAddr
	Mask net.HardwareAddr
}

func (MACMatch) Kind() ValueKind { return ValueMACMatch }

func (v MACMatch) String() string { return v.Addr.String() + "/" + v.Mask.String() }

func (v MACMatch) validate() error {
	if len(v.Addr) != 6 || len(v.Mask) != 6 {
		return fmt.Errorf("mac match %s: %w", v, ErrInvalidValue)
	}
	return nil
}

// Port is a single interface given by ifindex.
type Port struct {
	IfIndex uint32
}

func (Port) Kind() ValueKind { return ValuePort }

func (v Port) String() string { return strconv.FormatUint(uint64(v.IfIndex), 10) }

func (v Port) validate() error {
	if v.IfIndex == 0 {
		return fmt.Errorf("port ifindex 0: %w", ErrInvalidValue)
	}
	return nil
}

// PortList is a set of interfaces given by ifindex.
type PortList struct {
	IfIndexes []uint32
}

func (PortList) Kind() ValueKind { return ValuePortList }

func (v PortList) String() string {
	parts := make([]string, len(v.IfIndexes))
	for i, idx := range v.IfIndexes {
		parts[i] = strconv.FormatUint(uint64(idx), 10)
	}
	return strings.Join(parts, ",")
}

func (v PortList) validate() error {
	if len(v.IfIndexes) == 0 {
		return fmt.Errorf("empty port list: %w", ErrInvalidValue)
	}
	for _, idx := range v.IfIndexes {
		if idx == 0 {
			return fmt.Errorf("port list ifindex 0: %w", ErrInvalidValue)
		}
	}
	return nil
}

func (IPType) Kind() ValueKind { return ValueIPType }

func (t IPType) validate() error {
	if !ipTypeNames.valid(t) {
		return fmt.Errorf("ip type %d: %w", uint32(t), ErrInvalidValue)
	}
	return nil
}

func (IPFrag) Kind() ValueKind { return ValueIPFrag }

func (f IPFrag) validate() error {
	if !ipFragNames.valid(f) {
		return fmt.Errorf("ip frag %d: %w", uint32(f), ErrInvalidValue)
	}
	return nil
}

func (PacketAction) Kind() ValueKind { return ValuePacketAction }

func (p PacketAction) validate() error {
	if !packetActionNames.valid(p) {
		return fmt.Errorf("packet action %d: %w", uint32(p), ErrInvalidValue)
	}
	return nil
}

// U8Value is an 8-bit action argument.
type U8Value uint8

func (U8Value) Kind() ValueKind  { return ValueU8 }
func (v U8Value) String() string { return strconv.FormatUint(uint64(v), 10) }
func (U8Value) validate() error  { return nil }

// U16Value is a 16-bit action argument.
type U16Value uint16

func (U16Value) Kind() ValueKind  { return ValueU16 }
func (v U16Value) String() string { return strconv.FormatUint(uint64(v), 10) }
func (U16Value) validate() error  { return nil }

// ObjectID references another store object such as a counter or policer.
type ObjectID uint64

func (ObjectID) Kind() ValueKind  { return ValueObjectID }
func (v ObjectID) String() string { return strconv.FormatUint(uint64(v), 10) }

func (v ObjectID) validate() error {
	if v == 0 {
		return fmt.Errorf("object id 0: %w", ErrInvalidValue)
	}
	return nil
}

// MACValue is a MAC address action argument.
type MACValue net.HardwareAddr

func (MACValue) Kind() ValueKind  { return ValueMAC }
func (v MACValue) String() string { return net.HardwareAddr(v).String() }

func (v MACValue) validate() error {
	if len(v) != 6 {
		return fmt.Errorf("mac %s: %w", v, ErrInvalidValue)
	}
	return nil
}

// IPValue is an IP address action argument.
type IPValue struct {
	Addr netip.Addr
}

func (v IPValue) Kind() ValueKind {
	if v.Addr.Is4() {
		return ValueIPv4
	}
	return ValueIPv6
}

func (v IPValue) String() string { return v.Addr.String() }

func (v IPValue) validate() error {
	if !v.Addr.IsValid() || v.Addr.Zone() != "" {
		return fmt.Errorf("ip address %s: %w", v.Addr, ErrInvalidValue)
	}
	return nil
}

// NoValue is carried by actions that take no argument.
type NoValue struct{}

func (NoValue) Kind() ValueKind { return ValueNone }
func (NoValue) String() string  { return "" }
func (NoValue) validate() error { return nil }

// scalarOf returns the data part of integer values for range checks.
func scalarOf(v Value) (uint32, bool) {
	switch x := v.(type) {
	case U8Match:
		return uint32(x.Data), true
	case U16Match:
		return uint32(x.Data), true
	case U8Value:
		return uint32(x), true
	case U16Value:
		return uint32(x), true
	}
	return 0, false
}

// PortResolver maps an interface name to its ifindex.
type PortResolver func(name string) (uint32, error)

// ValueParser parses the textual value forms accepted by the CLI and by
// manifests. A nil ResolvePort accepts numeric ifindexes only.
type ValueParser struct {
	ResolvePort PortResolver
}

// ParseFilter parses text as a value for filter type ft and validates it.
func (p ValueParser) ParseFilter(ft FilterType, text string) (Value, error) {
	if !ft.Valid() {
		return nil, fmt.Errorf("filter type %d: %w", uint32(ft), ErrUnknownName)
	}
	v, err := p.parse(ft.ValueKind(), text)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", ft, err)
	}
	if err := (Filter{Type: ft, Value: v}).Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseAction parses text as a value for action type at and validates it.
func (p ValueParser) ParseAction(at ActionType, text string) (Value, error) {
	if !at.Valid() {
		return nil, fmt.Errorf("action type %d: %w", uint32(at), ErrUnknownName)
	}
	v, err := p.parse(at.ValueKind(), text)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", at, err)
	}
	if err := (Action{Type: at, Value: v}).Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseFilterPair parses "TYPE=VALUE".
func (p ValueParser) ParseFilterPair(s string) (Filter, error) {
	name, text, _ := strings.Cut(s, "=")
	ft, err := ParseFilterType(name)
	if err != nil {
		return Filter{}, err
	}
	v, err := p.ParseFilter(ft, text)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Type: ft, Value: v}, nil
}

// ParseActionPair parses "TYPE=VALUE", or "TYPE" for actions without value.
func (p ValueParser) ParseActionPair(s string) (Action, error) {
	name, text, _ := strings.Cut(s, "=")
	at, err := ParseActionType(name)
	if err != nil {
		return Action{}, err
	}
	v, err := p.ParseAction(at, text)
	if err != nil {
		return Action{}, err
	}
	return Action{Type: at, Value: v}, nil
}

// ParseFilterValue parses text as a value for filter type ft.
func ParseFilterValue(ft FilterType, text string) (Value, error) {
	return ValueParser{}.ParseFilter(ft, text)
}

// ParseActionValue parses text as a value for action type at.
func ParseActionValue(at ActionType, text string) (Value, error) {
	return ValueParser{}.ParseAction(at, text)
}

func (p ValueParser) parse(kind ValueKind, text string) (Value, error) {
	s := strings.TrimSpace(text)
	switch kind {
	case ValueU8Match:
		data, mask, err := parseMasked(s, 8)
		if err != nil {
			return nil, err
		}
		return U8Match{Data: uint8(data), Mask: uint8(mask)}, nil
	case ValueU16Match:
		data, mask, err := parseMasked(s, 16)
		if err != nil {
			return nil, err
		}
		return U16Match{Data: uint16(data), Mask: uint16(mask)}, nil
	case ValueIPv4Match, ValueIPv6Match:
		return parseIPMatch(s, kind == ValueIPv6Match)
	case ValueMACMatch:
		return parseMACMatch(s)
	case ValuePort:
		idx, err := p.port(s)
		if err != nil {
			return nil, err
		}
		return Port{IfIndex: idx}, nil
	case ValuePortList:
		var list PortList
		for _, part := range strings.Split(s, ",") {
			idx, err := p.port(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			list.IfIndexes = append(list.IfIndexes, idx)
		}
		return list, nil
	case ValueIPType:
		return ParseIPType(s)
	case ValueIPFrag:
		return ParseIPFrag(s)
	case ValuePacketAction:
		return ParsePacketAction(s)
	case ValueU8:
		n, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrInvalidValue)
		}
		return U8Value(n), nil
	case ValueU16:
		n, err := strconv.ParseUint(s, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrInvalidValue)
		}
		return U16Value(n), nil
	case ValueObjectID:
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrInvalidValue)
		}
		return ObjectID(n), nil
	case ValueMAC:
		mac, err := net.ParseMAC(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrInvalidValue)
		}
		return MACValue(mac), nil
	case ValueIPv4, ValueIPv6:
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrInvalidValue)
		}
		if addr.Is4() != (kind == ValueIPv4) {
			return nil, fmt.Errorf("%q is not %s: %w", s, kind, ErrValueKind)
		}
		return IPValue{Addr: addr}, nil
	case ValueNone:
		if s != "" {
			return nil, fmt.Errorf("unexpected value %q: %w", s, ErrInvalidValue)
		}
		return NoValue{}, nil
	}
	return nil, fmt.Errorf("value kind %q: %w", kind, ErrValueKind)
}

func (p ValueParser) port(s string) (uint32, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(n), nil
	}
	if p.ResolvePort == nil || s == "" {
		return 0, fmt.Errorf("port %q: %w", s, ErrInvalidValue)
	}
	return p.ResolvePort(s)
}

// parseMasked parses "data" or "data/mask"; numbers may be decimal or 0x hex.
func parseMasked(s string, bits int) (data, mask uint64, err error) {
	ds, ms, hasMask := strings.Cut(s, "/")
	data, err = strconv.ParseUint(ds, 0, bits)
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w", s, ErrInvalidValue)
	}
	mask = 1<<bits - 1
	if hasMask {
		mask, err = strconv.ParseUint(ms, 0, bits)
		if err != nil {
			return 0, 0, fmt.Errorf("%q: %w", s, ErrInvalidValue)
		}
	}
	return data, mask, nil
}

// parseIPMatch parses "addr", "addr/len" or "addr/mask".
func parseIPMatch(s string, want6 bool) (IPMatch, error) {
	as, ms, hasMask := strings.Cut(s, "/")
	addr, err := netip.ParseAddr(as)
	if err != nil {
		return IPMatch{}, fmt.Errorf("%q: %w", s, ErrInvalidValue)
	}
	if addr.Is4() == want6 {
		return IPMatch{}, fmt.Errorf("%q has wrong address family: %w", s, ErrValueKind)
	}
	if addr.Zone() != "" {
		return IPMatch{}, fmt.Errorf("%q: zoned address: %w", s, ErrInvalidValue)
	}
	bits := addr.BitLen()
	if !hasMask {
		return IPMatch{Addr: addr, Mask: maskFromLen(bits, bits)}, nil
	}
	if n, err := strconv.Atoi(ms); err == nil {
		if n < 0 || n > bits {
			return IPMatch{}, fmt.Errorf("%q prefix length: %w", s, ErrInvalidValue)
		}
		return IPMatch{Addr: addr, Mask: maskFromLen(n, bits)}, nil
	}
	mask, err := netip.ParseAddr(ms)
	if err != nil || mask.BitLen() != bits {
		return IPMatch{}, fmt.Errorf("%q mask: %w", s, ErrInvalidValue)
	}
	return IPMatch{Addr: addr, Mask: mask}, nil
}

func maskFromLen(ones, bits int) netip.Addr {
	m := net.CIDRMask(ones, bits)
	addr, _ := netip.AddrFromSlice(m)
	return addr
}

func parseMACMatch(s string) (MACMatch, error) {
	as, ms, hasMask := strings.Cut(s, "/")
	addr, err := net.ParseMAC(as)
	if err != nil || len(addr) != 6 {
		return MACMatch{}, fmt.Errorf("%q: %w", s, ErrInvalidValue)
	}
	mask := net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if hasMask {
		mask, err = net.ParseMAC(ms)
		if err != nil || len(mask) != 6 {
			return MACMatch{}, fmt.Errorf("%q mask: %w", s, ErrInvalidValue)
		}
	}
	return MACMatch{Addr: addr, Mask: mask}, nil
}

type valueJSON struct {
	Kind  ValueKind `json:"kind"`
	Value string    `json:"value"`
}

// EncodeValue writes v as {"kind": ..., "value": ...}.
func EncodeValue(v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("nil value: %w", ErrInvalidValue)
	}
	return json.Marshal(valueJSON{Kind: v.Kind(), Value: v.String()})
}

// DecodeValue reads a value written by EncodeValue.
func DecodeValue(b []byte) (Value, error) {
	var raw valueJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}
	return ValueParser{}.parse(raw.Kind, raw.Value)
}
