package types

import (
	"fmt"
	"strconv"
	"strings"
)

// enumTable maps the numeric values of an enumeration to the names used by
// the ACL model and back.
type enumTable[T ~uint32] struct {
	kind   string
	names  map[T]string
	values map[string]T
}

func newEnumTable[T ~uint32](kind string, names map[T]string) enumTable[T] {
	values := make(map[string]T, len(names))
	for v, n := range names {
		values[n] = v
	}
	return enumTable[T]{kind: kind, names: names, values: values}
}

func (e enumTable[T]) name(v T) string {
	if n, ok := e.names[v]; ok {
		return n
	}
	return strconv.FormatUint(uint64(v), 10)
}

func (e enumTable[T]) valid(v T) bool {
	_, ok := e.names[v]
	return ok
}

// parse accepts the model name in any case, with or without the given
// prefix, or the decimal number of a known value.
func (e enumTable[T]) parse(s, prefix string) (T, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.TrimPrefix(name, prefix)
	if v, ok := e.values[name]; ok {
		return v, nil
	}
	if n, err := strconv.ParseUint(name, 10, 32); err == nil && e.valid(T(n)) {
		return T(n), nil
	}
	return 0, fmt.Errorf("%s %q: %w", e.kind, s, ErrUnknownName)
}

// Stage is the pipeline point at which a table's entries are evaluated.
type Stage uint32

// Stages.
const (
	StageIngress Stage = 1
	StageEgress  Stage = 2
)

var stageNames = newEnumTable("stage", map[Stage]string{
	StageIngress: "INGRESS",
	StageEgress:  "EGRESS",
})

func (s Stage) String() string { return stageNames.name(s) }

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return stageNames.valid(s) }

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(b []byte) error {
	v, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStage parses a stage name such as "INGRESS".
func ParseStage(s string) (Stage, error) { return stageNames.parse(s, "STAGE_") }

// CounterType selects what an ACL counter counts.
type CounterType uint32

// Counter types.
const (
	CounterBytes   CounterType = 1
	CounterPackets CounterType = 2
)

var counterTypeNames = newEnumTable("counter type", map[CounterType]string{
	CounterBytes:   "BYTE",
	CounterPackets: "PACKET",
})

func (c CounterType) String() string { return counterTypeNames.name(c) }

// Valid reports whether c is a known counter type.
func (c CounterType) Valid() bool { return counterTypeNames.valid(c) }

// MarshalText implements encoding.TextMarshaler.
func (c CounterType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CounterType) UnmarshalText(b []byte) error {
	v, err := ParseCounterType(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseCounterType parses a counter type name such as "BYTE".
func ParseCounterType(s string) (CounterType, error) { return counterTypeNames.parse(s, "") }

// PacketAction is the forwarding decision applied by a PACKET_ACTION action.
type PacketAction uint32

// Packet actions.
const (
	PacketDrop                      PacketAction = 1
	PacketForward                   PacketAction = 2
	PacketCopyToCPU                 PacketAction = 3
	PacketCopyToCPUCancel           PacketAction = 4
	PacketTrapToCPU                 PacketAction = 5
	PacketCopyToCPUAndForward       PacketAction = 6
	PacketCopyToCPUCancelAndDrop    PacketAction = 7
	PacketCopyToCPUCancelAndForward PacketAction = 8
)

var packetActionNames = newEnumTable("packet action", map[PacketAction]string{
	PacketDrop:                      "DROP",
	PacketForward:                   "FORWARD",
	PacketCopyToCPU:                 "COPY_TO_CPU",
	PacketCopyToCPUCancel:           "COPY_TO_CPU_CANCEL",
	PacketTrapToCPU:                 "TRAP_TO_CPU",
	PacketCopyToCPUAndForward:       "COPY_TO_CPU_AND_FORWARD",
	PacketCopyToCPUCancelAndDrop:    "COPY_TO_CPU_CANCEL_AND_DROP",
	PacketCopyToCPUCancelAndForward: "COPY_TO_CPU_CANCEL_AND_FORWARD",
})

func (p PacketAction) String() string { return packetActionNames.name(p) }

// ParsePacketAction parses a packet action name such as "DROP".
func ParsePacketAction(s string) (PacketAction, error) {
	return packetActionNames.parse(s, "PACKET_ACTION_TYPE_")
}

// IPType classifies packets for the IP_TYPE filter.
type IPType uint32

// IP types.
const (
	IPTypeAny        IPType = 1
	IPTypeIP         IPType = 2
	IPTypeNonIP      IPType = 3
	IPTypeIPv4Any    IPType = 4
	IPTypeNonIPv4    IPType = 5
	IPTypeIPv6Any    IPType = 6
	IPTypeNonIPv6    IPType = 7
	IPTypeARP        IPType = 8
	IPTypeARPRequest IPType = 9
	IPTypeARPReply   IPType = 10
)

var ipTypeNames = newEnumTable("ip type", map[IPType]string{
	IPTypeAny:        "ANY",
	IPTypeIP:         "IP",
	IPTypeNonIP:      "NON_IP",
	IPTypeIPv4Any:    "IPV4ANY",
	IPTypeNonIPv4:    "NON_IPV4",
	IPTypeIPv6Any:    "IPV6ANY",
	IPTypeNonIPv6:    "NON_IPV6",
	IPTypeARP:        "ARP",
	IPTypeARPRequest: "ARP_REQUEST",
	IPTypeARPReply:   "ARP_REPLY",
})

func (t IPType) String() string { return ipTypeNames.name(t) }

// ParseIPType parses an IP type name such as "ARP_REPLY".
func ParseIPType(s string) (IPType, error) { return ipTypeNames.parse(s, "IP_TYPE_") }

// IPFrag classifies fragments for the IP_FRAG filter.
type IPFrag uint32

// IP fragment classes.
const (
	IPFragAny           IPFrag = 1
	IPFragNonFrag       IPFrag = 2
	IPFragNonFragOrHead IPFrag = 3
	IPFragHead          IPFrag = 4
	IPFragNonHead       IPFrag = 5
)

var ipFragNames = newEnumTable("ip frag", map[IPFrag]string{
	IPFragAny:           "ANY",
	IPFragNonFrag:       "NON_FRAG",
	IPFragNonFragOrHead: "NON_FRAG_OR_HEAD",
	IPFragHead:          "HEAD",
	IPFragNonHead:       "NON_HEAD",
})

func (f IPFrag) String() string { return ipFragNames.name(f) }

// ParseIPFrag parses a fragment class name such as "NON_HEAD".
func ParseIPFrag(s string) (IPFrag, error) { return ipFragNames.parse(s, "IP_FRAG_") }
