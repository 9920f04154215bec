package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ActionType identifies the effect an entry applies to matching packets.
type ActionType uint32

// Action types.
const (
	ActionPacketAction ActionType = iota + 1
	ActionFlood
	ActionMirrorIngress
	ActionMirrorEgress
	ActionSetCounter
	ActionSetPolicer
	ActionRedirectPort
	ActionRedirectIPNexthop
	ActionSetCPUQueue
	ActionSetDSCP
	ActionSetInnerVLANPri
	ActionSetOuterVLANPri
	ActionSetInnerVLANID
	ActionSetOuterVLANID
	ActionSetSrcMAC
	ActionSetDstMAC
	ActionSetSrcIP
	ActionSetDstIP
)

type actionInfo struct {
	name  string
	kind  ValueKind
	limit uint32
}

var actionInfos = map[ActionType]actionInfo{
	ActionPacketAction:      {"PACKET_ACTION", ValuePacketAction, 0},
	ActionFlood:             {"FLOOD", ValueNone, 0},
	ActionMirrorIngress:     {"MIRROR_INGRESS", ValueObjectID, 0},
	ActionMirrorEgress:      {"MIRROR_EGRESS", ValueObjectID, 0},
	ActionSetCounter:        {"SET_COUNTER", ValueObjectID, 0},
	ActionSetPolicer:        {"SET_POLICER", ValueObjectID, 0},
	ActionRedirectPort:      {"REDIRECT_PORT", ValuePort, 0},
	ActionRedirectIPNexthop: {"REDIRECT_IP_NEXTHOP", ValueObjectID, 0},
	ActionSetCPUQueue:       {"SET_CPU_QUEUE", ValueObjectID, 0},
	ActionSetDSCP:           {"SET_DSCP", ValueU8, 63},
	ActionSetInnerVLANPri:   {"SET_INNER_VLAN_PRI", ValueU8, 7},
	ActionSetOuterVLANPri:   {"SET_OUTER_VLAN_PRI", ValueU8, 7},
	ActionSetInnerVLANID:    {"SET_INNER_VLAN_ID", ValueU16, 4095},
	ActionSetOuterVLANID:    {"SET_OUTER_VLAN_ID", ValueU16, 4095},
	ActionSetSrcMAC:         {"SET_SRC_MAC", ValueMAC, 0},
	ActionSetDstMAC:         {"SET_DST_MAC", ValueMAC, 0},
	ActionSetSrcIP:          {"SET_SRC_IP", ValueIPv4, 0},
	ActionSetDstIP:          {"SET_DST_IP", ValueIPv4, 0},
}

var actionTypeNames = func() enumTable[ActionType] {
	names := make(map[ActionType]string, len(actionInfos))
	for t, info := range actionInfos {
		names[t] = info.name
	}
	return newEnumTable("action type", names)
}()

func (t ActionType) String() string { return actionTypeNames.name(t) }

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool { return actionTypeNames.valid(t) }

// ValueKind returns the kind of value an action of this type carries.
func (t ActionType) ValueKind() ValueKind { return actionInfos[t].kind }

// MarshalText implements encoding.TextMarshaler.
func (t ActionType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ActionType) UnmarshalText(b []byte) error {
	v, err := ParseActionType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseActionType parses an action type name such as "PACKET_ACTION".
func ParseActionType(s string) (ActionType, error) {
	return actionTypeNames.parse(s, "ACTION_TYPE_")
}

// Action is one effect of an entry.
type Action struct {
	Type  ActionType
	Value Value
}

// Validate checks that the value kind fits the action type and that the value
// is within range.
func (a Action) Validate() error {
	info, ok := actionInfos[a.Type]
	if !ok {
		return fmt.Errorf("action type %d: %w", uint32(a.Type), ErrUnknownName)
	}
	if a.Value == nil && info.kind == ValueNone {
		return nil
	}
	if a.Value == nil || a.Value.Kind() != info.kind {
		return fmt.Errorf("action %s wants %s value: %w", a.Type, info.kind, ErrValueKind)
	}
	if err := a.Value.validate(); err != nil {
		return fmt.Errorf("action %s: %w", a.Type, err)
	}
	if info.limit != 0 {
		if n, ok := scalarOf(a.Value); ok && n > info.limit {
			return fmt.Errorf("action %s value %d above %d: %w", a.Type, n, info.limit, ErrInvalidValue)
		}
	}
	return nil
}

func (a Action) String() string {
	if a.Value == nil || a.Value.Kind() == ValueNone {
		return a.Type.String()
	}
	return a.Type.String() + "=" + a.Value.String()
}

type actionJSON struct {
	Type  ActionType      `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the action with a kind-tagged value.
func (a Action) MarshalJSON() ([]byte, error) {
	val := a.Value
	if val == nil {
		val = NoValue{}
	}
	v, err := EncodeValue(val)
	if err != nil {
		return nil, err
	}
	return json.Marshal(actionJSON{Type: a.Type, Value: v})
}

// UnmarshalJSON decodes an action written by MarshalJSON.
func (a *Action) UnmarshalJSON(b []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := DecodeValue(raw.Value)
	if err != nil {
		return fmt.Errorf("action %s: %w", raw.Type, err)
	}
	a.Type, a.Value = raw.Type, v
	return nil
}

// ActionMap maps action types to their values; one value per type.
type ActionMap map[ActionType]Value

// Actions returns the map's actions ordered by type.
func (m ActionMap) Actions() []Action {
	out := make([]Action, 0, len(m))
	for t, v := range m {
		if v == nil {
			v = NoValue{}
		}
		out = append(out, Action{Type: t, Value: v})
	}
	SortActions(out)
	return out
}

// SortActions orders actions by type.
func SortActions(as []Action) {
	sort.Slice(as, func(i, j int) bool { return as[i].Type < as[j].Type })
}
