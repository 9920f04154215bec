package types

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	ports := ValueParser{ResolvePort: func(name string) (uint32, error) {
		if name == "e101-001-0" {
			return 17, nil
		}
		return 0, ErrInvalidValue
	}}

	tests := []struct {
		name   string
		parser ValueParser
		ft     FilterType
		in     string
		want   Value
		err    error
	}{
		{name: "ipv4 prefix", ft: FilterSrcIP, in: "10.0.0.0/8",
			want: IPMatch{Addr: netip.MustParseAddr("10.0.0.0"), Mask: netip.MustParseAddr("255.0.0.0")}},
		{name: "ipv4 host", ft: FilterDstIP, in: "192.168.1.1",
			want: IPMatch{Addr: netip.MustParseAddr("192.168.1.1"), Mask: netip.MustParseAddr("255.255.255.255")}},
		{name: "ipv4 dotted mask", ft: FilterDstIP, in: "172.16.0.0/255.240.0.0",
			want: IPMatch{Addr: netip.MustParseAddr("172.16.0.0"), Mask: netip.MustParseAddr("255.240.0.0")}},
		{name: "ipv6 in ipv4 filter", ft: FilterSrcIP, in: "2001:db8::1", err: ErrValueKind},
		{name: "ipv6", ft: FilterSrcIPv6, in: "2001:db8::/32",
			want: IPMatch{Addr: netip.MustParseAddr("2001:db8::"), Mask: netip.MustParseAddr("ffff:ffff::")}},
		{name: "prefix too long", ft: FilterSrcIP, in: "10.0.0.0/33", err: ErrInvalidValue},
		{name: "zoned ipv6", ft: FilterSrcIPv6, in: "fe80::1%eth0/64", err: ErrInvalidValue},
		{name: "zoned ipv6 host", ft: FilterDstIPv6, in: "fe80::1%2", err: ErrInvalidValue},
		{name: "l4 port", ft: FilterL4DstPort, in: "443", want: U16Match{Data: 443, Mask: 0xffff}},
		{name: "l4 port masked", ft: FilterL4SrcPort, in: "0x400/0xfc00", want: U16Match{Data: 0x400, Mask: 0xfc00}},
		{name: "dscp in range", ft: FilterDSCP, in: "46", want: U8Match{Data: 46, Mask: 0xff}},
		{name: "dscp out of range", ft: FilterDSCP, in: "64", err: ErrInvalidValue},
		{name: "vlan out of range", ft: FilterOuterVLANID, in: "4096", err: ErrInvalidValue},
		{name: "numeric port", ft: FilterInPort, in: "5", want: Port{IfIndex: 5}},
		{name: "named port", parser: ports, ft: FilterInPort, in: "e101-001-0", want: Port{IfIndex: 17}},
		{name: "named port without resolver", ft: FilterInPort, in: "e101-001-0", err: ErrInvalidValue},
		{name: "port zero", ft: FilterOutPort, in: "0", err: ErrInvalidValue},
		{name: "port list", parser: ports, ft: FilterInPorts, in: "3, e101-001-0", want: PortList{IfIndexes: []uint32{3, 17}}},
		{name: "ip type", ft: FilterIPType, in: "IPV4ANY", want: IPTypeIPv4Any},
		{name: "bad number", ft: FilterTTL, in: "many", err: ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parser.ParseFilter(tt.ft, tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseActionPair(t *testing.T) {
	tests := []struct {
		in   string
		want Action
		err  error
	}{
		{in: "PACKET_ACTION=DROP", want: Action{Type: ActionPacketAction, Value: PacketDrop}},
		{in: "FLOOD", want: Action{Type: ActionFlood, Value: NoValue{}}},
		{in: "FLOOD=yes", err: ErrInvalidValue},
		{in: "SET_COUNTER=4", want: Action{Type: ActionSetCounter, Value: ObjectID(4)}},
		{in: "SET_COUNTER=0", err: ErrInvalidValue},
		{in: "SET_DSCP=63", want: Action{Type: ActionSetDSCP, Value: U8Value(63)}},
		{in: "SET_OUTER_VLAN_PRI=8", err: ErrInvalidValue},
		{in: "SET_SRC_IP=10.1.1.1", want: Action{Type: ActionSetSrcIP, Value: IPValue{Addr: netip.MustParseAddr("10.1.1.1")}}},
		{in: "SET_DST_IP=::1", err: ErrValueKind},
		{in: "TELEPORT=1", err: ErrUnknownName},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValueParser{}.ParseActionPair(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateKindMismatch(t *testing.T) {
	err := Filter{Type: FilterSrcIP, Value: U8Match{Data: 1, Mask: 0xff}}.Validate()
	assert.ErrorIs(t, err, ErrValueKind)

	assert.NoError(t, Action{Type: ActionFlood}.Validate())
	assert.ErrorIs(t, Action{Type: ActionSetCounter}.Validate(), ErrValueKind)
	assert.True(t, errors.Is(Filter{Type: 999}.Validate(), ErrUnknownName))

	zoned := IPMatch{Addr: netip.MustParseAddr("fe80::1%eth0"), Mask: netip.MustParseAddr("ffff:ffff:ffff:ffff::")}
	assert.ErrorIs(t, Filter{Type: FilterSrcIPv6, Value: zoned}.Validate(), ErrInvalidValue)
}

func TestEncodeDecodeValue(t *testing.T) {
	values := []Value{
		U8Match{Data: 3, Mask: 0x7},
		U16Match{Data: 80, Mask: 0xffff},
		IPMatch{Addr: netip.MustParseAddr("10.0.0.0"), Mask: netip.MustParseAddr("255.0.0.0")},
		PortList{IfIndexes: []uint32{4, 9}},
		PacketTrapToCPU,
		ObjectID(12),
		NoValue{},
	}
	for _, v := range values {
		b, err := EncodeValue(v)
		require.NoError(t, err)
		got, err := DecodeValue(b)
		require.NoError(t, err, string(b))
		assert.Equal(t, v, got)
	}

	_, err := EncodeValue(nil)
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = DecodeValue([]byte(`{"kind":"warp","value":"9"}`))
	assert.ErrorIs(t, err, ErrValueKind)
}

func TestMapsSortByType(t *testing.T) {
	fm := FilterMap{FilterL4DstPort: U16Match{Data: 1, Mask: 0xffff}, FilterSrcIP: IPMatch{}}
	fs := fm.Filters()
	require.Len(t, fs, 2)
	assert.Equal(t, FilterSrcIP, fs[0].Type)

	am := ActionMap{ActionSetCounter: ObjectID(1), ActionFlood: nil}
	as := am.Actions()
	require.Len(t, as, 2)
	assert.Equal(t, Action{Type: ActionFlood, Value: NoValue{}}, as[0])
	assert.Equal(t, "FLOOD", as[0].String())
	assert.Equal(t, "SET_COUNTER=1", as[1].String())
}
