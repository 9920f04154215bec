package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNames(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) (uint32, error)
		in    string
		want  uint32
		err   error
	}{
		{name: "stage upper", parse: wrap(ParseStage), in: "INGRESS", want: uint32(StageIngress)},
		{name: "stage lower", parse: wrap(ParseStage), in: "egress", want: uint32(StageEgress)},
		{name: "stage prefixed", parse: wrap(ParseStage), in: "STAGE_EGRESS", want: uint32(StageEgress)},
		{name: "stage number", parse: wrap(ParseStage), in: "1", want: uint32(StageIngress)},
		{name: "stage unknown number", parse: wrap(ParseStage), in: "9", err: ErrUnknownName},
		{name: "stage unknown", parse: wrap(ParseStage), in: "middle", err: ErrUnknownName},
		{name: "filter dashes", parse: wrap(ParseFilterType), in: "l4-dst-port", want: uint32(FilterL4DstPort)},
		{name: "filter prefixed", parse: wrap(ParseFilterType), in: "MATCH_TYPE_SRC_IP", want: uint32(FilterSrcIP)},
		{name: "action", parse: wrap(ParseActionType), in: "set_counter", want: uint32(ActionSetCounter)},
		{name: "packet action", parse: wrap(ParsePacketAction), in: "trap-to-cpu", want: uint32(PacketTrapToCPU)},
		{name: "counter type", parse: wrap(ParseCounterType), in: "packet", want: uint32(CounterPackets)},
		{name: "counter unknown", parse: wrap(ParseCounterType), in: "FRAME", err: ErrUnknownName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func wrap[T ~uint32](f func(string) (T, error)) func(string) (uint32, error) {
	return func(s string) (uint32, error) {
		v, err := f(s)
		return uint32(v), err
	}
}

func TestEnumText(t *testing.T) {
	b, err := json.Marshal(struct {
		Stage   Stage         `json:"stage"`
		Filters []FilterType  `json:"filters"`
		Types   []CounterType `json:"types"`
	}{StageIngress, []FilterType{FilterSrcIP, FilterInPort}, []CounterType{CounterBytes}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"INGRESS","filters":["SRC_IP","IN_PORT"],"types":["BYTE"]}`, string(b))

	var st Stage
	require.NoError(t, json.Unmarshal([]byte(`"egress"`), &st))
	assert.Equal(t, StageEgress, st)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"sideways"`), &st), ErrUnknownName)
}

func TestFilterTypesOrdered(t *testing.T) {
	all := FilterTypes()
	require.NotEmpty(t, all)
	assert.Equal(t, FilterSrcIP, all[0])
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1], all[i])
	}
	assert.False(t, FilterType(0).Valid())
	assert.False(t, ActionType(999).Valid())
}
