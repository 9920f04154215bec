package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectAttrs(t *testing.T) {
	var o Object
	o.Kind = ObjEntry
	o.Set(AttrTableID, uint64(3))
	o.Set(AttrSwitchID, uint32(1))
	o.Set(AttrPriority, 7)

	assert.True(t, o.Has(AttrTableID))
	assert.False(t, o.Has(AttrEntryID))

	id, ok := o.Uint64(AttrTableID)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), id)

	prio, ok := o.Uint32(AttrPriority)
	assert.True(t, ok)
	assert.Equal(t, uint32(7), prio)

	o.Set(AttrMatchedBytes, uint64(1)<<40)
	_, ok = o.Uint32(AttrMatchedBytes)
	assert.False(t, ok)

	o.Set(AttrEntryID, -1)
	_, ok = o.Uint64(AttrEntryID)
	assert.False(t, ok)

	sw, ok := Lookup[uint32](o, AttrSwitchID)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), sw)
	_, ok = Lookup[string](o, AttrSwitchID)
	assert.False(t, ok)
}

func TestObjectClone(t *testing.T) {
	o := NewObject(ObjTable)
	o.Set(AttrTableID, uint64(1))

	c := o.Clone()
	c.Set(AttrTableID, uint64(2))
	c.Set(AttrStage, StageIngress)

	got, _ := o.Uint64(AttrTableID)
	assert.Equal(t, uint64(1), got)
	assert.False(t, o.Has(AttrStage))
	assert.Equal(t, "table{stage=INGRESS table-id=2}", c.String())
}
