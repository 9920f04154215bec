package ifindex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"

	"github.com/mesh-intelligence/nasacl/pkg/types"
)

func fakeResolver(links ...netlink.Link) *Resolver {
	return &Resolver{
		byName: func(name string) (netlink.Link, error) {
			for _, l := range links {
				if l.Attrs().Name == name {
					return l, nil
				}
			}
			return nil, errors.New("link not found")
		},
		byIndex: func(index int) (netlink.Link, error) {
			for _, l := range links {
				if l.Attrs().Index == index {
					return l, nil
				}
			}
			return nil, errors.New("no such link")
		},
	}
}

func dummy(name string, index int) netlink.Link {
	return &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: name, Index: index}}
}

func TestResolver_Index(t *testing.T) {
	r := fakeResolver(dummy("e101-001-0", 12), dummy("broken", 0))

	idx, err := r.Index("e101-001-0")
	require.NoError(t, err)
	assert.Equal(t, uint32(12), idx)

	_, err = r.Index("e101-009-0")
	assert.ErrorIs(t, err, types.ErrInvalidValue)

	_, err = r.Index("broken")
	assert.ErrorIs(t, err, types.ErrInvalidValue)
}

func TestResolver_Name(t *testing.T) {
	r := fakeResolver(dummy("e101-001-0", 12))
	assert.Equal(t, "e101-001-0", r.Name(12))
	assert.Equal(t, "99", r.Name(99))
}

func TestResolver_Parser(t *testing.T) {
	r := fakeResolver(dummy("e101-001-0", 12), dummy("e101-002-0", 13))
	p := r.Parser()

	f, err := p.ParseFilterPair("IN_PORT=e101-001-0")
	require.NoError(t, err)
	assert.Equal(t, types.Port{IfIndex: 12}, f.Value)

	f, err = p.ParseFilterPair("IN_PORTS=e101-001-0,13")
	require.NoError(t, err)
	assert.Equal(t, types.PortList{IfIndexes: []uint32{12, 13}}, f.Value)

	a, err := p.ParseActionPair("REDIRECT_PORT=e101-002-0")
	require.NoError(t, err)
	assert.Equal(t, types.Port{IfIndex: 13}, a.Value)
}
