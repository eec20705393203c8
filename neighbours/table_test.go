package neighbours

import (
	"testing"
	"time"

	"github.com/encodeous/rpl/state"
	"github.com/stretchr/testify/assert"
)

func addr(b byte) state.LinkAddr {
	return state.LinkAddr{0, 0, 0, 0, 0, 0, 0, b}
}

func TestRootRank(t *testing.T) {
	tbl := New(true, time.Minute)
	assert.Equal(t, state.MinHopRankIncrease, tbl.MyDagRank())
	tbl.IndicateRxDio(addr(1), 256)
	assert.Equal(t, state.MinHopRankIncrease, tbl.MyDagRank())
	_, ok := tbl.PreferredParent()
	assert.False(t, ok)
}

func TestRankFromBestParent(t *testing.T) {
	tbl := New(false, time.Minute)
	assert.Equal(t, state.DefaultDagRank, tbl.MyDagRank())

	tbl.IndicateRxDio(addr(2), 768)
	assert.Equal(t, uint16(1024), tbl.MyDagRank())

	tbl.IndicateRxDio(addr(1), 256)
	assert.Equal(t, uint16(512), tbl.MyDagRank())
	parent, ok := tbl.PreferredParent()
	assert.True(t, ok)
	assert.Equal(t, addr(1), parent)
}

func TestHigherRankNeighbours(t *testing.T) {
	tbl := New(false, time.Minute)
	tbl.IndicateRxDio(addr(1), 256)
	tbl.IndicateRxDio(addr(2), 768)
	tbl.IndicateRxDio(addr(3), 512)

	nbrs := tbl.Neighbours()
	assert.Len(t, nbrs, 3)
	assert.Equal(t, addr(1), nbrs[0].Addr)

	// we are at 512
	assert.False(t, tbl.IsNeighbourWithHigherRank(0))
	assert.True(t, tbl.IsNeighbourWithHigherRank(1))
	assert.False(t, tbl.IsNeighbourWithHigherRank(2))
	assert.False(t, tbl.IsNeighbourWithHigherRank(3))
}

func TestNeighbourExpiry(t *testing.T) {
	tbl := New(false, 20*time.Millisecond)
	tbl.IndicateRxDio(addr(1), 256)
	assert.Equal(t, uint16(512), tbl.MyDagRank())
	assert.Eventually(t, func() bool {
		return tbl.MyDagRank() == state.DefaultDagRank
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, tbl.Neighbours())
}

func TestAddRank(t *testing.T) {
	assert.Equal(t, uint16(512), AddRank(256, 256))
	assert.Equal(t, state.DefaultDagRank, AddRank(state.DefaultDagRank, 256))
	assert.Equal(t, state.DefaultDagRank, AddRank(0xff00, 0x0200))
}
