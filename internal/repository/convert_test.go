package repository

import (
	"math"
	"testing"

	"example.com/rfidscan/internal/scanlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToModel_OrdersEventsBySeq(t *testing.T) {
	l := scanlog.New("dock-door-3", 2)
	l.Reset()
	for i := uint32(0); i < 3; i++ {
		_, err := l.Submit(i, 100+i, 110+i, []byte{1, 2, 3, 4, 5, 6, byte(i)})
		require.NoError(t, err)
	}

	m := ToModel(l.Query())
	assert.Equal(t, "dock-door-3", m.Account)
	assert.Equal(t, uint32(3), m.NumTransactions)
	assert.Equal(t, uint32(1), m.Generation)
	require.Len(t, m.ScanEvents, 2)
	assert.Equal(t, 0, m.ScanEvents[0].Seq)
	assert.Equal(t, uint32(1), m.ScanEvents[0].DeviceID)
	assert.Equal(t, 1, m.ScanEvents[1].Seq)
	assert.Equal(t, "dock-door-3", m.ScanEvents[1].Account)

	assert.Equal(t, l.Query(), ToSnapshot(m))
}

func TestToSnapshot_EmptyLogKeepsInfiniteMin(t *testing.T) {
	snap := ToSnapshot(ToModel(scanlog.New("idle", 4).Query()))
	assert.True(t, math.IsInf(snap.Stats.Min, 1))
	assert.Empty(t, snap.Events)
}
