package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutCoordinateAtIsBijection(t *testing.T) {
	for _, order := range []FillOrder{FillInterleaved, FillSequential} {
		for s := 1; s <= 12; s++ {
			for r := 1; r <= 12; r++ {
				layout := Layout{NumSubevents: s, NumResponseSlots: r, Order: order}
				seen := make(map[Coordinate]int, layout.Capacity())
				for n := 0; n < layout.Capacity(); n++ {
					c := layout.CoordinateAt(n)
					prev, dup := seen[c]
					require.Falsef(t, dup, "%s S=%d R=%d: counter %d and %d both map to %s", order, s, r, prev, n, c)
					require.Less(t, int(c.Subevent), s)
					require.Less(t, int(c.ResponseSlot), r)
					seen[c] = n
				}
			}
		}
	}
}

func TestLayoutInterleavedOrder(t *testing.T) {
	layout := Layout{NumSubevents: 5, NumResponseSlots: 10}

	assert.Equal(t, Coordinate{0, 0}, layout.CoordinateAt(0))
	assert.Equal(t, Coordinate{4, 0}, layout.CoordinateAt(4))
	assert.Equal(t, Coordinate{0, 1}, layout.CoordinateAt(5))
	assert.Equal(t, Coordinate{4, 9}, layout.CoordinateAt(49))
}

func TestLayoutSequentialOrder(t *testing.T) {
	layout := Layout{NumSubevents: 5, NumResponseSlots: 10, Order: FillSequential}

	assert.Equal(t, Coordinate{0, 9}, layout.CoordinateAt(9))
	assert.Equal(t, Coordinate{1, 0}, layout.CoordinateAt(10))
	assert.Equal(t, Coordinate{4, 9}, layout.CoordinateAt(49))
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  Layout
		wantErr bool
	}{
		{"default", Layout{NumSubevents: 5, NumResponseSlots: 10}, false},
		{"max", Layout{NumSubevents: MaxSubevents, NumResponseSlots: MaxResponseSlots}, false},
		{"no subevents", Layout{NumSubevents: 0, NumResponseSlots: 10}, true},
		{"too many subevents", Layout{NumSubevents: MaxSubevents + 1, NumResponseSlots: 1}, true},
		{"no slots", Layout{NumSubevents: 1, NumResponseSlots: 0}, true},
		{"too many slots", Layout{NumSubevents: 1, NumResponseSlots: 256}, true},
		{"bad order", Layout{NumSubevents: 1, NumResponseSlots: 1, Order: 7}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLayout)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAllocatorCommitsExactlyCapacity(t *testing.T) {
	a, err := NewAllocator(Layout{NumSubevents: 5, NumResponseSlots: 10})
	require.NoError(t, err)

	seen := make(map[Coordinate]bool)
	for i := 0; i < 50; i++ {
		require.False(t, a.Exhausted())
		c, err := a.Allocate()
		require.NoError(t, err)
		require.False(t, seen[c], "coordinate %s handed out twice", c)
		seen[c] = true
		require.NoError(t, a.Commit())
	}

	assert.True(t, a.Exhausted())
	assert.Equal(t, 50, a.Committed())

	_, err = a.Allocate()
	assert.ErrorIs(t, err, ErrCapacityExhausted)
}

func TestAllocatorRollbackKeepsCounter(t *testing.T) {
	a, err := NewAllocator(Layout{NumSubevents: 5, NumResponseSlots: 10})
	require.NoError(t, err)

	first, err := a.Allocate()
	require.NoError(t, err)
	require.NoError(t, a.Commit())

	before := a.Committed()
	tentative, err := a.Allocate()
	require.NoError(t, err)
	a.Rollback()

	assert.Equal(t, before, a.Committed())
	assert.False(t, a.Pending())

	retry, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, tentative, retry)
	assert.NotEqual(t, first, retry)

	// A second rollback is harmless.
	a.Rollback()
	a.Rollback()
	assert.Equal(t, before, a.Committed())
}

func TestAllocatorPendingGuard(t *testing.T) {
	a, err := NewAllocator(Layout{NumSubevents: 1, NumResponseSlots: 2})
	require.NoError(t, err)

	_, err = a.Allocate()
	require.NoError(t, err)

	_, err = a.Allocate()
	assert.ErrorIs(t, err, ErrAllocationPending)

	assert.ErrorIs(t, newTestAllocator(t).Commit(), ErrNoPending)
}

func TestAllocatorRestore(t *testing.T) {
	a := newTestAllocator(t)
	require.NoError(t, a.Restore(3))
	assert.Equal(t, 3, a.Committed())

	c, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, a.Layout().CoordinateAt(3), c)

	assert.Error(t, a.Restore(1))
	assert.Error(t, newTestAllocator(t).Restore(51))
}

func TestCoordinateBinary(t *testing.T) {
	c := Coordinate{Subevent: 3, ResponseSlot: 7}
	data, err := c.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 7}, data)

	var got Coordinate
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, c, got)

	err = got.UnmarshalBinary([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidLength)
	assert.Equal(t, c, got)
}

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	a, err := NewAllocator(Layout{NumSubevents: 5, NumResponseSlots: 10})
	require.NoError(t, err)
	return a
}
