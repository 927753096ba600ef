package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimFillsLowestSlotFirst(t *testing.T) {
	r := &Room{ID: "r"}

	slot, ok := r.Claim(newTestClient("a"))
	require.True(t, ok)
	assert.Equal(t, 0, slot)

	slot, ok = r.Claim(newTestClient("b"))
	require.True(t, ok)
	assert.Equal(t, 1, slot)
}

func TestClaimRejectsDuplicateAndFullRoom(t *testing.T) {
	r := &Room{ID: "r"}
	a := newTestClient("a")
	_, ok := r.Claim(a)
	require.True(t, ok)

	_, ok = r.Claim(a)
	assert.False(t, ok, "double claim by the same connection")

	for _, id := range []string{"b", "c", "d"} {
		_, ok = r.Claim(newTestClient(id))
		require.True(t, ok)
	}
	_, ok = r.Claim(newTestClient("e"))
	assert.False(t, ok, "full room")
	assert.True(t, r.Full())
}

func TestReleaseKeepsOtherSlotsInPlace(t *testing.T) {
	r := &Room{ID: "r"}
	for _, id := range []string{"a", "b", "c"} {
		r.Claim(newTestClient(id))
	}

	require.True(t, r.Release("b"))

	// A new claim fills the freed middle slot, not the end.
	slot, ok := r.Claim(newTestClient("d"))
	require.True(t, ok)
	assert.Equal(t, 1, slot)

	assert.False(t, r.Release("b"), "second release is a no-op")
}

func TestHostIsLowestIndexPresentOccupant(t *testing.T) {
	r := &Room{ID: "r"}
	a := newTestClient("a")
	b := newTestClient("b")
	r.Claim(a)
	r.Claim(b)

	require.NotNil(t, r.Host())
	assert.Equal(t, "a", r.Host().ID)

	a.Away = true
	assert.Equal(t, "b", r.Host().ID, "away occupants never hold host")

	r.Release("b")
	assert.Nil(t, r.Host())
}

func TestSnapshotMarksAwayAndEmptySlots(t *testing.T) {
	r := &Room{ID: "r"}
	a := newTestClient("a")
	b := newTestClient("b")
	r.Claim(a)
	r.Claim(b)
	b.Away = true

	minutes := func(stableID string) int {
		if stableID == "stable-a" {
			return 42
		}
		return 0
	}
	snapshot := r.Snapshot(minutes)

	require.Len(t, snapshot, seatCount)
	require.NotNil(t, snapshot[0])
	assert.True(t, snapshot[0].Connected)
	assert.True(t, snapshot[0].IsHost)
	assert.Equal(t, 42, snapshot[0].TotalStudyMinutes)
	require.NotNil(t, snapshot[1])
	assert.False(t, snapshot[1].Connected)
	assert.Nil(t, snapshot[2])
	assert.Nil(t, snapshot[3])
}

func TestIsMainRoom(t *testing.T) {
	assert.True(t, isMainRoom("desk-room"))
	assert.False(t, isMainRoom("private_ab12cd34"))
	assert.False(t, isMainRoom(""))
}
