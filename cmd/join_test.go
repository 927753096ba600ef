package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videodesk-app/videodesk/internal/protocol"
)

func TestRosterHandFlagsAreHostOnly(t *testing.T) {
	seats := []*protocol.Seat{
		{ID: "a", Name: "ana", Role: protocol.RoleHost, IsHost: true},
		{ID: "b", Name: "ben", Role: protocol.RoleStudent},
		{ID: "c", Name: "cam", Role: protocol.RoleStudent},
		nil,
	}
	hands := map[string]bool{"b": true, "c": true}
	links := map[string]string{}

	// Host view carries everyone's hand state.
	rows := rosterRows(seats, hands, links, "a", true)
	require.Len(t, rows, 4)
	assert.True(t, rows[1].HandRaised)
	assert.True(t, rows[2].HandRaised)

	// A student sees only their own hand, never the aggregated flags.
	rows = rosterRows(seats, hands, links, "b", false)
	assert.True(t, rows[1].HandRaised, "own hand stays visible")
	assert.False(t, rows[2].HandRaised, "other hands are hidden")
}

func TestRosterMarksSelfLink(t *testing.T) {
	seats := []*protocol.Seat{
		{ID: "a", Name: "ana"},
		{ID: "b", Name: "ben"},
	}
	links := map[string]string{"b": "connected"}

	rows := rosterRows(seats, nil, links, "a", false)
	require.Len(t, rows, 2)
	assert.Equal(t, "you", rows[0].LinkState)
	assert.Equal(t, "connected", rows[1].LinkState)
}
