package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndDecode(t *testing.T) {
	msg := New(TypeJoinRoom, JoinRoom{Room: "desk-room", Name: "mika", Role: RoleStudent})
	assert.Equal(t, TypeJoinRoom, msg.Type)

	var decoded JoinRoom
	require.NoError(t, msg.Decode(&decoded))
	assert.Equal(t, "desk-room", decoded.Room)
	assert.Equal(t, "mika", decoded.Name)
}

func TestNewWithNilPayload(t *testing.T) {
	msg := New(TypeEndPrivateSession, nil)
	assert.Nil(t, msg.Payload)

	var decoded struct{}
	assert.NoError(t, msg.Decode(&decoded))
}

func TestNewTargetedCarriesTarget(t *testing.T) {
	msg := NewTargeted(TypeOffer, "peer-b", Offer{
		Description: SessionDescription{Type: "offer", SDP: "v=0"},
	})
	assert.Equal(t, "peer-b", msg.Target)
	assert.Empty(t, msg.Sender)
}

func TestCandidatePayloadSurvivesRelayVerbatim(t *testing.T) {
	raw := json.RawMessage(`{"candidate":"candidate:1 1 udp 2130706431 203.0.113.7 54321 typ host","sdpMid":"0","sdpMLineIndex":0}`)
	msg := NewTargeted(TypeICECandidate, "peer-b", ICECandidate{Candidate: raw})

	wire, err := json.Marshal(msg)
	require.NoError(t, err)

	var back Message
	require.NoError(t, json.Unmarshal(wire, &back))
	var decoded ICECandidate
	require.NoError(t, back.Decode(&decoded))
	assert.JSONEq(t, string(raw), string(decoded.Candidate))
}

func TestSeatTableRoundTripsNullSlots(t *testing.T) {
	assigned := RoomAssigned{
		ID:     "a",
		RoomID: "desk-room",
		IsHost: true,
		Seats:  []*Seat{{ID: "a", Name: "mika", Connected: true, IsHost: true}, nil, nil, nil},
	}
	wire, err := json.Marshal(New(TypeRoomAssigned, assigned))
	require.NoError(t, err)

	var back Message
	require.NoError(t, json.Unmarshal(wire, &back))
	var decoded RoomAssigned
	require.NoError(t, back.Decode(&decoded))
	require.Len(t, decoded.Seats, 4)
	assert.NotNil(t, decoded.Seats[0])
	assert.Nil(t, decoded.Seats[1], "empty slots travel as null")
}
