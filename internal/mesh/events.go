package mesh

import (
	"github.com/pion/webrtc/v4"

	"github.com/videodesk-app/videodesk/internal/presence"
	"github.com/videodesk-app/videodesk/internal/protocol"
)

// Event is anything the session reports to its UI. Consumers type-switch
// on the concrete types below.
type Event any

// RoomJoined confirms a seat. Seats always has exactly 4 entries; empty
// slots are nil.
type RoomJoined struct {
	RoomID string
	SelfID string
	IsHost bool
	Seats  []*protocol.Seat
}

// SeatsUpdated is a full seat-table resync.
type SeatsUpdated struct {
	Seats []*protocol.Seat
}

type ParticipantJoined struct {
	ID                string
	Name              string
	Role              string
	TotalStudyMinutes int
}

type ParticipantLeft struct {
	ID   string
	Name string
}

type HostChanged struct {
	ID   string
	Name string
}

// PeerStateChanged reports a peer link's connection state transition.
type PeerStateChanged struct {
	PeerID string
	State  webrtc.PeerConnectionState
}

// RosterUpdated carries the full hand-raise roster after any change.
type RosterUpdated struct {
	Roster []presence.Entry
}

type PrivateStarted struct {
	SessionID string
}

type PrivateEnded struct {
	MainRoomID string
}

// ChatReceived is a private-session message from the other member. Either
// Text or DataURL is set.
type ChatReceived struct {
	SenderID string
	Name     string
	Text     string
	DataURL  string
}

// CoordinatorError is an error message from the coordinator, or a local
// failure worth surfacing the same way.
type CoordinatorError struct {
	Text string
}

// Disconnected means the coordinator connection dropped; the session loop
// has exited.
type Disconnected struct{}
