package protocol

import "encoding/json"

// Seat describes one occupied slot of a room's 4-slot seat table.
// Empty slots travel as JSON null so the slot positions survive the wire.
type Seat struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	Connected         bool   `json:"connected"`
	IsHost            bool   `json:"is_host"`
	TotalStudyMinutes int    `json:"total_study_minutes"`
}

// SessionDescription is the offer/answer blob exchanged between peers.
// The coordinator never looks inside it.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// JoinRoom asks the coordinator for a seat. Room is optional; an empty
// value lets the coordinator pick or create a room.
type JoinRoom struct {
	Room     string `json:"room,omitempty"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	StableID string `json:"stable_id,omitempty"`
}

// RoomAssigned is the join acknowledgement. ID is the joiner's own
// connection id; Seats always has exactly 4 entries.
type RoomAssigned struct {
	ID     string  `json:"id"`
	RoomID string  `json:"room_id"`
	IsHost bool    `json:"is_host"`
	Seats  []*Seat `json:"seats"`
}

// RoomState is a full seat-table resync.
type RoomState struct {
	Seats []*Seat `json:"seats"`
}

type UserJoined struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	TotalStudyMinutes int    `json:"total_study_minutes"`
}

type UserLeft struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type HostChanged struct {
	NewHostID   string `json:"new_host_id"`
	NewHostName string `json:"new_host_name"`
}

// RequestOfferTo hints that the receiver should (re)establish a peer link
// with NewID if it does not already hold one.
type RequestOfferTo struct {
	NewID string `json:"new_id"`
}

// Offer and Answer wrap a session description; candidates stay raw so the
// exact browser/pion encoding is preserved end to end.
type Offer struct {
	Description SessionDescription `json:"description"`
}

type Answer struct {
	Description SessionDescription `json:"description"`
}

type ICECandidate struct {
	Candidate json.RawMessage `json:"candidate"`
}

type HandRaise struct {
	Raised bool `json:"raised"`
}

type HandRaiseUpdate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Raised bool   `json:"raised"`
}

type HandState struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Raised bool   `json:"raised"`
}

// HandStates is the full snapshot a joiner receives so no already-raised
// hand is missed.
type HandStates struct {
	States []HandState `json:"states"`
}

type StartPrivateSession struct {
	TargetID string `json:"target_id"`
}

type RedirectToPrivate struct {
	SessionID  string `json:"session_id"`
	MainRoomID string `json:"main_room_id"`
}

type JoinPrivateRoom struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

type PrivateParticipant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type PrivateParticipants struct {
	Participants []PrivateParticipant `json:"participants"`
}

type RedirectToMainRoom struct {
	MainRoomID string `json:"main_room_id"`
}

// PrivateChat is both directions of text chat: clients send only Text, the
// coordinator attaches SenderID and Name on the way out.
type PrivateChat struct {
	SenderID string `json:"sender_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Text     string `json:"text"`
}

type PrivateChatImage struct {
	SenderID string `json:"sender_id,omitempty"`
	Name     string `json:"name,omitempty"`
	DataURL  string `json:"data_url"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
