package protocol

import "encoding/json"

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
//
// Offer, answer and ice_candidate messages carry Target on the way in;
// the coordinator overwrites Sender with the true connection id and relays
// the payload verbatim to the target.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Target  string          `json:"target,omitempty"`
	Sender  string          `json:"sender,omitempty"`
}

// Message type constants.
const (
	// Client to server.
	TypeJoinRoom            = "join_room"
	TypeRequestRoomState    = "request_room_state"
	TypeHandRaise           = "hand_raise"
	TypeOffer               = "offer"
	TypeAnswer              = "answer"
	TypeICECandidate        = "ice_candidate"
	TypeStartPrivateSession = "start_private_session"
	TypeJoinPrivateRoom     = "join_private_room"
	TypePrivateMediaReady   = "private_media_ready"
	TypeEndPrivateSession   = "end_private_session"
	TypePrivateChat         = "private_chat"
	TypePrivateChatImage    = "private_chat_image"

	// Server to client.
	TypeRoomAssigned        = "room_assigned"
	TypeRoomState           = "room_state"
	TypeUserJoined          = "user_joined"
	TypeUserLeft            = "user_left"
	TypeHostChanged         = "host_changed"
	TypeRequestOfferTo      = "request_offer_to"
	TypeHandRaiseUpdate     = "hand_raise_update"
	TypeHandStates          = "hand_states"
	TypeRedirectToPrivate   = "redirect_to_private"
	TypePrivateParticipants = "private_participants"
	TypeRedirectToMainRoom  = "redirect_to_main_room"
	TypeError               = "error"
)

// Roles understood by the coordinator. A "host" role marks an elevated
// client (sees the roster, may start private sessions when it holds the
// room's host seat); everyone else is a student.
const (
	RoleHost    = "host"
	RoleStudent = "student"
)

// New builds a Message of the given type with the payload marshalled in.
// It panics on a marshal failure, which can only happen for payload types
// that are not JSON-encodable; every payload in this package is.
func New(msgType string, payload any) *Message {
	m := &Message{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			panic("protocol: unencodable payload: " + err.Error())
		}
		m.Payload = raw
	}
	return m
}

// NewTargeted builds a relay message (offer/answer/ice_candidate) aimed at
// a specific connection id.
func NewTargeted(msgType, target string, payload any) *Message {
	m := New(msgType, payload)
	m.Target = target
	return m
}

// Decode unmarshals the message payload into v. A nil payload decodes into
// the zero value.
func (m *Message) Decode(v any) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
