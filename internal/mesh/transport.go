package mesh

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/videodesk-app/videodesk/internal/protocol"
)

// Transport is the slice of a peer connection the link state machine
// needs. Production uses the pion adapter; tests use a scripted fake.
type Transport interface {
	// CreateOffer produces and locally applies an offer. iceRestart asks
	// for fresh ICE credentials on an established connection.
	CreateOffer(iceRestart bool) (protocol.SessionDescription, error)

	// CreateAnswer produces and locally applies an answer to the current
	// remote offer.
	CreateAnswer() (protocol.SessionDescription, error)

	SetRemoteDescription(desc protocol.SessionDescription) error

	// AddICECandidate applies a remote candidate in its original wire
	// encoding.
	AddICECandidate(candidate json.RawMessage) error

	// OnICECandidate registers the local trickle callback. The callback
	// fires with nil at end of gathering.
	OnICECandidate(fn func(candidate json.RawMessage))

	// OnConnectionStateChange registers the state callback.
	OnConnectionStateChange(fn func(state webrtc.PeerConnectionState))

	Close() error
}

// TransportFactory builds one Transport per peer link, with the local
// tracks already attached.
type TransportFactory func(tracks []webrtc.TrackLocal) (Transport, error)
