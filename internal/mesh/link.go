package mesh

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"

	"github.com/videodesk-app/videodesk/internal/protocol"
)

// restartGrace is how long a started ICE restart suppresses further
// restart attempts on the same link. Repeated failure callbacks inside the
// window collapse into the one in-flight restart.
const restartGrace = 3 * time.Second

// PeerLink is the signaling state machine for one pair of participants.
// Exactly one side initiates: the one whose connection id sorts lower.
// Both sides compute this from the same two ids, so the election never
// disagrees and offer glare cannot happen.
//
// Confined to the session event loop; no locking.
type PeerLink struct {
	localID  string
	remoteID string

	transport Transport

	// pendingICE holds remote candidates that arrived before the remote
	// description. Applied FIFO the moment the description lands.
	pendingICE []json.RawMessage
	remoteSet  bool

	// restartedAt starts the re-entrancy grace window for ICE restarts.
	restartedAt time.Time
	grace       time.Duration
	now         func() time.Time

	state webrtc.PeerConnectionState
	log   *logrus.Entry
}

func newPeerLink(localID, remoteID string, transport Transport) *PeerLink {
	return &PeerLink{
		localID:   localID,
		remoteID:  remoteID,
		transport: transport,
		grace:     restartGrace,
		now:       time.Now,
		log:       logrus.WithFields(logrus.Fields{"component": "link", "peer": remoteID}),
	}
}

// Initiator reports whether the local side opens this link. The lower
// connection id always initiates.
func (l *PeerLink) Initiator() bool {
	return l.localID < l.remoteID
}

// RemoteID returns the peer's connection id.
func (l *PeerLink) RemoteID() string {
	return l.remoteID
}

// Offer creates the opening offer. Only the initiator calls this.
func (l *PeerLink) Offer() (protocol.SessionDescription, error) {
	return l.transport.CreateOffer(false)
}

// HandleOffer applies a remote offer and produces the answer. Buffered
// candidates drain as soon as the offer is applied. A renegotiation offer
// (after an ICE restart by the peer) flows through the same path.
func (l *PeerLink) HandleOffer(desc protocol.SessionDescription) (protocol.SessionDescription, error) {
	if err := l.transport.SetRemoteDescription(desc); err != nil {
		return protocol.SessionDescription{}, newLinkError("apply offer", l.remoteID, fmt.Errorf("%w: %v", ErrSignalingApply, err))
	}
	l.remoteSet = true
	l.flushPendingICE()
	answer, err := l.transport.CreateAnswer()
	if err != nil {
		return protocol.SessionDescription{}, newLinkError("create answer", l.remoteID, err)
	}
	return answer, nil
}

// HandleAnswer applies the remote answer and drains buffered candidates.
func (l *PeerLink) HandleAnswer(desc protocol.SessionDescription) error {
	if err := l.transport.SetRemoteDescription(desc); err != nil {
		return newLinkError("apply answer", l.remoteID, fmt.Errorf("%w: %v", ErrSignalingApply, err))
	}
	l.remoteSet = true
	l.flushPendingICE()
	return nil
}

// AddRemoteCandidate applies a trickled candidate, buffering it when the
// remote description has not arrived yet. Candidates are never reordered.
func (l *PeerLink) AddRemoteCandidate(candidate json.RawMessage) error {
	if !l.remoteSet {
		l.pendingICE = append(l.pendingICE, candidate)
		return nil
	}
	return l.transport.AddICECandidate(candidate)
}

func (l *PeerLink) flushPendingICE() {
	for _, candidate := range l.pendingICE {
		if err := l.transport.AddICECandidate(candidate); err != nil {
			l.log.WithError(err).Warn("buffered candidate rejected")
		}
	}
	l.pendingICE = nil
}

// RestartICE creates a restart offer with fresh ICE credentials. Within
// the grace window after a previous restart it is a no-op and reports
// false; the in-flight restart is left to finish.
func (l *PeerLink) RestartICE() (protocol.SessionDescription, bool, error) {
	if !l.restartedAt.IsZero() && l.now().Sub(l.restartedAt) < l.grace {
		return protocol.SessionDescription{}, false, nil
	}
	l.restartedAt = l.now()

	desc, err := l.transport.CreateOffer(true)
	if err != nil {
		return protocol.SessionDescription{}, false, newLinkError("ice restart", l.remoteID, fmt.Errorf("%w: %v", ErrLinkLost, err))
	}
	l.log.Info("ice restart initiated")
	return desc, true, nil
}

// State returns the last observed connection state.
func (l *PeerLink) State() webrtc.PeerConnectionState {
	return l.state
}

func (l *PeerLink) setState(s webrtc.PeerConnectionState) {
	l.state = s
}

// Close tears the link down. Safe to call more than once.
func (l *PeerLink) Close() {
	if err := l.transport.Close(); err != nil {
		l.log.WithError(err).Debug("transport close")
	}
	l.state = webrtc.PeerConnectionStateClosed
}
