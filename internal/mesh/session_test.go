package mesh

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videodesk-app/videodesk/internal/media"
	"github.com/videodesk-app/videodesk/internal/protocol"
)

type fakeSignaler struct {
	sent     []*protocol.Message
	incoming chan *protocol.Message
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{incoming: make(chan *protocol.Message, 16)}
}

func (f *fakeSignaler) SendMessage(msg *protocol.Message) { f.sent = append(f.sent, msg) }
func (f *fakeSignaler) Incoming() <-chan *protocol.Message { return f.incoming }
func (f *fakeSignaler) Close()                             {}

func (f *fakeSignaler) ofType(msgType string) []*protocol.Message {
	var out []*protocol.Message
	for _, msg := range f.sent {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fakeSignaler) reset() { f.sent = nil }

type fakeFactory struct {
	transports []*fakeTransport
}

func (f *fakeFactory) new(_ []webrtc.TrackLocal) (Transport, error) {
	ft := &fakeTransport{}
	f.transports = append(f.transports, ft)
	return ft, nil
}

// newTestSession builds a session whose handlers are invoked directly;
// the Run loop is not started.
func newTestSession(t *testing.T) (*Session, *fakeSignaler, *fakeFactory) {
	t.Helper()
	sig := newFakeSignaler()
	factory := &fakeFactory{}
	sess := NewSession(sig, factory.new, media.StaticSource{}, "mika", protocol.RoleStudent, "stable-1")
	require.NoError(t, sess.Join(""))
	sig.reset() // drop the join_room
	return sess, sig, factory
}

func seatFor(id string) *protocol.Seat {
	return &protocol.Seat{ID: id, Name: "user-" + id, Connected: true}
}

func assign(sess *Session, selfID string, peerIDs ...string) {
	seats := make([]*protocol.Seat, 4)
	seats[0] = seatFor(selfID)
	for i, id := range peerIDs {
		seats[i+1] = seatFor(id)
	}
	sess.handleRoomAssigned(protocol.RoomAssigned{
		ID:     selfID,
		RoomID: "desk-room",
		IsHost: true,
		Seats:  seats,
	})
}

func TestRoomAssignedOffersOnlyWhereInitiator(t *testing.T) {
	sess, sig, _ := newTestSession(t)

	// Self "b": initiates toward "c" (greater id) but waits for "a".
	assign(sess, "b", "a", "c")

	require.Contains(t, sess.links, "a")
	require.Contains(t, sess.links, "c")

	offers := sig.ofType(protocol.TypeOffer)
	require.Len(t, offers, 1, "exactly one side of each pair offers")
	assert.Equal(t, "c", offers[0].Target)
}

func TestIncomingOfferProducesTargetedAnswer(t *testing.T) {
	sess, sig, factory := newTestSession(t)
	assign(sess, "b")
	sig.reset()

	sess.handleMessage(&protocol.Message{
		Type:    protocol.TypeOffer,
		Sender:  "a",
		Payload: protocol.New(protocol.TypeOffer, protocol.Offer{Description: protocol.SessionDescription{Type: "offer", SDP: "sdp"}}).Payload,
	})

	answers := sig.ofType(protocol.TypeAnswer)
	require.Len(t, answers, 1)
	assert.Equal(t, "a", answers[0].Target)
	require.Len(t, factory.transports, 1)
	assert.Equal(t, 1, factory.transports[0].answers)
}

func TestUserLeftClosesLink(t *testing.T) {
	sess, _, factory := newTestSession(t)
	assign(sess, "a", "b")
	require.Contains(t, sess.links, "b")

	sess.handleMessage(protocol.New(protocol.TypeUserLeft, protocol.UserLeft{ID: "b", Name: "user-b"}))

	assert.NotContains(t, sess.links, "b")
	assert.True(t, factory.transports[0].closed)
}

func TestFailedLinkRestartsOnlyWhenInitiator(t *testing.T) {
	sess, sig, factory := newTestSession(t)
	assign(sess, "a", "b", "c")
	sig.reset()

	// "a" initiates toward "b": failure triggers a restart offer.
	sess.handleLinkState(linkEvent{peerID: "b", state: webrtc.PeerConnectionStateFailed})
	offers := sig.ofType(protocol.TypeOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, "b", offers[0].Target)
	ftB := factory.transports[0]
	require.NotEmpty(t, ftB.offerRestarts)
	assert.True(t, ftB.offerRestarts[len(ftB.offerRestarts)-1], "failure recovery uses an ICE restart")

	// Re-entrant failure inside the grace window stays quiet.
	sig.reset()
	sess.handleLinkState(linkEvent{peerID: "b", state: webrtc.PeerConnectionStateFailed})
	assert.Empty(t, sig.ofType(protocol.TypeOffer))
}

func TestFailedLinkAsAnswererWaitsForPeer(t *testing.T) {
	sess, sig, _ := newTestSession(t)
	assign(sess, "c", "a")
	sig.reset()

	sess.handleLinkState(linkEvent{peerID: "a", state: webrtc.PeerConnectionStateFailed})
	assert.Empty(t, sig.ofType(protocol.TypeOffer), "the lower id restarts, not us")
}

func TestRepairHintRebuildsDeadLink(t *testing.T) {
	sess, sig, factory := newTestSession(t)
	assign(sess, "c", "a")
	sess.handleLinkState(linkEvent{peerID: "a", state: webrtc.PeerConnectionStateFailed})
	sig.reset()

	// The link is dead: the hint forces a fresh offer even though "c"
	// would not normally initiate toward "a".
	sess.handleMessage(protocol.New(protocol.TypeRequestOfferTo, protocol.RequestOfferTo{NewID: "a"}))

	offers := sig.ofType(protocol.TypeOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, "a", offers[0].Target)
	assert.True(t, factory.transports[0].closed, "stale transport torn down")
	require.Len(t, factory.transports, 2)
}

func TestRepairHintLeavesHealthyLinkAlone(t *testing.T) {
	sess, sig, _ := newTestSession(t)
	assign(sess, "c", "a")
	sess.handleLinkState(linkEvent{peerID: "a", state: webrtc.PeerConnectionStateConnected})
	sig.reset()

	sess.handleMessage(protocol.New(protocol.TypeRequestOfferTo, protocol.RequestOfferTo{NewID: "a"}))
	assert.Empty(t, sig.ofType(protocol.TypeOffer))
}

func TestRepairHintLeavesNegotiatingLinkAlone(t *testing.T) {
	sess, sig, factory := newTestSession(t)
	assign(sess, "c", "a")
	sig.reset()

	// The link toward "a" is still mid-handshake; a hint must not tear
	// it down and restart the exchange.
	sess.handleMessage(protocol.New(protocol.TypeRequestOfferTo, protocol.RequestOfferTo{NewID: "a"}))

	assert.Empty(t, sig.ofType(protocol.TypeOffer))
	require.Len(t, factory.transports, 1)
	assert.False(t, factory.transports[0].closed)
}

func TestPrivateRedirectTearsDownAndJoinsSession(t *testing.T) {
	sess, sig, factory := newTestSession(t)
	assign(sess, "a", "b")
	sig.reset()

	sess.handleMessage(protocol.New(protocol.TypeRedirectToPrivate, protocol.RedirectToPrivate{
		SessionID:  "private_ab12",
		MainRoomID: "desk-room",
	}))

	assert.Empty(t, sess.links, "main-room links torn down")
	assert.True(t, factory.transports[0].closed)

	joins := sig.ofType(protocol.TypeJoinPrivateRoom)
	require.Len(t, joins, 1)
	var join protocol.JoinPrivateRoom
	require.NoError(t, joins[0].Decode(&join))
	assert.Equal(t, "private_ab12", join.SessionID)
	require.Len(t, sig.ofType(protocol.TypePrivateMediaReady), 1)
}

func TestPrivateParticipantsOpenLinksPerElection(t *testing.T) {
	sess, sig, _ := newTestSession(t)
	assign(sess, "b", "c")
	sess.handleMessage(protocol.New(protocol.TypeRedirectToPrivate, protocol.RedirectToPrivate{
		SessionID:  "private_ab12",
		MainRoomID: "desk-room",
	}))
	sig.reset()

	sess.handleMessage(protocol.New(protocol.TypePrivateParticipants, protocol.PrivateParticipants{
		Participants: []protocol.PrivateParticipant{{ID: "c", Name: "user-c"}},
	}))

	offers := sig.ofType(protocol.TypeOffer)
	require.Len(t, offers, 1, "b initiates toward c")
	assert.Equal(t, "c", offers[0].Target)
}

func TestRedirectToMainRoomReseats(t *testing.T) {
	sess, sig, _ := newTestSession(t)
	assign(sess, "b", "c")
	sess.handleMessage(protocol.New(protocol.TypeRedirectToPrivate, protocol.RedirectToPrivate{
		SessionID:  "private_ab12",
		MainRoomID: "desk-room",
	}))
	sig.reset()

	sess.handleMessage(protocol.New(protocol.TypeRedirectToMainRoom, protocol.RedirectToMainRoom{MainRoomID: "desk-room"}))

	joins := sig.ofType(protocol.TypeJoinRoom)
	require.Len(t, joins, 1)
	var join protocol.JoinRoom
	require.NoError(t, joins[0].Decode(&join))
	assert.Equal(t, "desk-room", join.Room)
	assert.Equal(t, "stable-1", join.StableID)
	assert.False(t, sess.private.active)
}

func TestOwnChatEchoIsSuppressed(t *testing.T) {
	sess, _, _ := newTestSession(t)
	assign(sess, "a", "b")
	drainEvents(sess)

	sess.handleMessage(protocol.New(protocol.TypePrivateChat, protocol.PrivateChat{SenderID: "a", Name: "mika", Text: "hi"}))
	assert.Empty(t, pendingEvents(sess), "own echo must not re-render")

	sess.handleMessage(protocol.New(protocol.TypePrivateChat, protocol.PrivateChat{SenderID: "b", Name: "user-b", Text: "hey"}))
	events := pendingEvents(sess)
	require.Len(t, events, 1)
	chat, ok := events[0].(ChatReceived)
	require.True(t, ok)
	assert.Equal(t, "hey", chat.Text)
}

func TestHandStatesSnapshotUpdatesRoster(t *testing.T) {
	sess, _, _ := newTestSession(t)
	assign(sess, "a", "b")
	drainEvents(sess)

	sess.handleMessage(protocol.New(protocol.TypeHandStates, protocol.HandStates{
		States: []protocol.HandState{
			{ID: "a", Name: "mika", Raised: false},
			{ID: "b", Name: "user-b", Raised: true},
		},
	}))

	events := pendingEvents(sess)
	require.Len(t, events, 1)
	roster, ok := events[0].(RosterUpdated)
	require.True(t, ok)
	require.Len(t, roster.Roster, 2)
	assert.True(t, sess.hands.Raised("b"))
	assert.False(t, sess.hands.SelfRaised())
}

func drainEvents(sess *Session) { pendingEvents(sess) }

func pendingEvents(sess *Session) []Event {
	var out []Event
	for {
		select {
		case ev := <-sess.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}
