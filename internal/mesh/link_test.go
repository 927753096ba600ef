package mesh

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videodesk-app/videodesk/internal/protocol"
)

// fakeTransport records every call so tests can assert on ordering.
type fakeTransport struct {
	offerRestarts []bool
	answers       int
	remoteDescs   []protocol.SessionDescription
	candidates    []json.RawMessage
	onICE         func(json.RawMessage)
	onState       func(webrtc.PeerConnectionState)
	closed        bool
	failSetRemote bool
}

func (f *fakeTransport) CreateOffer(iceRestart bool) (protocol.SessionDescription, error) {
	f.offerRestarts = append(f.offerRestarts, iceRestart)
	return protocol.SessionDescription{Type: "offer", SDP: "sdp-offer"}, nil
}

func (f *fakeTransport) CreateAnswer() (protocol.SessionDescription, error) {
	f.answers++
	return protocol.SessionDescription{Type: "answer", SDP: "sdp-answer"}, nil
}

func (f *fakeTransport) SetRemoteDescription(desc protocol.SessionDescription) error {
	if f.failSetRemote {
		return errors.New("bad description")
	}
	f.remoteDescs = append(f.remoteDescs, desc)
	return nil
}

func (f *fakeTransport) AddICECandidate(candidate json.RawMessage) error {
	f.candidates = append(f.candidates, candidate)
	return nil
}

func (f *fakeTransport) OnICECandidate(fn func(json.RawMessage)) { f.onICE = fn }

func (f *fakeTransport) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	f.onState = fn
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestInitiatorIsLowerConnectionID(t *testing.T) {
	assert.True(t, newPeerLink("a", "b", &fakeTransport{}).Initiator())
	assert.False(t, newPeerLink("b", "a", &fakeTransport{}).Initiator())
}

func TestCandidatesBufferUntilRemoteDescription(t *testing.T) {
	ft := &fakeTransport{}
	link := newPeerLink("a", "b", ft)

	first := json.RawMessage(`{"candidate":"one"}`)
	second := json.RawMessage(`{"candidate":"two"}`)
	require.NoError(t, link.AddRemoteCandidate(first))
	require.NoError(t, link.AddRemoteCandidate(second))
	assert.Empty(t, ft.candidates, "candidates must wait for the remote description")

	require.NoError(t, link.HandleAnswer(protocol.SessionDescription{Type: "answer", SDP: "sdp"}))

	require.Len(t, ft.candidates, 2)
	assert.Equal(t, first, ft.candidates[0], "buffered candidates flush in arrival order")
	assert.Equal(t, second, ft.candidates[1])

	// Later candidates apply immediately.
	third := json.RawMessage(`{"candidate":"three"}`)
	require.NoError(t, link.AddRemoteCandidate(third))
	require.Len(t, ft.candidates, 3)
}

func TestHandleOfferAppliesDescriptionThenAnswers(t *testing.T) {
	ft := &fakeTransport{}
	link := newPeerLink("b", "a", ft)

	require.NoError(t, link.AddRemoteCandidate(json.RawMessage(`{"candidate":"early"}`)))

	answer, err := link.HandleOffer(protocol.SessionDescription{Type: "offer", SDP: "sdp"})
	require.NoError(t, err)
	assert.Equal(t, "answer", answer.Type)
	assert.Equal(t, 1, ft.answers)
	assert.Len(t, ft.candidates, 1, "buffered candidate flushed before answering")
}

func TestHandleOfferRejectsBadDescription(t *testing.T) {
	ft := &fakeTransport{failSetRemote: true}
	link := newPeerLink("b", "a", ft)

	_, err := link.HandleOffer(protocol.SessionDescription{Type: "offer", SDP: "sdp"})
	assert.Error(t, err)
	assert.Zero(t, ft.answers)
}

func TestRestartSuppressedWithinGraceWindow(t *testing.T) {
	ft := &fakeTransport{}
	link := newPeerLink("a", "b", ft)

	now := time.Unix(1000, 0)
	link.now = func() time.Time { return now }

	_, ok, err := link.RestartICE()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, ft.offerRestarts, 1)
	assert.True(t, ft.offerRestarts[0], "restart offer must request fresh ICE")

	// A second failure inside the window collapses into the first restart.
	now = now.Add(link.grace / 2)
	_, ok, err = link.RestartICE()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, ft.offerRestarts, 1)

	// Past the window a new restart goes out.
	now = now.Add(link.grace)
	_, ok, err = link.RestartICE()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, ft.offerRestarts, 2)
}

func TestCloseIsIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	link := newPeerLink("a", "b", ft)

	link.Close()
	link.Close()
	assert.True(t, ft.closed)
	assert.Equal(t, webrtc.PeerConnectionStateClosed, link.State())
}
