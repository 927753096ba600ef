package mesh

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/videodesk-app/videodesk/internal/config"
	"github.com/videodesk-app/videodesk/internal/protocol"
)

// pionTransport adapts a pion PeerConnection to the Transport interface.
type pionTransport struct {
	pc *webrtc.PeerConnection
}

// NewPionFactory returns a TransportFactory backed by pion, configured
// with the STUN/TURN servers from cfg.
func NewPionFactory(cfg *config.Config) TransportFactory {
	iceServers := []webrtc.ICEServer{
		{URLs: cfg.GetSTUNServers()},
	}
	if turn := cfg.GetTURNServers(); len(turn) > 0 {
		user, pass := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turn,
			Username:   user,
			Credential: pass,
		})
	}

	return func(tracks []webrtc.TrackLocal) (Transport, error) {
		pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
			ICEServers: iceServers,
		})
		if err != nil {
			return nil, fmt.Errorf("create peer connection: %w", err)
		}
		for _, track := range tracks {
			if _, err := pc.AddTrack(track); err != nil {
				pc.Close()
				return nil, fmt.Errorf("attach local track: %w", err)
			}
		}
		return &pionTransport{pc: pc}, nil
	}
}

func (t *pionTransport) CreateOffer(iceRestart bool) (protocol.SessionDescription, error) {
	var opts *webrtc.OfferOptions
	if iceRestart {
		opts = &webrtc.OfferOptions{ICERestart: true}
	}
	offer, err := t.pc.CreateOffer(opts)
	if err != nil {
		return protocol.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return protocol.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return protocol.SessionDescription{Type: offer.Type.String(), SDP: offer.SDP}, nil
}

func (t *pionTransport) CreateAnswer() (protocol.SessionDescription, error) {
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return protocol.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return protocol.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return protocol.SessionDescription{Type: answer.Type.String(), SDP: answer.SDP}, nil
}

func (t *pionTransport) SetRemoteDescription(desc protocol.SessionDescription) error {
	if err := t.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(desc.Type),
		SDP:  desc.SDP,
	}); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (t *pionTransport) AddICECandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("decode ice candidate: %w", err)
	}
	if err := t.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}
	return nil
}

func (t *pionTransport) OnICECandidate(fn func(candidate json.RawMessage)) {
	t.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			fn(nil)
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		fn(raw)
	})
}

func (t *pionTransport) OnConnectionStateChange(fn func(state webrtc.PeerConnectionState)) {
	t.pc.OnConnectionStateChange(fn)
}

func (t *pionTransport) Close() error {
	return t.pc.Close()
}
