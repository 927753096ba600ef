package mesh

import (
	"context"
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"

	"github.com/videodesk-app/videodesk/internal/media"
	"github.com/videodesk-app/videodesk/internal/presence"
	"github.com/videodesk-app/videodesk/internal/protocol"
)

// Signaler is the coordinator connection as the session sees it.
// *signaling.Client satisfies it; tests use an in-memory fake.
type Signaler interface {
	SendMessage(msg *protocol.Message)
	Incoming() <-chan *protocol.Message
	Close()
}

// Session drives the local participant's side of a room: it owns one
// PeerLink per co-located participant, mirrors presence, and handles the
// private-session detour. A single goroutine (Run) owns all of it; the
// transport callbacks and the public methods funnel into that loop over
// channels.
type Session struct {
	signaler Signaler
	factory  TransportFactory
	source   media.Source

	name     string
	role     string
	stableID string

	selfID string
	roomID string
	hostID string

	links map[string]*PeerLink
	hands *presence.Tracker

	stream  *media.Stream
	private privateState

	commands   chan func()
	linkEvents chan linkEvent
	events     chan Event

	log *logrus.Entry
}

type linkEvent struct {
	peerID string
	state  webrtc.PeerConnectionState
}

// NewSession wires a session around an established signaler.
func NewSession(signaler Signaler, factory TransportFactory, source media.Source, name, role, stableID string) *Session {
	return &Session{
		signaler:   signaler,
		factory:    factory,
		source:     source,
		name:       name,
		role:       role,
		stableID:   stableID,
		links:      make(map[string]*PeerLink),
		commands:   make(chan func(), 16),
		linkEvents: make(chan linkEvent, 32),
		events:     make(chan Event, 32),
		log:        logrus.WithField("component", "session"),
	}
}

// Events returns the stream of session events for the UI.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Join requests a seat. An empty room lets the coordinator pick one.
func (s *Session) Join(room string) error {
	stream, err := s.source.Acquire(media.Constraints{Video: true, Audio: true, Processed: true})
	if err != nil {
		return err
	}
	s.stream = stream

	s.signaler.SendMessage(protocol.New(protocol.TypeJoinRoom, protocol.JoinRoom{
		Room:     room,
		Name:     s.name,
		Role:     s.role,
		StableID: s.stableID,
	}))
	return nil
}

// Run is the session event loop. It returns when ctx is cancelled or the
// coordinator connection drops.
func (s *Session) Run(ctx context.Context) {
	defer s.teardown()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-s.signaler.Incoming():
			if !ok {
				s.emit(Disconnected{})
				return
			}
			s.handleMessage(msg)

		case ev := <-s.linkEvents:
			s.handleLinkState(ev)

		case fn := <-s.commands:
			fn()
		}
	}
}

func (s *Session) teardown() {
	s.closeAllLinks()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	s.signaler.Close()
	close(s.events)
}

// do posts a closure into the event loop.
func (s *Session) do(fn func()) {
	s.commands <- fn
}

// ToggleHand flips the local hand optimistically and announces the new
// state; the coordinator's broadcast is authoritative if they race.
func (s *Session) ToggleHand() {
	s.do(func() {
		if s.hands == nil {
			return
		}
		raised := s.hands.Toggle()
		s.signaler.SendMessage(protocol.New(protocol.TypeHandRaise, protocol.HandRaise{Raised: raised}))
		s.emit(RosterUpdated{Roster: s.hands.Roster()})
	})
}

// StartPrivate asks the coordinator to pull target into a private session.
// Only honored server-side when the local participant holds the host seat.
func (s *Session) StartPrivate(targetID string) {
	s.do(func() {
		s.signaler.SendMessage(protocol.New(protocol.TypeStartPrivateSession, protocol.StartPrivateSession{TargetID: targetID}))
	})
}

// EndPrivate ends the current private session for both members.
func (s *Session) EndPrivate() {
	s.do(func() {
		if s.private.active {
			s.signaler.SendMessage(protocol.New(protocol.TypeEndPrivateSession, nil))
		}
	})
}

// SendChat sends a private-session text message.
func (s *Session) SendChat(text string) {
	s.do(func() {
		if s.private.active {
			s.signaler.SendMessage(protocol.New(protocol.TypePrivateChat, protocol.PrivateChat{Text: text}))
		}
	})
}

// SendChatImage sends a private-session image as a data URL.
func (s *Session) SendChatImage(dataURL string) {
	s.do(func() {
		if s.private.active {
			s.signaler.SendMessage(protocol.New(protocol.TypePrivateChatImage, protocol.PrivateChatImage{DataURL: dataURL}))
		}
	})
}

// Resync asks the coordinator for a fresh seat table and hand snapshot,
// and hints the other occupants to repair any missing link toward us.
func (s *Session) Resync() {
	s.do(func() {
		s.signaler.SendMessage(protocol.New(protocol.TypeRequestRoomState, nil))
	})
}

// ----- inbound dispatch -----

func (s *Session) handleMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeRoomAssigned:
		var p protocol.RoomAssigned
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.handleRoomAssigned(p)

	case protocol.TypeRoomState:
		var p protocol.RoomState
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.emit(SeatsUpdated{Seats: p.Seats})

	case protocol.TypeUserJoined:
		var p protocol.UserJoined
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.handleUserJoined(p)

	case protocol.TypeUserLeft:
		var p protocol.UserLeft
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.closeLink(p.ID)
		if s.hands != nil {
			s.hands.Forget(p.ID)
		}
		s.emit(ParticipantLeft{ID: p.ID, Name: p.Name})

	case protocol.TypeHostChanged:
		var p protocol.HostChanged
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.hostID = p.NewHostID
		s.emit(HostChanged{ID: p.NewHostID, Name: p.NewHostName})

	case protocol.TypeRequestOfferTo:
		var p protocol.RequestOfferTo
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.repairLink(p.NewID)

	case protocol.TypeOffer:
		var p protocol.Offer
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.handleOffer(msg.Sender, p.Description)

	case protocol.TypeAnswer:
		var p protocol.Answer
		if err := msg.Decode(&p); err != nil {
			return
		}
		if link, ok := s.links[msg.Sender]; ok {
			if err := link.HandleAnswer(p.Description); err != nil {
				s.log.WithError(err).WithField("peer", msg.Sender).Warn("answer rejected")
			}
		}

	case protocol.TypeICECandidate:
		var p protocol.ICECandidate
		if err := msg.Decode(&p); err != nil {
			return
		}
		if link, ok := s.links[msg.Sender]; ok {
			if err := link.AddRemoteCandidate(p.Candidate); err != nil {
				s.log.WithError(err).WithField("peer", msg.Sender).Debug("candidate rejected")
			}
		}

	case protocol.TypeHandRaiseUpdate:
		var p protocol.HandRaiseUpdate
		if err := msg.Decode(&p); err != nil {
			return
		}
		if s.hands != nil {
			s.hands.Apply(p.ID, p.Name, p.Raised)
			s.emit(RosterUpdated{Roster: s.hands.Roster()})
		}

	case protocol.TypeHandStates:
		var p protocol.HandStates
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.applyHandStates(p)

	case protocol.TypeRedirectToPrivate:
		var p protocol.RedirectToPrivate
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.enterPrivate(p.SessionID, p.MainRoomID)

	case protocol.TypePrivateParticipants:
		var p protocol.PrivateParticipants
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.handlePrivateParticipants(p.Participants)

	case protocol.TypeRedirectToMainRoom:
		var p protocol.RedirectToMainRoom
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.exitPrivate(p.MainRoomID)

	case protocol.TypePrivateChat:
		var p protocol.PrivateChat
		if err := msg.Decode(&p); err != nil {
			return
		}
		// The coordinator echoes our own messages back; skip them.
		if p.SenderID != s.selfID {
			s.emit(ChatReceived{SenderID: p.SenderID, Name: p.Name, Text: p.Text})
		}

	case protocol.TypePrivateChatImage:
		var p protocol.PrivateChatImage
		if err := msg.Decode(&p); err != nil {
			return
		}
		if p.SenderID != s.selfID {
			s.emit(ChatReceived{SenderID: p.SenderID, Name: p.Name, DataURL: p.DataURL})
		}

	case protocol.TypeError:
		var p protocol.ErrorPayload
		if err := msg.Decode(&p); err != nil {
			return
		}
		s.emit(CoordinatorError{Text: p.Error})

	default:
		s.log.WithField("type", msg.Type).Debug("unhandled message")
	}
}

func (s *Session) handleRoomAssigned(p protocol.RoomAssigned) {
	s.selfID = p.ID
	s.roomID = p.RoomID
	s.hands = presence.NewTracker(p.ID)
	if p.IsHost {
		s.hostID = p.ID
	}

	// Open a link toward every seated peer we should initiate with; the
	// rest will offer to us when they see our user_joined.
	for _, seat := range p.Seats {
		if seat == nil || seat.ID == s.selfID || !seat.Connected {
			continue
		}
		link, err := s.ensureLink(seat.ID)
		if err != nil {
			continue
		}
		if link.Initiator() {
			s.sendOffer(link, false)
		}
	}

	s.emit(RoomJoined{RoomID: p.RoomID, SelfID: p.ID, IsHost: p.IsHost, Seats: p.Seats})
}

func (s *Session) handleUserJoined(p protocol.UserJoined) {
	link, err := s.ensureLink(p.ID)
	if err == nil && link.Initiator() {
		s.sendOffer(link, false)
	}
	s.emit(ParticipantJoined{ID: p.ID, Name: p.Name, Role: p.Role, TotalStudyMinutes: p.TotalStudyMinutes})
}

func (s *Session) handleOffer(sender string, desc protocol.SessionDescription) {
	link, err := s.ensureLink(sender)
	if err != nil {
		return
	}
	answer, err := link.HandleOffer(desc)
	if err != nil {
		s.log.WithError(err).WithField("peer", sender).Warn("offer rejected")
		return
	}
	s.signaler.SendMessage(protocol.NewTargeted(protocol.TypeAnswer, sender, protocol.Answer{Description: answer}))
}

func (s *Session) applyHandStates(p protocol.HandStates) {
	if s.hands == nil {
		return
	}
	entries := make([]presence.Entry, 0, len(p.States))
	for _, st := range p.States {
		entries = append(entries, presence.Entry{ID: st.ID, Name: st.Name, Raised: st.Raised})
	}
	s.hands.ApplySnapshot(entries)
	s.emit(RosterUpdated{Roster: s.hands.Roster()})
}

// ----- links -----

func (s *Session) ensureLink(remoteID string) (*PeerLink, error) {
	if link, ok := s.links[remoteID]; ok {
		return link, nil
	}

	var tracks []webrtc.TrackLocal
	if s.stream != nil {
		tracks = s.stream.Tracks()
	}
	transport, err := s.factory(tracks)
	if err != nil {
		s.log.WithError(err).WithField("peer", remoteID).Error("transport setup failed")
		return nil, err
	}

	link := newPeerLink(s.selfID, remoteID, transport)
	s.links[remoteID] = link

	transport.OnICECandidate(func(candidate json.RawMessage) {
		if candidate == nil {
			return
		}
		s.signaler.SendMessage(protocol.NewTargeted(protocol.TypeICECandidate, remoteID, protocol.ICECandidate{Candidate: candidate}))
	})
	transport.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.linkEvents <- linkEvent{peerID: remoteID, state: state}
	})

	return link, nil
}

func (s *Session) sendOffer(link *PeerLink, restart bool) {
	var (
		desc protocol.SessionDescription
		err  error
	)
	if restart {
		var ok bool
		desc, ok, err = link.RestartICE()
		if !ok && err == nil {
			return
		}
	} else {
		desc, err = link.Offer()
	}
	if err != nil {
		s.log.WithError(err).WithField("peer", link.RemoteID()).Warn("offer failed")
		return
	}
	s.signaler.SendMessage(protocol.NewTargeted(protocol.TypeOffer, link.RemoteID(), protocol.Offer{Description: desc}))
}

// repairLink answers a request_offer_to hint: a peer resynced and wants a
// link toward it. A link that is connected or still negotiating is left
// alone; a dead one is rebuilt with a fresh offer, regardless of who
// would normally initiate.
func (s *Session) repairLink(peerID string) {
	if peerID == s.selfID {
		return
	}
	if link, ok := s.links[peerID]; ok {
		switch link.State() {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateDisconnected,
			webrtc.PeerConnectionStateClosed:
			s.closeLink(peerID)
		default:
			return
		}
	}
	link, err := s.ensureLink(peerID)
	if err != nil {
		return
	}
	s.sendOffer(link, false)
}

func (s *Session) handleLinkState(ev linkEvent) {
	link, ok := s.links[ev.peerID]
	if !ok {
		return
	}
	link.setState(ev.state)
	s.emit(PeerStateChanged{PeerID: ev.peerID, State: ev.state})

	// Only the initiator restarts; the other side answers the restart
	// offer when it arrives. Disconnected often self-heals, but a restart
	// inside the grace window is harmless either way.
	lost := ev.state == webrtc.PeerConnectionStateFailed ||
		ev.state == webrtc.PeerConnectionStateDisconnected
	if lost && link.Initiator() {
		s.sendOffer(link, true)
	}
}

func (s *Session) closeLink(remoteID string) {
	if link, ok := s.links[remoteID]; ok {
		link.Close()
		delete(s.links, remoteID)
	}
}

func (s *Session) closeAllLinks() {
	for id, link := range s.links {
		link.Close()
		delete(s.links, id)
	}
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("event buffer full, dropping event")
	}
}
