package mesh

import (
	"errors"

	"github.com/videodesk-app/videodesk/internal/media"
	"github.com/videodesk-app/videodesk/internal/protocol"
)

// privateState tracks the client's side of a private-session detour.
// Participant lists that arrive before local media is ready are buffered
// and replayed once it is; offers created without tracks would negotiate
// an empty session.
type privateState struct {
	active     bool
	sessionID  string
	mainRoomID string
	mediaReady bool
	pending    []protocol.PrivateParticipant
}

// enterPrivate handles redirect_to_private: tear down every main-room
// link, swap the published mosaic for a fresh raw capture and join the
// private namespace. A media failure aborts the session for both sides
// and sends us straight back to the main room.
func (s *Session) enterPrivate(sessionID, mainRoomID string) {
	s.closeAllLinks()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}

	s.private = privateState{
		active:     true,
		sessionID:  sessionID,
		mainRoomID: mainRoomID,
	}

	stream, err := s.source.Acquire(media.Constraints{Video: true, Audio: true})
	if err != nil {
		var devErr *media.DeviceError
		if errors.As(err, &devErr) {
			s.log.WithError(devErr).Error("private session media failed")
		} else {
			s.log.WithError(err).Error("private session media failed")
		}
		s.emit(CoordinatorError{Text: "could not start private session media"})

		// Abort: end the session so the other side is not stranded, then
		// re-seat in the main room.
		s.private = privateState{}
		s.signaler.SendMessage(protocol.New(protocol.TypeJoinPrivateRoom, protocol.JoinPrivateRoom{
			SessionID: sessionID, Name: s.name, Role: s.role,
		}))
		s.signaler.SendMessage(protocol.New(protocol.TypeEndPrivateSession, nil))
		return
	}
	s.stream = stream

	s.signaler.SendMessage(protocol.New(protocol.TypeJoinPrivateRoom, protocol.JoinPrivateRoom{
		SessionID: sessionID,
		Name:      s.name,
		Role:      s.role,
	}))
	s.markPrivateMediaReady()

	s.emit(PrivateStarted{SessionID: sessionID})
}

// markPrivateMediaReady flips the media flag and drains any participant
// list that arrived before local tracks existed.
func (s *Session) markPrivateMediaReady() {
	s.private.mediaReady = true
	s.signaler.SendMessage(protocol.New(protocol.TypePrivateMediaReady, nil))

	if pending := s.private.pending; pending != nil {
		s.private.pending = nil
		s.connectPrivateParticipants(pending)
	}
}

// handlePrivateParticipants connects to the other member(s) of the private
// session, or buffers the list until media is ready.
func (s *Session) handlePrivateParticipants(participants []protocol.PrivateParticipant) {
	if !s.private.active {
		return
	}
	if !s.private.mediaReady {
		s.private.pending = participants
		return
	}
	s.connectPrivateParticipants(participants)
}

func (s *Session) connectPrivateParticipants(participants []protocol.PrivateParticipant) {
	for _, p := range participants {
		if p.ID == s.selfID {
			continue
		}
		link, err := s.ensureLink(p.ID)
		if err != nil {
			continue
		}
		if link.Initiator() {
			s.sendOffer(link, false)
		}
	}
}

// exitPrivate handles redirect_to_main_room: drop the private links and
// media, restore the main-room stream and re-seat fresh. The seat slot may
// differ from the one held before the detour.
func (s *Session) exitPrivate(mainRoomID string) {
	wasActive := s.private.active
	s.private = privateState{}

	s.closeAllLinks()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}

	stream, err := s.source.Acquire(media.Constraints{Video: true, Audio: true, Processed: true})
	if err != nil {
		s.log.WithError(err).Error("main room media failed after private session")
	} else {
		s.stream = stream
	}

	s.signaler.SendMessage(protocol.New(protocol.TypeJoinRoom, protocol.JoinRoom{
		Room:     mainRoomID,
		Name:     s.name,
		Role:     s.role,
		StableID: s.stableID,
	}))

	if wasActive {
		s.emit(PrivateEnded{MainRoomID: mainRoomID})
	}
}
