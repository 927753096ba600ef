package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/videodesk-app/videodesk/internal/protocol"
)

// StudyLedger persists accumulated study minutes per stable id. The hub
// tolerates a nil ledger (accounting disabled).
type StudyLedger interface {
	Minutes(stableID string) int
	Credit(stableID string, minutes int) error
}

// inbound couples a parsed message with the connection it arrived on.
type inbound struct {
	client *Client
	msg    *protocol.Message
}

// Hub is the session coordinator: it owns the room directory, every room's
// 4-slot seat table, host designation, hand-raise state and the
// private-session registry, and relays peer signaling.
//
// All state is confined to the single goroutine running Run, which
// serializes every room-mutating operation; two concurrent joiners can
// never claim the same seat.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Inbound    chan inbound

	rooms    map[string]*Room
	privates map[string]*PrivateSession

	// hands maps context id (room or private session) to connection id to
	// raised state. Independent of the seat table; entries die on leave.
	hands map[string]map[string]bool

	ledger StudyLedger
	log    *logrus.Entry
}

// NewHub creates a hub. ledger may be nil to disable study accounting.
func NewHub(ledger StudyLedger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan inbound, 64),
		rooms:      make(map[string]*Room),
		privates:   make(map[string]*PrivateSession),
		hands:      make(map[string]map[string]bool),
		ledger:     ledger,
		log:        logrus.WithField("component", "hub"),
	}
}

// Submit hands a message to the hub loop on behalf of a client. Exported
// for tests and in-process clients; ReadPump uses the channel directly.
func (h *Hub) Submit(c *Client, msg *protocol.Message) {
	h.Inbound <- inbound{client: c, msg: msg}
}

// Run starts the hub's main processing loop. It is the single goroutine
// that owns all room state and must be running before clients connect.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("hub running")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("hub shutting down")
			return

		case client := <-h.Register:
			h.log.WithField("conn", client.ID).Debug("client registered")

		case client := <-h.Unregister:
			h.handleDisconnect(client)
			close(client.Send)

		case in := <-h.Inbound:
			h.handleMessage(in.client, in.msg)
		}
	}
}

func (h *Hub) handleMessage(c *Client, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeJoinRoom:
		var req protocol.JoinRoom
		if err := msg.Decode(&req); err != nil {
			c.sendError("malformed join_room")
			return
		}
		if !isMainRoom(req.Room) && req.Room != "" {
			// Invite links may carry a private-session id straight into
			// join_room; route it to the private namespace.
			h.joinPrivate(c, req.Room, req.Name, req.Role)
			return
		}
		h.handleJoin(c, req)

	case protocol.TypeRequestRoomState:
		h.handleResync(c)

	case protocol.TypeHandRaise:
		var req protocol.HandRaise
		if err := msg.Decode(&req); err != nil {
			return
		}
		h.handleHandRaise(c, req.Raised)

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		h.handleRelay(c, msg)

	case protocol.TypeStartPrivateSession:
		var req protocol.StartPrivateSession
		if err := msg.Decode(&req); err != nil {
			c.sendError("malformed start_private_session")
			return
		}
		h.handleStartPrivate(c, req.TargetID)

	case protocol.TypeJoinPrivateRoom:
		var req protocol.JoinPrivateRoom
		if err := msg.Decode(&req); err != nil {
			c.sendError("malformed join_private_room")
			return
		}
		h.joinPrivate(c, req.SessionID, req.Name, req.Role)

	case protocol.TypePrivateMediaReady:
		h.handlePrivateMediaReady(c)

	case protocol.TypeEndPrivateSession:
		h.handleEndPrivate(c)

	case protocol.TypePrivateChat:
		var req protocol.PrivateChat
		if err := msg.Decode(&req); err != nil {
			return
		}
		h.handlePrivateChat(c, req.Text, "")

	case protocol.TypePrivateChatImage:
		var req protocol.PrivateChatImage
		if err := msg.Decode(&req); err != nil {
			return
		}
		h.handlePrivateChat(c, "", req.DataURL)

	default:
		h.log.WithFields(logrus.Fields{"conn": c.ID, "type": msg.Type}).Warn("unknown message type")
	}
}

// ----- main rooms -----

func (h *Hub) handleJoin(c *Client, req protocol.JoinRoom) {
	h.leaveCurrentContext(c, true)
	h.releaseReservation(c)

	c.Name = req.Name
	if c.Role == "" || req.Role != "" {
		c.Role = req.Role
	}
	if req.StableID != "" {
		c.StableID = req.StableID
	}

	room := h.pickRoom(req.Room)
	if _, ok := room.Claim(c); !ok {
		// Unreachable through pickRoom, which never returns a full room.
		c.sendError("room is full")
		return
	}
	c.ContextID = room.ID
	c.Away = false
	c.SeatedAt = time.Now()

	if h.hands[room.ID] == nil {
		h.hands[room.ID] = make(map[string]bool)
	}
	h.hands[room.ID][c.ID] = false

	metricJoins.Inc()
	h.updateGauges()

	host := room.Host()
	c.send(protocol.New(protocol.TypeRoomAssigned, protocol.RoomAssigned{
		ID:     c.ID,
		RoomID: room.ID,
		IsHost: host != nil && host.ID == c.ID,
		Seats:  room.Snapshot(h.minutes),
	}))
	h.broadcastRoom(room, protocol.New(protocol.TypeUserJoined, protocol.UserJoined{
		ID:                c.ID,
		Name:              c.Name,
		Role:              c.Role,
		TotalStudyMinutes: h.minutes(c.StableID),
	}), c.ID)
	h.broadcastRoom(room, protocol.New(protocol.TypeHandStates, h.handStates(room.ID)), "")

	h.log.WithFields(logrus.Fields{"conn": c.ID, "room": room.ID, "name": c.Name}).Info("seated")
}

// pickRoom resolves a join request to a room with a free seat: the
// requested room when it has space (creating it if unknown), else any main
// room with space, else a fresh room. A 5th joiner to a full room
// overflows into a new room rather than being rejected.
func (h *Hub) pickRoom(requested string) *Room {
	if isMainRoom(requested) {
		if room, ok := h.rooms[requested]; ok {
			if !room.Full() {
				return room
			}
		} else {
			room := &Room{ID: requested}
			h.rooms[requested] = room
			return room
		}
	}

	for id, room := range h.rooms {
		if isMainRoom(id) && !room.Full() {
			return room
		}
	}

	room := &Room{ID: h.generateRoomID()}
	h.rooms[room.ID] = room
	return room
}

// generateRoomID creates a memorable three-word room id, e.g.
// "quiet-maple-harbor", retrying until unused.
func (h *Hub) generateRoomID() string {
	for {
		id := fmt.Sprintf("%s-%s-%s",
			moods[randomIndex(len(moods))],
			things[randomIndex(len(things))],
			places[randomIndex(len(places))])
		if _, ok := h.rooms[id]; !ok {
			return id
		}
	}
}

func (h *Hub) handleResync(c *Client) {
	room, ok := h.rooms[c.ContextID]
	if !ok || !isMainRoom(c.ContextID) || room.Occupant(c.ID) == nil {
		return
	}
	c.send(protocol.New(protocol.TypeRoomState, protocol.RoomState{Seats: room.Snapshot(h.minutes)}))
	c.send(protocol.New(protocol.TypeHandStates, h.handStates(room.ID)))

	// Repair hint: nudge the other occupants to re-offer toward the
	// resyncing client in case a link went missing.
	h.broadcastRoom(room, protocol.New(protocol.TypeRequestOfferTo, protocol.RequestOfferTo{NewID: c.ID}), c.ID)
}

// leaveCurrentContext removes the client from whatever context it occupies.
// For a main room the seat is freed; withLeft controls whether the room is
// told via user_left (re-joins after a reservation release skip it).
func (h *Hub) leaveCurrentContext(c *Client, withLeft bool) {
	if c.ContextID == "" {
		return
	}
	if isMainRoom(c.ContextID) {
		if room, ok := h.rooms[c.ContextID]; ok {
			h.creditStudyTime(c)
			h.removeFromRoom(room, c, withLeft)
		}
	} else if ps, ok := h.privates[c.ContextID]; ok {
		delete(ps.members, c.ID)
		delete(h.hands[ps.ID], c.ID)
	}
	c.ContextID = ""
}

// removeFromRoom frees the seat, cleans hand state, notifies the remaining
// occupants and migrates the host designation when needed.
func (h *Hub) removeFromRoom(room *Room, c *Client, withLeft bool) {
	hostBefore := room.Host()
	if !room.Release(c.ID) {
		return
	}
	delete(h.hands[room.ID], c.ID)

	if room.Empty() {
		delete(h.rooms, room.ID)
		delete(h.hands, room.ID)
		h.updateGauges()
		return
	}

	if withLeft {
		h.broadcastRoom(room, protocol.New(protocol.TypeUserLeft, protocol.UserLeft{ID: c.ID, Name: c.Name}), "")
	}
	h.migrateHost(room, hostBefore)
	h.updateGauges()
}

func (h *Hub) migrateHost(room *Room, hostBefore *Client) {
	hostAfter := room.Host()
	if hostAfter == nil {
		return
	}
	if hostBefore == nil || hostBefore.ID != hostAfter.ID {
		h.broadcastRoom(room, protocol.New(protocol.TypeHostChanged, protocol.HostChanged{
			NewHostID:   hostAfter.ID,
			NewHostName: hostAfter.Name,
		}), "")
	}
}

// ----- presence -----

func (h *Hub) handleHandRaise(c *Client, raised bool) {
	ctx := c.ContextID
	if ctx == "" || h.hands[ctx] == nil {
		return
	}
	h.hands[ctx][c.ID] = raised

	update := protocol.New(protocol.TypeHandRaiseUpdate, protocol.HandRaiseUpdate{
		ID:     c.ID,
		Name:   c.Name,
		Raised: raised,
	})
	if isMainRoom(ctx) {
		if room, ok := h.rooms[ctx]; ok {
			h.broadcastRoom(room, update, "")
		}
	} else if ps, ok := h.privates[ctx]; ok {
		h.broadcastSession(ps, update, "")
	}
}

func (h *Hub) handStates(contextID string) protocol.HandStates {
	var out protocol.HandStates
	for connID, raised := range h.hands[contextID] {
		member := h.contextMember(contextID, connID)
		if member == nil {
			continue
		}
		out.States = append(out.States, protocol.HandState{
			ID:     connID,
			Name:   member.Name,
			Role:   member.Role,
			Raised: raised,
		})
	}
	return out
}

// ----- signaling relay -----

// handleRelay forwards offer/answer/ice_candidate verbatim to the named
// target, overwriting the sender id with the true one. Sender and target
// must share a context (main room or private session).
func (h *Hub) handleRelay(c *Client, msg *protocol.Message) {
	if msg.Target == "" || c.ContextID == "" {
		return
	}
	target := h.contextMember(c.ContextID, msg.Target)
	if target == nil {
		h.log.WithFields(logrus.Fields{"conn": c.ID, "target": msg.Target, "type": msg.Type}).
			Debug("relay target not co-located, dropping")
		return
	}
	msg.Sender = c.ID
	target.send(msg)
	metricRelayedSignals.WithLabelValues(msg.Type).Inc()
}

// contextMember resolves a connection id inside a context, skipping away
// (reserved-seat) occupants.
func (h *Hub) contextMember(contextID, connID string) *Client {
	if isMainRoom(contextID) {
		if room, ok := h.rooms[contextID]; ok {
			if m := room.Occupant(connID); m != nil && !m.Away {
				return m
			}
		}
		return nil
	}
	if ps, ok := h.privates[contextID]; ok {
		return ps.Member(connID)
	}
	return nil
}

// ----- private sessions -----

func (h *Hub) handleStartPrivate(c *Client, targetID string) {
	room, ok := h.rooms[c.ContextID]
	if !ok || !isMainRoom(c.ContextID) {
		c.sendError("not in a room")
		return
	}
	host := room.Host()
	if host == nil || host.ID != c.ID {
		c.sendError("only the host can start a private session")
		return
	}
	target := room.Occupant(targetID)
	if target == nil || target.Away || targetID == c.ID {
		c.sendError("participant not available")
		return
	}

	ps := newPrivateSession(room.ID, c.ID, targetID)
	h.privates[ps.ID] = ps
	h.hands[ps.ID] = make(map[string]bool)
	h.updateGauges()

	redirect := protocol.New(protocol.TypeRedirectToPrivate, protocol.RedirectToPrivate{
		SessionID:  ps.ID,
		MainRoomID: room.ID,
	})
	c.send(redirect)
	target.send(redirect)

	h.log.WithFields(logrus.Fields{"session": ps.ID, "room": room.ID, "host": c.ID, "target": targetID}).
		Info("private session started")
}

// joinPrivate moves the client into a private session's namespace. The
// main-room seat stays reserved (marked away) so nobody else can claim it,
// but the room is told via user_left so the remaining occupants tear down
// their links to the leaver.
func (h *Hub) joinPrivate(c *Client, sessionID, name, role string) {
	ps, ok := h.privates[sessionID]
	if !ok {
		c.sendError("private session not found")
		return
	}
	if c.ID != ps.HostConn && c.ID != ps.TargetConn {
		c.sendError("not a member of this session")
		return
	}
	if name != "" {
		c.Name = name
	}
	if role != "" {
		c.Role = role
	}

	if isMainRoom(c.ContextID) {
		if room, ok := h.rooms[c.ContextID]; ok && room.Occupant(c.ID) != nil {
			h.creditStudyTime(c)
			hostBefore := room.Host()
			c.Away = true
			c.ReservedRoomID = room.ID
			delete(h.hands[room.ID], c.ID)
			h.broadcastRoom(room, protocol.New(protocol.TypeUserLeft, protocol.UserLeft{ID: c.ID, Name: c.Name}), c.ID)
			h.migrateHost(room, hostBefore)
		}
	}

	ps.members[c.ID] = c
	c.ContextID = ps.ID
	h.hands[ps.ID][c.ID] = false

	h.sendPrivateParticipants(ps)
}

// sendPrivateParticipants sends each member the current occupant list
// excluding themselves.
func (h *Hub) sendPrivateParticipants(ps *PrivateSession) {
	for _, member := range ps.members {
		var list protocol.PrivateParticipants
		for _, other := range ps.members {
			if other.ID == member.ID {
				continue
			}
			list.Participants = append(list.Participants, protocol.PrivateParticipant{
				ID:   other.ID,
				Name: other.Name,
				Role: other.Role,
			})
		}
		member.send(protocol.New(protocol.TypePrivateParticipants, list))
	}
}

// handlePrivateMediaReady re-sends the participant list as a sync nudge;
// a side whose list arrived before media was ready drains it now.
func (h *Hub) handlePrivateMediaReady(c *Client) {
	if ps, ok := h.privates[c.ContextID]; ok {
		h.sendPrivateParticipants(ps)
	}
}

func (h *Hub) handleEndPrivate(c *Client) {
	ps, ok := h.privates[c.ContextID]
	if !ok {
		return
	}
	h.closePrivateSession(ps)
}

func (h *Hub) closePrivateSession(ps *PrivateSession) {
	redirect := protocol.New(protocol.TypeRedirectToMainRoom, protocol.RedirectToMainRoom{MainRoomID: ps.MainRoomID})
	for _, member := range ps.members {
		member.send(redirect)
		member.ContextID = ""
	}
	delete(h.privates, ps.ID)
	delete(h.hands, ps.ID)
	h.updateGauges()
	h.log.WithField("session", ps.ID).Info("private session ended")
}

func (h *Hub) handlePrivateChat(c *Client, text, dataURL string) {
	ps, ok := h.privates[c.ContextID]
	if !ok {
		return
	}
	entry := ChatEntry{SenderID: c.ID, Name: c.Name, Text: text, DataURL: dataURL, At: time.Now()}
	ps.addChat(entry)

	var msg *protocol.Message
	if dataURL != "" {
		msg = protocol.New(protocol.TypePrivateChatImage, protocol.PrivateChatImage{
			SenderID: c.ID, Name: c.Name, DataURL: dataURL,
		})
	} else {
		msg = protocol.New(protocol.TypePrivateChat, protocol.PrivateChat{
			SenderID: c.ID, Name: c.Name, Text: text,
		})
	}
	// Echo included for the sender; clients suppress their own echo.
	h.broadcastSession(ps, msg, "")
}

// ----- disconnect -----

func (h *Hub) handleDisconnect(c *Client) {
	h.log.WithField("conn", c.ID).Debug("client disconnected")

	if ps, ok := h.privates[c.ContextID]; ok {
		// A dropped member ends the whole session; the survivor is sent
		// back to the main room.
		delete(ps.members, c.ID)
		c.ContextID = ""
		h.closePrivateSession(ps)
	} else {
		h.leaveCurrentContext(c, true)
	}
	h.releaseReservation(c)
}

// releaseReservation frees a seat held across a private-session absence.
// No user_left is sent: the room already saw one when the seat went away.
func (h *Hub) releaseReservation(c *Client) {
	if c.ReservedRoomID == "" {
		return
	}
	if room, ok := h.rooms[c.ReservedRoomID]; ok {
		hostBefore := room.Host()
		if room.Release(c.ID) {
			if room.Empty() {
				delete(h.rooms, room.ID)
				delete(h.hands, room.ID)
			} else {
				h.migrateHost(room, hostBefore)
			}
			h.updateGauges()
		}
	}
	c.ReservedRoomID = ""
	c.Away = false
}

// ----- helpers -----

func (h *Hub) broadcastRoom(room *Room, msg *protocol.Message, except string) {
	for _, occupant := range room.Occupants() {
		if occupant.Away || occupant.ID == except {
			continue
		}
		occupant.send(msg)
	}
}

func (h *Hub) broadcastSession(ps *PrivateSession, msg *protocol.Message, except string) {
	for _, member := range ps.members {
		if member.ID == except {
			continue
		}
		member.send(msg)
	}
}

func (h *Hub) minutes(stableID string) int {
	if h.ledger == nil || stableID == "" {
		return 0
	}
	return h.ledger.Minutes(stableID)
}

func (h *Hub) creditStudyTime(c *Client) {
	if h.ledger == nil || c.StableID == "" || c.SeatedAt.IsZero() {
		return
	}
	mins := int(time.Since(c.SeatedAt).Minutes())
	c.SeatedAt = time.Time{}
	if mins <= 0 {
		return
	}
	if err := h.ledger.Credit(c.StableID, mins); err != nil {
		h.log.WithError(err).WithField("stable_id", c.StableID).Warn("study credit failed")
	}
}

func (h *Hub) updateGauges() {
	var seats int
	for _, room := range h.rooms {
		seats += len(room.Occupants())
	}
	metricActiveRooms.Set(float64(len(h.rooms)))
	metricOccupiedSeats.Set(float64(seats))
	metricActivePrivateSessions.Set(float64(len(h.privates)))
}
