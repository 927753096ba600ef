package coordinator

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// privatePrefix marks private-session ids; everything else is a main room.
const privatePrefix = "private_"

// ChatEntry is one line of a private session's ephemeral chat. The log
// lives only in memory and dies with the session.
type ChatEntry struct {
	SenderID string
	Name     string
	Text     string
	DataURL  string
	At       time.Time
}

// PrivateSession is an isolated two-party context carved out of a main
// room: its own signaling namespace, peer links and chat.
type PrivateSession struct {
	ID         string
	MainRoomID string

	// HostConn and TargetConn are the connection ids the session was
	// created for; members holds whoever has actually joined the namespace.
	HostConn   string
	TargetConn string
	members    map[string]*Client

	chat []ChatEntry
}

func newPrivateSession(mainRoomID, hostConn, targetConn string) *PrivateSession {
	return &PrivateSession{
		ID:         privatePrefix + randomHex(8),
		MainRoomID: mainRoomID,
		HostConn:   hostConn,
		TargetConn: targetConn,
		members:    make(map[string]*Client, 2),
	}
}

func isMainRoom(id string) bool {
	return id != "" && !strings.HasPrefix(id, privatePrefix)
}

// Members returns the joined clients in no particular order.
func (ps *PrivateSession) Members() []*Client {
	out := make([]*Client, 0, len(ps.members))
	for _, c := range ps.members {
		out = append(out, c)
	}
	return out
}

func (ps *PrivateSession) Member(connID string) *Client {
	return ps.members[connID]
}

func (ps *PrivateSession) addChat(entry ChatEntry) {
	ps.chat = append(ps.chat, entry)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("coordinator: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
