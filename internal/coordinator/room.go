package coordinator

import (
	"github.com/videodesk-app/videodesk/internal/protocol"
)

// seatCount is the fixed size of every room's seat table.
const seatCount = 4

// Room is a main room: a fixed 4-slot seat table. A departing participant's
// slot is nilled in place, never compacted, so the other occupants keep
// their positions. The host is always the lowest-index occupied seat.
//
// Rooms are owned by the hub loop; no locking here.
type Room struct {
	ID    string
	seats [seatCount]*Client
}

// Claim seats the client in the first empty slot and reports the slot
// index. It fails when the room is full or the client is already seated.
func (r *Room) Claim(c *Client) (int, bool) {
	for _, s := range r.seats {
		if s != nil && s.ID == c.ID {
			return -1, false
		}
	}
	for i, s := range r.seats {
		if s == nil {
			r.seats[i] = c
			return i, true
		}
	}
	return -1, false
}

// Release empties the slot held by the given connection id, in place.
func (r *Room) Release(connID string) bool {
	for i, s := range r.seats {
		if s != nil && s.ID == connID {
			r.seats[i] = nil
			return true
		}
	}
	return false
}

// Host returns the current host: the lowest-index occupied seat whose
// occupant is actually present (not away in a private session).
func (r *Room) Host() *Client {
	for _, s := range r.seats {
		if s != nil && !s.Away {
			return s
		}
	}
	return nil
}

// Occupants returns the seated clients in slot order.
func (r *Room) Occupants() []*Client {
	var out []*Client
	for _, s := range r.seats {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Occupant finds a seated client by connection id.
func (r *Room) Occupant(connID string) *Client {
	for _, s := range r.seats {
		if s != nil && s.ID == connID {
			return s
		}
	}
	return nil
}

func (r *Room) Full() bool {
	for _, s := range r.seats {
		if s == nil {
			return false
		}
	}
	return true
}

func (r *Room) Empty() bool {
	for _, s := range r.seats {
		if s != nil {
			return false
		}
	}
	return true
}

// Snapshot builds the wire form of the seat table. Empty slots stay nil so
// the slot positions are preserved on the client. minutes resolves total
// study minutes per stable id and may be nil.
func (r *Room) Snapshot(minutes func(stableID string) int) []*protocol.Seat {
	host := r.Host()
	out := make([]*protocol.Seat, seatCount)
	for i, s := range r.seats {
		if s == nil {
			continue
		}
		total := 0
		if minutes != nil {
			total = minutes(s.StableID)
		}
		out[i] = &protocol.Seat{
			ID:                s.ID,
			Name:              s.Name,
			Role:              s.Role,
			Connected:         !s.Away,
			IsHost:            host != nil && host.ID == s.ID,
			TotalStudyMinutes: total,
		}
	}
	return out
}
