package presence

import "sort"

// Entry is one participant's hand-raise state as the local client sees it.
type Entry struct {
	ID     string
	Name   string
	Raised bool
}

// Tracker mirrors the coordinator's hand-raise state for the local
// context. The local toggle is optimistic: Raise flips the local entry
// immediately, and the coordinator's later broadcast confirms it.
// Coordinator updates always win (last-write-wins), so a raced toggle
// settles on whatever the coordinator saw last.
//
// Not safe for concurrent use; confine it to the session event loop.
type Tracker struct {
	selfID  string
	entries map[string]*Entry
}

func NewTracker(selfID string) *Tracker {
	return &Tracker{
		selfID:  selfID,
		entries: make(map[string]*Entry),
	}
}

// Toggle flips the local hand optimistically and reports the new state for
// the caller to announce to the coordinator.
func (t *Tracker) Toggle() bool {
	e := t.entries[t.selfID]
	if e == nil {
		e = &Entry{ID: t.selfID}
		t.entries[t.selfID] = e
	}
	e.Raised = !e.Raised
	return e.Raised
}

// Apply records a coordinator hand_raise_update, overwriting any local
// optimistic state for that participant.
func (t *Tracker) Apply(id, name string, raised bool) {
	t.entries[id] = &Entry{ID: id, Name: name, Raised: raised}
}

// ApplySnapshot replaces all state with a coordinator hand_states
// snapshot.
func (t *Tracker) ApplySnapshot(entries []Entry) {
	t.entries = make(map[string]*Entry, len(entries))
	for i := range entries {
		e := entries[i]
		t.entries[e.ID] = &e
	}
}

// Forget drops a departed participant.
func (t *Tracker) Forget(id string) {
	delete(t.entries, id)
}

// Raised reports whether the given participant's hand is up.
func (t *Tracker) Raised(id string) bool {
	e := t.entries[id]
	return e != nil && e.Raised
}

// SelfRaised reports the local hand state.
func (t *Tracker) SelfRaised() bool {
	return t.Raised(t.selfID)
}

// Roster returns all entries sorted by name for stable display.
func (t *Tracker) Roster() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
