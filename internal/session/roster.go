package session

import "kiri-bot/internal/workflow"

// Roster is an ordered set of participants keyed by participant id.
// Insertion order is display order. Not safe for concurrent use; the owning
// Store serializes access.
type Roster struct {
	order []workflow.Participant
	index map[string]int
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{index: make(map[string]int)}
}

// Add inserts a participant if the id is not present yet.
// Returns false when the id already joined.
func (r *Roster) Add(id, name string) bool {
	if _, ok := r.index[id]; ok {
		return false
	}
	r.index[id] = len(r.order)
	r.order = append(r.order, workflow.Participant{ID: id, Name: name})
	return true
}

// Has reports whether the id joined.
func (r *Roster) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Len returns the number of participants.
func (r *Roster) Len() int {
	return len(r.order)
}

// Participants returns a copy of the roster in join order.
func (r *Roster) Participants() []workflow.Participant {
	out := make([]workflow.Participant, len(r.order))
	copy(out, r.order)
	return out
}
