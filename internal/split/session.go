package split

import "github.com/zombor/splitsy/internal/bill"

// Session holds the state of one bill being split: the bill, the people, the
// chosen method and the item assignments. Owed amounts are never stored here;
// call Allocate whenever they are needed.
type Session struct {
	Bill         bill.Bill     `json:"bill"`
	Participants []Participant `json:"participants"`
	Method       Method        `json:"method"`
	Assignments  Assignments   `json:"assignments"`

	ids bill.IDGenerator
}

// NewSession creates a session for b with n default participants and an
// equal split
func NewSession(b bill.Bill, n int, ids bill.IDGenerator) *Session {
	return &Session{
		Bill:         bill.Recalculate(b),
		Participants: NewParticipants(n, ids),
		Method:       Equal,
		Assignments:  Assignments{},
		ids:          ids,
	}
}

// generator returns the session's ID generator. Sessions decoded from JSON
// have none and fall back to random UUIDs.
func (s *Session) generator() bill.IDGenerator {
	if s.ids == nil {
		return bill.UUIDGenerator{}
	}
	return s.ids
}

// SetBill replaces the bill and drops assignments for items that are gone
func (s *Session) SetBill(b bill.Bill) {
	s.Bill = bill.Recalculate(b)
	s.Assignments = s.Assignments.PruneItems(s.Bill)
}

// SetMethod changes the split method
func (s *Session) SetMethod(m Method) {
	s.Method = m
}

// SetParticipantCount resizes the participant list under an equal split.
// Itemized splits work on the explicit list and ignore the count.
func (s *Session) SetParticipantCount(n int) {
	if s.Method != Equal {
		return
	}
	s.Participants = Resize(s.Participants, n, s.generator())
	s.Assignments = s.Assignments.Prune(s.Participants)
}

// AddParticipant appends a participant. An empty name gets the next default
// name.
func (s *Session) AddParticipant(name string) Participant {
	if name == "" {
		name = DefaultName(len(s.Participants) + 1)
	}
	p := Participant{ID: s.generator().Generate(), Name: name}
	s.Participants = append(s.Participants, p)
	return p
}

// RemoveParticipant removes a participant and purges them from every
// assignment
func (s *Session) RemoveParticipant(id string) {
	people := make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.ID != id {
			people = append(people, p)
		}
	}
	s.Participants = people
	s.Assignments = s.Assignments.Prune(people)
}

// RenameParticipant changes a participant's display name
func (s *Session) RenameParticipant(id, name string) {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			s.Participants[i].Name = name
			return
		}
	}
}

// ToggleAssignment adds or removes a participant from an item
func (s *Session) ToggleAssignment(itemID, participantID string) {
	s.Assignments = s.Assignments.Toggle(itemID, participantID)
}

// Allocate returns the participants with their owed amounts for the current
// state
func (s *Session) Allocate() []Participant {
	return Allocate(s.Bill, s.Participants, s.Method, s.Assignments)
}

// Breakdown returns the itemized computation for the current state
func (s *Session) Breakdown() []Share {
	return Breakdown(s.Bill, s.Participants, s.Assignments)
}
