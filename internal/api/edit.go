package api

import (
	"errors"
	"fmt"

	"github.com/zombor/splitsy/internal/bill"
	"github.com/zombor/splitsy/internal/split"
)

// ErrNotFound is returned when an edit names an item or participant that is
// not in the snapshot
var ErrNotFound = errors.New("not found")

// ItemEdit carries the raw text of an item form. Nil fields are left as they
// are; prices and quantities are parsed with bill.ParseAmount and
// bill.ParseQuantity.
type ItemEdit struct {
	Name     *string `json:"name"`
	Price    *string `json:"price"`
	Quantity *string `json:"quantity"`
}

// Charges sets tax and service either as percentages or, with AsAmounts, as
// absolute amounts converted against the current subtotal
type Charges struct {
	Tax       float64 `json:"tax"`
	Service   float64 `json:"service"`
	AsAmounts bool    `json:"as_amounts"`
}

// AddItem appends a hand-entered item
func (s *Service) AddItem(snap Snapshot, edit ItemEdit) Snapshot {
	session := s.session(snap)
	price := bill.ParseAmount(deref(edit.Price))
	quantity := bill.ParseQuantity(deref(edit.Quantity))
	session.SetBill(bill.AddItem(session.Bill, deref(edit.Name), price, quantity, s.idGenerator))
	return snapshotOf(session)
}

// EditItem applies the given fields to an item
func (s *Service) EditItem(snap Snapshot, id string, edit ItemEdit) (Snapshot, error) {
	session := s.session(snap)
	if _, ok := session.Bill.Item(id); !ok {
		return Snapshot{}, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}

	b := session.Bill
	if edit.Name != nil && edit.Price != nil && edit.Quantity != nil {
		b = bill.EditItem(b, id, *edit.Name, *edit.Price, *edit.Quantity)
	} else {
		if edit.Name != nil {
			b = bill.RenameItem(b, id, *edit.Name)
		}
		if edit.Price != nil {
			b = bill.RepriceItem(b, id, bill.ParseAmount(*edit.Price))
		}
		if edit.Quantity != nil {
			b = bill.RequantityItem(b, id, bill.ParseQuantity(*edit.Quantity))
		}
	}
	session.SetBill(b)
	return snapshotOf(session), nil
}

// RemoveItem deletes an item and its assignments
func (s *Service) RemoveItem(snap Snapshot, id string) (Snapshot, error) {
	session := s.session(snap)
	if _, ok := session.Bill.Item(id); !ok {
		return Snapshot{}, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	session.SetBill(bill.RemoveItem(session.Bill, id))
	return snapshotOf(session), nil
}

// SetCharges replaces the tax and service charge
func (s *Service) SetCharges(snap Snapshot, c Charges) Snapshot {
	session := s.session(snap)
	if c.AsAmounts {
		session.SetBill(bill.WithChargeAmounts(session.Bill, c.Tax, c.Service))
	} else {
		session.SetBill(bill.WithPercentages(session.Bill, c.Tax, c.Service))
	}
	return snapshotOf(session)
}

// SetMethod switches between equal and itemized splitting
func (s *Service) SetMethod(snap Snapshot, m split.Method) Snapshot {
	session := s.session(snap)
	session.SetMethod(m)
	return snapshotOf(session)
}

// AddParticipant appends a participant. An empty name gets the next default
// name.
func (s *Service) AddParticipant(snap Snapshot, name string) Snapshot {
	session := s.session(snap)
	session.AddParticipant(name)
	return snapshotOf(session)
}

// RemoveParticipant removes a participant and their assignments
func (s *Service) RemoveParticipant(snap Snapshot, id string) (Snapshot, error) {
	session := s.session(snap)
	if !hasParticipant(session.Participants, id) {
		return Snapshot{}, fmt.Errorf("participant %q: %w", id, ErrNotFound)
	}
	session.RemoveParticipant(id)
	return snapshotOf(session), nil
}

// RenameParticipant changes a participant's display name
func (s *Service) RenameParticipant(snap Snapshot, id, name string) (Snapshot, error) {
	session := s.session(snap)
	if !hasParticipant(session.Participants, id) {
		return Snapshot{}, fmt.Errorf("participant %q: %w", id, ErrNotFound)
	}
	session.RenameParticipant(id, name)
	return snapshotOf(session), nil
}

// ToggleAssignment adds a participant to an item's sharers, or removes them
// if they already share it
func (s *Service) ToggleAssignment(snap Snapshot, itemID, participantID string) (Snapshot, error) {
	session := s.session(snap)
	if _, ok := session.Bill.Item(itemID); !ok {
		return Snapshot{}, fmt.Errorf("item %q: %w", itemID, ErrNotFound)
	}
	if !hasParticipant(session.Participants, participantID) {
		return Snapshot{}, fmt.Errorf("participant %q: %w", participantID, ErrNotFound)
	}
	session.ToggleAssignment(itemID, participantID)
	return snapshotOf(session), nil
}

func hasParticipant(people []split.Participant, id string) bool {
	for _, p := range people {
		if p.ID == id {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
