package split

import "github.com/zombor/splitsy/internal/bill"

// Assignments maps an item ID to the IDs of the participants sharing it. An
// empty set means nobody is charged for the item. IDs of participants that no
// longer exist are ignored wherever assignments are read.
type Assignments map[string][]string

// Clone returns a deep copy of the assignments
func (a Assignments) Clone() Assignments {
	out := make(Assignments, len(a))
	for itemID, ids := range a {
		out[itemID] = append([]string(nil), ids...)
	}
	return out
}

// Toggle returns a copy with the participant added to or removed from the item
func (a Assignments) Toggle(itemID, participantID string) Assignments {
	out := a.Clone()
	ids := out[itemID]
	for i, id := range ids {
		if id == participantID {
			out[itemID] = append(ids[:i:i], ids[i+1:]...)
			return out
		}
	}
	out[itemID] = append(ids, participantID)
	return out
}

// Has reports whether the participant shares the item
func (a Assignments) Has(itemID, participantID string) bool {
	for _, id := range a[itemID] {
		if id == participantID {
			return true
		}
	}
	return false
}

// Prune returns a copy with every participant ID not in people removed
func (a Assignments) Prune(people []Participant) Assignments {
	present := index(people)
	out := make(Assignments, len(a))
	for itemID := range a {
		out[itemID] = a.sharers(itemID, present)
	}
	return out
}

// PruneItems returns a copy without entries for items that are not on the bill
func (a Assignments) PruneItems(b bill.Bill) Assignments {
	out := make(Assignments, len(a))
	for _, item := range b.Items {
		if ids, ok := a[item.ID]; ok {
			out[item.ID] = append([]string(nil), ids...)
		}
	}
	return out
}

// sharers returns the distinct IDs assigned to the item that are present,
// in assignment order
func (a Assignments) sharers(itemID string, present map[string]bool) []string {
	ids := a[itemID]
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if present[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
