package split

import (
	"math"

	"github.com/zombor/splitsy/internal/bill"
)

// ItemShare is one participant's portion of a single item
type ItemShare struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Sharers  int     `json:"sharers"`
	Amount   float64 `json:"amount"`
}

// Share is the itemized computation for one participant
type Share struct {
	ParticipantID string      `json:"participant_id"`
	Items         []ItemShare `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Tax           float64     `json:"tax"`
	Service       float64     `json:"service"`
	Total         float64     `json:"total"`
}

// Allocate computes what each participant owes under the given method. It
// returns a new slice in the same order as people and never modifies its
// inputs, so calling it again with the same arguments gives the same result.
func Allocate(b bill.Bill, people []Participant, m Method, a Assignments) []Participant {
	out := make([]Participant, len(people))
	copy(out, people)

	switch m {
	case Itemized:
		for i, share := range Breakdown(b, people, a) {
			out[i].OwedAmount = share.Total
		}
	default:
		perPerson := equalShare(b.Total, len(people))
		for i := range out {
			out[i].OwedAmount = perPerson
		}
	}
	return out
}

func equalShare(total float64, n int) float64 {
	if n == 0 || total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return total / float64(n)
}

// Breakdown computes the itemized split for each participant, in the order of
// people. Every item is divided evenly among its present sharers. Items with no
// present sharers are charged to nobody. Tax and service are then applied to
// each participant's own subtotal:
//
//	total = subtotal × (1 + tax%/100 + service%/100)
func Breakdown(b bill.Bill, people []Participant, a Assignments) []Share {
	present := index(people)
	shares := make([]Share, len(people))
	pos := make(map[string]int, len(people))
	for i, p := range people {
		shares[i].ParticipantID = p.ID
		// first occurrence wins if an ID is duplicated
		if _, ok := pos[p.ID]; !ok {
			pos[p.ID] = i
		}
	}

	// Calculate each person's subtotal based on assigned items
	for _, item := range b.Items {
		sharers := a.sharers(item.ID, present)
		if len(sharers) == 0 {
			continue
		}

		perPerson := item.LineTotal() / float64(len(sharers))
		for _, id := range sharers {
			s := &shares[pos[id]]
			s.Subtotal += perPerson
			s.Items = append(s.Items, ItemShare{
				ItemID:   item.ID,
				Name:     item.Name,
				Quantity: item.Quantity,
				Sharers:  len(sharers),
				Amount:   perPerson,
			})
		}
	}

	// Apply proportional tax and service
	for i := range shares {
		s := &shares[i]
		s.Tax = s.Subtotal * (b.TaxPercentage / 100)
		s.Service = s.Subtotal * (b.ServicePercentage / 100)
		s.Total = s.Subtotal + s.Tax + s.Service
	}
	return shares
}

// AssignedTotal returns what an itemized split should add up to: the line
// totals of every item with at least one present sharer, with tax and service
// applied. It differs from the bill total when items are left unassigned.
func AssignedTotal(b bill.Bill, people []Participant, a Assignments) float64 {
	present := index(people)
	var subtotal float64
	for _, item := range b.Items {
		if len(a.sharers(item.ID, present)) > 0 {
			subtotal += item.LineTotal()
		}
	}
	return subtotal * (1 + b.TaxPercentage/100 + b.ServicePercentage/100)
}
