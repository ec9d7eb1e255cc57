package split

import (
	"fmt"

	"github.com/zombor/splitsy/internal/bill"
)

// Participant is one person sharing the bill. OwedAmount is only ever set by
// Allocate.
type Participant struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	OwedAmount float64 `json:"owed_amount"`
}

// DefaultName returns the display name for the participant at 1-based position i
func DefaultName(i int) string {
	return fmt.Sprintf("Person %d", i)
}

// NewParticipants creates n participants with default names and nothing owed
func NewParticipants(n int, ids bill.IDGenerator) []Participant {
	return Resize(nil, n, ids)
}

// Resize grows or shrinks the participant list to n entries. New participants
// get sequential default names; shrinking drops entries from the end.
func Resize(people []Participant, n int, ids bill.IDGenerator) []Participant {
	if n < 0 {
		n = 0
	}
	if n <= len(people) {
		out := make([]Participant, n)
		copy(out, people[:n])
		return out
	}

	out := make([]Participant, len(people), n)
	copy(out, people)
	for i := len(people); i < n; i++ {
		out = append(out, Participant{
			ID:   ids.Generate(),
			Name: DefaultName(i + 1),
		})
	}
	return out
}

// index returns the set of participant IDs
func index(people []Participant) map[string]bool {
	present := make(map[string]bool, len(people))
	for _, p := range people {
		present[p.ID] = true
	}
	return present
}
