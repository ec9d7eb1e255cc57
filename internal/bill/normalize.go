package bill

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawItem is an untrusted row as produced by extraction. Price is the total for
// the whole row, with the quantity already multiplied in.
type RawItem struct {
	Name     string
	Quantity float64
	Price    float64
}

// Normalize converts raw extracted rows and percentages into a canonical Bill.
// Missing or invalid quantities default to 1, line totals are converted to
// unit prices and invalid percentages default to 0.
func Normalize(raw []RawItem, rawTaxPercent, rawServicePercent float64, ids IDGenerator) Bill {
	items := make([]Item, 0, len(raw))
	for i, r := range raw {
		quantity := normalizeQuantity(r.Quantity)
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = fmt.Sprintf("Item %d", i+1)
		}
		items = append(items, Item{
			ID:        ids.Generate(),
			Name:      name,
			UnitPrice: nonNegative(r.Price) / float64(quantity),
			Quantity:  quantity,
		})
	}
	return New(items, nonNegative(rawTaxPercent), nonNegative(rawServicePercent))
}

func normalizeQuantity(q float64) int {
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 1 {
		return 1
	}
	if q > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(q))
}

// ParseAmount parses user-typed monetary text by discarding every non-digit
// character. Empty or unparseable input yields 0.
func ParseAmount(text string) float64 {
	n, err := strconv.ParseInt(digitsOnly(text), 10, 64)
	if err != nil {
		return 0
	}
	return float64(n)
}

// ParseQuantity parses user-typed quantity text the same way as ParseAmount,
// defaulting to 1 when nothing usable is left.
func ParseQuantity(text string) int {
	n, err := strconv.ParseInt(digitsOnly(text), 10, 32)
	if err != nil || n < 1 {
		return 1
	}
	return int(n)
}

func digitsOnly(text string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
}
