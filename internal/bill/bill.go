package bill

import "math"

// Item represents a single line on a bill
type Item struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// LineTotal returns the unit price multiplied by the quantity
func (i Item) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Bill is the canonical representation of a receipt. The amount fields are
// derived from Items and the two percentages and must only be set through
// Recalculate.
type Bill struct {
	Items             []Item  `json:"items"`
	TaxPercentage     float64 `json:"tax_percentage"`
	ServicePercentage float64 `json:"service_percentage"`
	Subtotal          float64 `json:"subtotal"`
	TaxAmount         float64 `json:"tax_amount"`
	ServiceAmount     float64 `json:"service_amount"`
	Total             float64 `json:"total"`
}

// New builds a bill from items and rates with all derived amounts filled in
func New(items []Item, taxPercentage, servicePercentage float64) Bill {
	return Recalculate(Bill{
		Items:             items,
		TaxPercentage:     taxPercentage,
		ServicePercentage: servicePercentage,
	})
}

// Recalculate returns a copy of b with sanitized items and rates and freshly
// derived subtotal, tax, service and total. Bills that arrive from outside the
// process go through here before they are used.
func Recalculate(b Bill) Bill {
	items := make([]Item, len(b.Items))
	var subtotal float64
	for i, item := range b.Items {
		item.UnitPrice = nonNegative(item.UnitPrice)
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		items[i] = item
		subtotal += item.LineTotal()
	}

	out := Bill{
		Items:             items,
		TaxPercentage:     nonNegative(b.TaxPercentage),
		ServicePercentage: nonNegative(b.ServicePercentage),
		Subtotal:          subtotal,
	}
	out.TaxAmount = subtotal * out.TaxPercentage / 100
	out.ServiceAmount = subtotal * out.ServicePercentage / 100
	out.Total = out.Subtotal + out.TaxAmount + out.ServiceAmount
	return out
}

// Item looks up an item by ID
func (b Bill) Item(id string) (Item, bool) {
	for _, item := range b.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// nonNegative maps negative and non-finite values to zero
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
