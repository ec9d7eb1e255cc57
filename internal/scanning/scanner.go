package scanning

import (
	"context"

	"github.com/zombor/splitsy/internal/bill"
)

// ItemData is one row extracted from a receipt. Price is the total for the
// row, not the unit price.
type ItemData struct {
	Quantity Count  `json:"quantity"`
	Name     string `json:"name"`
	Price    Amount `json:"price"`
}

// ReceiptData contains extracted information from a receipt. Tax and Service
// are percentages.
type ReceiptData struct {
	Items   []ItemData `json:"items"`
	Tax     Number     `json:"tax"`
	Service Number     `json:"service"`
}

// RawItems converts the extracted rows for bill.Normalize
func (d *ReceiptData) RawItems() []bill.RawItem {
	items := make([]bill.RawItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = bill.RawItem{
			Name:     item.Name,
			Quantity: float64(item.Quantity),
			Price:    float64(item.Price),
		}
	}
	return items
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts its line items
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}
