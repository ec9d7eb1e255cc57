package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zombor/splitsy/internal/bill"
)

// Number is a percentage that decodes leniently: JSON numbers, decimal
// strings ("11", "10.5%") and null are accepted. Anything else decodes as 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	f, s, isString := decodeScalar(data)
	if isString {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		f, _ = strconv.ParseFloat(s, 64)
	}
	*n = Number(f)
	return nil
}

// Amount is a money value. JSON numbers are taken as is; strings are read the
// way a person types a price, so "25.000" and "Rp 12.500" keep only their
// digits. Anything else decodes as 0.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	f, s, isString := decodeScalar(data)
	if isString {
		*a = Amount(bill.ParseAmount(s))
		return nil
	}
	*a = Amount(f)
	return nil
}

// Count is an item quantity. Strings go through the same digit-only rule as
// Amount, defaulting to 1.
type Count float64

// UnmarshalJSON implements json.Unmarshaler
func (c *Count) UnmarshalJSON(data []byte) error {
	f, s, isString := decodeScalar(data)
	if isString {
		*c = Count(bill.ParseQuantity(s))
		return nil
	}
	*c = Count(f)
	return nil
}

// decodeScalar reads a JSON number or string. Other values yield 0.
func decodeScalar(data []byte) (float64, string, bool) {
	data = bytes.TrimSpace(data)
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return f, "", false
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return 0, s, true
	}
	return 0, "", false
}

// parseReceiptJSON parses the JSON response from the model
func parseReceiptJSON(text string) (*ReceiptData, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	// Drop rows the model left completely empty
	items := data.Items[:0]
	for _, item := range data.Items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" && item.Price == 0 {
			continue
		}
		items = append(items, item)
	}
	data.Items = items

	return &data, nil
}
