package bill

// Edit operations never modify their input. Each returns a new Bill with the
// derived amounts recomputed, and an unknown item ID leaves the bill unchanged.

// AddItem appends a manually entered item with the given unit price
func AddItem(b Bill, name string, unitPrice float64, quantity int, ids IDGenerator) Bill {
	items := make([]Item, 0, len(b.Items)+1)
	items = append(items, b.Items...)
	items = append(items, Item{
		ID:        ids.Generate(),
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
	})
	return New(items, b.TaxPercentage, b.ServicePercentage)
}

// RemoveItem deletes the item with the given ID
func RemoveItem(b Bill, id string) Bill {
	items := make([]Item, 0, len(b.Items))
	for _, item := range b.Items {
		if item.ID != id {
			items = append(items, item)
		}
	}
	return New(items, b.TaxPercentage, b.ServicePercentage)
}

// RenameItem changes the name of an item
func RenameItem(b Bill, id, name string) Bill {
	return updateItem(b, id, func(item *Item) {
		item.Name = name
	})
}

// RepriceItem changes the unit price of an item
func RepriceItem(b Bill, id string, unitPrice float64) Bill {
	return updateItem(b, id, func(item *Item) {
		item.UnitPrice = unitPrice
	})
}

// RequantityItem changes the quantity of an item. Quantities below 1 become 1.
func RequantityItem(b Bill, id string, quantity int) Bill {
	return updateItem(b, id, func(item *Item) {
		item.Quantity = quantity
	})
}

// EditItem applies raw text from an item edit form. Price and quantity text
// are parsed leniently with ParseAmount and ParseQuantity.
func EditItem(b Bill, id, name, priceText, quantityText string) Bill {
	return updateItem(b, id, func(item *Item) {
		item.Name = name
		item.UnitPrice = ParseAmount(priceText)
		item.Quantity = ParseQuantity(quantityText)
	})
}

// WithPercentages sets the tax and service rates
func WithPercentages(b Bill, taxPercentage, servicePercentage float64) Bill {
	return New(b.Items, taxPercentage, servicePercentage)
}

// WithChargeAmounts sets tax and service from absolute amounts, converting
// them to percentages of the current subtotal. A zero subtotal yields 0%.
func WithChargeAmounts(b Bill, taxAmount, serviceAmount float64) Bill {
	b = Recalculate(b)
	if b.Subtotal <= 0 {
		return New(b.Items, 0, 0)
	}
	return New(b.Items,
		nonNegative(taxAmount)/b.Subtotal*100,
		nonNegative(serviceAmount)/b.Subtotal*100,
	)
}

func updateItem(b Bill, id string, fn func(*Item)) Bill {
	items := make([]Item, len(b.Items))
	copy(items, b.Items)
	for i := range items {
		if items[i].ID == id {
			fn(&items[i])
			break
		}
	}
	return New(items, b.TaxPercentage, b.ServicePercentage)
}
