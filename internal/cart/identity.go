package cart

// normalizeCustomizations folds a customization value with no populated
// fields into "absent" so {} and nil land in the same slot.
func normalizeCustomizations(c *Customizations) *Customizations {
	if c == nil {
		return nil
	}
	if c.Size == "" && c.Message == "" && c.SpecialInstructions == "" {
		return nil
	}
	out := *c
	return &out
}

func sameCustomizations(a, b *Customizations) bool {
	a, b = normalizeCustomizations(a), normalizeCustomizations(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// sameSlot reports whether item occupies the slot for (productID, customizations).
func sameSlot(item LineItem, productID string, customizations *Customizations) bool {
	return item.Product.ID == productID && sameCustomizations(item.Customizations, customizations)
}

func findSlot(items []LineItem, productID string, customizations *Customizations) int {
	for i, item := range items {
		if sameSlot(item, productID, customizations) {
			return i
		}
	}
	return -1
}
