package cart

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// isoLayout is ISO-8601 in UTC with millisecond precision.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

type persistedCart struct {
	Items     []persistedItem `json:"items"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

type persistedItem struct {
	Product        Product         `json:"product"`
	Quantity       int             `json:"quantity"`
	Customizations *Customizations `json:"customizations,omitempty"`
	AddedAt        string          `json:"addedAt"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func parseTime(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t.UTC(), nil
}

// encodeCart renders the persisted document. Aggregates are left out.
func encodeCart(c Cart) (string, error) {
	doc := persistedCart{
		Items:     make([]persistedItem, 0, len(c.Items)),
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
	for _, item := range c.Items {
		doc.Items = append(doc.Items, persistedItem{
			Product:        item.Product,
			Quantity:       item.Quantity,
			Customizations: normalizeCustomizations(item.Customizations),
			AddedAt:        formatTime(item.AddedAt),
		})
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(b), nil
}

// decodeCart parses a persisted document. Aggregates are zero until priced.
func decodeCart(raw string) (Cart, error) {
	var doc persistedCart
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}

	createdAt, err := parseTime("createdAt", doc.CreatedAt)
	if err != nil {
		return Cart{}, err
	}
	updatedAt, err := parseTime("updatedAt", doc.UpdatedAt)
	if err != nil {
		return Cart{}, err
	}

	c := Cart{
		Items:     make([]LineItem, 0, len(doc.Items)),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	for i, item := range doc.Items {
		if strings.TrimSpace(item.Product.ID) == "" {
			return Cart{}, fmt.Errorf("items[%d].product.id is required", i)
		}
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			return Cart{}, fmt.Errorf("items[%d].quantity must be between 1 and %d", i, MaxQuantity)
		}
		customizations := normalizeCustomizations(item.Customizations)
		if dup := findSlot(c.Items, item.Product.ID, customizations); dup >= 0 {
			return Cart{}, fmt.Errorf("items[%d] repeats the slot of items[%d]", i, dup)
		}
		addedAt, err := parseTime(fmt.Sprintf("items[%d].addedAt", i), item.AddedAt)
		if err != nil {
			return Cart{}, err
		}
		c.Items = append(c.Items, LineItem{
			Product:        item.Product,
			Quantity:       item.Quantity,
			Customizations: customizations,
			AddedAt:        addedAt,
		})
	}
	return c, nil
}
