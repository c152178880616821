package cart

import "time"

// Product is the catalog snapshot captured when an item is added. The cart
// never re-fetches or mutates it.
type Product struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Price  float64  `json:"price"`
	Images []string `json:"images"`
	// Stock is nil when the product is unlimited.
	Stock *int `json:"stock"`
}

// Customizations differentiate otherwise identical selections of a product.
type Customizations struct {
	Size                string `json:"size,omitempty"`
	Message             string `json:"message,omitempty"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// LineItem is one cart slot, identified by product id plus customizations.
type LineItem struct {
	Product        Product         `json:"product"`
	Quantity       int             `json:"quantity"`
	Customizations *Customizations `json:"customizations,omitempty"`
	AddedAt        time.Time       `json:"addedAt"`
}

// Cart is the aggregate root. Subtotal, Tax and Total are derived from Items
// on every load and mutation and are never persisted.
type Cart struct {
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Subtotal  float64    `json:"subtotal"`
	Tax       float64    `json:"tax"`
	Total     float64    `json:"total"`
}

// ItemCount is the sum of quantities across all slots.
func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c Cart) clone() Cart {
	out := c
	out.Items = make([]LineItem, len(c.Items))
	for i, item := range c.Items {
		out.Items[i] = item.clone()
	}
	return out
}

func (li LineItem) clone() LineItem {
	out := li
	if li.Product.Images != nil {
		out.Product.Images = append([]string(nil), li.Product.Images...)
	}
	if li.Product.Stock != nil {
		stock := *li.Product.Stock
		out.Product.Stock = &stock
	}
	if li.Customizations != nil {
		c := *li.Customizations
		out.Customizations = &c
	}
	return out
}

// Summary is the read-only digest returned by GetCartSummary.
type Summary struct {
	ItemCount   int     `json:"itemCount"`
	UniqueItems int     `json:"uniqueItems"`
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`
}

func summarize(c Cart) Summary {
	return Summary{
		ItemCount:   c.ItemCount(),
		UniqueItems: len(c.Items),
		Subtotal:    c.Subtotal,
		Tax:         c.Tax,
		Total:       c.Total,
	}
}
