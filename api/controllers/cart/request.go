package cart

import (
	"net/url"

	"github.com/angelmondragon/bakery-cart/api/validators"
	cartsvc "github.com/angelmondragon/bakery-cart/internal/cart"
)

const maxCustomizationLength = 500

// ProductPayload is the catalog snapshot a client adds to its cart.
type ProductPayload struct {
	ID     string   `json:"id" validate:"required,max=128"`
	Name   string   `json:"name" validate:"max=256"`
	Price  float64  `json:"price" validate:"gte=0"`
	Images []string `json:"images,omitempty" validate:"max=20"`
	Stock  *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

type CustomizationsPayload struct {
	Size                string `json:"size,omitempty"`
	Message             string `json:"message,omitempty"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// AddItemRequest is the body of POST /api/v1/cart/items. Quantity defaults to 1.
type AddItemRequest struct {
	Product        ProductPayload         `json:"product"`
	Quantity       *int                   `json:"quantity,omitempty" validate:"omitempty,gt=0,lte=10000"`
	Customizations *CustomizationsPayload `json:"customizations,omitempty"`
}

// UpdateQuantityRequest is the body of PATCH /api/v1/cart/items/{productId}.
// A quantity of zero or less removes the slot.
type UpdateQuantityRequest struct {
	Quantity       *int                   `json:"quantity" validate:"required,lte=10000"`
	Customizations *CustomizationsPayload `json:"customizations,omitempty"`
}

// ImportRequest carries a document produced by GET /api/v1/cart/export.
type ImportRequest struct {
	Cart string `json:"cart" validate:"required"`
}

type ExportResponse struct {
	Cart string `json:"cart"`
}

type ItemStatusResponse struct {
	ProductID string `json:"productId"`
	InCart    bool   `json:"inCart"`
	Quantity  int    `json:"quantity"`
}

type ShippingResponse struct {
	Subtotal                float64 `json:"subtotal"`
	ShippingCost            float64 `json:"shippingCost"`
	FreeShippingThreshold   float64 `json:"freeShippingThreshold"`
	EligibleForFreeShipping bool    `json:"eligibleForFreeShipping"`
	AmountForFreeShipping   float64 `json:"amountForFreeShipping"`
}

func (p ProductPayload) toProduct() cartsvc.Product {
	return cartsvc.Product{
		ID:     validators.SanitizeString(p.ID, 128),
		Name:   validators.SanitizeString(p.Name, 256),
		Price:  p.Price,
		Images: p.Images,
		Stock:  p.Stock,
	}
}

func (c *CustomizationsPayload) toCustomizations() *cartsvc.Customizations {
	if c == nil {
		return nil
	}
	return &cartsvc.Customizations{
		Size:                validators.SanitizeString(c.Size, maxCustomizationLength),
		Message:             validators.SanitizeString(c.Message, maxCustomizationLength),
		SpecialInstructions: validators.SanitizeString(c.SpecialInstructions, maxCustomizationLength),
	}
}

// customizationsFromQuery reads ?size=&message=&specialInstructions= for the
// DELETE and GET item routes.
func customizationsFromQuery(q url.Values) *cartsvc.Customizations {
	payload := &CustomizationsPayload{
		Size:                q.Get("size"),
		Message:             q.Get("message"),
		SpecialInstructions: q.Get("specialInstructions"),
	}
	return payload.toCustomizations()
}
