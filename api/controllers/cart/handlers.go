package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bakery-cart/api/middleware"
	"github.com/angelmondragon/bakery-cart/api/responses"
	"github.com/angelmondragon/bakery-cart/api/validators"
	cartsvc "github.com/angelmondragon/bakery-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/bakery-cart/pkg/errors"
	"github.com/angelmondragon/bakery-cart/pkg/logger"
)

// Carts is the session registry the handlers resolve stores from.
type Carts interface {
	Store(sessionID string) (*cartsvc.Store, error)
	Subscribe(eventType cartsvc.EventType, listener func(cartsvc.SessionEvent)) func()
}

// storeFunc serves one request against the caller's session cart.
type storeFunc func(r *http.Request, store *cartsvc.Store) (any, error)

// withStore resolves the session store, runs fn and writes its result or
// error as an envelope.
func withStore(svc Carts, logg *logger.Logger, fn storeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := serve(svc, r, fn)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func serve(svc Carts, r *http.Request, fn storeFunc) (any, error) {
	store, err := resolveStore(svc, r)
	if err != nil {
		return nil, err
	}
	return fn(r, store)
}

func resolveStore(svc Carts, r *http.Request) (*cartsvc.Store, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
	}
	return svc.Store(middleware.SessionIDFromContext(r.Context()))
}

func productIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "productId"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return id, nil
}

// CartFetch returns the session cart with fresh aggregates.
func CartFetch(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		return store.GetCart(r.Context()), nil
	})
}

func CartClear(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		return store.ClearCart(r.Context()), nil
	})
}

func CartSummary(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		return store.GetCartSummary(r.Context()), nil
	})
}

// CartAddItem merges the product into the cart. Quantity defaults to 1.
func CartAddItem(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		quantity := 1
		if payload.Quantity != nil {
			quantity = *payload.Quantity
		}
		return store.AddItem(r.Context(), payload.Product.toProduct(), quantity, payload.Customizations.toCustomizations())
	})
}

func CartUpdateItem(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		productID, err := productIDParam(r)
		if err != nil {
			return nil, err
		}
		var payload UpdateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return store.UpdateQuantity(r.Context(), productID, *payload.Quantity, payload.Customizations.toCustomizations())
	})
}

// CartRemoveItem removes the slot named by the path and customization query.
func CartRemoveItem(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		productID, err := productIDParam(r)
		if err != nil {
			return nil, err
		}
		return store.RemoveItem(r.Context(), productID, customizationsFromQuery(r.URL.Query())), nil
	})
}

func CartItemStatus(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		productID, err := productIDParam(r)
		if err != nil {
			return nil, err
		}
		return ItemStatusResponse{
			ProductID: productID,
			InCart:    store.IsInCart(r.Context(), productID),
			Quantity:  store.GetItemQuantity(r.Context(), productID, customizationsFromQuery(r.URL.Query())),
		}, nil
	})
}

// CartShipping prices shipping for ?subtotal=, or for the cart subtotal when absent.
func CartShipping(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		subtotal, explicit, err := validators.ParseQueryFloat(r, "subtotal")
		if err != nil {
			return nil, err
		}

		pricing := store.Pricing()
		resp := ShippingResponse{FreeShippingThreshold: pricing.FreeShippingThreshold}
		if explicit {
			resp.Subtotal = subtotal
			resp.EligibleForFreeShipping = subtotal >= pricing.FreeShippingThreshold
			resp.AmountForFreeShipping = pricing.AmountForFreeShipping(subtotal)
		} else {
			resp.Subtotal = store.GetCart(r.Context()).Subtotal
			resp.EligibleForFreeShipping = store.IsEligibleForFreeShipping(r.Context())
			resp.AmountForFreeShipping = store.AmountForFreeShipping(r.Context())
		}
		resp.ShippingCost = store.ShippingCost(resp.Subtotal)
		return resp, nil
	})
}

func CartExport(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		data, err := store.ExportCartData(r.Context())
		if err != nil {
			return nil, err
		}
		return ExportResponse{Cart: data}, nil
	})
}

func CartImport(svc Carts, logg *logger.Logger) http.HandlerFunc {
	return withStore(svc, logg, func(r *http.Request, store *cartsvc.Store) (any, error) {
		var payload ImportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return store.ImportCartData(r.Context(), payload.Cart)
	})
}
