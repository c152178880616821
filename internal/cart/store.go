package cart

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/bakery-cart/internal/storage"
	pkgerrors "github.com/angelmondragon/bakery-cart/pkg/errors"
	"github.com/angelmondragon/bakery-cart/pkg/logger"
	"github.com/angelmondragon/bakery-cart/pkg/metrics"
)

const (
	DefaultStorageKey = "bakery_cart"
	DefaultCountKey   = "cartCount"

	// MaxQuantity caps a single slot.
	MaxQuantity = 10000
)

// Options configures a Store. Zero values fall back to the defaults.
type Options struct {
	StorageKey string
	CountKey   string
	Pricing    Pricing
	Logger     *logger.Logger
	Metrics    *metrics.CartMetrics
	Clock      func() time.Time
}

// sequencer serializes load, mutate and save for a cart and numbers its
// commits. Handles on the same cart share one sequencer.
type sequencer struct {
	mu  sync.Mutex
	seq uint64
}

// Store owns the cart persisted under one storage key. Every operation runs
// load, mutate and save under the sequencer lock; subscribers are notified
// after the lock is released.
type Store struct {
	backend  storage.Backend
	key      string
	countKey string
	pricing  Pricing
	logg     *logger.Logger
	metrics  *metrics.CartMetrics
	clock    func() time.Time

	seq     *sequencer
	events  *notifier[Event]
	forward func(Event)
}

func NewStore(backend storage.Backend, opts Options) (*Store, error) {
	return newStore(backend, opts, &sequencer{}, nil)
}

// newStore builds a store that locks through seq and hands every event to
// forward after its own subscribers.
func newStore(backend storage.Backend, opts Options, seq *sequencer, forward func(Event)) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("storage backend required")
	}
	if opts.StorageKey == "" {
		opts.StorageKey = DefaultStorageKey
	}
	if opts.CountKey == "" {
		opts.CountKey = DefaultCountKey
	}
	if opts.Pricing == (Pricing{}) {
		opts.Pricing = DefaultPricing()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Store{
		backend:  backend,
		key:      opts.StorageKey,
		countKey: opts.CountKey,
		pricing:  opts.Pricing,
		logg:     opts.Logger,
		metrics:  opts.Metrics,
		clock:    opts.Clock,
		seq:      seq,
		events:   newNotifier[Event](),
		forward:  forward,
	}, nil
}

// Key returns the primary storage key.
func (s *Store) Key() string {
	return s.key
}

// Pricing returns the rates the store computes with.
func (s *Store) Pricing() Pricing {
	return s.pricing
}

// Subscribe registers listener for eventType and returns its unsubscribe func.
func (s *Store) Subscribe(eventType EventType, listener func(Event)) func() {
	return s.events.subscribe(eventType, listener)
}

func (s *Store) now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

func (s *Store) emptyCart() Cart {
	now := s.now()
	return Cart{Items: []LineItem{}, CreatedAt: now, UpdatedAt: now}
}

func (s *Store) logCtx(ctx context.Context, op string) context.Context {
	return s.logg.WithFields(ctx, map[string]any{"storage_key": s.key, "op": op})
}

// load reads the persisted cart. Missing, unreadable and corrupt values all
// yield an empty cart.
func (s *Store) load(ctx context.Context, op string) Cart {
	raw, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		s.logg.WarnErr(s.logCtx(ctx, op), "cart load failed; using empty cart", err)
		s.metrics.IncStorageFailure("load")
		return s.emptyCart()
	}
	if !found {
		return s.emptyCart()
	}
	c, err := decodeCart(raw)
	if err != nil {
		s.logg.WarnErr(s.logCtx(ctx, op), "persisted cart is corrupt; using empty cart", err)
		s.metrics.IncStorageFailure("parse")
		return s.emptyCart()
	}
	s.pricing.apply(&c)
	return c
}

// save writes the cart and the legacy item count. Failures are logged only.
func (s *Store) save(ctx context.Context, op string, c Cart) {
	raw, err := encodeCart(c)
	if err == nil {
		err = storage.SetAll(ctx, s.backend,
			storage.Entry{Key: s.key, Value: raw},
			storage.Entry{Key: s.countKey, Value: strconv.Itoa(c.ItemCount())},
		)
	}
	if err != nil {
		s.logg.Error(s.logCtx(ctx, op), "cart save failed; keeping in-memory result", err)
		s.metrics.IncStorageFailure("save")
	}
}

func (s *Store) read(ctx context.Context, op string) Cart {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration(op, time.Since(start)) }()

	s.seq.mu.Lock()
	defer s.seq.mu.Unlock()
	return s.load(ctx, op)
}

// mutate applies fn to the loaded cart, reprices, persists and notifies.
// When fn fails nothing is written and nobody is notified.
func (s *Store) mutate(ctx context.Context, op string, fn func(Cart) (Cart, error)) (Cart, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration(op, time.Since(start)) }()

	s.seq.mu.Lock()
	next, err := fn(s.load(ctx, op))
	if err != nil {
		s.seq.mu.Unlock()
		return Cart{}, err
	}
	if next.Items == nil {
		next.Items = []LineItem{}
	}
	s.pricing.apply(&next)
	s.save(ctx, op, next)
	s.seq.seq++
	seq := s.seq.seq
	s.seq.mu.Unlock()

	s.metrics.IncMutation(op)
	s.notify(next, seq)
	return next.clone(), nil
}

func (s *Store) notify(c Cart, seq uint64) {
	s.dispatch(Event{Type: EventUpdated, Seq: seq, Cart: c.clone()})

	legacy := c.clone()
	s.dispatch(Event{
		Type: EventCount,
		Seq:  seq,
		Cart: legacy,
		Count: &CountPayload{
			Count: legacy.ItemCount(),
			Items: legacy.Items,
			Cart:  legacy,
		},
	})
}

func (s *Store) dispatch(evt Event) {
	s.events.emit(evt.Type, evt)
	if s.forward != nil {
		s.forward(evt)
	}
}

// GetCart returns the persisted cart, or an empty one.
func (s *Store) GetCart(ctx context.Context) Cart {
	return s.read(ctx, "get_cart")
}

// AddItem merges quantity into the matching slot or appends a new one.
func (s *Store) AddItem(ctx context.Context, product Product, quantity int, customizations *Customizations) (Cart, error) {
	if err := validateAdd(product, quantity); err != nil {
		return Cart{}, err
	}
	customizations = normalizeCustomizations(customizations)

	return s.mutate(ctx, "add_item", func(c Cart) (Cart, error) {
		now := s.now()
		if idx := findSlot(c.Items, product.ID, customizations); idx >= 0 {
			if c.Items[idx].Quantity+quantity > MaxQuantity {
				return Cart{}, quantityError(fmt.Sprintf("would exceed %d with %d already in the cart", MaxQuantity, c.Items[idx].Quantity))
			}
			c.Items[idx].Quantity += quantity
		} else {
			c.Items = append(c.Items, LineItem{
				Product:        product,
				Quantity:       quantity,
				Customizations: customizations,
				AddedAt:        now,
			})
		}
		c.UpdatedAt = now
		return c, nil
	})
}

func validateAdd(product Product, quantity int) error {
	details := map[string]string{}
	if strings.TrimSpace(product.ID) == "" {
		details["product.id"] = "is required"
	}
	if product.Price < 0 || math.IsNaN(product.Price) || math.IsInf(product.Price, 0) {
		details["product.price"] = "must be a non-negative number"
	}
	switch {
	case quantity <= 0:
		details["quantity"] = "must be a positive integer"
	case quantity > MaxQuantity:
		details["quantity"] = fmt.Sprintf("must be at most %d", MaxQuantity)
	}
	if len(details) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart item").WithDetails(details)
}

func quantityError(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity").
		WithDetails(map[string]string{"quantity": msg})
}

// RemoveItem drops the slot matching productID and customizations exactly.
// A miss still persists and notifies.
func (s *Store) RemoveItem(ctx context.Context, productID string, customizations *Customizations) Cart {
	c, _ := s.mutate(ctx, "remove_item", func(c Cart) (Cart, error) {
		if idx := findSlot(c.Items, productID, customizations); idx >= 0 {
			c.Items = append(c.Items[:idx:idx], c.Items[idx+1:]...)
		}
		c.UpdatedAt = s.now()
		return c, nil
	})
	return c
}

// UpdateQuantity sets the slot quantity; quantity <= 0 removes the slot.
// Quantities above MaxQuantity are rejected and leave the cart untouched.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int, customizations *Customizations) (Cart, error) {
	switch {
	case quantity <= 0:
		return s.RemoveItem(ctx, productID, customizations), nil
	case quantity > MaxQuantity:
		return Cart{}, quantityError(fmt.Sprintf("must be at most %d", MaxQuantity))
	}
	return s.mutate(ctx, "update_quantity", func(c Cart) (Cart, error) {
		if idx := findSlot(c.Items, productID, customizations); idx >= 0 {
			c.Items[idx].Quantity = quantity
		}
		c.UpdatedAt = s.now()
		return c, nil
	})
}

// ClearCart replaces the cart with a fresh empty one.
func (s *Store) ClearCart(ctx context.Context) Cart {
	c, _ := s.mutate(ctx, "clear", func(Cart) (Cart, error) {
		return s.emptyCart(), nil
	})
	return c
}

func (s *Store) GetCartSummary(ctx context.Context) Summary {
	return summarize(s.read(ctx, "summary"))
}

// IsInCart ignores customizations.
func (s *Store) IsInCart(ctx context.Context, productID string) bool {
	for _, item := range s.read(ctx, "is_in_cart").Items {
		if item.Product.ID == productID {
			return true
		}
	}
	return false
}

func (s *Store) GetItemQuantity(ctx context.Context, productID string, customizations *Customizations) int {
	c := s.read(ctx, "item_quantity")
	if idx := findSlot(c.Items, productID, customizations); idx >= 0 {
		return c.Items[idx].Quantity
	}
	return 0
}

// ShippingCost depends only on the subtotal passed in.
func (s *Store) ShippingCost(subtotal float64) float64 {
	return s.pricing.ShippingCost(subtotal)
}

func (s *Store) IsEligibleForFreeShipping(ctx context.Context) bool {
	return s.read(ctx, "free_shipping").Subtotal >= s.pricing.FreeShippingThreshold
}

func (s *Store) AmountForFreeShipping(ctx context.Context) float64 {
	return s.pricing.AmountForFreeShipping(s.read(ctx, "free_shipping").Subtotal)
}

// ExportCartData renders the cart in its persisted form.
func (s *Store) ExportCartData(ctx context.Context) (string, error) {
	raw, err := encodeCart(s.read(ctx, "export"))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "export cart")
	}
	return raw, nil
}

// ImportCartData replaces the cart with a previously exported document.
// Malformed data is rejected and leaves the cart untouched.
func (s *Store) ImportCartData(ctx context.Context, data string) (Cart, error) {
	imported, err := decodeCart(data)
	if err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart data")
	}
	return s.mutate(ctx, "import", func(Cart) (Cart, error) {
		return imported, nil
	})
}
