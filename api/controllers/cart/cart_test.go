package cart

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-cart/api/middleware"
	cartsvc "github.com/angelmondragon/bakery-cart/internal/cart"
	"github.com/angelmondragon/bakery-cart/internal/storage"
	"github.com/angelmondragon/bakery-cart/pkg/types"
)

func newTestService(t *testing.T) *cartsvc.Service {
	t.Helper()
	svc, err := cartsvc.NewService(storage.NewMemoryBackend(storage.Options{}), cartsvc.Options{})
	require.NoError(t, err)
	return svc
}

func newTestRouter(svc Carts) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CartSession(nil))
	r.Get("/cart", CartFetch(svc, nil))
	r.Delete("/cart", CartClear(svc, nil))
	r.Get("/cart/summary", CartSummary(svc, nil))
	r.Post("/cart/items", CartAddItem(svc, nil))
	r.Patch("/cart/items/{productId}", CartUpdateItem(svc, nil))
	r.Delete("/cart/items/{productId}", CartRemoveItem(svc, nil))
	r.Get("/cart/items/{productId}", CartItemStatus(svc, nil))
	r.Get("/cart/shipping", CartShipping(svc, nil))
	r.Get("/cart/export", CartExport(svc, nil))
	r.Post("/cart/import", CartImport(svc, nil))
	r.Get("/cart/events", CartEvents(svc, nil, time.Hour))
	return r
}

func do(t *testing.T, h http.Handler, method, target, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}

func TestCartFetchEmptyAndMintsSession(t *testing.T) {
	h := newTestRouter(newTestService(t))
	resp := do(t, h, http.MethodGet, "/cart", "", "")

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotEmpty(t, resp.Header().Get(middleware.SessionHeader))
	c := decodeData[cartsvc.Cart](t, resp)
	require.Empty(t, c.Items)
	require.Zero(t, c.Total)
}

func TestCartAddItemScenario(t *testing.T) {
	h := newTestRouter(newTestService(t))
	product := `{"id":"A","name":"Chocolate Cake","price":25,"images":["/a.jpg"]}`

	resp := do(t, h, http.MethodPost, "/cart/items", "s1", `{"product":`+product+`,"quantity":2}`)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, h, http.MethodPost, "/cart/items", "s1", `{"product":`+product+`,"customizations":{"message":"Happy Birthday"}}`)
	require.Equal(t, http.StatusOK, resp.Code)
	c := decodeData[cartsvc.Cart](t, resp)
	require.Len(t, c.Items, 2)
	require.Equal(t, 1, c.Items[1].Quantity, "quantity defaults to 1")

	summary := decodeData[cartsvc.Summary](t, do(t, h, http.MethodGet, "/cart/summary", "s1", ""))
	require.Equal(t, cartsvc.Summary{ItemCount: 3, UniqueItems: 2, Subtotal: 75, Tax: 11.25, Total: 86.25}, summary)

	other := decodeData[cartsvc.Cart](t, do(t, h, http.MethodGet, "/cart", "s2", ""))
	require.Empty(t, other.Items, "sessions are isolated")
}

func TestCartAddItemValidation(t *testing.T) {
	h := newTestRouter(newTestService(t))

	for name, body := range map[string]string{
		"zero quantity":  `{"product":{"id":"A","price":1},"quantity":0}`,
		"huge quantity":  `{"product":{"id":"A","price":1},"quantity":9223372036854775807}`,
		"negative price": `{"product":{"id":"A","price":-1}}`,
		"missing id":     `{"product":{"price":1}}`,
		"unknown field":  `{"product":{"id":"A","price":1},"coupon":"FREE"}`,
		"not json":       `{`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := do(t, h, http.MethodPost, "/cart/items", "s1", body)
			require.Equal(t, http.StatusBadRequest, resp.Code)
			var envelope types.ErrorEnvelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
			require.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
		})
	}
}

func TestCartQuantityCapKeepsCart(t *testing.T) {
	h := newTestRouter(newTestService(t))

	resp := do(t, h, http.MethodPost, "/cart/items", "s1", `{"product":{"id":"A","price":1},"quantity":10000}`)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, h, http.MethodPost, "/cart/items", "s1", `{"product":{"id":"A","price":1}}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, h, http.MethodPatch, "/cart/items/A", "s1", `{"quantity":10001}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, map[string]any{"quantity": "must be at most 10000"}, envelope.Error.Details)

	c := decodeData[cartsvc.Cart](t, do(t, h, http.MethodGet, "/cart", "s1", ""))
	require.Len(t, c.Items, 1)
	require.Equal(t, 10000, c.Items[0].Quantity)
}

func TestCartUpdateAndRemoveItem(t *testing.T) {
	h := newTestRouter(newTestService(t))
	do(t, h, http.MethodPost, "/cart/items", "s1", `{"product":{"id":"A","price":10},"quantity":1,"customizations":{"size":"8in"}}`)
	do(t, h, http.MethodPost, "/cart/items", "s1", `{"product":{"id":"A","price":10},"quantity":1,"customizations":{"size":"10in"}}`)

	resp := do(t, h, http.MethodPatch, "/cart/items/A", "s1", `{"quantity":5,"customizations":{"size":"8in"}}`)
	require.Equal(t, http.StatusOK, resp.Code)
	c := decodeData[cartsvc.Cart](t, resp)
	require.Equal(t, 5, c.Items[0].Quantity)
	require.Equal(t, 1, c.Items[1].Quantity)

	status := decodeData[ItemStatusResponse](t, do(t, h, http.MethodGet, "/cart/items/A?size=8in", "s1", ""))
	require.Equal(t, ItemStatusResponse{ProductID: "A", InCart: true, Quantity: 5}, status)

	resp = do(t, h, http.MethodDelete, "/cart/items/A?size=10in", "s1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	c = decodeData[cartsvc.Cart](t, resp)
	require.Len(t, c.Items, 1)
	require.Equal(t, "8in", c.Items[0].Customizations.Size)

	c = decodeData[cartsvc.Cart](t, do(t, h, http.MethodPatch, "/cart/items/A", "s1", `{"quantity":-5,"customizations":{"size":"8in"}}`))
	require.Empty(t, c.Items)

	resp = do(t, h, http.MethodPatch, "/cart/items/A", "s1", `{"customizations":{"size":"8in"}}`)
	require.Equal(t, http.StatusBadRequest, resp.Code, "quantity is required")
}

func TestCartClear(t *testing.T) {
	h := newTestRouter(newTestService(t))
	do(t, h, http.MethodPost, "/cart/items", "s1", `{"product":{"id":"A","price":10}}`)

	c := decodeData[cartsvc.Cart](t, do(t, h, http.MethodDelete, "/cart", "s1", ""))
	require.Empty(t, c.Items)
	status := decodeData[ItemStatusResponse](t, do(t, h, http.MethodGet, "/cart/items/A", "s1", ""))
	require.False(t, status.InCart)
}

func TestCartShipping(t *testing.T) {
	h := newTestRouter(newTestService(t))

	ship := decodeData[ShippingResponse](t, do(t, h, http.MethodGet, "/cart/shipping?subtotal=9999.99", "s1", ""))
	require.Equal(t, 500.0, ship.ShippingCost)
	require.False(t, ship.EligibleForFreeShipping)
	require.Equal(t, 0.01, ship.AmountForFreeShipping)

	ship = decodeData[ShippingResponse](t, do(t, h, http.MethodGet, "/cart/shipping?subtotal=10000", "s1", ""))
	require.Zero(t, ship.ShippingCost)
	require.True(t, ship.EligibleForFreeShipping)

	do(t, h, http.MethodPost, "/cart/items", "s1", `{"product":{"id":"W","price":2500},"quantity":2}`)
	ship = decodeData[ShippingResponse](t, do(t, h, http.MethodGet, "/cart/shipping", "s1", ""))
	require.Equal(t, 5000.0, ship.Subtotal)
	require.Equal(t, 500.0, ship.ShippingCost)
	require.Equal(t, 5000.0, ship.AmountForFreeShipping)
	require.Equal(t, 10000.0, ship.FreeShippingThreshold)

	resp := do(t, h, http.MethodGet, "/cart/shipping?subtotal=lots", "s1", "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartExportImport(t *testing.T) {
	h := newTestRouter(newTestService(t))
	do(t, h, http.MethodPost, "/cart/items", "s1", `{"product":{"id":"A","price":12.5},"quantity":2,"customizations":{"message":"Hi"}}`)

	exported := decodeData[ExportResponse](t, do(t, h, http.MethodGet, "/cart/export", "s1", ""))
	require.Contains(t, exported.Cart, `"items"`)

	body, err := json.Marshal(ImportRequest{Cart: exported.Cart})
	require.NoError(t, err)
	resp := do(t, h, http.MethodPost, "/cart/import", "s2", string(body))
	require.Equal(t, http.StatusOK, resp.Code)
	c := decodeData[cartsvc.Cart](t, resp)
	require.Len(t, c.Items, 1)
	require.Equal(t, "Hi", c.Items[0].Customizations.Message)
	require.Equal(t, 25.0, c.Subtotal)

	resp = do(t, h, http.MethodPost, "/cart/import", "s2", `{"cart":"{broken"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	c = decodeData[cartsvc.Cart](t, do(t, h, http.MethodGet, "/cart", "s2", ""))
	require.Len(t, c.Items, 1, "failed import leaves cart untouched")
}

func TestCartEventsStream(t *testing.T) {
	svc := newTestService(t)
	server := httptest.NewServer(newTestRouter(svc))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/cart/events", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.SessionHeader, "stream-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	eventType, data := readEvent(t, reader)
	require.Equal(t, "cart.updated", eventType)
	require.Contains(t, data, `"items":[]`)

	other, err := svc.Store("someone-else")
	require.NoError(t, err)
	_, err = other.AddItem(ctx, cartsvc.Product{ID: "X", Price: 1}, 1, nil)
	require.NoError(t, err)

	store, err := svc.Store("stream-1")
	require.NoError(t, err)
	_, err = store.AddItem(ctx, cartsvc.Product{ID: "A", Price: 5}, 2, nil)
	require.NoError(t, err)

	eventType, data = readEvent(t, reader)
	require.Equal(t, "cart.updated", eventType)
	require.Contains(t, data, `"subtotal":10`)

	eventType, data = readEvent(t, reader)
	require.Equal(t, "cart.count", eventType)
	var payload cartsvc.CountPayload
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	require.Equal(t, 2, payload.Count)
	require.Len(t, payload.Items, 1)
}

func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var eventType, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if eventType != "" {
				return eventType, data
			}
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// replayCarts lets a test push session events straight into subscribers.
type replayCarts struct {
	*cartsvc.Service
	mu        sync.Mutex
	listeners map[cartsvc.EventType][]func(cartsvc.SessionEvent)
}

func (c *replayCarts) Subscribe(eventType cartsvc.EventType, listener func(cartsvc.SessionEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[eventType] = append(c.listeners[eventType], listener)
	return func() {}
}

func (c *replayCarts) push(sessionID string, evt cartsvc.Event) {
	c.mu.Lock()
	listeners := append([]func(cartsvc.SessionEvent){}, c.listeners[evt.Type]...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(cartsvc.SessionEvent{SessionID: sessionID, Event: evt})
	}
}

func TestCartEventsSkipsStaleEvents(t *testing.T) {
	carts := &replayCarts{Service: newTestService(t), listeners: map[cartsvc.EventType][]func(cartsvc.SessionEvent){}}
	server := httptest.NewServer(newTestRouter(carts))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/cart/events", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.SessionHeader, "stream-2")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	_, _ = readEvent(t, reader)

	for _, step := range []struct {
		seq      uint64
		subtotal float64
	}{{2, 2}, {1, 1}, {3, 3}} {
		carts.push("stream-2", cartsvc.Event{Type: cartsvc.EventUpdated, Seq: step.seq, Cart: cartsvc.Cart{Items: []cartsvc.LineItem{}, Subtotal: step.subtotal}})
	}

	_, data := readEvent(t, reader)
	require.Contains(t, data, `"subtotal":2`)
	_, data = readEvent(t, reader)
	require.Contains(t, data, `"subtotal":3`, "the event committed before seq 2 is not replayed")
}
