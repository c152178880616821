package cart

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angelmondragon/bakery-cart/api/middleware"
	"github.com/angelmondragon/bakery-cart/api/responses"
	cartsvc "github.com/angelmondragon/bakery-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/bakery-cart/pkg/errors"
	"github.com/angelmondragon/bakery-cart/pkg/logger"
)

const (
	eventBuffer       = 16
	DefaultHeartbeat  = 25 * time.Second
	heartbeatFragment = ": ping\n\n"
)

// CartEvents streams cart.updated and cart.count for the caller's session as
// server-sent events. The current cart is sent first as a cart.updated event.
// Live events carry their commit sequence as the SSE id; an event older than
// one already written for its type is skipped. Events are dropped for a
// consumer that falls more than eventBuffer behind.
func CartEvents(svc Carts, logg *logger.Logger, heartbeat time.Duration) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := resolveStore(svc, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)
		events := make(chan cartsvc.Event, eventBuffer)
		forward := func(evt cartsvc.SessionEvent) {
			if evt.SessionID != sessionID {
				return
			}
			select {
			case events <- evt.Event:
			default:
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "event", string(evt.Type)), "cart event dropped for slow stream")
				}
			}
		}
		unsubscribeUpdated := svc.Subscribe(cartsvc.EventUpdated, forward)
		defer unsubscribeUpdated()
		unsubscribeCount := svc.Subscribe(cartsvc.EventCount, forward)
		defer unsubscribeCount()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if err := writeEvent(w, cartsvc.EventUpdated, store.GetCart(ctx)); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		written := map[cartsvc.EventType]uint64{}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := io.WriteString(w, heartbeatFragment); err != nil {
					return
				}
				flusher.Flush()
			case evt := <-events:
				if evt.Seq <= written[evt.Type] {
					continue
				}
				written[evt.Type] = evt.Seq
				var payload any = evt.Cart
				if evt.Type == cartsvc.EventCount && evt.Count != nil {
					payload = evt.Count
				}
				if _, err := fmt.Fprintf(w, "id: %d\n", evt.Seq); err != nil {
					return
				}
				if err := writeEvent(w, evt.Type, payload); err != nil {
					if logg != nil {
						logg.WarnErr(ctx, "cart event stream write failed", err)
					}
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w io.Writer, eventType cartsvc.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	return err
}
