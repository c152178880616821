package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bakery-cart/api/controllers"
	cartcontrollers "github.com/angelmondragon/bakery-cart/api/controllers/cart"
	"github.com/angelmondragon/bakery-cart/api/middleware"
	"github.com/angelmondragon/bakery-cart/api/responses"
	"github.com/angelmondragon/bakery-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/bakery-cart/pkg/errors"
	"github.com/angelmondragon/bakery-cart/pkg/logger"
)

// Options carries the optional pieces of the router.
type Options struct {
	// Ready lists the dependencies checked by /health/ready.
	Ready map[string]controllers.Pinger
	// Gatherer backs /metrics; the route is omitted when nil.
	Gatherer prometheus.Gatherer
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	carts cartcontrollers.Carts,
	opts Options,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "method not allowed"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, opts.Ready))
	})

	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.CartSession(logg))

		r.Get("/", cartcontrollers.CartFetch(carts, logg))
		r.Delete("/", cartcontrollers.CartClear(carts, logg))
		r.Get("/summary", cartcontrollers.CartSummary(carts, logg))
		r.Get("/shipping", cartcontrollers.CartShipping(carts, logg))
		r.Get("/export", cartcontrollers.CartExport(carts, logg))
		r.Post("/import", cartcontrollers.CartImport(carts, logg))
		r.Get("/events", cartcontrollers.CartEvents(carts, logg, opts.Heartbeat))

		r.Route("/items", func(r chi.Router) {
			r.Post("/", cartcontrollers.CartAddItem(carts, logg))
			r.Get("/{productId}", cartcontrollers.CartItemStatus(carts, logg))
			r.Patch("/{productId}", cartcontrollers.CartUpdateItem(carts, logg))
			r.Delete("/{productId}", cartcontrollers.CartRemoveItem(carts, logg))
		})
	})

	return r
}
