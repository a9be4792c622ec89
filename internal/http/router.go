package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	CORSAllowOrigins []string
	RequestTimeout   time.Duration
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	if len(opts.CORSAllowOrigins) == 0 {
		opts.CORSAllowOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(CorrelationID)
	r.Use(CORS(opts.CORSAllowOrigins))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", h.Health)

	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{sku}", h.GetVariant)
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/options", h.Options)
		r.Post("/", h.CreateCart)

		r.Route("/{cartId}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{itemId}", h.UpdateItem)
			r.Delete("/items/{itemId}", h.RemoveItem)
			r.Put("/shipping", h.SelectShipping)
			r.Put("/payment", h.SelectPayment)
			r.Post("/coupon", h.ApplyCoupon)
			r.Delete("/coupon", h.RemoveCoupon)
			r.Post("/checkout", h.Checkout)
		})
	})

	return r
}
