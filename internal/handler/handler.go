// Package handler exposes the storefront core over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
	"github.com/longphan200518/watchstore/internal/domain/order"
	"github.com/longphan200518/watchstore/internal/domain/watch"
)

// userIDHeader carries the authenticated user's id, set by the identity
// layer in front of this service. Identity itself is out of scope here.
const userIDHeader = "X-User-ID"

// Handler wires the domain services to HTTP routes.
type Handler struct {
	watches   watch.Repository
	coupons   coupon.Repository
	validator *coupon.Validator
	orders    *order.Service
}

// New constructs a Handler with the required domain dependencies.
func New(
	watches watch.Repository,
	coupons coupon.Repository,
	validator *coupon.Validator,
	orders *order.Service,
) *Handler {
	return &Handler{
		watches:   watches,
		coupons:   coupons,
		validator: validator,
		orders:    orders,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/watches", h.listWatches)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Post("/{id}/cancel", h.cancelOrder)
		r.Patch("/{id}/status", h.updateOrderStatus)
	})

	r.Post("/coupons/validate", h.validateCoupon)

	r.Route("/admin/coupons", func(r chi.Router) {
		r.Get("/", h.listCoupons)
		r.Post("/", h.createCoupon)
		r.Get("/{id}", h.getCoupon)
		r.Put("/{id}", h.updateCoupon)
		r.Delete("/{id}", h.deleteCoupon)
	})

	return r
}

func userID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}
