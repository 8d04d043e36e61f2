package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
	"github.com/longphan200518/watchstore/internal/domain/order"
)

type orderItemRequest struct {
	WatchID  string `json:"watchId"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	CouponCode      string             `json:"couponCode,omitempty"`
	ShippingAddress string             `json:"shippingAddress"`
	Notes           string             `json:"notes,omitempty"`
}

type orderItemView struct {
	WatchID  string          `json:"watchId"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type orderView struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Status          string          `json:"status"`
	Items           []orderItemView `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	CouponCode      string          `json:"couponCode,omitempty"`
	ShippingAddress string          `json:"shippingAddress"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type createOrderResponse struct {
	Order  orderView         `json:"order"`
	Coupon *couponResultView `json:"coupon,omitempty"`
}

func toOrderView(o *order.Order) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{WatchID: it.WatchID, Quantity: it.Quantity, Price: it.Price}
	}
	return orderView{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		Items:           items,
		Subtotal:        o.Subtotal,
		Discount:        o.Discount,
		Total:           o.Total,
		CouponCode:      o.CouponCode,
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{WatchID: it.WatchID, Quantity: it.Quantity}
	}

	result, err := h.orders.Create(r.Context(), order.CreateRequest{
		UserID:          uid,
		Items:           items,
		CouponCode:      req.CouponCode,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := createOrderResponse{Order: toOrderView(result.Order)}
	if result.Coupon != nil {
		v := toCouponResultView(result.Coupon)
		resp.Coupon = &v
	}
	respond(w, http.StatusCreated, resp)
}

// listOrders returns the calling user's orders, newest first.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	list, err := h.orders.ListByUser(r.Context(), uid)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	views := make([]orderView, len(list))
	for i := range list {
		views[i] = toOrderView(&list[i])
	}
	respond(w, http.StatusOK, views)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderView(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), uid)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderView(o))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	next := order.Status(req.Status)
	if !next.Valid() {
		respondError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), next); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

// couponResultView mirrors coupon.Result for API responses.
type couponResultView struct {
	IsValid  bool            `json:"isValid"`
	Reason   string          `json:"reason"`
	Message  string          `json:"message"`
	Discount decimal.Decimal `json:"discountAmount"`
}

func toCouponResultView(res *coupon.Result) couponResultView {
	return couponResultView{
		IsValid:  res.Valid,
		Reason:   string(res.Reason),
		Message:  res.Message,
		Discount: res.Discount,
	}
}
