package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
)

type validateCouponRequest struct {
	Code       string          `json:"code"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
}

// validateCoupon is the live-preview endpoint: it never mutates anything,
// so rejected codes come back as 200 with isValid=false.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "coupon code required")
		return
	}

	res, err := h.validator.Validate(r.Context(), req.Code, req.OrderTotal, userID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toCouponResultView(res))
}

type couponPayload struct {
	Code            string          `json:"code"`
	Description     string          `json:"description,omitempty"`
	DiscountType    string          `json:"discountType"`
	DiscountValue   decimal.Decimal `json:"discountValue"`
	MinOrderValue   decimal.Decimal `json:"minOrderValue,omitempty"`
	MaxDiscount     decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	MaxUsageCount   int             `json:"maxUsageCount,omitempty"`
	MaxUsagePerUser int             `json:"maxUsagePerUser,omitempty"`
	StartsAt        *time.Time      `json:"startDate,omitempty"`
	EndsAt          *time.Time      `json:"endDate,omitempty"`
	Active          bool            `json:"isActive"`
}

type couponView struct {
	ID string `json:"id"`
	couponPayload
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toCouponView(c *coupon.Coupon) couponView {
	return couponView{
		ID: c.ID,
		couponPayload: couponPayload{
			Code:            c.Code,
			Description:     c.Description,
			DiscountType:    string(c.Type),
			DiscountValue:   c.Value,
			MinOrderValue:   c.MinOrder,
			MaxDiscount:     c.MaxDiscount,
			MaxUsageCount:   c.MaxUses,
			MaxUsagePerUser: c.MaxUsesPerUser,
			StartsAt:        c.StartsAt,
			EndsAt:          c.EndsAt,
			Active:          c.Active,
		},
		UsageCount: c.Uses,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// validateCouponPayload enforces the admin-side invariants the validator
// itself does not check: known discount type, non-negative amounts,
// percentage within 0-100, and endDate after startDate.
func validateCouponPayload(p *couponPayload) string {
	if coupon.NormalizeCode(p.Code) == "" {
		return "coupon code required"
	}
	t := coupon.DiscountType(p.DiscountType)
	if t != coupon.DiscountPercentage && t != coupon.DiscountFixed {
		return "discountType must be percentage or fixed"
	}
	if p.DiscountValue.IsNegative() {
		return "discountValue must not be negative"
	}
	if t == coupon.DiscountPercentage && p.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return "percentage discountValue must not exceed 100"
	}
	if p.MinOrderValue.IsNegative() || p.MaxDiscount.IsNegative() {
		return "amounts must not be negative"
	}
	if p.MaxUsageCount < 0 || p.MaxUsagePerUser < 0 {
		return "usage caps must not be negative"
	}
	if p.StartsAt != nil && p.EndsAt != nil && !p.EndsAt.After(*p.StartsAt) {
		return "endDate must be after startDate"
	}
	return ""
}

func payloadToCoupon(p *couponPayload, id string, now time.Time) *coupon.Coupon {
	return &coupon.Coupon{
		ID:             id,
		Code:           coupon.NormalizeCode(p.Code),
		Description:    p.Description,
		Type:           coupon.DiscountType(p.DiscountType),
		Value:          p.DiscountValue,
		MinOrder:       p.MinOrderValue,
		MaxDiscount:    p.MaxDiscount,
		MaxUses:        p.MaxUsageCount,
		MaxUsesPerUser: p.MaxUsagePerUser,
		StartsAt:       p.StartsAt,
		EndsAt:         p.EndsAt,
		Active:         p.Active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var p couponPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateCouponPayload(&p); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	c := payloadToCoupon(&p, uuid.New().String(), time.Now().UTC())
	if err := h.coupons.Create(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toCouponView(c))
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toCouponView(c))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var p couponPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateCouponPayload(&p); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	c := payloadToCoupon(&p, chi.URLParam(r, "id"), time.Now().UTC())
	if err := h.coupons.Update(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}

	updated, err := h.coupons.GetByID(r.Context(), c.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toCouponView(updated))
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.coupons.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	views := make([]couponView, len(list))
	for i := range list {
		views[i] = toCouponView(&list[i])
	}
	respond(w, http.StatusOK, views)
}
