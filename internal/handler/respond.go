package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
	"github.com/longphan200518/watchstore/internal/domain/order"
	"github.com/longphan200518/watchstore/internal/domain/watch"
)

// errorResponse is the envelope for every error the API returns.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps domain errors to HTTP statuses. Expected rule
// rejections keep their messages; anything unrecognized is an internal
// error and its detail stays in the log, not the response.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr  *order.InvalidQuantityError
		wnfErr *order.WatchNotFoundError
		wuErr  *order.WatchUnavailableError
		isErr  *order.InsufficientStockError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &iqErr):
		respondError(w, http.StatusUnprocessableEntity, iqErr.Error())
	case errors.As(err, &wnfErr):
		respondError(w, http.StatusUnprocessableEntity, wnfErr.Error())
	case errors.As(err, &wuErr):
		respondError(w, http.StatusUnprocessableEntity, wuErr.Error())
	case errors.As(err, &isErr):
		respondError(w, http.StatusUnprocessableEntity, isErr.Error())
	case errors.Is(err, order.ErrCouponRejected):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, coupon.ErrUsageLimitReached):
		respondError(w, http.StatusConflict, "coupon usage limit reached")
	case errors.Is(err, coupon.ErrPerUserLimitReached):
		respondError(w, http.StatusConflict, "coupon per-user usage limit reached")
	case errors.Is(err, order.ErrNotFound), errors.Is(err, watch.ErrNotFound), errors.Is(err, coupon.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, order.ErrNotOwner):
		respondError(w, http.StatusForbidden, "order belongs to another user")
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrBadTransition):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, order.ErrConflict):
		respondError(w, http.StatusConflict, "conflicting update, retry the request")
	case errors.Is(err, coupon.ErrDuplicateCode):
		respondError(w, http.StatusConflict, "coupon code already exists")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
