package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Reason is a stable machine-readable code for a validation outcome.
type Reason string

const (
	ReasonOK              Reason = "ok"
	ReasonNotFound        Reason = "not_found"
	ReasonInactive        Reason = "inactive"
	ReasonNotStarted      Reason = "not_started"
	ReasonExpired         Reason = "expired"
	ReasonUsageLimit      Reason = "usage_limit_reached"
	ReasonBelowMinimum    Reason = "below_minimum"
	ReasonPerUserLimit    Reason = "per_user_limit_reached"
	ReasonUnsupportedType Reason = "unsupported_type"
)

// Result is the outcome of validating a coupon code against an order total.
// Valid=false results are expected rejections, not errors; infrastructure
// failures surface as a separate error return.
type Result struct {
	Valid    bool
	Reason   Reason
	Message  string
	Discount decimal.Decimal
	Coupon   *Coupon
}

func reject(reason Reason, message string) *Result {
	return &Result{Reason: reason, Message: message, Discount: decimal.Zero}
}

// Validator checks coupon eligibility and computes the discount. It performs
// no mutation and is safe to call repeatedly, e.g. for live cart previews.
// Redemption bookkeeping happens at order commit, not here.
type Validator struct {
	coupons Repository
	usages  UsageRepository
	now     func() time.Time
}

// NewValidator creates a Validator over the given repositories.
func NewValidator(coupons Repository, usages UsageRepository) *Validator {
	return &Validator{coupons: coupons, usages: usages, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the validator's clock. Intended for tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate runs the eligibility checks in a fixed order, short-circuiting on
// the first failure: existence, active flag, start date, end date, global
// cap, minimum order value, per-user cap, then discount calculation.
// userID may be empty, in which case the per-user cap is not checked.
func (v *Validator) Validate(ctx context.Context, code string, orderTotal decimal.Decimal, userID string) (*Result, error) {
	c, err := v.coupons.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return reject(ReasonNotFound, "coupon does not exist"), nil
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.Active {
		return reject(ReasonInactive, "coupon is inactive"), nil
	}

	now := v.now()
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return reject(ReasonNotStarted, "coupon is not yet valid"), nil
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return reject(ReasonExpired, "coupon has expired"), nil
	}

	if c.MaxUses > 0 && c.Uses >= c.MaxUses {
		return reject(ReasonUsageLimit, "coupon usage limit reached"), nil
	}

	if c.MinOrder.IsPositive() && orderTotal.LessThan(c.MinOrder) {
		return reject(ReasonBelowMinimum,
			fmt.Sprintf("order total must be at least %s to use this coupon", c.MinOrder.StringFixed(0))), nil
	}

	if userID != "" && c.MaxUsesPerUser > 0 {
		used, err := v.usages.CountByUser(ctx, c.ID, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count coupon usage")
		}
		if used >= c.MaxUsesPerUser {
			return reject(ReasonPerUserLimit, "you have reached the usage limit for this coupon"), nil
		}
	}

	discount, err := Calculate(c, orderTotal)
	if err != nil {
		return reject(ReasonUnsupportedType, err.Error()), nil
	}

	return &Result{
		Valid:    true,
		Reason:   ReasonOK,
		Message:  "coupon applied",
		Discount: discount,
		Coupon:   c,
	}, nil
}
