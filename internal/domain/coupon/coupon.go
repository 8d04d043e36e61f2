package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType tags a coupon's discount rule.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the order subtotal,
	// optionally capped by MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a flat amount off the order, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when no coupon exists for a code or id.
	ErrNotFound = errors.New("coupon not found")
	// ErrDuplicateCode is returned when creating a coupon whose code is taken.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrUsageLimitReached is returned when the global redemption cap is
	// exhausted, either during validation or by the conditional increment
	// at commit time.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerUserLimitReached is returned when the per-user redemption cap
	// is exhausted at commit time by the conditional ledger insert.
	ErrPerUserLimitReached = errors.New("coupon per-user usage limit reached")
)

// Coupon is a discount rule identified by a unique, case-insensitive code.
// Codes are stored upper-cased; NormalizeCode must be applied before lookups.
type Coupon struct {
	ID          string
	Code        string
	Description string

	Type  DiscountType
	Value decimal.Decimal
	// MaxDiscount caps percentage discounts. Zero means no cap.
	// Ignored for fixed discounts.
	MaxDiscount decimal.Decimal
	// MinOrder is the minimum order subtotal required to redeem. Zero means none.
	MinOrder decimal.Decimal

	// MaxUses is the global redemption cap; 0 means unlimited.
	MaxUses int
	// MaxUsesPerUser caps redemptions per user; 0 means unlimited.
	MaxUsesPerUser int
	// Uses is the running count of successful redemptions.
	Uses int

	StartsAt *time.Time
	EndsAt   *time.Time
	Active   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Usage is one redemption of a coupon against a specific order.
// Ledger rows are append-only.
type Usage struct {
	ID       string
	CouponID string
	UserID   string
	OrderID  string
	Discount decimal.Decimal
	UsedAt   time.Time
}

// NormalizeCode canonicalizes a coupon code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides lookup and administration of coupons.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Coupon, error)
}

// UsageRepository reads the redemption ledger. Ledger inserts happen inside
// the order transaction and are owned by the order repository.
type UsageRepository interface {
	CountByUser(ctx context.Context, couponID, userID string) (int, error)
}
