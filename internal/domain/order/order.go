package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
)

// Sentinel errors for order validation and state transitions.
var (
	ErrEmptyItems     = errors.New("items required")
	ErrNotFound       = errors.New("order not found")
	ErrNotOwner       = errors.New("order belongs to another user")
	ErrInvalidState   = errors.New("only pending orders can be cancelled")
	ErrBadTransition  = errors.New("illegal order status transition")
	ErrConflict       = errors.New("order was modified concurrently")
	ErrCouponRejected = errors.New("coupon rejected")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	WatchID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for watch %s", e.WatchID)
}

// WatchNotFoundError indicates a requested watch does not exist.
type WatchNotFoundError struct {
	WatchID string
}

func (e *WatchNotFoundError) Error() string {
	return fmt.Sprintf("watch %s not found", e.WatchID)
}

// WatchUnavailableError indicates a watch that cannot currently be ordered.
type WatchUnavailableError struct {
	WatchID string
}

func (e *WatchUnavailableError) Error() string {
	return fmt.Sprintf("watch %s is not available for purchase", e.WatchID)
}

// InsufficientStockError indicates a requested quantity exceeding stock.
// Available reports how many units remain.
type InsufficientStockError struct {
	WatchID   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for watch %s: requested %d, available %d",
		e.WatchID, e.Requested, e.Available)
}

// Item is a single order line. Price is the unit price snapshotted at order
// time and never re-read from the catalog.
type Item struct {
	WatchID  string
	Quantity int
	Price    decimal.Decimal
}

// Order is a placed customer order. Total is the final payable amount after
// any discount and is never negative.
type Order struct {
	ID              string
	UserID          string
	Status          Status
	Items           []Item
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	CouponCode      string
	ShippingAddress string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Redemption records the coupon bookkeeping that must commit atomically with
// an order: the conditional usage-counter increment plus the ledger row.
type Redemption struct {
	CouponID string
	Usage    coupon.Usage
}

// Repository defines the atomic persistence operations for orders.
//
// Create commits one transaction covering conditional stock decrements for
// every item, the order and item rows, and (when redemption is non-nil) the
// coupon usage increment and ledger insert. On any failure nothing is
// persisted; stock shortfalls surface as *InsufficientStockError and an
// exhausted coupon cap as coupon.ErrUsageLimitReached.
//
// Cancel commits one transaction that restores stock for every item, flips
// out-of-stock watches back to available, and marks the order cancelled.
// It fails with ErrInvalidState unless the order is pending, and with
// ErrNotOwner when userID does not own the order. When refundCoupon is true
// and the order redeemed a coupon, the usage counter is decremented and the
// ledger row removed in the same transaction.
// UpdateStatus writes the new status only while the order still holds the
// status the caller observed, failing with ErrConflict otherwise, so two
// racing updates cannot both apply against the same stale source state.
type Repository interface {
	Create(ctx context.Context, o *Order, r *Redemption) error
	Cancel(ctx context.Context, orderID, userID string, refundCoupon bool) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to Status) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}
