package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
	"github.com/longphan200518/watchstore/internal/domain/watch"
)

// CouponValidator validates a coupon code against an order subtotal.
type CouponValidator interface {
	Validate(ctx context.Context, code string, orderTotal decimal.Decimal, userID string) (*coupon.Result, error)
}

// Notifier delivers best-effort order notifications. Implementations own
// their error handling; a failed notification never affects the order.
type Notifier interface {
	OrderConfirmation(ctx context.Context, o *Order)
}

// Config holds the order service's policy knobs.
type Config struct {
	// DropInvalidCoupon controls what happens when the coupon code on a
	// create request fails validation: false aborts the whole order,
	// true places the order without a discount and reports the rejection.
	DropInvalidCoupon bool
	// RefundCouponOnCancel controls whether cancelling an order refunds
	// the coupon redemption. Off by default: a spent code stays spent.
	RefundCouponOnCancel bool
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	UserID          string
	Items           []ItemRequest
	CouponCode      string
	ShippingAddress string
	Notes           string
}

// ItemRequest is one requested line: which watch and how many.
type ItemRequest struct {
	WatchID  string
	Quantity int
}

// CreateResult is the outcome of a successful order placement. Coupon is set
// whenever a code was submitted, including rejected-but-dropped codes.
type CreateResult struct {
	Order  *Order
	Coupon *coupon.Result
}

// Service assembles orders: it validates requested items against the catalog,
// snapshots prices, applies coupon discounts, and drives the atomic persist.
type Service struct {
	watches  watch.Repository
	coupons  CouponValidator
	orders   Repository
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
// notifier may be nil.
func NewService(watches watch.Repository, coupons CouponValidator, orders Repository, notifier Notifier, cfg Config) *Service {
	return &Service{
		watches:  watches,
		coupons:  coupons,
		orders:   orders,
		notifier: notifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create places an order. Items are validated against the catalog, prices
// are snapshotted, stock is reserved, and any coupon is redeemed, all
// committed as one atomic unit by the repository. The pre-checks here give
// precise errors early; the repository's conditional updates remain the
// authority under concurrency.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{WatchID: item.WatchID}
		}
		ids[i] = item.WatchID
	}

	fetched, err := s.watches.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get watches: %w", err)
	}
	byID := make(map[string]watch.Watch, len(fetched))
	for _, w := range fetched {
		byID[w.ID] = w
	}

	// Snapshot unit prices and accumulate the subtotal.
	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		w, ok := byID[item.WatchID]
		if !ok {
			return nil, &WatchNotFoundError{WatchID: item.WatchID}
		}
		if w.Status != watch.StatusAvailable {
			return nil, &WatchUnavailableError{WatchID: item.WatchID}
		}
		if w.Stock < item.Quantity {
			return nil, &InsufficientStockError{
				WatchID:   item.WatchID,
				Requested: item.Quantity,
				Available: w.Stock,
			}
		}

		items[i] = Item{
			WatchID:  item.WatchID,
			Quantity: item.Quantity,
			Price:    w.Price,
		}
		subtotal = subtotal.Add(w.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	var (
		couponResult *coupon.Result
		discount     = decimal.Zero
		couponCode   string
	)
	if req.CouponCode != "" {
		couponResult, err = s.coupons.Validate(ctx, req.CouponCode, subtotal, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		switch {
		case couponResult.Valid:
			discount = couponResult.Discount
			couponCode = couponResult.Coupon.Code
		case s.cfg.DropInvalidCoupon:
			// Order proceeds undiscounted; the rejection rides along in
			// the result so the caller can tell the customer.
		default:
			return nil, fmt.Errorf("%w: %s", ErrCouponRejected, couponResult.Message)
		}
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Status:          StatusPending,
		Items:           items,
		Subtotal:        subtotal.Round(0),
		Discount:        discount.Round(0),
		Total:           total.Round(0),
		CouponCode:      couponCode,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var redemption *Redemption
	if couponCode != "" {
		redemption = &Redemption{
			CouponID: couponResult.Coupon.ID,
			Usage: coupon.Usage{
				ID:       uuid.New().String(),
				CouponID: couponResult.Coupon.ID,
				UserID:   req.UserID,
				OrderID:  o.ID,
				Discount: o.Discount,
				UsedAt:   now,
			},
		}
	}

	if err := s.orders.Create(ctx, o, redemption); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.Int("order.items", len(o.Items)),
		attribute.String("order.total", o.Total.String()),
	)

	if s.notifier != nil {
		s.notifier.OrderConfirmation(ctx, o)
	}

	return &CreateResult{Order: o, Coupon: couponResult}, nil
}

// Cancel cancels a pending order on behalf of its owner and restores the
// reserved stock. Whether the coupon redemption is refunded follows the
// service policy.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.orders.Cancel(ctx, orderID, userID, s.cfg.RefundCouponOnCancel)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus applies an admin-driven status transition after checking it
// against the status machine.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, o.Status, next)
	}
	return s.orders.UpdateStatus(ctx, orderID, o.Status, next)
}

// Get returns a single order by id.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListByUser returns all orders placed by a user, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}
