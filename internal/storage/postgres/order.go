package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
	"github.com/longphan200518/watchstore/internal/domain/order"
)

const (
	// Stock reservation is a conditional decrement: it only succeeds while
	// the watch is available and has enough stock, so concurrent checkouts
	// can never drive stock_quantity negative.
	reserveStockSQL = `UPDATE watches
		SET stock_quantity = stock_quantity - $2,
		    status = CASE WHEN stock_quantity - $2 = 0 THEN 'out_of_stock' ELSE status END
		WHERE id = $1 AND status = 'available' AND stock_quantity >= $2`

	restoreStockSQL = `UPDATE watches
		SET stock_quantity = stock_quantity + $2,
		    status = CASE WHEN status = 'out_of_stock' THEN 'available' ELSE status END
		WHERE id = $1`

	stockStateSQL = `SELECT status, stock_quantity FROM watches WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (id, user_id, status, subtotal, discount,
		total, coupon_code, shipping_address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, watch_id, quantity, price)
		VALUES ($1, $2, $3, $4)`

	// Redemption is increment-if-below-cap so that two concurrent checkouts
	// cannot both take the last use of a capped coupon.
	redeemCouponSQL = `UPDATE coupons
		SET usage_count = usage_count + 1, updated_at = now()
		WHERE id = $1 AND (max_usage_count = 0 OR usage_count < max_usage_count)`

	refundCouponSQL = `UPDATE coupons
		SET usage_count = GREATEST(usage_count - 1, 0), updated_at = now()
		WHERE id = $1`

	// The ledger insert enforces the per-user cap. The redeem UPDATE above
	// holds the coupon row lock until commit, serializing concurrent
	// redemptions of the same coupon, so the count here always sees prior
	// committed ledger rows.
	insertUsageSQL = `INSERT INTO coupon_usages (id, coupon_id, user_id, order_id,
		discount_amount, used_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE (SELECT max_usage_per_user FROM coupons WHERE id = $2) = 0
		   OR (SELECT count(*) FROM coupon_usages
		       WHERE coupon_id = $2 AND user_id = $3)
		      < (SELECT max_usage_per_user FROM coupons WHERE id = $2)`

	deleteUsageByOrderSQL = `DELETE FROM coupon_usages WHERE order_id = $1
		RETURNING coupon_id`

	getOrderSQL = `SELECT id, user_id, status, subtotal, discount, total,
		coupon_code, shipping_address, notes, created_at, updated_at
		FROM orders WHERE id = $1`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersByUserSQL = `SELECT id, user_id, status, subtotal, discount, total,
		coupon_code, shipping_address, notes, created_at, updated_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	getOrderItemsSQL = `SELECT watch_id, quantity, price FROM order_items
		WHERE order_id = $1 ORDER BY watch_id`

	// Conditional on the source status so a racing update that already moved
	// the order touches zero rows instead of clobbering it.
	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`

	orderStatusSQL = `SELECT status FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. All
// multi-row operations run in a single transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists an order as one atomic unit: stock decrements for every
// item, the order and item rows, and the coupon redemption when present.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, red *order.Redemption) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, item := range o.Items {
			if err := reserveStock(ctx, tx, item.WatchID, item.Quantity); err != nil {
				return err
			}
		}

		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.UserID, o.Status, o.Subtotal, o.Discount, o.Total,
			o.CouponCode, o.ShippingAddress, o.Notes, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting order %q: %w", o.ID, err)
		}

		for _, item := range o.Items {
			if _, err := tx.Exec(ctx, insertOrderItemSQL, o.ID, item.WatchID, item.Quantity, item.Price); err != nil {
				return fmt.Errorf("inserting order item %q: %w", item.WatchID, err)
			}
		}

		if red != nil {
			tag, err := tx.Exec(ctx, redeemCouponSQL, red.CouponID)
			if err != nil {
				return fmt.Errorf("redeeming coupon %q: %w", red.CouponID, err)
			}
			if tag.RowsAffected() == 0 {
				return coupon.ErrUsageLimitReached
			}

			u := red.Usage
			tag, err = tx.Exec(ctx, insertUsageSQL,
				u.ID, u.CouponID, u.UserID, u.OrderID, u.Discount, u.UsedAt,
			)
			if err != nil {
				return fmt.Errorf("inserting coupon usage: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return coupon.ErrPerUserLimitReached
			}
		}

		return nil
	})
}

// reserveStock decrements stock conditionally and, when the decrement loses
// the race or the precondition fails, re-reads the row to report the precise
// reason.
func reserveStock(ctx context.Context, tx pgx.Tx, watchID string, qty int) error {
	tag, err := tx.Exec(ctx, reserveStockSQL, watchID, qty)
	if err != nil {
		return fmt.Errorf("reserving stock for watch %q: %w", watchID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var (
		status string
		stock  int
	)
	err = tx.QueryRow(ctx, stockStateSQL, watchID).Scan(&status, &stock)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return &order.WatchNotFoundError{WatchID: watchID}
	case err != nil:
		return fmt.Errorf("checking stock for watch %q: %w", watchID, err)
	case status != "available":
		return &order.WatchUnavailableError{WatchID: watchID}
	default:
		return &order.InsufficientStockError{WatchID: watchID, Requested: qty, Available: stock}
	}
}

// Cancel cancels a pending order owned by userID, restoring stock for every
// item in the same transaction. With refundCoupon the redemption is undone:
// the usage counter is decremented and the ledger row removed.
func (r *OrderRepository) Cancel(ctx context.Context, orderID, userID string, refundCoupon bool) (*order.Order, error) {
	var cancelled *order.Order
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, getOrderForUpdateSQL, orderID)
		if err != nil {
			return fmt.Errorf("locking order %q: %w", orderID, err)
		}
		o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return fmt.Errorf("locking order %q: %w", orderID, err)
		}

		if o.UserID != userID {
			return order.ErrNotOwner
		}
		if o.Status != order.StatusPending {
			return order.ErrInvalidState
		}

		items, err := loadItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		o.Items = items

		for _, item := range items {
			if _, err := tx.Exec(ctx, restoreStockSQL, item.WatchID, item.Quantity); err != nil {
				return fmt.Errorf("restoring stock for watch %q: %w", item.WatchID, err)
			}
		}

		if _, err := tx.Exec(ctx, updateOrderStatusSQL, orderID, order.StatusCancelled, order.StatusPending); err != nil {
			return fmt.Errorf("cancelling order %q: %w", orderID, err)
		}

		if refundCoupon && o.CouponCode != "" {
			var couponID string
			err := tx.QueryRow(ctx, deleteUsageByOrderSQL, orderID).Scan(&couponID)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				// No ledger row to refund; nothing to do.
			case err != nil:
				return fmt.Errorf("removing coupon usage for order %q: %w", orderID, err)
			default:
				if _, err := tx.Exec(ctx, refundCouponSQL, couponID); err != nil {
					return fmt.Errorf("refunding coupon %q: %w", couponID, err)
				}
			}
		}

		o.Status = order.StatusCancelled
		cancelled = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// UpdateStatus moves an order from one status to another. Transition
// legality is the service's responsibility; this write only guards against
// the source status having changed underneath the caller.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, orderID, to, from)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", orderID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = r.pool.QueryRow(ctx, orderStatusSQL, orderID).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return order.ErrNotFound
	case err != nil:
		return fmt.Errorf("checking order %q status: %w", orderID, err)
	default:
		return order.ErrConflict
	}
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	items, err := loadItems(ctx, r.pool, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// ListByUser returns a user's orders, newest first, items included.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	for i := range list {
		items, err := loadItems(ctx, r.pool, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Items = items
	}
	return list, nil
}

// querier is the subset of pgx.Tx and pgxpool.Pool used by item loading.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, orderID string) ([]order.Item, error) {
	rows, err := q.Query(ctx, getOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.WatchID, &it.Quantity, &it.Price)
		return it, err
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Discount, &o.Total,
		&o.CouponCode, &o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}
