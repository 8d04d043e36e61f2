package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
)

const (
	couponColumns = `id, code, description, discount_type, discount_value,
		min_order_value, max_discount_amount, max_usage_count,
		max_usage_per_user, usage_count, starts_at, ends_at, active,
		created_at, updated_at`

	findCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE UPPER(code) = $1`
	getCouponByIDSQL    = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	listCouponsSQL      = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	insertCouponSQL = `INSERT INTO coupons (id, code, description, discount_type,
		discount_value, min_order_value, max_discount_amount, max_usage_count,
		max_usage_per_user, usage_count, starts_at, ends_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	updateCouponSQL = `UPDATE coupons SET code = $2, description = $3,
		discount_type = $4, discount_value = $5, min_order_value = $6,
		max_discount_amount = $7, max_usage_count = $8, max_usage_per_user = $9,
		starts_at = $10, ends_at = $11, active = $12, updated_at = now()
		WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	countUsageByUserSQL = `SELECT count(*) FROM coupon_usages
		WHERE coupon_id = $1 AND user_id = $2`
)

var (
	_ coupon.Repository      = (*CouponRepository)(nil)
	_ coupon.UsageRepository = (*CouponRepository)(nil)
)

// CouponRepository implements coupon.Repository and coupon.UsageRepository
// backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its normalized code.
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, coupon.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return collectCoupon(rows, code)
}

// GetByID returns a coupon by its identifier.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	return collectCoupon(rows, id)
}

// Create inserts a new coupon. The code is stored upper-cased; a duplicate
// code surfaces as coupon.ErrDuplicateCode.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.ID, coupon.NormalizeCode(c.Code), c.Description, c.Type, c.Value,
		c.MinOrder, c.MaxDiscount, c.MaxUses, c.MaxUsesPerUser, c.Uses,
		c.StartsAt, c.EndsAt, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update rewrites a coupon's definition. The usage counter is deliberately
// untouched; it only moves through redemptions and refunds.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, coupon.NormalizeCode(c.Code), c.Description, c.Type, c.Value,
		c.MinOrder, c.MaxDiscount, c.MaxUses, c.MaxUsesPerUser,
		c.StartsAt, c.EndsAt, c.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("updating coupon %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes a coupon by id.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// CountByUser returns how many times a user has redeemed a coupon.
func (r *CouponRepository) CountByUser(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUsageByUserSQL, couponID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting coupon usage: %w", err)
	}
	return n, nil
}

func collectCoupon(rows pgx.Rows, key string) (*coupon.Coupon, error) {
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("collecting coupon %q: %w", key, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.Type, &c.Value,
		&c.MinOrder, &c.MaxDiscount, &c.MaxUses, &c.MaxUsesPerUser, &c.Uses,
		&c.StartsAt, &c.EndsAt, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
