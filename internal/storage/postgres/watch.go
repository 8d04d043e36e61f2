package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/longphan200518/watchstore/internal/domain/watch"
)

const (
	listWatchesSQL = `SELECT id, name, brand, price, stock_quantity, status
		FROM watches ORDER BY id`

	getWatchByIDSQL = `SELECT id, name, brand, price, stock_quantity, status
		FROM watches WHERE id = $1`

	getWatchesByIDsSQL = `SELECT id, name, brand, price, stock_quantity, status
		FROM watches WHERE id = ANY($1)`
)

var _ watch.Repository = (*WatchRepository)(nil)

// WatchRepository implements watch.Repository backed by PostgreSQL.
type WatchRepository struct {
	pool *pgxpool.Pool
}

// NewWatchRepository returns a WatchRepository that uses the given pool.
func NewWatchRepository(pool *pgxpool.Pool) *WatchRepository {
	return &WatchRepository{pool: pool}
}

// List returns the full catalog ordered by ID.
func (r *WatchRepository) List(ctx context.Context) ([]watch.Watch, error) {
	rows, err := r.pool.Query(ctx, listWatchesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing watches: %w", err)
	}
	return pgx.CollectRows(rows, scanWatch)
}

// GetByID returns a single watch by its identifier.
func (r *WatchRepository) GetByID(ctx context.Context, id string) (*watch.Watch, error) {
	rows, err := r.pool.Query(ctx, getWatchByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting watch %q: %w", id, err)
	}

	w, err := pgx.CollectExactlyOneRow(rows, scanWatch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, watch.ErrNotFound
		}
		return nil, fmt.Errorf("getting watch %q: %w", id, err)
	}
	return &w, nil
}

// GetByIDs returns watches matching any of the given IDs.
func (r *WatchRepository) GetByIDs(ctx context.Context, ids []string) ([]watch.Watch, error) {
	rows, err := r.pool.Query(ctx, getWatchesByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting watches by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanWatch)
}

func scanWatch(row pgx.CollectableRow) (watch.Watch, error) {
	var w watch.Watch
	err := row.Scan(&w.ID, &w.Name, &w.Brand, &w.Price, &w.Stock, &w.Status)
	return w, err
}
