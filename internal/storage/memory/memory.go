// Package memory implements the domain repositories in process memory.
//
// The implementations follow the same conditional-update contract as the
// postgres package: stock decrements and coupon redemptions only succeed
// while their preconditions hold, and an order create is all-or-nothing.
// The package backs tests and local development without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
	"github.com/longphan200518/watchstore/internal/domain/order"
	"github.com/longphan200518/watchstore/internal/domain/watch"
)

// Store holds all state behind one mutex, standing in for the database.
// The repository views returned by Watches, Coupons, and Orders share it.
type Store struct {
	mu      sync.Mutex
	watches map[string]watch.Watch
	coupons map[string]coupon.Coupon
	usages  []coupon.Usage
	orders  map[string]order.Order

	// CreateHook, when set, runs inside the order-create critical section
	// after stock has been decremented but before the order is stored.
	// Returning an error aborts the create; the decrements must be undone.
	CreateHook func(o *order.Order) error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		watches: make(map[string]watch.Watch),
		coupons: make(map[string]coupon.Coupon),
		orders:  make(map[string]order.Order),
	}
}

// PutWatch inserts or replaces a watch.
func (s *Store) PutWatch(w watch.Watch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches[w.ID] = w
}

// PutCoupon inserts or replaces a coupon.
func (s *Store) PutCoupon(c coupon.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons[c.ID] = c
}

// WatchByID returns a copy of a stored watch for assertions.
func (s *Store) WatchByID(id string) (watch.Watch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.watches[id]
	return w, ok
}

// CouponByID returns a copy of a stored coupon for assertions.
func (s *Store) CouponByID(id string) (coupon.Coupon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[id]
	return c, ok
}

// UsageCount returns the number of ledger rows for a coupon.
func (s *Store) UsageCount(couponID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.usages {
		if u.CouponID == couponID {
			n++
		}
	}
	return n
}

// Watches returns the watch.Repository view of the store.
func (s *Store) Watches() *WatchRepository { return &WatchRepository{s: s} }

// Coupons returns the coupon repository view of the store.
func (s *Store) Coupons() *CouponRepository { return &CouponRepository{s: s} }

// Orders returns the order.Repository view of the store.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// WatchRepository implements watch.Repository over a Store.
type WatchRepository struct {
	s *Store
}

var _ watch.Repository = (*WatchRepository)(nil)

func (r *WatchRepository) List(context.Context) ([]watch.Watch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]watch.Watch, 0, len(r.s.watches))
	for _, w := range r.s.watches {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *WatchRepository) GetByID(_ context.Context, id string) (*watch.Watch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.watches[id]
	if !ok {
		return nil, watch.ErrNotFound
	}
	return &w, nil
}

func (r *WatchRepository) GetByIDs(_ context.Context, ids []string) ([]watch.Watch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]watch.Watch, 0, len(ids))
	for _, id := range ids {
		if w, ok := r.s.watches[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

// CouponRepository implements coupon.Repository and coupon.UsageRepository
// over a Store.
type CouponRepository struct {
	s *Store
}

var (
	_ coupon.Repository      = (*CouponRepository)(nil)
	_ coupon.UsageRepository = (*CouponRepository)(nil)
)

func (r *CouponRepository) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	code = coupon.NormalizeCode(code)
	for _, c := range r.s.coupons {
		if coupon.NormalizeCode(c.Code) == code {
			return &c, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (r *CouponRepository) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (r *CouponRepository) Create(_ context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	code := coupon.NormalizeCode(c.Code)
	for _, existing := range r.s.coupons {
		if coupon.NormalizeCode(existing.Code) == code {
			return coupon.ErrDuplicateCode
		}
	}
	stored := *c
	stored.Code = code
	r.s.coupons[c.ID] = stored
	return nil
}

func (r *CouponRepository) Update(_ context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.coupons[c.ID]
	if !ok {
		return coupon.ErrNotFound
	}
	code := coupon.NormalizeCode(c.Code)
	for id, other := range r.s.coupons {
		if id != c.ID && coupon.NormalizeCode(other.Code) == code {
			return coupon.ErrDuplicateCode
		}
	}
	stored := *c
	stored.Code = code
	stored.Uses = existing.Uses
	r.s.coupons[c.ID] = stored
	return nil
}

func (r *CouponRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.coupons[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(r.s.coupons, id)
	return nil
}

func (r *CouponRepository) List(context.Context) ([]coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]coupon.Coupon, 0, len(r.s.coupons))
	for _, c := range r.s.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *CouponRepository) CountByUser(_ context.Context, couponID, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, u := range r.s.usages {
		if u.CouponID == couponID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

// OrderRepository implements order.Repository over a Store.
type OrderRepository struct {
	s *Store
}

var _ order.Repository = (*OrderRepository)(nil)

// Create applies the same all-or-nothing semantics as the SQL transaction:
// every mutation is undone when any step fails.
func (r *OrderRepository) Create(_ context.Context, o *order.Order, red *order.Redemption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Conditional stock decrements, undone on any later failure.
	decremented := make([]order.Item, 0, len(o.Items))
	undo := func() {
		for _, item := range decremented {
			w := r.s.watches[item.WatchID]
			if w.Stock == 0 && w.Status == watch.StatusOutOfStock {
				w.Status = watch.StatusAvailable
			}
			w.Stock += item.Quantity
			r.s.watches[item.WatchID] = w
		}
	}

	for _, item := range o.Items {
		w, ok := r.s.watches[item.WatchID]
		switch {
		case !ok:
			undo()
			return &order.WatchNotFoundError{WatchID: item.WatchID}
		case w.Status != watch.StatusAvailable:
			undo()
			return &order.WatchUnavailableError{WatchID: item.WatchID}
		case w.Stock < item.Quantity:
			undo()
			return &order.InsufficientStockError{
				WatchID:   item.WatchID,
				Requested: item.Quantity,
				Available: w.Stock,
			}
		}
		w.Stock -= item.Quantity
		if w.Stock == 0 {
			w.Status = watch.StatusOutOfStock
		}
		r.s.watches[item.WatchID] = w
		decremented = append(decremented, item)
	}

	if r.s.CreateHook != nil {
		if err := r.s.CreateHook(o); err != nil {
			undo()
			return err
		}
	}

	if red != nil {
		c, ok := r.s.coupons[red.CouponID]
		if !ok {
			undo()
			return coupon.ErrNotFound
		}
		if c.MaxUses > 0 && c.Uses >= c.MaxUses {
			undo()
			return coupon.ErrUsageLimitReached
		}
		if c.MaxUsesPerUser > 0 {
			used := 0
			for _, u := range r.s.usages {
				if u.CouponID == red.CouponID && u.UserID == red.Usage.UserID {
					used++
				}
			}
			if used >= c.MaxUsesPerUser {
				undo()
				return coupon.ErrPerUserLimitReached
			}
		}
		c.Uses++
		r.s.coupons[red.CouponID] = c
		r.s.usages = append(r.s.usages, red.Usage)
	}

	stored := *o
	stored.Items = append([]order.Item(nil), o.Items...)
	r.s.orders[o.ID] = stored
	return nil
}

func (r *OrderRepository) Cancel(_ context.Context, orderID, userID string, refundCoupon bool) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.UserID != userID {
		return nil, order.ErrNotOwner
	}
	if o.Status != order.StatusPending {
		return nil, order.ErrInvalidState
	}

	for _, item := range o.Items {
		w := r.s.watches[item.WatchID]
		w.Stock += item.Quantity
		if w.Status == watch.StatusOutOfStock {
			w.Status = watch.StatusAvailable
		}
		r.s.watches[item.WatchID] = w
	}

	if refundCoupon && o.CouponCode != "" {
		for i, u := range r.s.usages {
			if u.OrderID == orderID {
				if c, ok := r.s.coupons[u.CouponID]; ok && c.Uses > 0 {
					c.Uses--
					r.s.coupons[u.CouponID] = c
				}
				r.s.usages = append(r.s.usages[:i], r.s.usages[i+1:]...)
				break
			}
		}
	}

	o.Status = order.StatusCancelled
	r.s.orders[orderID] = o
	return &o, nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, orderID string, from, to order.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrConflict
	}
	o.Status = to
	r.s.orders[orderID] = o
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, orderID string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []order.Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
