package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
	"github.com/longphan200518/watchstore/internal/domain/watch"
)

// --- Mock implementations ---

type mockWatchRepo struct {
	byID   map[string]watch.Watch
	getErr error
}

func (m *mockWatchRepo) List(_ context.Context) ([]watch.Watch, error) {
	return nil, nil
}

func (m *mockWatchRepo) GetByID(_ context.Context, id string) (*watch.Watch, error) {
	w, ok := m.byID[id]
	if !ok {
		return nil, watch.ErrNotFound
	}
	return &w, nil
}

func (m *mockWatchRepo) GetByIDs(_ context.Context, ids []string) ([]watch.Watch, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]watch.Watch, 0, len(ids))
	for _, id := range ids {
		if w, ok := m.byID[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

type mockCouponValidator struct {
	result *coupon.Result
	err    error
}

func (m *mockCouponValidator) Validate(_ context.Context, _ string, _ decimal.Decimal, _ string) (*coupon.Result, error) {
	return m.result, m.err
}

type mockOrderRepo struct {
	lastOrder      *Order
	lastRedemption *Redemption
	createErr      error

	cancelled    *Order
	cancelRefund bool
	cancelErr    error

	stored       *Order
	updatedFrom  Status
	updatedTo    Status
	updateCalled bool
	updateErr    error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order, r *Redemption) error {
	m.lastOrder = o
	m.lastRedemption = r
	return m.createErr
}

func (m *mockOrderRepo) Cancel(_ context.Context, _, _ string, refundCoupon bool) (*Order, error) {
	m.cancelRefund = refundCoupon
	return m.cancelled, m.cancelErr
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ string, from, to Status) error {
	m.updateCalled = true
	m.updatedFrom = from
	m.updatedTo = to
	return m.updateErr
}

func (m *mockOrderRepo) GetByID(_ context.Context, _ string) (*Order, error) {
	if m.stored == nil {
		return nil, ErrNotFound
	}
	return m.stored, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]Order, error) {
	return nil, nil
}

// --- Helpers ---

func newTestWatch(id string, price int64, stock int) watch.Watch {
	return watch.Watch{
		ID:     id,
		Name:   "Test " + id,
		Brand:  "Testbrand",
		Price:  decimal.NewFromInt(price),
		Stock:  stock,
		Status: watch.StatusAvailable,
	}
}

func newWatchRepo(watches ...watch.Watch) *mockWatchRepo {
	byID := make(map[string]watch.Watch, len(watches))
	for _, w := range watches {
		byID[w.ID] = w
	}
	return &mockWatchRepo{byID: byID}
}

func validResult(c *coupon.Coupon, discount int64) *coupon.Result {
	return &coupon.Result{
		Valid:    true,
		Reason:   coupon.ReasonOK,
		Message:  "coupon applied",
		Discount: decimal.NewFromInt(discount),
		Coupon:   c,
	}
}

// --- Tests ---

func TestCreate_EmptyItems(t *testing.T) {
	svc := NewService(newWatchRepo(), &mockCouponValidator{}, &mockOrderRepo{}, nil, Config{})

	_, err := svc.Create(context.Background(), CreateRequest{UserID: "u1"})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreate_InvalidQuantity(t *testing.T) {
	w1 := newTestWatch("w1", 1_000_000, 5)
	svc := NewService(newWatchRepo(w1), &mockCouponValidator{}, &mockOrderRepo{}, nil, Config{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "u1",
		Items:  []ItemRequest{{WatchID: "w1", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "w1", iqErr.WatchID)
}

func TestCreate_WatchNotFound(t *testing.T) {
	svc := NewService(newWatchRepo(), &mockCouponValidator{}, &mockOrderRepo{}, nil, Config{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "u1",
		Items:  []ItemRequest{{WatchID: "missing", Quantity: 1}},
	})

	var nfErr *WatchNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "missing", nfErr.WatchID)
}

func TestCreate_WatchUnavailable(t *testing.T) {
	w1 := newTestWatch("w1", 1_000_000, 5)
	w1.Status = watch.StatusDiscontinued
	svc := NewService(newWatchRepo(w1), &mockCouponValidator{}, &mockOrderRepo{}, nil, Config{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "u1",
		Items:  []ItemRequest{{WatchID: "w1", Quantity: 1}},
	})

	var uaErr *WatchUnavailableError
	require.ErrorAs(t, err, &uaErr)
	assert.Equal(t, "w1", uaErr.WatchID)
}

func TestCreate_InsufficientStock(t *testing.T) {
	w1 := newTestWatch("w1", 1_000_000, 2)
	svc := NewService(newWatchRepo(w1), &mockCouponValidator{}, &mockOrderRepo{}, nil, Config{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "u1",
		Items:  []ItemRequest{{WatchID: "w1", Quantity: 3}},
	})

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, "w1", isErr.WatchID)
	assert.Equal(t, 3, isErr.Requested)
	assert.Equal(t, 2, isErr.Available)
}

func TestCreate_NoCoupon(t *testing.T) {
	w1 := newTestWatch("w1", 1_000_000, 5)
	w2 := newTestWatch("w2", 2_500_000, 5)
	repo := &mockOrderRepo{}
	svc := NewService(newWatchRepo(w1, w2), &mockCouponValidator{}, repo, nil, Config{})

	result, err := svc.Create(context.Background(), CreateRequest{
		UserID: "u1",
		Items: []ItemRequest{
			{WatchID: "w1", Quantity: 2},
			{WatchID: "w2", Quantity: 1},
		},
	})

	require.NoError(t, err)
	o := result.Order
	assert.True(t, decimal.NewFromInt(4_500_000).Equal(o.Subtotal))
	assert.True(t, decimal.Zero.Equal(o.Discount))
	assert.True(t, decimal.NewFromInt(4_500_000).Equal(o.Total))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.NotEmpty(t, o.ID)
	assert.Nil(t, result.Coupon)
	assert.Nil(t, repo.lastRedemption)

	// Unit prices are snapshotted onto the items.
	require.Len(t, o.Items, 2)
	assert.True(t, decimal.NewFromInt(1_000_000).Equal(o.Items[0].Price))
	assert.True(t, decimal.NewFromInt(2_500_000).Equal(o.Items[1].Price))
}

func TestCreate_WithValidCoupon(t *testing.T) {
	w1 := newTestWatch("w1", 5_000_000, 5)
	c := &coupon.Coupon{ID: "c1", Code: "SAVE10"}
	cv := &mockCouponValidator{result: validResult(c, 500_000)}
	repo := &mockOrderRepo{}
	svc := NewService(newWatchRepo(w1), cv, repo, nil, Config{})

	result, err := svc.Create(context.Background(), CreateRequest{
		UserID:     "u1",
		Items:      []ItemRequest{{WatchID: "w1", Quantity: 1}},
		CouponCode: "save10",
	})

	require.NoError(t, err)
	o := result.Order
	assert.True(t, decimal.NewFromInt(5_000_000).Equal(o.Subtotal))
	assert.True(t, decimal.NewFromInt(500_000).Equal(o.Discount))
	assert.True(t, decimal.NewFromInt(4_500_000).Equal(o.Total))
	assert.Equal(t, "SAVE10", o.CouponCode)

	require.NotNil(t, result.Coupon)
	assert.True(t, result.Coupon.Valid)

	// The redemption rides along into the atomic create.
	require.NotNil(t, repo.lastRedemption)
	assert.Equal(t, "c1", repo.lastRedemption.CouponID)
	assert.Equal(t, "u1", repo.lastRedemption.Usage.UserID)
	assert.Equal(t, o.ID, repo.lastRedemption.Usage.OrderID)
	assert.True(t, decimal.NewFromInt(500_000).Equal(repo.lastRedemption.Usage.Discount))
}

func TestCreate_RejectedCouponAborts(t *testing.T) {
	w1 := newTestWatch("w1", 5_000_000, 5)
	cv := &mockCouponValidator{result: &coupon.Result{
		Reason:  coupon.ReasonExpired,
		Message: "coupon has expired",
	}}
	repo := &mockOrderRepo{}
	svc := NewService(newWatchRepo(w1), cv, repo, nil, Config{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:     "u1",
		Items:      []ItemRequest{{WatchID: "w1", Quantity: 1}},
		CouponCode: "OLD",
	})

	require.ErrorIs(t, err, ErrCouponRejected)
	assert.Contains(t, err.Error(), "coupon has expired")
	assert.Nil(t, repo.lastOrder)
}

func TestCreate_RejectedCouponDropped(t *testing.T) {
	w1 := newTestWatch("w1", 5_000_000, 5)
	cv := &mockCouponValidator{result: &coupon.Result{
		Reason:  coupon.ReasonExpired,
		Message: "coupon has expired",
	}}
	repo := &mockOrderRepo{}
	svc := NewService(newWatchRepo(w1), cv, repo, nil, Config{DropInvalidCoupon: true})

	result, err := svc.Create(context.Background(), CreateRequest{
		UserID:     "u1",
		Items:      []ItemRequest{{WatchID: "w1", Quantity: 1}},
		CouponCode: "OLD",
	})

	require.NoError(t, err)
	o := result.Order
	assert.True(t, decimal.Zero.Equal(o.Discount))
	assert.True(t, decimal.NewFromInt(5_000_000).Equal(o.Total))
	assert.Empty(t, o.CouponCode)
	assert.Nil(t, repo.lastRedemption)

	// The rejection still reaches the caller.
	require.NotNil(t, result.Coupon)
	assert.False(t, result.Coupon.Valid)
	assert.Equal(t, coupon.ReasonExpired, result.Coupon.Reason)
}

func TestCreate_CouponValidatorError(t *testing.T) {
	w1 := newTestWatch("w1", 5_000_000, 5)
	cv := &mockCouponValidator{err: errors.New("db down")}
	svc := NewService(newWatchRepo(w1), cv, &mockOrderRepo{}, nil, Config{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:     "u1",
		Items:      []ItemRequest{{WatchID: "w1", Quantity: 1}},
		CouponCode: "ANY",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate coupon")
}

func TestCreate_TotalFlooredAtZero(t *testing.T) {
	w1 := newTestWatch("w1", 100_000, 5)
	c := &coupon.Coupon{ID: "c1", Code: "HUGE"}
	cv := &mockCouponValidator{result: validResult(c, 999_999)}
	svc := NewService(newWatchRepo(w1), cv, &mockOrderRepo{}, nil, Config{})

	result, err := svc.Create(context.Background(), CreateRequest{
		UserID:     "u1",
		Items:      []ItemRequest{{WatchID: "w1", Quantity: 1}},
		CouponCode: "HUGE",
	})

	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(result.Order.Total))
}

func TestCreate_RepoError(t *testing.T) {
	w1 := newTestWatch("w1", 1_000_000, 5)
	repo := &mockOrderRepo{createErr: errors.New("db write failed")}
	svc := NewService(newWatchRepo(w1), &mockCouponValidator{}, repo, nil, Config{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "u1",
		Items:  []ItemRequest{{WatchID: "w1", Quantity: 1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestCancel_RefundPolicy(t *testing.T) {
	for _, refund := range []bool{true, false} {
		repo := &mockOrderRepo{cancelled: &Order{ID: "o1", Status: StatusCancelled}}
		svc := NewService(newWatchRepo(), &mockCouponValidator{}, repo, nil, Config{
			RefundCouponOnCancel: refund,
		})

		o, err := svc.Cancel(context.Background(), "o1", "u1")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, refund, repo.cancelRefund)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := &mockOrderRepo{stored: &Order{ID: "o1", Status: StatusPending}}
	svc := NewService(newWatchRepo(), &mockCouponValidator{}, repo, nil, Config{})

	require.NoError(t, svc.UpdateStatus(context.Background(), "o1", StatusProcessing))
	assert.True(t, repo.updateCalled)
	assert.Equal(t, StatusPending, repo.updatedFrom, "write is conditional on the observed status")
	assert.Equal(t, StatusProcessing, repo.updatedTo)
}

func TestUpdateStatus_Conflict(t *testing.T) {
	// The order moved between the read and the conditional write; the
	// repository's zero-row result surfaces as a conflict.
	repo := &mockOrderRepo{
		stored:    &Order{ID: "o1", Status: StatusPending},
		updateErr: ErrConflict,
	}
	svc := NewService(newWatchRepo(), &mockCouponValidator{}, repo, nil, Config{})

	err := svc.UpdateStatus(context.Background(), "o1", StatusProcessing)
	require.ErrorIs(t, err, ErrConflict)
}

func TestUpdateStatus_BadTransition(t *testing.T) {
	repo := &mockOrderRepo{stored: &Order{ID: "o1", Status: StatusDelivered}}
	svc := NewService(newWatchRepo(), &mockCouponValidator{}, repo, nil, Config{})

	err := svc.UpdateStatus(context.Background(), "o1", StatusShipped)
	require.ErrorIs(t, err, ErrBadTransition)
	assert.False(t, repo.updateCalled)
}

func TestUpdateStatus_CancelledBlocked(t *testing.T) {
	repo := &mockOrderRepo{stored: &Order{ID: "o1", Status: StatusPending}}
	svc := NewService(newWatchRepo(), &mockCouponValidator{}, repo, nil, Config{})

	err := svc.UpdateStatus(context.Background(), "o1", StatusCancelled)
	require.ErrorIs(t, err, ErrBadTransition)
	assert.False(t, repo.updateCalled)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc := NewService(newWatchRepo(), &mockCouponValidator{}, &mockOrderRepo{}, nil, Config{})

	err := svc.UpdateStatus(context.Background(), "missing", StatusShipped)
	require.ErrorIs(t, err, ErrNotFound)
}
