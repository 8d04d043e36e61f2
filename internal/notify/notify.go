// Package notify delivers best-effort customer notifications.
package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/longphan200518/watchstore/internal/domain/order"
)

// LogNotifier records order confirmations in the service log. It stands in
// for an email gateway; failures stay inside this package and never reach
// the order flow.
type LogNotifier struct{}

var _ order.Notifier = LogNotifier{}

// NewLogNotifier returns a LogNotifier.
func NewLogNotifier() LogNotifier {
	return LogNotifier{}
}

// OrderConfirmation logs that an order was placed.
func (LogNotifier) OrderConfirmation(ctx context.Context, o *order.Order) {
	zctx.From(ctx).Info("order confirmation",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", o.Total.String()),
		zap.String("coupon_code", o.CouponCode),
	)
}
