package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name       string
		coupon     *Coupon
		orderTotal decimal.Decimal
		want       decimal.Decimal
		wantErr    bool
	}{
		{
			name: "percentage of subtotal",
			coupon: &Coupon{
				Type:  DiscountPercentage,
				Value: decimal.NewFromInt(10),
			},
			orderTotal: decimal.NewFromInt(2_000_000),
			want:       decimal.NewFromInt(200_000),
		},
		{
			name: "percentage capped by max discount",
			coupon: &Coupon{
				Type:        DiscountPercentage,
				Value:       decimal.NewFromInt(20),
				MaxDiscount: decimal.NewFromInt(100_000),
			},
			orderTotal: decimal.NewFromInt(1_000_000),
			want:       decimal.NewFromInt(100_000),
		},
		{
			name: "percentage under max discount is not capped",
			coupon: &Coupon{
				Type:        DiscountPercentage,
				Value:       decimal.NewFromInt(10),
				MaxDiscount: decimal.NewFromInt(500_000),
			},
			orderTotal: decimal.NewFromInt(1_000_000),
			want:       decimal.NewFromInt(100_000),
		},
		{
			name: "zero max discount means no cap",
			coupon: &Coupon{
				Type:  DiscountPercentage,
				Value: decimal.NewFromInt(50),
			},
			orderTotal: decimal.NewFromInt(10_000_000),
			want:       decimal.NewFromInt(5_000_000),
		},
		{
			name: "fixed amount",
			coupon: &Coupon{
				Type:  DiscountFixed,
				Value: decimal.NewFromInt(50_000),
			},
			orderTotal: decimal.NewFromInt(300_000),
			want:       decimal.NewFromInt(50_000),
		},
		{
			name: "fixed amount clamped to subtotal",
			coupon: &Coupon{
				Type:  DiscountFixed,
				Value: decimal.NewFromInt(50_000),
			},
			orderTotal: decimal.NewFromInt(30_000),
			want:       decimal.NewFromInt(30_000),
		},
		{
			name: "fixed ignores max discount",
			coupon: &Coupon{
				Type:        DiscountFixed,
				Value:       decimal.NewFromInt(80_000),
				MaxDiscount: decimal.NewFromInt(10_000),
			},
			orderTotal: decimal.NewFromInt(200_000),
			want:       decimal.NewFromInt(80_000),
		},
		{
			name: "hundred percent equals subtotal",
			coupon: &Coupon{
				Type:  DiscountPercentage,
				Value: decimal.NewFromInt(100),
			},
			orderTotal: decimal.NewFromInt(145_000),
			want:       decimal.NewFromInt(145_000),
		},
		{
			name: "fractional percentage rounds to whole units",
			coupon: &Coupon{
				Type:  DiscountPercentage,
				Value: decimal.NewFromInt(15),
			},
			orderTotal: decimal.NewFromInt(333),
			want:       decimal.NewFromInt(50), // 49.95 rounds up
		},
		{
			name: "zero subtotal yields zero discount",
			coupon: &Coupon{
				Type:  DiscountFixed,
				Value: decimal.NewFromInt(50_000),
			},
			orderTotal: decimal.Zero,
			want:       decimal.Zero,
		},
		{
			name:       "unknown type is an error",
			coupon:     &Coupon{Type: "bogo"},
			orderTotal: decimal.NewFromInt(100),
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.coupon, tt.orderTotal)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got),
				"expected discount %s, got %s", tt.want, got)
		})
	}
}
