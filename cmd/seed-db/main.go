// Command seed-db loads watches and demo coupons into the database from a
// JSON seed file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/longphan200518/watchstore/internal/domain/coupon"
	"github.com/longphan200518/watchstore/internal/storage/postgres"
)

type watchJSON struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Brand  string          `json:"brand"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stockQuantity"`
	Status string          `json:"status"`
}

type couponJSON struct {
	Code            string          `json:"code"`
	Description     string          `json:"description"`
	DiscountType    string          `json:"discountType"`
	DiscountValue   decimal.Decimal `json:"discountValue"`
	MinOrderValue   decimal.Decimal `json:"minOrderValue"`
	MaxDiscount     decimal.Decimal `json:"maxDiscountAmount"`
	MaxUsageCount   int             `json:"maxUsageCount"`
	MaxUsagePerUser int             `json:"maxUsagePerUser"`
	StartDate       *time.Time      `json:"startDate"`
	EndDate         *time.Time      `json:"endDate"`
	Active          bool            `json:"isActive"`
}

type seedFile struct {
	Watches []watchJSON  `json:"watches"`
	Coupons []couponJSON `json:"coupons"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrapf(err, "read seed file %s", seedPath)
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return errors.Wrapf(err, "parse seed file %s", seedPath)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	for _, w := range seed.Watches {
		status := w.Status
		if status == "" {
			status = "available"
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO watches (id, name, brand, price, stock_quantity, status)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET name = $2, brand = $3, price = $4,
			     stock_quantity = $5, status = $6`,
			w.ID, w.Name, w.Brand, w.Price, w.Stock, status,
		); err != nil {
			return errors.Wrapf(err, "upsert watch %s", w.ID)
		}
	}
	slog.Info("watches seeded", slog.Int("count", len(seed.Watches)))

	repo := postgres.NewCouponRepository(pool)
	now := time.Now().UTC()
	for _, c := range seed.Coupons {
		err := repo.Create(ctx, &coupon.Coupon{
			ID:             uuid.New().String(),
			Code:           c.Code,
			Description:    c.Description,
			Type:           coupon.DiscountType(c.DiscountType),
			Value:          c.DiscountValue,
			MinOrder:       c.MinOrderValue,
			MaxDiscount:    c.MaxDiscount,
			MaxUses:        c.MaxUsageCount,
			MaxUsesPerUser: c.MaxUsagePerUser,
			StartsAt:       c.StartDate,
			EndsAt:         c.EndDate,
			Active:         c.Active,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if errors.Is(err, coupon.ErrDuplicateCode) {
			slog.Info("coupon already exists, skipping", slog.String("code", c.Code))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create coupon %s", c.Code)
		}
	}
	slog.Info("coupons seeded", slog.Int("count", len(seed.Coupons)))

	return nil
}
