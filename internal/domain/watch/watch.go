package watch

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested watch does not exist.
var ErrNotFound = errors.New("watch not found")

// Status describes a watch's availability in the catalog.
type Status string

const (
	StatusAvailable    Status = "available"
	StatusOutOfStock   Status = "out_of_stock"
	StatusDiscontinued Status = "discontinued"
)

// Watch is a catalog item. Stock mutations happen inside the order
// transaction; this package only exposes reads.
type Watch struct {
	ID     string
	Name   string
	Brand  string
	Price  decimal.Decimal
	Stock  int
	Status Status
}

// Repository defines read operations for the watch catalog.
type Repository interface {
	List(ctx context.Context) ([]Watch, error)
	GetByID(ctx context.Context, id string) (*Watch, error)
	GetByIDs(ctx context.Context, ids []string) ([]Watch, error)
}
