package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"bourse/internal/domain"
)

// Order is resting interest at a single price. Everything except Quantity
// is immutable after intake; Quantity is decremented as the order fills.
type Order struct {
	Side      domain.Side
	Quantity  int64
	Price     decimal.Decimal
	OwnerID   uint64
	CreatedAt time.Time

	next *Order
	prev *Order
}

// Filled reports whether the order has no outstanding quantity left.
func (o *Order) Filled() bool {
	return o.Quantity <= 0
}
