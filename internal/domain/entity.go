package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the direction of trading interest.
type Side int

const (
	Buy Side = iota
	Sell
)

// String returns the string representation of Side.
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Trade is an immutable record of one match. It is created by the matching
// engine and never mutated afterwards.
type Trade struct {
	ID        uuid.UUID       `gorm:"primaryKey;type:text" json:"id"`
	RunID     string          `gorm:"index" json:"run_id"`
	SellerID  uint64          `json:"seller_id"`
	BuyerID   uint64          `json:"buyer_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `gorm:"type:text" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Notional is the cash value of the trade (price * quantity).
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// AccountSnapshot captures a participant's final state after a simulation
// run, for archival.
type AccountSnapshot struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	RunID     string          `gorm:"index" json:"run_id"`
	AccountID uint64          `json:"account_id"`
	Strategy  string          `json:"strategy"`
	Cash      decimal.Decimal `gorm:"type:text" json:"cash"`
	Position  int64           `json:"position"`
	CreatedAt time.Time       `json:"created_at"`
}
