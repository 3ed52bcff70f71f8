package strategy

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"bourse/internal/domain"
	"bourse/internal/exchange"
)

// Random flips a coin and places a small order at a uniformly random price.
// It provides liquidity and noise for the other participants.
type Random struct {
	minPrice float64
	maxPrice float64
	maxLot   int64
	rng      *rand.Rand
}

// NewRandom creates a random strategy quoting in [1, 10] with lots of at
// most 3 units.
func NewRandom() *Random {
	return &Random{
		minPrice: 1.0,
		maxPrice: 10.0,
		maxLot:   3,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Random) Name() string { return "random" }

func (s *Random) Decide(acct *exchange.Account, venue *exchange.Venue) {
	cash, position := acct.Status()

	price := decimal.NewFromFloat(s.minPrice + s.rng.Float64()*(s.maxPrice-s.minPrice)).Round(2)
	qty := 1 + s.rng.Int63n(s.maxLot)

	if s.rng.Intn(2) == 0 {
		qty = min(qty, cash.Div(price).IntPart())
		if qty > 0 {
			acct.SubmitOrder(venue, qty, price, domain.Buy)
		}
		return
	}

	qty = min(qty, position)
	if qty > 0 {
		acct.SubmitOrder(venue, qty, price, domain.Sell)
	}
}
