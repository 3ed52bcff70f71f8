package strategy

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"bourse/internal/domain"
	"bourse/internal/exchange"
)

// MeanReversion compares the current reference price with the average
// price of the recent trade window and leans against the deviation: it
// buys when the market trades well below the average and sells well above.
type MeanReversion struct {
	window int
	band   decimal.Decimal
	maxLot int64
	rng    *rand.Rand
}

// NewMeanReversion creates a mean-reversion strategy over the last 50
// trades with a 5% band.
func NewMeanReversion() *MeanReversion {
	return &MeanReversion{
		window: 50,
		band:   decimal.NewFromFloat(0.05),
		maxLot: 2,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *MeanReversion) Name() string { return "mean_reversion" }

func (s *MeanReversion) Decide(acct *exchange.Account, venue *exchange.Venue) {
	cash, position := acct.Status()
	current := venue.GetCurrentPrice()
	if current.Sign() <= 0 {
		return
	}

	avg := s.averagePrice(venue)
	if avg.Sign() <= 0 {
		return
	}

	low := avg.Mul(one.Sub(s.band))
	high := avg.Mul(one.Add(s.band))

	switch {
	case current.Cmp(low) < 0 && cash.Cmp(current) >= 0:
		qty := min(1+s.rng.Int63n(s.maxLot), cash.Div(current).IntPart())
		if qty > 0 {
			acct.SubmitOrder(venue, qty, current, domain.Buy)
		}

	case current.Cmp(high) > 0 && position > 0:
		qty := min(1+s.rng.Int63n(s.maxLot), position)
		if qty > 0 {
			acct.SubmitOrder(venue, qty, current, domain.Sell)
		}
	}
}

func (s *MeanReversion) averagePrice(venue *exchange.Venue) decimal.Decimal {
	trades := venue.GetRecentTrades(s.window)
	if len(trades) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, t := range trades {
		sum = sum.Add(t.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(len(trades))))
}
