package strategy

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"bourse/internal/domain"
	"bourse/internal/exchange"
)

var one = decimal.NewFromInt(1)

// Momentum rides price moves around its own last trade: it sells the whole
// position once the price has moved past the profit threshold in either
// direction, buys when the best offer sits well above the reference price,
// and liquidates after waiting too long without acting.
type Momentum struct {
	threshold decimal.Decimal
	maxWait   time.Duration
	maxLot    int64
	rng       *rand.Rand

	lastTradePrice decimal.Decimal
	lastAction     time.Time
}

// NewMomentum creates a momentum strategy with the given profit threshold
// (e.g. 0.1 for 10%).
func NewMomentum(threshold decimal.Decimal) *Momentum {
	return &Momentum{
		threshold:  threshold,
		maxWait:    5 * time.Second,
		maxLot:     5,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		lastAction: time.Now(),
	}
}

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Decide(acct *exchange.Account, venue *exchange.Venue) {
	cash, position := acct.Status()
	current := venue.GetCurrentPrice()
	_, ask := venue.GetSpread()

	takeProfit := s.lastTradePrice.Mul(one.Add(s.threshold))
	stopLoss := s.lastTradePrice.Mul(one.Sub(s.threshold))

	switch {
	case current.Sign() > 0 && s.lastTradePrice.Sign() > 0 &&
		current.Cmp(takeProfit) > 0 && position > 0:
		if acct.SubmitOrder(venue, position, current, domain.Sell) {
			s.mark(current)
		}

	case current.Sign() > 0 && cash.Cmp(current) >= 0 &&
		ask.Sign() > 0 && ask.Cmp(current.Mul(one.Add(s.threshold))) >= 0:
		qty := min(cash.Div(current).IntPart(), 1+s.rng.Int63n(s.maxLot))
		if qty > 0 {
			acct.SubmitOrder(venue, qty, current, domain.Buy)
		}

	case current.Sign() > 0 && s.lastTradePrice.Sign() > 0 &&
		current.Cmp(stopLoss) < 0 && position > 0:
		if acct.SubmitOrder(venue, position, current, domain.Sell) {
			s.mark(current)
		}

	case time.Since(s.lastAction) > s.maxWait && position > 0:
		// Waited too long for a profitable exit; liquidate at whatever
		// reference exists, or at unit price on a cold market.
		price := current
		if price.Sign() <= 0 {
			price = one
		}
		if acct.SubmitOrder(venue, position, price, domain.Sell) {
			s.mark(price)
		}
	}
}

func (s *Momentum) mark(price decimal.Decimal) {
	s.lastTradePrice = price
	s.lastAction = time.Now()
}
