package exchange

import (
	"sync"

	"github.com/shopspring/decimal"

	"bourse/internal/domain"
)

// Account holds one participant's cash and position. Every read and write
// goes through the account's own mutex, independent of the venue's locks,
// so settling trades for different accounts never serializes globally.
type Account struct {
	id uint64

	mu       sync.Mutex
	cash     decimal.Decimal
	position int64
}

// NewAccount creates an account with initial cash and position. Ids come
// from the venue's allocator (Venue.NextAccountID).
func NewAccount(id uint64, cash decimal.Decimal, position int64) *Account {
	return &Account{
		id:       id,
		cash:     cash,
		position: position,
	}
}

// ID returns the account's identifier.
func (a *Account) ID() uint64 {
	return a.id
}

// Debit removes amount from the account's cash. It fails without any state
// change when the balance cannot cover it.
func (a *Account) Debit(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cash.Cmp(amount) < 0 {
		return domain.ErrInsufficientFunds
	}
	a.cash = a.cash.Sub(amount)
	return nil
}

// Credit adds amount to the account's cash. It always succeeds.
func (a *Account) Credit(amount decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cash = a.cash.Add(amount)
}

// TakeUnits removes qty units from the position and returns the new
// position. It fails without any state change when the position cannot
// cover it.
func (a *Account) TakeUnits(qty int64) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.position < qty {
		return a.position, domain.ErrInsufficientUnits
	}
	a.position -= qty
	return a.position, nil
}

// GiveUnits adds qty units to the position and returns the new position.
func (a *Account) GiveUnits(qty int64) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.position += qty
	return a.position
}

// Status returns cash and position as one atomic snapshot.
func (a *Account) Status() (cash decimal.Decimal, position int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash, a.position
}

// SubmitOrder performs the pre-trade risk check, reserves the resource the
// order commits (cash for a buy at limit price, units for a sell) and then
// forwards the order to the venue. The reservation is returned if the
// venue rejects the order, so an account can never hold more outstanding
// commitments than its balance supports.
func (a *Account) SubmitOrder(v *Venue, qty int64, price decimal.Decimal, side domain.Side) bool {
	if qty <= 0 || price.Sign() <= 0 {
		return false
	}

	cost := price.Mul(decimal.NewFromInt(qty))

	a.mu.Lock()
	if side == domain.Sell {
		if a.position < qty {
			a.mu.Unlock()
			return false
		}
		a.position -= qty
	} else {
		if a.cash.Cmp(cost) < 0 {
			a.mu.Unlock()
			return false
		}
		a.cash = a.cash.Sub(cost)
	}
	a.mu.Unlock()

	// The account lock is released before calling into the venue: the
	// venue takes the registry lock, which must never be acquired while
	// holding an account lock.
	if v.SubmitOrder(qty, price, side, a.id) {
		return true
	}

	a.mu.Lock()
	if side == domain.Sell {
		a.position += qty
	} else {
		a.cash = a.cash.Add(cost)
	}
	a.mu.Unlock()
	return false
}

// settle applies the counter-leg of a trade. The resource each party spent
// was already reserved at submission: the buyer receives units, the seller
// receives cash.
func (a *Account) settle(t domain.Trade, isBuyer bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if isBuyer {
		a.position += t.Quantity
	} else {
		a.cash = a.cash.Add(t.Notional())
	}
}

// chargeFee debits the flat venue fee unconditionally. Cash may go
// negative; the fee policy charges every registered account per interval.
func (a *Account) chargeFee(fee decimal.Decimal) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cash = a.cash.Sub(fee)
	return a.cash
}
