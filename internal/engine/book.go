package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bourse/internal/domain"
)

// Book holds the resting interest for one product: bids traversed highest
// price first, asks lowest price first. A single RWMutex guards both sides
// so quote reads never observe a partially applied match.
//
// Intake never matches; Match drains all crossable interest in one call.
type Book struct {
	mu   sync.RWMutex
	bids *levelTree
	asks *levelTree

	now func() time.Time
}

// NewBook creates an empty order book.
func NewBook() *Book {
	return &Book{
		bids: newLevelTree(),
		asks: newLevelTree(),
		now:  time.Now,
	}
}

// Intake enqueues a new order at its exact price level, creating the level
// if needed. Validation happens at the venue boundary; the book accepts
// what it is given.
func (b *Book) Intake(side domain.Side, qty int64, price decimal.Decimal, ownerID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree := b.asks
	if side == domain.Buy {
		tree = b.bids
	}
	tree.upsert(price).Enqueue(&Order{
		Side:      side,
		Quantity:  qty,
		Price:     price,
		OwnerID:   ownerID,
		CreatedAt: b.now(),
	})
}

// Match converts all crossing interest into trades and returns them.
// While the best bid is at or above the best ask, the front orders of both
// best levels trade against each other at the ask level's price. Ties at a
// price are broken by strict arrival order.
func (b *Book) Match() []domain.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	var trades []domain.Trade

	for {
		bidLvl := b.bids.max()
		askLvl := b.asks.min()
		if bidLvl == nil || askLvl == nil {
			break
		}
		if bidLvl.Price.Cmp(askLvl.Price) < 0 {
			break
		}

		for !bidLvl.Empty() && !askLvl.Empty() &&
			bidLvl.TotalQty > 0 && askLvl.TotalQty > 0 {

			bid := bidLvl.Head()
			ask := askLvl.Head()

			qty := min(bid.Quantity, ask.Quantity)

			trades = append(trades, domain.Trade{
				ID:        uuid.New(),
				SellerID:  ask.OwnerID,
				BuyerID:   bid.OwnerID,
				Quantity:  qty,
				Price:     askLvl.Price,
				CreatedAt: b.now(),
			})

			bid.Quantity -= qty
			ask.Quantity -= qty
			bidLvl.TotalQty -= qty
			askLvl.TotalQty -= qty

			bidLvl.CompactFilled()
			askLvl.CompactFilled()
		}

		if bidLvl.TotalQty <= 0 || bidLvl.Empty() {
			b.bids.delete(bidLvl.Price)
		}
		if askLvl.TotalQty <= 0 || askLvl.Empty() {
			b.asks.delete(askLvl.Price)
		}
	}

	return trades
}

// BestBid returns the highest bid price. ok is false when the bid side is
// empty.
func (b *Book) BestBid() (price decimal.Decimal, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestBidLocked()
}

// BestAsk returns the lowest ask price. ok is false when the ask side is
// empty.
func (b *Book) BestAsk() (price decimal.Decimal, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestAskLocked()
}

// Spread returns both best prices as one consistent pair. An empty side
// reports zero.
func (b *Book) Spread() (bid, ask decimal.Decimal) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid, _ = b.bestBidLocked()
	ask, _ = b.bestAskLocked()
	return bid, ask
}

func (b *Book) bestBidLocked() (decimal.Decimal, bool) {
	lvl := b.bids.max()
	if lvl == nil {
		return decimal.Zero, false
	}
	return lvl.Price, true
}

func (b *Book) bestAskLocked() (decimal.Decimal, bool) {
	lvl := b.asks.min()
	if lvl == nil {
		return decimal.Zero, false
	}
	return lvl.Price, true
}

// LevelSummary is an aggregate view of one price level.
type LevelSummary struct {
	Price    decimal.Decimal
	Quantity int64
	Orders   int
}

// Depth returns both sides of the book best-first, one summary per level.
func (b *Book) Depth() (bids, asks []LevelSummary) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bids = make([]LevelSummary, 0, b.bids.len())
	b.bids.descend(func(lvl *PriceLevel) bool {
		bids = append(bids, LevelSummary{Price: lvl.Price, Quantity: lvl.TotalQty, Orders: lvl.OrderCount})
		return true
	})

	asks = make([]LevelSummary, 0, b.asks.len())
	b.asks.ascend(func(lvl *PriceLevel) bool {
		asks = append(asks, LevelSummary{Price: lvl.Price, Quantity: lvl.TotalQty, Orders: lvl.OrderCount})
		return true
	})
	return bids, asks
}
