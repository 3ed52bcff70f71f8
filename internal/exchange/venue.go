package exchange

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bourse/internal/domain"
	"bourse/internal/engine"
	"bourse/internal/infra"
)

var two = decimal.NewFromInt(2)

// Config controls venue behaviour. Zero values fall back to defaults.
type Config struct {
	Product string

	// MatchTimeout bounds how long the matching loop sleeps when no wake
	// signal arrives, guaranteeing progress even if a signal is lost.
	MatchTimeout time.Duration

	// FeeInterval and Fee define the flat per-interval charge applied to
	// every registered account.
	FeeInterval time.Duration
	Fee         decimal.Decimal

	// HistoryLimit caps the trade history; when exceeded it is trimmed in
	// one batch down to the most recent HistoryTrim trades.
	HistoryLimit int
	HistoryTrim  int
}

func (c Config) withDefaults() Config {
	if c.Product == "" {
		c.Product = "SIM"
	}
	if c.MatchTimeout <= 0 {
		c.MatchTimeout = 100 * time.Millisecond
	}
	if c.FeeInterval <= 0 {
		c.FeeInterval = time.Minute
	}
	if c.Fee.Sign() <= 0 {
		c.Fee = decimal.NewFromInt(1)
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 1000
	}
	if c.HistoryTrim <= 0 || c.HistoryTrim > c.HistoryLimit {
		c.HistoryTrim = c.HistoryLimit / 2
	}
	return c
}

// Venue owns one order book, the account registry, a bounded trade history
// and a last-trade reference price. While running it drives two background
// loops: matching (edge-triggered on intake, with a coarse timeout) and
// periodic fee collection.
//
// Lock order across the venue is fixed: book, then registry, then account,
// then history. No code path acquires them in any other order.
type Venue struct {
	cfg   Config
	log   *slog.Logger
	book  *engine.Book
	stats *infra.Metrics

	accountsMu sync.RWMutex
	accounts   map[uint64]*Account

	histMu  sync.Mutex
	history []domain.Trade

	feesMu    sync.Mutex
	totalFees decimal.Decimal

	refPrice atomic.Pointer[decimal.Decimal]
	nextID   atomic.Uint64

	// Lifecycle: Stopped -> Running -> Stopped, restart permitted. The CAS
	// on running guarantees exactly one matching loop and one fee loop.
	running     atomic.Bool
	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	loops       *errgroup.Group

	wake chan struct{}
}

// NewVenue creates a stopped venue.
func NewVenue(cfg Config, log *slog.Logger, stats *infra.Metrics) *Venue {
	if stats == nil {
		stats = &infra.Metrics{}
	}
	return &Venue{
		cfg:       cfg.withDefaults(),
		log:       log,
		book:      engine.NewBook(),
		stats:     stats,
		accounts:  make(map[uint64]*Account),
		totalFees: decimal.Zero,
		wake:      make(chan struct{}, 1),
	}
}

// Product returns the name of the traded product.
func (v *Venue) Product() string {
	return v.cfg.Product
}

// Running reports whether the background loops are active.
func (v *Venue) Running() bool {
	return v.running.Load()
}

// Start launches the matching and fee loops. It is idempotent: a second
// call while running is a no-op.
func (v *Venue) Start() {
	v.lifecycleMu.Lock()
	defer v.lifecycleMu.Unlock()

	if !v.running.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.loops, ctx = errgroup.WithContext(ctx)

	v.loops.Go(func() error {
		v.matchLoop(ctx)
		return nil
	})
	v.loops.Go(func() error {
		v.feeLoop(ctx)
		return nil
	})

	v.log.Info("venue started", slog.String("product", v.cfg.Product))
}

// Stop signals both loops and blocks until they have exited. After Stop
// returns no background mutation happens. Idempotent.
func (v *Venue) Stop() {
	v.lifecycleMu.Lock()
	defer v.lifecycleMu.Unlock()

	if !v.running.CompareAndSwap(true, false) {
		return
	}

	v.cancel()
	_ = v.loops.Wait()

	v.log.Info("venue stopped", slog.String("product", v.cfg.Product))
}

// NextAccountID allocates a fresh account id. The venue owns the allocator
// so there is no process-wide counter.
func (v *Venue) NextAccountID() uint64 {
	return v.nextID.Add(1)
}

// RegisterAccount adds an account to the registry.
func (v *Venue) RegisterAccount(a *Account) {
	v.accountsMu.Lock()
	defer v.accountsMu.Unlock()
	v.accounts[a.ID()] = a
}

// UnregisterAccount removes an account. Orders it already enqueued stay
// matchable; their settlement legs are dropped with a warning.
func (v *Venue) UnregisterAccount(id uint64) {
	v.accountsMu.Lock()
	defer v.accountsMu.Unlock()
	delete(v.accounts, id)
}

// AccountCount returns the number of registered accounts.
func (v *Venue) AccountCount() int {
	v.accountsMu.RLock()
	defer v.accountsMu.RUnlock()
	return len(v.accounts)
}

// SubmitOrder validates and enqueues an order, then wakes the matching
// loop. It rejects, with no state change, non-positive quantity or price
// and unknown accounts.
func (v *Venue) SubmitOrder(qty int64, price decimal.Decimal, side domain.Side, accountID uint64) bool {
	if qty <= 0 || price.Sign() <= 0 {
		v.stats.RecordOrderRejected()
		return false
	}

	v.accountsMu.RLock()
	_, ok := v.accounts[accountID]
	v.accountsMu.RUnlock()
	if !ok {
		v.stats.RecordOrderRejected()
		return false
	}

	v.book.Intake(side, qty, price, accountID)
	v.stats.RecordOrderAccepted()

	select {
	case v.wake <- struct{}{}:
	default:
	}
	return true
}

// GetSpread returns the best bid and ask as one consistent pair. An empty
// side reports zero.
func (v *Venue) GetSpread() (bid, ask decimal.Decimal) {
	return v.book.Spread()
}

// GetCurrentPrice returns the published reference price (midpoint after
// the latest match batch), or zero before any trade.
func (v *Venue) GetCurrentPrice() decimal.Decimal {
	p := v.refPrice.Load()
	if p == nil {
		return decimal.Zero
	}
	return *p
}

// GetRecentTrades returns the last min(n, history size) trades, most
// recent last.
func (v *Venue) GetRecentTrades(n int) []domain.Trade {
	v.histMu.Lock()
	defer v.histMu.Unlock()
	if n > len(v.history) {
		n = len(v.history)
	}
	if n <= 0 {
		return nil
	}
	out := make([]domain.Trade, n)
	copy(out, v.history[len(v.history)-n:])
	return out
}

// GetTotalFees returns the cumulative fees collected.
func (v *Venue) GetTotalFees() decimal.Decimal {
	v.feesMu.Lock()
	defer v.feesMu.Unlock()
	return v.totalFees
}

// Depth returns both sides of the book best-first for reporting.
func (v *Venue) Depth() (bids, asks []engine.LevelSummary) {
	return v.book.Depth()
}

// Stats returns a snapshot of the venue counters.
func (v *Venue) Stats() infra.MetricsSnapshot {
	return v.stats.Snapshot()
}

// matchLoop drains crossable interest whenever intake wakes it, or after
// MatchTimeout at the latest.
func (v *Venue) matchLoop(ctx context.Context) {
	for {
		trades := v.book.Match()
		if len(trades) > 0 {
			v.applyTrades(trades)
			v.publishReferencePrice()
		}
		v.stats.RecordMatchCycle()

		select {
		case <-ctx.Done():
			return
		case <-v.wake:
		case <-time.After(v.cfg.MatchTimeout):
		}
	}
}

// applyTrades settles every trade against its two accounts and appends the
// batch to history, trimming in one batch when the cap is exceeded.
func (v *Venue) applyTrades(trades []domain.Trade) {
	for _, t := range trades {
		v.settleTrade(t)
	}

	v.histMu.Lock()
	v.history = append(v.history, trades...)
	if len(v.history) > v.cfg.HistoryLimit {
		trimmed := make([]domain.Trade, v.cfg.HistoryTrim)
		copy(trimmed, v.history[len(v.history)-v.cfg.HistoryTrim:])
		v.history = trimmed
	}
	v.histMu.Unlock()
}

// settleTrade applies each leg independently: a still-registered party
// settles even when the counterparty has been unregistered; a missing leg
// is dropped with a warning rather than silently.
func (v *Venue) settleTrade(t domain.Trade) {
	v.accountsMu.RLock()
	buyer := v.accounts[t.BuyerID]
	seller := v.accounts[t.SellerID]
	v.accountsMu.RUnlock()

	if buyer != nil {
		buyer.settle(t, true)
	} else {
		v.log.Warn("dropping buyer settlement leg, account unregistered",
			slog.Uint64("buyer_id", t.BuyerID),
			slog.String("trade_id", t.ID.String()))
	}
	if seller != nil {
		seller.settle(t, false)
	} else {
		v.log.Warn("dropping seller settlement leg, account unregistered",
			slog.Uint64("seller_id", t.SellerID),
			slog.String("trade_id", t.ID.String()))
	}

	v.stats.RecordTrade(t.Quantity)
	v.log.Debug("trade settled",
		slog.String("trade_id", t.ID.String()),
		slog.Int64("quantity", t.Quantity),
		slog.String("price", t.Price.String()))
}

// publishReferencePrice stores the midpoint of the spread when both sides
// are present and the midpoint is positive.
func (v *Venue) publishReferencePrice() {
	bid, ask := v.book.Spread()
	if bid.Sign() <= 0 || ask.Sign() <= 0 {
		return
	}
	mid := bid.Add(ask).Div(two)
	if mid.Sign() > 0 {
		v.refPrice.Store(&mid)
	}
}

// feeLoop charges every registered account the flat fee once per interval.
// The debit is unconditional: cash may go negative and the full amount is
// recorded as collected.
func (v *Venue) feeLoop(ctx context.Context) {
	ticker := time.NewTicker(v.cfg.FeeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.collectFees()
		}
	}
}

func (v *Venue) collectFees() {
	v.accountsMu.RLock()
	accounts := make([]*Account, 0, len(v.accounts))
	for _, a := range v.accounts {
		accounts = append(accounts, a)
	}
	v.accountsMu.RUnlock()

	if len(accounts) == 0 {
		return
	}

	for _, a := range accounts {
		a.chargeFee(v.cfg.Fee)
	}

	collected := v.cfg.Fee.Mul(decimal.NewFromInt(int64(len(accounts))))
	v.feesMu.Lock()
	v.totalFees = v.totalFees.Add(collected)
	v.feesMu.Unlock()

	v.stats.RecordFeeCycle()
	v.log.Debug("fees collected",
		slog.Int("accounts", len(accounts)),
		slog.String("amount", collected.String()))
}
