package exchange

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bourse/internal/domain"
)

// waitFor polls cond until it holds or the deadline passes. Background
// loop effects are asserted through it instead of bare sleeps.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func fastVenue(cfg Config) *Venue {
	if cfg.MatchTimeout == 0 {
		cfg.MatchTimeout = 10 * time.Millisecond
	}
	if cfg.FeeInterval == 0 {
		cfg.FeeInterval = time.Hour // keep fees out of matching tests
	}
	return NewVenue(cfg, testLogger(), nil)
}

func TestVenueRegistry(t *testing.T) {
	v := fastVenue(Config{})

	a := NewAccount(v.NextAccountID(), dec(100), 0)
	b := NewAccount(v.NextAccountID(), dec(100), 0)
	if a.ID() == b.ID() {
		t.Fatalf("allocator returned duplicate id %d", a.ID())
	}

	v.RegisterAccount(a)
	v.RegisterAccount(b)
	if n := v.AccountCount(); n != 2 {
		t.Errorf("expected 2 accounts, got %d", n)
	}

	v.UnregisterAccount(a.ID())
	if n := v.AccountCount(); n != 1 {
		t.Errorf("expected 1 account after unregister, got %d", n)
	}

	if v.SubmitOrder(1, dec(10), domain.Buy, a.ID()) {
		t.Error("order for unregistered account should be rejected")
	}
	if !v.SubmitOrder(1, dec(10), domain.Buy, b.ID()) {
		t.Error("order for registered account should be accepted")
	}
}

func TestVenueSubmitValidation(t *testing.T) {
	v := fastVenue(Config{})
	a := NewAccount(v.NextAccountID(), dec(100), 10)
	v.RegisterAccount(a)

	if v.SubmitOrder(0, dec(10), domain.Buy, a.ID()) {
		t.Error("zero quantity should be rejected")
	}
	if v.SubmitOrder(-5, dec(10), domain.Sell, a.ID()) {
		t.Error("negative quantity should be rejected")
	}
	if v.SubmitOrder(1, decimal.Zero, domain.Buy, a.ID()) {
		t.Error("zero price should be rejected")
	}
	if v.SubmitOrder(1, dec(-1), domain.Sell, a.ID()) {
		t.Error("negative price should be rejected")
	}

	stats := v.Stats()
	if stats.OrdersRejected != 4 {
		t.Errorf("expected 4 rejections recorded, got %d", stats.OrdersRejected)
	}
	if stats.OrdersAccepted != 0 {
		t.Errorf("expected 0 accepted, got %d", stats.OrdersAccepted)
	}
}

func TestVenueEndToEndMatch(t *testing.T) {
	v := fastVenue(Config{})

	buyer := NewAccount(v.NextAccountID(), dec(1000), 0)
	seller := NewAccount(v.NextAccountID(), dec(0), 10)
	v.RegisterAccount(buyer)
	v.RegisterAccount(seller)

	v.Start()
	defer v.Stop()

	if !seller.SubmitOrder(v, 5, dec(100), domain.Sell) {
		t.Fatal("sell rejected")
	}
	if !buyer.SubmitOrder(v, 5, dec(100), domain.Buy) {
		t.Fatal("buy rejected")
	}

	if !waitFor(t, 2*time.Second, func() bool {
		return len(v.GetRecentTrades(1)) == 1
	}) {
		t.Fatal("no trade settled within deadline")
	}

	trades := v.GetRecentTrades(10)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.Quantity != 5 || !tr.Price.Equal(dec(100)) {
		t.Errorf("expected 5@100, got %d@%s", tr.Quantity, tr.Price)
	}
	if tr.BuyerID != buyer.ID() || tr.SellerID != seller.ID() {
		t.Errorf("trade parties wrong: buyer %d seller %d", tr.BuyerID, tr.SellerID)
	}

	// Value is conserved: the buyer spent 500 at submission, the seller
	// receives it; the 5 units cross the other way.
	cash, pos := buyer.Status()
	if !cash.Equal(dec(500)) || pos != 5 {
		t.Errorf("buyer: expected cash 500 position 5, got %s %d", cash, pos)
	}
	cash, pos = seller.Status()
	if !cash.Equal(dec(500)) || pos != 5 {
		t.Errorf("seller: expected cash 500 position 5, got %s %d", cash, pos)
	}

	stats := v.Stats()
	if stats.TradesMatched != 1 || stats.UnitsTraded != 5 {
		t.Errorf("stats: expected 1 trade 5 units, got %d %d",
			stats.TradesMatched, stats.UnitsTraded)
	}
}

func TestVenueReferencePrice(t *testing.T) {
	v := fastVenue(Config{})

	buyer := NewAccount(v.NextAccountID(), dec(10000), 0)
	seller := NewAccount(v.NextAccountID(), dec(0), 100)
	v.RegisterAccount(buyer)
	v.RegisterAccount(seller)

	v.Start()
	defer v.Stop()

	if p := v.GetCurrentPrice(); !p.IsZero() {
		t.Fatalf("expected zero price before any trade, got %s", p)
	}

	// One crossing pair plus resting interest on both sides so a spread
	// survives the match: bid 98, ask 102, midpoint 100.
	seller.SubmitOrder(v, 5, dec(102), domain.Sell)
	buyer.SubmitOrder(v, 5, dec(98), domain.Buy)
	seller.SubmitOrder(v, 5, dec(100), domain.Sell)
	buyer.SubmitOrder(v, 5, dec(100), domain.Buy)

	if !waitFor(t, 2*time.Second, func() bool {
		return v.GetCurrentPrice().Equal(dec(100))
	}) {
		t.Fatalf("expected reference price 100, got %s", v.GetCurrentPrice())
	}

	bid, ask := v.GetSpread()
	if !bid.Equal(dec(98)) || !ask.Equal(dec(102)) {
		t.Errorf("expected spread 98/102, got %s/%s", bid, ask)
	}
}

func TestVenueHistoryTrim(t *testing.T) {
	v := fastVenue(Config{HistoryLimit: 10, HistoryTrim: 5})

	buyer := NewAccount(v.NextAccountID(), dec(100000), 0)
	seller := NewAccount(v.NextAccountID(), dec(0), 1000)
	v.RegisterAccount(buyer)
	v.RegisterAccount(seller)

	v.Start()
	defer v.Stop()

	const pairs = 12
	for i := 0; i < pairs; i++ {
		seller.SubmitOrder(v, 1, dec(100), domain.Sell)
		buyer.SubmitOrder(v, 1, dec(100), domain.Buy)
	}

	if !waitFor(t, 2*time.Second, func() bool {
		return v.Stats().TradesMatched == pairs
	}) {
		t.Fatalf("expected %d trades, got %d", pairs, v.Stats().TradesMatched)
	}

	history := v.GetRecentTrades(100)
	if len(history) > 10 {
		t.Errorf("history exceeds cap: %d trades retained", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt.Before(history[i-1].CreatedAt) {
			t.Errorf("history out of order at %d", i)
		}
	}
}

func TestVenueDroppedSettlementLeg(t *testing.T) {
	v := fastVenue(Config{})

	buyer := NewAccount(v.NextAccountID(), dec(1000), 0)
	seller := NewAccount(v.NextAccountID(), dec(0), 10)
	v.RegisterAccount(buyer)
	v.RegisterAccount(seller)

	// The seller's order enters the book, then the account leaves. The
	// resting order stays matchable; only the seller's cash leg is dropped.
	if !seller.SubmitOrder(v, 5, dec(100), domain.Sell) {
		t.Fatal("sell rejected")
	}
	v.UnregisterAccount(seller.ID())

	v.Start()
	defer v.Stop()

	buyer.SubmitOrder(v, 5, dec(100), domain.Buy)

	if !waitFor(t, 2*time.Second, func() bool {
		return len(v.GetRecentTrades(1)) == 1
	}) {
		t.Fatal("no trade settled within deadline")
	}

	if _, pos := buyer.Status(); pos != 5 {
		t.Errorf("buyer leg should settle, position %d", pos)
	}
	if cash, _ := seller.Status(); !cash.IsZero() {
		t.Errorf("seller leg should be dropped, cash %s", cash)
	}
}

func TestVenueFeeCollection(t *testing.T) {
	v := fastVenue(Config{
		FeeInterval: 20 * time.Millisecond,
		Fee:         decimal.NewFromInt(1),
	})

	rich := NewAccount(v.NextAccountID(), dec(100), 0)
	broke := NewAccount(v.NextAccountID(), dec(0.5), 0)
	v.RegisterAccount(rich)
	v.RegisterAccount(broke)

	v.Start()

	if !waitFor(t, 2*time.Second, func() bool {
		return v.Stats().FeeCycles >= 2
	}) {
		t.Fatal("fee loop did not run twice within deadline")
	}
	v.Stop()

	cycles := int64(v.Stats().FeeCycles)
	total := v.GetTotalFees()
	if !total.Equal(decimal.NewFromInt(2 * cycles)) {
		t.Errorf("expected total fees %d, got %s", 2*cycles, total)
	}

	cash, _ := rich.Status()
	if !cash.Equal(dec(100).Sub(decimal.NewFromInt(cycles))) {
		t.Errorf("rich account charged wrong amount: %s after %d cycles", cash, cycles)
	}
	// The flat fee is debited even past zero.
	if cash, _ = broke.Status(); cash.Sign() >= 0 {
		t.Errorf("expected negative cash on broke account, got %s", cash)
	}
}

func TestVenueStartStopIdempotent(t *testing.T) {
	v := fastVenue(Config{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Start()
		}()
	}
	wg.Wait()

	if !v.Running() {
		t.Fatal("venue should be running")
	}

	v.Stop()
	v.Stop()
	if v.Running() {
		t.Fatal("venue should be stopped")
	}

	// No background matching after Stop: a crossing pair just rests.
	a := NewAccount(v.NextAccountID(), dec(1000), 10)
	v.RegisterAccount(a)
	v.SubmitOrder(5, dec(100), domain.Sell, a.ID())
	v.SubmitOrder(5, dec(100), domain.Buy, a.ID())
	time.Sleep(50 * time.Millisecond)
	if n := len(v.GetRecentTrades(1)); n != 0 {
		t.Errorf("trade matched while stopped")
	}
}

func TestVenueRestart(t *testing.T) {
	v := fastVenue(Config{})

	a := NewAccount(v.NextAccountID(), dec(1000), 10)
	v.RegisterAccount(a)

	v.Start()
	v.Stop()
	v.Start()
	defer v.Stop()

	v.SubmitOrder(5, dec(100), domain.Sell, a.ID())
	v.SubmitOrder(5, dec(100), domain.Buy, a.ID())

	if !waitFor(t, 2*time.Second, func() bool {
		return len(v.GetRecentTrades(1)) == 1
	}) {
		t.Fatal("restarted venue did not match")
	}
}
