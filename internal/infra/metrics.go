package infra

import "sync/atomic"

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety. One instance is owned by the
// venue; there is no global singleton.
type Metrics struct {
	ordersAccepted atomic.Uint64
	ordersRejected atomic.Uint64
	tradesMatched  atomic.Uint64
	unitsTraded    atomic.Int64
	matchCycles    atomic.Uint64
	feeCycles      atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	OrdersAccepted uint64
	OrdersRejected uint64
	TradesMatched  uint64
	UnitsTraded    int64
	MatchCycles    uint64
	FeeCycles      uint64
}

// RecordOrderAccepted counts an order that passed venue validation.
func (m *Metrics) RecordOrderAccepted() {
	m.ordersAccepted.Add(1)
}

// RecordOrderRejected counts an order refused at the venue boundary.
func (m *Metrics) RecordOrderRejected() {
	m.ordersRejected.Add(1)
}

// RecordTrade counts one executed trade and its quantity.
func (m *Metrics) RecordTrade(qty int64) {
	m.tradesMatched.Add(1)
	m.unitsTraded.Add(qty)
}

// RecordMatchCycle counts one pass of the matching loop.
func (m *Metrics) RecordMatchCycle() {
	m.matchCycles.Add(1)
}

// RecordFeeCycle counts one pass of the fee collector.
func (m *Metrics) RecordFeeCycle() {
	m.feeCycles.Add(1)
}

// Snapshot returns a consistent-enough copy for reporting.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		OrdersAccepted: m.ordersAccepted.Load(),
		OrdersRejected: m.ordersRejected.Load(),
		TradesMatched:  m.tradesMatched.Load(),
		UnitsTraded:    m.unitsTraded.Load(),
		MatchCycles:    m.matchCycles.Load(),
		FeeCycles:      m.feeCycles.Load(),
	}
}
