package agent

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bourse/internal/exchange"
	"bourse/internal/strategy"
)

// Agent drives one account: it repeatedly asks its strategy to act and
// sleeps between decisions. All market access goes through the venue's
// public operations.
type Agent struct {
	acct     *exchange.Account
	strat    strategy.Strategy
	venue    *exchange.Venue
	interval time.Duration
}

// New creates an agent. interval is the pause between decisions.
func New(acct *exchange.Account, strat strategy.Strategy, venue *exchange.Venue, interval time.Duration) *Agent {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Agent{
		acct:     acct,
		strat:    strat,
		venue:    venue,
		interval: interval,
	}
}

// Account returns the account this agent trades.
func (a *Agent) Account() *exchange.Account {
	return a.acct
}

// StrategyName returns the name of the agent's strategy.
func (a *Agent) StrategyName() string {
	return a.strat.Name()
}

// Run loops until the context is canceled.
func (a *Agent) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.strat.Decide(a.acct, a.venue)
		}
	}
}

// Supervisor runs a fleet of agents and stops them together.
type Supervisor struct {
	log    *slog.Logger
	agents []*Agent
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log}
}

// Add registers an agent with the fleet.
func (s *Supervisor) Add(a *Agent) {
	s.agents = append(s.agents, a)
}

// Agents returns the fleet for reporting.
func (s *Supervisor) Agents() []*Agent {
	return s.agents
}

// Start launches every agent and blocks until the context is canceled and
// all agents have exited.
func (s *Supervisor) Start(ctx context.Context) error {
	s.log.Info("starting agents", slog.Int("count", len(s.agents)))

	g, ctx := errgroup.WithContext(ctx)
	for _, a := range s.agents {
		a := a
		g.Go(func() error {
			a.Run(ctx)
			return nil
		})
	}
	err := g.Wait()

	s.log.Info("agents stopped", slog.Int("count", len(s.agents)))
	return err
}
