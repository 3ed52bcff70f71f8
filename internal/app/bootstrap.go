package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bourse/internal/agent"
	"bourse/internal/domain"
	"bourse/internal/exchange"
	"bourse/internal/infra"
	"bourse/internal/infra/storage"
	"bourse/internal/strategy"
)

// Bootstrap wires the venue, the simulated participants and the archiver
// from configuration, runs the simulation and reports the outcome.
type Bootstrap struct {
	Config     *infra.Config
	Log        *slog.Logger
	Venue      *exchange.Venue
	Supervisor *agent.Supervisor
	Archiver   *storage.Archiver

	runID string
}

// NewBootstrap creates an uninitialized bootstrap.
func NewBootstrap(cfg *infra.Config, log *slog.Logger) *Bootstrap {
	return &Bootstrap{
		Config: cfg,
		Log:    log,
		runID:  uuid.NewString(),
	}
}

// Initialize builds the venue and registers the configured agent fleet.
func (b *Bootstrap) Initialize() error {
	b.Log.Info("bootstrapping",
		slog.String("app", b.Config.App.Name),
		slog.String("run_id", b.runID))

	if b.Config.Storage.Enabled {
		archiver, err := storage.NewArchiver(b.Config.Storage.Path)
		if err != nil {
			return fmt.Errorf("initialize archiver: %w", err)
		}
		b.Archiver = archiver
	}

	b.Venue = exchange.NewVenue(exchange.Config{
		Product:      b.Config.Venue.Product,
		MatchTimeout: b.Config.MatchTimeout(),
		FeeInterval:  b.Config.FeeInterval(),
		Fee:          b.Config.Venue.Fee,
		HistoryLimit: b.Config.Venue.HistoryLimit,
		HistoryTrim:  b.Config.Venue.HistoryTrim,
	}, b.Log, &infra.Metrics{})

	b.Supervisor = agent.NewSupervisor(b.Log)

	for _, group := range b.Config.Simulation.Agents {
		for i := 0; i < group.Count; i++ {
			strat, err := buildStrategy(group)
			if err != nil {
				return err
			}

			acct := exchange.NewAccount(b.Venue.NextAccountID(), group.Cash, group.Units)
			b.Venue.RegisterAccount(acct)
			b.Supervisor.Add(agent.New(acct, strat, b.Venue, b.Config.DecisionInterval()))

			b.Log.Info("agent registered",
				slog.Uint64("account_id", acct.ID()),
				slog.String("strategy", strat.Name()))
		}
	}

	return nil
}

func buildStrategy(group infra.AgentGroup) (strategy.Strategy, error) {
	switch group.Strategy {
	case "momentum":
		threshold := group.Threshold
		if threshold.Sign() <= 0 {
			threshold = decimal.NewFromFloat(0.1)
		}
		return strategy.NewMomentum(threshold), nil
	case "random":
		return strategy.NewRandom(), nil
	case "mean_reversion":
		return strategy.NewMeanReversion(), nil
	default:
		return nil, &domain.ConfigError{
			Field: "simulation.agents.strategy",
			Err:   fmt.Errorf("unknown strategy %q", group.Strategy),
		}
	}
}

// Run starts the venue, drives the agents for the configured duration (or
// until ctx is canceled), then stops everything in order, prints the final
// report and archives the results.
func (b *Bootstrap) Run(ctx context.Context) error {
	b.Venue.Start()

	simCtx := ctx
	if d := b.Config.Duration(); d > 0 {
		var cancel context.CancelFunc
		simCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := b.Supervisor.Start(simCtx); err != nil {
		b.Log.Error("supervisor failed", slog.Any("error", err))
	}

	// Agents are done; stop the venue so no background mutation survives.
	b.Venue.Stop()

	b.printReport()
	return b.archive()
}

// archive persists this run's trades and final account states.
func (b *Bootstrap) archive() error {
	if b.Archiver == nil {
		return nil
	}

	trades := b.Venue.GetRecentTrades(b.Config.Venue.HistoryLimit)
	if err := b.Archiver.SaveTrades(b.runID, trades); err != nil {
		return fmt.Errorf("archive trades: %w", err)
	}

	now := time.Now()
	snapshots := make([]domain.AccountSnapshot, 0, len(b.Supervisor.Agents()))
	for _, a := range b.Supervisor.Agents() {
		cash, position := a.Account().Status()
		snapshots = append(snapshots, domain.AccountSnapshot{
			RunID:     b.runID,
			AccountID: a.Account().ID(),
			Strategy:  a.StrategyName(),
			Cash:      cash,
			Position:  position,
			CreatedAt: now,
		})
	}
	if err := b.Archiver.SaveSnapshots(snapshots); err != nil {
		return fmt.Errorf("archive snapshots: %w", err)
	}

	b.Log.Info("run archived",
		slog.String("run_id", b.runID),
		slog.Int("trades", len(trades)),
		slog.Int("accounts", len(snapshots)))
	return nil
}
