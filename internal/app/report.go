package app

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"bourse/internal/engine"
)

// printReport renders the final account states and the trade tail to the
// console after a run.
func (b *Bootstrap) printReport() {
	accounts := tablewriter.NewWriter(os.Stdout)
	accounts.SetHeader([]string{"account", "strategy", "cash", "position"})
	for _, a := range b.Supervisor.Agents() {
		cash, position := a.Account().Status()
		accounts.Append([]string{
			strconv.FormatUint(a.Account().ID(), 10),
			a.StrategyName(),
			cash.StringFixed(2),
			strconv.FormatInt(position, 10),
		})
	}
	accounts.SetCaption(true, "final account status")
	accounts.Render()

	trades := tablewriter.NewWriter(os.Stdout)
	trades.SetHeader([]string{"time", "seller", "buyer", "qty", "price"})
	for _, t := range b.Venue.GetRecentTrades(10) {
		trades.Append([]string{
			t.CreatedAt.Format("15:04:05.000"),
			strconv.FormatUint(t.SellerID, 10),
			strconv.FormatUint(t.BuyerID, 10),
			strconv.FormatInt(t.Quantity, 10),
			t.Price.StringFixed(2),
		})
	}
	trades.SetCaption(true, "most recent trades")
	trades.Render()

	depth := tablewriter.NewWriter(os.Stdout)
	depth.SetHeader([]string{"side", "price", "quantity", "orders"})
	bids, asks := b.Venue.Depth()
	for _, row := range depthRows(bids, asks, 5) {
		depth.Append(row)
	}
	depth.SetCaption(true, "remaining book depth")
	depth.Render()

	stats := b.Venue.Stats()
	b.Log.Info("run summary",
		slog.String("product", b.Venue.Product()),
		slog.Uint64("orders_accepted", stats.OrdersAccepted),
		slog.Uint64("orders_rejected", stats.OrdersRejected),
		slog.Uint64("trades_matched", stats.TradesMatched),
		slog.Int64("units_traded", stats.UnitsTraded),
		slog.String("total_fees", b.Venue.GetTotalFees().StringFixed(2)),
		slog.String("final_price", b.Venue.GetCurrentPrice().StringFixed(4)))
}

// depthRows flattens both book sides into table rows, asks best-first on
// top and bids best-first below, each side capped at perSide levels.
func depthRows(bids, asks []engine.LevelSummary, perSide int) [][]string {
	if len(asks) > perSide {
		asks = asks[:perSide]
	}
	if len(bids) > perSide {
		bids = bids[:perSide]
	}

	rows := make([][]string, 0, len(bids)+len(asks))
	for i := len(asks) - 1; i >= 0; i-- {
		rows = append(rows, []string{
			"SELL",
			asks[i].Price.StringFixed(2),
			strconv.FormatInt(asks[i].Quantity, 10),
			strconv.Itoa(asks[i].Orders),
		})
	}
	for _, lvl := range bids {
		rows = append(rows, []string{
			"BUY",
			lvl.Price.StringFixed(2),
			strconv.FormatInt(lvl.Quantity, 10),
			strconv.Itoa(lvl.Orders),
		})
	}
	return rows
}
