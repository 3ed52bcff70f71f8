package app

import (
	"testing"

	"github.com/shopspring/decimal"

	"bourse/internal/engine"
)

func level(price float64, qty int64, orders int) engine.LevelSummary {
	return engine.LevelSummary{
		Price:    decimal.NewFromFloat(price),
		Quantity: qty,
		Orders:   orders,
	}
}

func TestDepthRows(t *testing.T) {
	bids := []engine.LevelSummary{level(99, 5, 2), level(98, 3, 1)}
	asks := []engine.LevelSummary{level(101, 4, 1), level(102, 6, 3)}

	rows := depthRows(bids, asks, 5)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	// Asks print farthest-first so the best prices meet in the middle.
	want := [][]string{
		{"SELL", "102.00", "6", "3"},
		{"SELL", "101.00", "4", "1"},
		{"BUY", "99.00", "5", "2"},
		{"BUY", "98.00", "3", "1"},
	}
	for i, w := range want {
		for j := range w {
			if rows[i][j] != w[j] {
				t.Errorf("row %d col %d: expected %q, got %q", i, j, w[j], rows[i][j])
			}
		}
	}
}

func TestDepthRowsCapsPerSide(t *testing.T) {
	var bids, asks []engine.LevelSummary
	for i := 0; i < 8; i++ {
		bids = append(bids, level(float64(99-i), 1, 1))
		asks = append(asks, level(float64(101+i), 1, 1))
	}

	rows := depthRows(bids, asks, 5)
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows at 5 per side, got %d", len(rows))
	}
	// The kept levels are the best five of each side.
	if rows[4][1] != "101.00" || rows[5][1] != "99.00" {
		t.Errorf("best prices should meet in the middle: %q / %q", rows[4][1], rows[5][1])
	}
}

func TestDepthRowsEmptyBook(t *testing.T) {
	if rows := depthRows(nil, nil, 5); len(rows) != 0 {
		t.Errorf("empty book should produce no rows, got %d", len(rows))
	}
}
