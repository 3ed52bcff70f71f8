package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bourse/internal/domain"
)

// Archiver persists the outcome of a simulation run: the executed trades
// and the final account snapshots. The order book itself is never
// persisted; this is run output, not engine state.
type Archiver struct {
	db *gorm.DB
}

// NewArchiver opens (or creates) the SQLite database at path.
func NewArchiver(path string) (*Archiver, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	// Pure Go SQLite driver
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Trade{}, &domain.AccountSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrate archive database: %w", err)
	}

	return &Archiver{db: db}, nil
}

// SaveTrades stores a batch of executed trades under the given run id.
func (a *Archiver) SaveTrades(runID string, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	rows := make([]domain.Trade, len(trades))
	copy(rows, trades)
	for i := range rows {
		rows[i].RunID = runID
	}
	return a.db.CreateInBatches(rows, 200).Error
}

// SaveSnapshots stores the final account states of a run.
func (a *Archiver) SaveSnapshots(snapshots []domain.AccountSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return a.db.Create(&snapshots).Error
}

// TradesForRun loads every archived trade of one run, oldest first.
func (a *Archiver) TradesForRun(runID string) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := a.db.Where("run_id = ?", runID).Order("created_at").Find(&trades).Error
	return trades, err
}

// SnapshotsForRun loads the archived account snapshots of one run.
func (a *Archiver) SnapshotsForRun(runID string) ([]domain.AccountSnapshot, error) {
	var snapshots []domain.AccountSnapshot
	err := a.db.Where("run_id = ?", runID).Order("account_id").Find(&snapshots).Error
	return snapshots, err
}
