// Package sqlite persists a ledger grid in a local SQLite file through gorm.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GridRow is one stored row. The header is stored as the first row, like a
// sheet, so the grid reads back exactly as it was written.
type GridRow struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Cells     []any     `gorm:"serializer:json"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName keeps the table name stable regardless of naming strategy.
func (GridRow) TableName() string {
	return "ledger_rows"
}

// Backend implements store.Backend on top of a gorm DB.
type Backend struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
func Open(path string) (*Backend, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("Open: failed to connect to database: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB uses an existing gorm handle.
func NewWithDB(db *gorm.DB) (*Backend, error) {
	if err := db.AutoMigrate(&GridRow{}); err != nil {
		return nil, fmt.Errorf("NewWithDB: failed to migrate schema: %w", err)
	}
	return &Backend{db: db}, nil
}

// ReadGrid returns all rows in insertion order.
func (b *Backend) ReadGrid(ctx context.Context) ([][]any, error) {
	var rows []GridRow
	if err := b.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ReadGrid: %w", err)
	}
	grid := make([][]any, 0, len(rows))
	for _, r := range rows {
		grid = append(grid, r.Cells)
	}
	return grid, nil
}

// AppendRows inserts rows in a single transaction.
func (b *Backend) AppendRows(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]GridRow, len(rows))
	for i, cells := range rows {
		records[i] = GridRow{Cells: cells}
	}
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("AppendRows: failed to save rows: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
