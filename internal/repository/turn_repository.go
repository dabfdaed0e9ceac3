package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"kbqa/internal/model"
)

type TurnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// Migrate creates or updates the archive table.
func (r *TurnRepository) Migrate() error {
	if err := r.db.AutoMigrate(&model.TurnRecord{}); err != nil {
		return fmt.Errorf("auto migrate turn records failed: %w", err)
	}
	return nil
}

// CreateBatch inserts all records in one transaction.
func (r *TurnRepository) CreateBatch(ctx context.Context, records []model.TurnRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("create turn records failed: %w", err)
	}
	return nil
}
