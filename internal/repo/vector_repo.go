// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides access to the semantic index rows.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
)

// ListVectorRecords returns every row of the semantic index. The table is
// small enough (one row per indexed passage) that retrieval scores it fully
// in memory.
func ListVectorRecords(ctx context.Context, db *gorm.DB) ([]domain.VectorRecord, error) {
	var recs []domain.VectorRecord
	err := db.WithContext(ctx).Order("id").Find(&recs).Error
	return recs, err
}
