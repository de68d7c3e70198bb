// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides lookup queries over the reference
// entities (dealers, products, warehouses): name lists for the fuzzy
// correction cache and case-insensitive resolvers used when turning free
// text into keys.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
)

// ListDealerNames returns all distinct dealer display names.
func ListDealerNames(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).Model(&domain.Dealer{}).
		Distinct().Order("name").Pluck("name", &names).Error
	return names, err
}

// ListProductIDs returns all product size codes (the product primary keys).
func ListProductIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Model(&domain.Product{}).
		Distinct().Order("product_id").Pluck("product_id", &ids).Error
	return ids, err
}

// ListProductNames returns all distinct product display names.
func ListProductNames(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).Model(&domain.Product{}).
		Distinct().Order("product_name").Pluck("product_name", &names).Error
	return names, err
}

// ListWarehouseLocations returns all distinct warehouse locations.
func ListWarehouseLocations(ctx context.Context, db *gorm.DB) ([]string, error) {
	var locs []string
	err := db.WithContext(ctx).Model(&domain.Warehouse{}).
		Distinct().Order("location").Pluck("location", &locs).Error
	return locs, err
}

// ResolveDealerID maps a dealer name to its id, case-insensitively.
// Returns ErrNotFound when no dealer matches.
func ResolveDealerID(ctx context.Context, db *gorm.DB, name string) (int, error) {
	var d domain.Dealer
	err := db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return d.DealerID, nil
}

// ResolveProduct maps free text to a product row, matching either the size
// code or the display name case-insensitively. Returns ErrNotFound when no
// product matches.
func ResolveProduct(ctx context.Context, db *gorm.DB, text string) (*domain.Product, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	var p domain.Product
	err := db.WithContext(ctx).
		Where("LOWER(product_id) = ? OR LOWER(product_name) = ?", needle, needle).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ResolveWarehouseID maps a warehouse location to its id, case-insensitively.
// Returns ErrNotFound when no warehouse matches.
func ResolveWarehouseID(ctx context.Context, db *gorm.DB, location string) (int, error) {
	var w domain.Warehouse
	err := db.WithContext(ctx).
		Where("LOWER(location) = ?", strings.ToLower(strings.TrimSpace(location))).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return w.WarehouseID, nil
}
