// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the order-placement transaction and the
// inventory/order queries around it.
//
// PlaceOrder is the only code path that mutates inventory. It runs inside a
// single transaction: the order row is inserted, then stock is decremented
// with a guarded UPDATE whose predicate re-checks the remaining quantity.
// When the guard matches no row (another order drained the stock between the
// read and the write) the transaction rolls back and ErrInsufficientStock is
// returned, so an order row never exists without its matching deduction.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
)

// ErrInsufficientStock indicates that no warehouse holds enough of the
// product to satisfy the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// StockLevel is one warehouse's holding of a product, with the location
// joined in for display.
type StockLevel struct {
	WarehouseID int    `json:"warehouse_id"`
	Location    string `json:"location"`
	Quantity    int    `json:"quantity"`
}

// StockByProduct returns per-warehouse stock for a product, largest holding
// first. Warehouses with zero stock are included so callers can show "out of
// stock at X" rather than omitting the row.
func StockByProduct(ctx context.Context, db *gorm.DB, productID string) ([]StockLevel, error) {
	var out []StockLevel
	err := db.WithContext(ctx).
		Table("inventory").
		Select("inventory.warehouse_id, warehouse.location, inventory.quantity").
		Joins("JOIN warehouse ON warehouse.warehouse_id = inventory.warehouse_id").
		Where("inventory.product_id = ?", productID).
		Order("inventory.quantity DESC").
		Scan(&out).Error
	return out, err
}

// pickWarehouse selects the warehouse to fulfil from. A non-nil warehouseID
// pins the choice; otherwise the warehouse with the largest sufficient stock
// wins. Returns ErrInsufficientStock when nothing can cover quantity.
func pickWarehouse(tx *gorm.DB, productID string, warehouseID *int, quantity int) (int, error) {
	q := tx.Model(&domain.Inventory{}).
		Where("product_id = ? AND quantity >= ?", productID, quantity)
	if warehouseID != nil {
		q = q.Where("warehouse_id = ?", *warehouseID)
	}
	var inv domain.Inventory
	err := q.Order("quantity DESC").First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}
	return inv.WarehouseID, nil
}

// PlaceOrder atomically inserts an order and deducts its quantity from
// inventory. warehouseID may be nil, in which case the largest sufficient
// holding is chosen. On success the returned order carries its generated
// OrderID and the chosen warehouse.
func PlaceOrder(ctx context.Context, db *gorm.DB, dealerID int, product *domain.Product, warehouseID *int, quantity, salesRepID int) (*domain.Order, error) {
	ord := &domain.Order{
		DealerID:   dealerID,
		ProductID:  product.ProductID,
		Quantity:   quantity,
		UnitPrice:  product.Price,
		TotalCost:  product.Price * float64(quantity),
		OrderDate:  time.Now().UTC(),
		Status:     "placed",
		SalesRepID: salesRepID,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wid, err := pickWarehouse(tx, product.ProductID, warehouseID, quantity)
		if err != nil {
			return err
		}
		ord.WarehouseID = wid

		if err := tx.Create(ord).Error; err != nil {
			return err
		}

		// Guarded decrement: the quantity predicate re-checks stock under the
		// write lock, closing the window between pickWarehouse and here.
		res := tx.Model(&domain.Inventory{}).
			Where("product_id = ? AND warehouse_id = ? AND quantity >= ?", product.ProductID, wid, quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientStock
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ord, nil
}

// CountOrders returns the number of orders visible to the given dealer
// filter. A nil filter counts all orders.
func CountOrders(ctx context.Context, db *gorm.DB, dealerID *int) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Order{})
	if dealerID != nil {
		q = q.Where("dealer_id = ?", *dealerID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// ListOrdersPage returns a page of orders, newest first, optionally scoped
// to one dealer.
func ListOrdersPage(ctx context.Context, db *gorm.DB, dealerID *int, offset, limit int) ([]domain.Order, error) {
	q := db.WithContext(ctx).Model(&domain.Order{})
	if dealerID != nil {
		q = q.Where("dealer_id = ?", *dealerID)
	}
	var out []domain.Order
	err := q.Order("order_date DESC, order_id DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}
