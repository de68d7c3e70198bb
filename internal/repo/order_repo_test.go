package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/wheely/go-dealer-assist/internal/domain"
)

func TestPlaceOrder_PicksLargestSufficientWarehouse(t *testing.T) {
	db := newRepoDB(t, &domain.Product{}, &domain.Warehouse{}, &domain.Inventory{}, &domain.Order{})
	ctx := context.Background()

	prod := &domain.Product{ProductID: "100/35R24 50P", ProductName: "MRF ZLX", Price: 4200}
	if err := db.Create(prod).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	for _, inv := range []domain.Inventory{
		{ProductID: prod.ProductID, WarehouseID: 1, Quantity: 5},
		{ProductID: prod.ProductID, WarehouseID: 2, Quantity: 40},
		{ProductID: prod.ProductID, WarehouseID: 3, Quantity: 12},
	} {
		if err := db.Create(&inv).Error; err != nil {
			t.Fatalf("seed inventory: %v", err)
		}
	}

	ord, err := PlaceOrder(ctx, db, 7, prod, nil, 10, 42)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if ord.OrderID == 0 {
		t.Fatal("order id not populated")
	}
	if ord.WarehouseID != 2 {
		t.Fatalf("warehouse = %d, want 2 (largest sufficient)", ord.WarehouseID)
	}
	if ord.TotalCost != 42000 {
		t.Fatalf("total cost = %v, want 42000", ord.TotalCost)
	}

	var inv domain.Inventory
	if err := db.Where("product_id = ? AND warehouse_id = ?", prod.ProductID, 2).First(&inv).Error; err != nil {
		t.Fatalf("read inventory: %v", err)
	}
	if inv.Quantity != 30 {
		t.Fatalf("inventory after order = %d, want 30", inv.Quantity)
	}
}

func TestPlaceOrder_SpecifiedWarehouse(t *testing.T) {
	db := newRepoDB(t, &domain.Product{}, &domain.Inventory{}, &domain.Order{})
	ctx := context.Background()

	prod := &domain.Product{ProductID: "p1", ProductName: "Apollo Amazer", Price: 3000}
	if err := db.Create(prod).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	for _, inv := range []domain.Inventory{
		{ProductID: "p1", WarehouseID: 1, Quantity: 100},
		{ProductID: "p1", WarehouseID: 2, Quantity: 8},
	} {
		if err := db.Create(&inv).Error; err != nil {
			t.Fatalf("seed inventory: %v", err)
		}
	}

	wid := 2
	ord, err := PlaceOrder(ctx, db, 7, prod, &wid, 5, 42)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if ord.WarehouseID != 2 {
		t.Fatalf("warehouse = %d, want pinned 2", ord.WarehouseID)
	}

	// Pinned warehouse without enough stock must fail even though another
	// warehouse could cover it.
	if _, err := PlaceOrder(ctx, db, 7, prod, &wid, 50, 42); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestPlaceOrder_InsufficientStock_LeavesNothingBehind(t *testing.T) {
	db := newRepoDB(t, &domain.Product{}, &domain.Inventory{}, &domain.Order{})
	ctx := context.Background()

	prod := &domain.Product{ProductID: "p1", ProductName: "CEAT Milaze", Price: 2500}
	if err := db.Create(prod).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := db.Create(&domain.Inventory{ProductID: "p1", WarehouseID: 1, Quantity: 3}).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	if _, err := PlaceOrder(ctx, db, 7, prod, nil, 10, 42); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	var orders int64
	if err := db.Model(&domain.Order{}).Count(&orders).Error; err != nil || orders != 0 {
		t.Fatalf("order rows after failed placement = %d (err %v), want 0", orders, err)
	}
	var inv domain.Inventory
	if err := db.First(&inv, "product_id = ?", "p1").Error; err != nil || inv.Quantity != 3 {
		t.Fatalf("inventory after failed placement = %+v (err %v), want untouched 3", inv, err)
	}
}

func TestStockByProduct_LargestFirst(t *testing.T) {
	db := newRepoDB(t, &domain.Warehouse{}, &domain.Inventory{})
	ctx := context.Background()

	for _, w := range []domain.Warehouse{{Location: "Chennai"}, {Location: "Pune"}} {
		ww := w
		if err := db.Create(&ww).Error; err != nil {
			t.Fatalf("seed warehouse: %v", err)
		}
	}
	for _, inv := range []domain.Inventory{
		{ProductID: "p1", WarehouseID: 1, Quantity: 4},
		{ProductID: "p1", WarehouseID: 2, Quantity: 20},
	} {
		if err := db.Create(&inv).Error; err != nil {
			t.Fatalf("seed inventory: %v", err)
		}
	}

	levels, err := StockByProduct(ctx, db, "p1")
	if err != nil {
		t.Fatalf("StockByProduct: %v", err)
	}
	if len(levels) != 2 || levels[0].Quantity != 20 || levels[0].Location != "Pune" {
		t.Fatalf("unexpected stock levels: %+v", levels)
	}
}

func TestListOrdersPage_And_Count_DealerScope(t *testing.T) {
	db := newRepoDB(t, &domain.Product{}, &domain.Inventory{}, &domain.Order{})
	ctx := context.Background()

	prod := &domain.Product{ProductID: "p1", ProductName: "JK UX Royale", Price: 3500}
	if err := db.Create(prod).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := db.Create(&domain.Inventory{ProductID: "p1", WarehouseID: 1, Quantity: 1000}).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := PlaceOrder(ctx, db, 7, prod, nil, 1, 42); err != nil {
			t.Fatalf("PlaceOrder dealer 7: %v", err)
		}
	}
	if _, err := PlaceOrder(ctx, db, 9, prod, nil, 1, 42); err != nil {
		t.Fatalf("PlaceOrder dealer 9: %v", err)
	}

	d7 := 7
	n, err := CountOrders(ctx, db, &d7)
	if err != nil || n != 3 {
		t.Fatalf("CountOrders(dealer 7) = %d, %v", n, err)
	}
	all, err := CountOrders(ctx, db, nil)
	if err != nil || all != 4 {
		t.Fatalf("CountOrders(nil) = %d, %v", all, err)
	}

	page, err := ListOrdersPage(ctx, db, &d7, 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListOrdersPage = %d rows, %v", len(page), err)
	}
	for _, o := range page {
		if o.DealerID != 7 {
			t.Fatalf("leaked foreign dealer order: %+v", o)
		}
	}
}
