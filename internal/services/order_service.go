// Package services – OrderService
//
// Order placement on behalf of dealers. Only sales representatives may place
// orders; the role gate here is authoritative no matter which transport the
// request arrived on. Validation resolves free-text product, dealer, and
// warehouse mentions against the catalogue, then hands the atomic
// insert-and-deduct to the repository transaction.
package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
	"github.com/wheely/go-dealer-assist/internal/repo"
)

// ErrNotSalesRep is returned when a non-sales-rep attempts to place an order.
var ErrNotSalesRep = errors.New("orders require the sales representative role")

// ErrInsufficientStock mirrors the repository sentinel for callers that only
// import services.
var ErrInsufficientStock = repo.ErrInsufficientStock

// OrderStore defines the repository contract required by OrderService.
type OrderStore interface {
	ResolveProduct(ctx context.Context, db *gorm.DB, text string) (*domain.Product, error)
	ResolveDealerID(ctx context.Context, db *gorm.DB, name string) (int, error)
	ResolveWarehouseID(ctx context.Context, db *gorm.DB, location string) (int, error)
	PlaceOrder(ctx context.Context, db *gorm.DB, dealerID int, product *domain.Product, warehouseID *int, quantity, salesRepID int) (*domain.Order, error)
	StockByProduct(ctx context.Context, db *gorm.DB, productID string) ([]repo.StockLevel, error)
}

// OrderRequest is a resolved-or-free-text order intent.
type OrderRequest struct {
	ProductText string // product name or size code
	DealerName  string
	Warehouse   string // optional location; empty lets stock pick
	Quantity    int
}

// OrderResult is the confirmed order plus a human-readable summary.
type OrderResult struct {
	OrderID     int     `json:"order_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	DealerID    int     `json:"dealer_id"`
	WarehouseID int     `json:"warehouse_id"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalCost   float64 `json:"total_cost"`
	Message     string  `json:"message"`
}

// OrderService validates and places orders.
type OrderService struct {
	DB   *gorm.DB
	Repo OrderStore
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, r OrderStore) *OrderService {
	return &OrderService{DB: db, Repo: r}
}

var titleCaser = cases.Title(language.English)

// Place validates the request and runs the order transaction. Validation
// failures return ErrValidation wrapped with the specific cause so callers
// can echo it; stock exhaustion returns ErrInsufficientStock.
func (s *OrderService) Place(ctx context.Context, sess *domain.UserSession, req OrderRequest) (*OrderResult, error) {
	if !sess.IsSalesRep() {
		return nil, ErrNotSalesRep
	}
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	product, err := s.Repo.ResolveProduct(ctx, s.DB, req.ProductText)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown product %q", ErrValidation, req.ProductText)
		}
		return nil, err
	}

	dealerID, err := s.Repo.ResolveDealerID(ctx, s.DB, req.DealerName)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown dealer %q", ErrValidation, req.DealerName)
		}
		return nil, err
	}

	var warehouseID *int
	if req.Warehouse != "" {
		wid, err := s.Repo.ResolveWarehouseID(ctx, s.DB, req.Warehouse)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown warehouse %q", ErrValidation, req.Warehouse)
			}
			return nil, err
		}
		warehouseID = &wid
	}

	ord, err := s.Repo.PlaceOrder(ctx, s.DB, dealerID, product, warehouseID, req.Quantity, sess.UserID)
	if err != nil {
		return nil, err
	}

	display := titleCaser.String(product.ProductName)
	return &OrderResult{
		OrderID:     ord.OrderID,
		ProductID:   ord.ProductID,
		ProductName: product.ProductName,
		DealerID:    ord.DealerID,
		WarehouseID: ord.WarehouseID,
		Quantity:    ord.Quantity,
		UnitPrice:   ord.UnitPrice,
		TotalCost:   ord.TotalCost,
		Message: fmt.Sprintf("Order #%d placed: %d x %s for %s from warehouse %d. Total cost: %.2f.",
			ord.OrderID, ord.Quantity, display, req.DealerName, ord.WarehouseID, ord.TotalCost),
	}, nil
}

// StockSummary renders per-warehouse availability for a product as text, for
// both the stock endpoint and the conversational stock check.
func (s *OrderService) StockSummary(ctx context.Context, productText string) (string, []repo.StockLevel, error) {
	product, err := s.Repo.ResolveProduct(ctx, s.DB, productText)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: unknown product %q", ErrValidation, productText)
		}
		return "", nil, err
	}
	levels, err := s.Repo.StockByProduct(ctx, s.DB, product.ProductID)
	if err != nil {
		return "", nil, err
	}
	if len(levels) == 0 {
		return fmt.Sprintf("%s is out of stock in all warehouses.", product.ProductName), levels, nil
	}
	var total int
	lines := make([]string, 0, len(levels))
	for _, l := range levels {
		total += l.Quantity
		lines = append(lines, fmt.Sprintf("%s: %d units", l.Location, l.Quantity))
	}
	summary := fmt.Sprintf("%s (%s): %d units available. ", product.ProductName, product.ProductID, total)
	for i, line := range lines {
		if i > 0 {
			summary += "; "
		}
		summary += line
	}
	return summary, levels, nil
}
