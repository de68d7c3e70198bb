// Package handlers provides HTTP handler implementations for the public API:
// login, conversational queries, order history, stock availability, and the
// Twilio WhatsApp webhook.
package handlers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
	"github.com/wheely/go-dealer-assist/internal/services"
)

// ReceiptRepo persists webhook/API replay receipts. Implemented by the repo
// package free functions via a shim in the router.
type ReceiptRepo interface {
	GetWebhookReceipt(ctx context.Context, db *gorm.DB, userID int, key string, now time.Time) (*domain.WebhookReceipt, error)
	CreateWebhookReceipt(ctx context.Context, db *gorm.DB, userID int, key, response string, status int, ttl time.Duration) (*domain.WebhookReceipt, error)
}

// OrderHistoryRepo reads the orders table for the history endpoint.
type OrderHistoryRepo interface {
	CountOrders(ctx context.Context, db *gorm.DB, dealerID *int) (int64, error)
	ListOrdersPage(ctx context.Context, db *gorm.DB, dealerID *int, offset, limit int) ([]domain.Order, error)
}

// Handler bundles the services and repositories the endpoints need.
type Handler struct {
	DB        *gorm.DB
	Auth      *services.AuthService
	Assistant *services.Assistant
	Orders    *services.OrderService
	Receipts  ReceiptRepo
	History   OrderHistoryRepo

	// WebhookUser is the username the WhatsApp webhook authenticates as.
	WebhookUser string
	// ReceiptTTL bounds how long a replayed Idempotency-Key or MessageSid
	// serves the stored response.
	ReceiptTTL time.Duration
}

// New constructs a Handler.
func New(db *gorm.DB, auth *services.AuthService, assistant *services.Assistant, orders *services.OrderService, receipts ReceiptRepo, history OrderHistoryRepo, webhookUser string, receiptTTL time.Duration) *Handler {
	return &Handler{
		DB:          db,
		Auth:        auth,
		Assistant:   assistant,
		Orders:      orders,
		Receipts:    receipts,
		History:     history,
		WebhookUser: webhookUser,
		ReceiptTTL:  receiptTTL,
	}
}

// userView is the session shape returned to API clients.
type userView struct {
	UserID     int    `json:"user_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	DealerID   *int   `json:"dealer_id,omitempty"`
	DealerName string `json:"dealer_name,omitempty"`
}

func viewOf(s *domain.UserSession) userView {
	return userView{
		UserID:     s.UserID,
		Username:   s.Username,
		Role:       s.Role,
		DealerID:   s.DealerID,
		DealerName: s.DealerName,
	}
}
