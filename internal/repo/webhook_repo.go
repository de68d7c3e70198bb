// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// WebhookReceipt model used to implement safe-retry semantics: Twilio
// redelivers webhooks with the same MessageSid, and API clients may resend
// POSTs with the same Idempotency-Key.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
)

// ErrDuplicate indicates that a receipt already exists for the given
// (user_id, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// GetWebhookReceipt returns a non-expired receipt or ErrNotFound.
func GetWebhookReceipt(ctx context.Context, db *gorm.DB, userID int, key string, now time.Time) (*domain.WebhookReceipt, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.WebhookReceipt
	err := db.WithContext(ctx).
		Where("user_id = ? AND key = ? AND expires_at > ?", userID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateWebhookReceipt inserts a receipt and returns ErrDuplicate on unique
// violation.
func CreateWebhookReceipt(ctx context.Context, db *gorm.DB, userID int, key, response string, status int, ttl time.Duration) (*domain.WebhookReceipt, error) {
	now := time.Now().UTC()
	rec := &domain.WebhookReceipt{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       key,
		Response:  response,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
