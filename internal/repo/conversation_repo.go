// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file appends to the durable conversation log. The log
// is write-mostly: every answered exchange lands here for audit, while the
// in-memory session history serves prompt grounding.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
)

// AppendConversationLog persists one question/answer exchange.
func AppendConversationLog(ctx context.Context, db *gorm.DB, userID int, dealerID *int, sessionID, userQuery, aiResponse, queryType string) (*domain.ConversationLog, error) {
	rec := &domain.ConversationLog{
		ID:             uuid.NewString(),
		UserID:         userID,
		DealerID:       dealerID,
		UserQuery:      userQuery,
		AIResponse:     aiResponse,
		SessionID:      sessionID,
		QueryTimestamp: time.Now().UTC(),
		QueryType:      queryType,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecentConversations returns the latest n exchanges for a session,
// oldest first, so history can be replayed into a prompt directly.
func ListRecentConversations(ctx context.Context, db *gorm.DB, sessionID string, n int) ([]domain.ConversationLog, error) {
	var recs []domain.ConversationLog
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("query_timestamp DESC").
		Limit(n).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	// reverse into chronological order
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}
