// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for user accounts
// and login.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrBadCredentials is returned when a password does not match.
var ErrBadCredentials = errors.New("invalid credentials")

// NormalizeUsername canonicalizes a login identifier: trimmed, lowercased,
// dots removed. WhatsApp sender names arrive as "John.Doe" while the users
// table stores "johndoe".
func NormalizeUsername(username string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(username)), ".", "")
}

// GetUserByUsername fetches a user by normalized username, or ErrNotFound.
func GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("username = ?", NormalizeUsername(username)).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AuthenticateUser verifies a username/password pair. It returns the matched
// user or ErrNotFound / ErrBadCredentials; callers should present both the
// same way to avoid user enumeration.
func AuthenticateUser(ctx context.Context, db *gorm.DB, username, password string) (*domain.User, error) {
	u, err := GetUserByUsername(ctx, db, username)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// GetDealerName returns the dealer's display name, or "" when the id is nil
// or unknown.
func GetDealerName(ctx context.Context, db *gorm.DB, dealerID *int) (string, error) {
	if dealerID == nil {
		return "", nil
	}
	var d domain.Dealer
	err := db.WithContext(ctx).Where("dealer_id = ?", *dealerID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return d.Name, nil
}
