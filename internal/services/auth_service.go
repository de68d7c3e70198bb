// Package services – AuthService
//
// Login verification against the users table. Both "no such user" and "wrong
// password" collapse to ErrBadCredentials so handlers cannot be used for
// account enumeration. Successful logins produce a domain.UserSession with
// the dealer name joined in for prompt building and display.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
	"github.com/wheely/go-dealer-assist/internal/repo"
)

// UserRepo defines the repository contract required by AuthService.
type UserRepo interface {
	AuthenticateUser(ctx context.Context, db *gorm.DB, username, password string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error)
	GetDealerName(ctx context.Context, db *gorm.DB, dealerID *int) (string, error)
}

// AuthService verifies credentials and resolves identities to sessions.
type AuthService struct {
	DB   *gorm.DB
	Repo UserRepo
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, r UserRepo) *AuthService {
	return &AuthService{DB: db, Repo: r}
}

// Login checks a username/password pair and returns the resulting session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.UserSession, error) {
	u, err := s.Repo.AuthenticateUser(ctx, s.DB, username, password)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrBadCredentials) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	return s.sessionFor(ctx, u)
}

// Identify resolves a pre-authenticated identity (the WhatsApp webhook user,
// or an API caller carrying a trusted user header) to a session without a
// password check.
func (s *AuthService) Identify(ctx context.Context, username string) (*domain.UserSession, error) {
	u, err := s.Repo.GetUserByUsername(ctx, s.DB, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}
	return s.sessionFor(ctx, u)
}

func (s *AuthService) sessionFor(ctx context.Context, u *domain.User) (*domain.UserSession, error) {
	dealerName, err := s.Repo.GetDealerName(ctx, s.DB, u.DealerID)
	if err != nil {
		return nil, err
	}
	return domain.NewUserSession(u.UserID, u.Username, u.Role, u.DealerID, dealerName), nil
}
