package domain

import "strings"

// Role values as normalized by NewUserSession. Synonyms accepted at the
// boundary are folded onto these predicates, not onto canonical strings:
// the stored role string is preserved (lowercased) so logs and answers show
// what the directory actually holds.
const (
	RoleDealer = "dealer"
)

var (
	salesRepRoles = map[string]struct{}{
		"sales_rep":            {},
		"sales":                {},
		"representative":       {},
		"sales_representative": {},
	}
	adminRoles = map[string]struct{}{
		"admin":     {},
		"superuser": {},
		"manager":   {},
	}
)

// UserSession is the identity and authorization unit threaded through every
// core operation. It is created at authentication, immutable afterwards, and
// passed explicitly as a parameter — never stored in process-wide state.
type UserSession struct {
	UserID        int
	Username      string
	Role          string
	DealerID      *int
	DealerName    string
	Authenticated bool
}

// NewUserSession builds an authenticated session, normalizing the role
// string to lowercase.
func NewUserSession(userID int, username, role string, dealerID *int, dealerName string) *UserSession {
	return &UserSession{
		UserID:        userID,
		Username:      username,
		Role:          strings.ToLower(strings.TrimSpace(role)),
		DealerID:      dealerID,
		DealerName:    dealerName,
		Authenticated: true,
	}
}

// IsDealer reports whether the session belongs to a dealer account.
func (s *UserSession) IsDealer() bool { return s.Role == RoleDealer }

// IsSalesRep reports whether the session belongs to a sales representative.
func (s *UserSession) IsSalesRep() bool {
	_, ok := salesRepRoles[s.Role]
	return ok
}

// IsAdmin reports whether the session has an unrestricted role.
func (s *UserSession) IsAdmin() bool {
	_, ok := adminRoles[s.Role]
	return ok
}

// CanAccessAllData reports whether row-level dealer filtering can be skipped.
func (s *UserSession) CanAccessAllData() bool { return s.IsAdmin() }

// DealerFilter returns the dealer id to scope reads by when the session is a
// dealer, and nil otherwise. This is the single source of truth consulted by
// every component before including dealer-scoped rows.
func (s *UserSession) DealerFilter() *int {
	if s.IsDealer() {
		return s.DealerID
	}
	return nil
}
