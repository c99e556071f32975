package models

import "time"

// Session is the server-side state behind a customer's session cookie.
type Session struct {
	ID            string    `json:"id"`
	IsLoggedIn    bool      `json:"is_logged_in"`
	Role          string    `json:"role"`
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CustomerName  string    `json:"customer_name"`
	Flash         string    `json:"flash,omitempty"`
	FlashError    string    `json:"flash_error,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsCustomer reports whether the session belongs to an authenticated customer.
func (s *Session) IsCustomer() bool {
	return s != nil && s.IsLoggedIn && s.Role == RoleCustomer && s.UID != ""
}

// Clear drops all identity and flash state, keeping only the session ID.
func (s *Session) Clear() {
	*s = Session{ID: s.ID}
}
