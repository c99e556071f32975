package models

import (
	"strings"
	"time"
)

// UserProfile is the customer-editable part of a users document.
// Name is a legacy single-field display name written by older sign-up flows.
type UserProfile struct {
	ID        string     `bson:"_id,omitempty" json:"id,omitempty"`
	FirstName string     `bson:"firstName" json:"first_name"`
	LastName  string     `bson:"lastName" json:"last_name"`
	Name      string     `bson:"name,omitempty" json:"name,omitempty"`
	Email     string     `bson:"email" json:"email"`
	Phone     string     `bson:"phone" json:"phone"`
	Address   string     `bson:"address" json:"address"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty" json:"updated_at,omitempty"`
}

// FullName joins first and last name, trimmed.
func (p *UserProfile) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ProfileUpdate is the set of fields a customer may change.
type ProfileUpdate struct {
	FirstName string `form:"FirstName" validate:"required"`
	LastName  string `form:"LastName" validate:"required"`
	Phone     string `form:"Phone"`
	Address   string `form:"Address"`
}
