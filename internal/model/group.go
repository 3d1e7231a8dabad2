// internal/model/group.go
package model

import (
	"time"

	"github.com/lib/pq"
)

const (
	GroupTypePerson = "person"
	GroupTypeGroup  = "group"
)

// Group is a customer-facing access channel. Token is the only credential
// the customer flow accepts and is not bound to any plan.
type Group struct {
	ID             string         `db:"id" json:"id"`
	Type           string         `db:"type" json:"type"`
	Name           string         `db:"name" json:"name"`
	Email          string         `db:"email" json:"email"`
	Token          string         `db:"token" json:"token"`
	Status         bool           `db:"status" json:"status"`
	AllowedDomains pq.StringArray `db:"allowed_domains" json:"allowed_domains"`
	LastUsedAt     *time.Time     `db:"last_used_at" json:"last_used_at"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// GroupUpdate carries a partial update. The token is not updatable here.
type GroupUpdate struct {
	Type           *string   `json:"type"`
	Name           *string   `json:"name"`
	Email          *string   `json:"email"`
	Status         *bool     `json:"status"`
	AllowedDomains *[]string `json:"allowed_domains"`
}

func (u GroupUpdate) Apply(g *Group) {
	if u.Type != nil {
		g.Type = *u.Type
	}
	if u.Name != nil {
		g.Name = *u.Name
	}
	if u.Email != nil {
		g.Email = *u.Email
	}
	if u.Status != nil {
		g.Status = *u.Status
	}
	if u.AllowedDomains != nil {
		g.AllowedDomains = pq.StringArray(*u.AllowedDomains)
	}
}

// ValidGroupType reports whether t is person or group.
func ValidGroupType(t string) bool {
	return t == GroupTypePerson || t == GroupTypeGroup
}
