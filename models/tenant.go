package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TenantActive    = "active"
	TenantSuspended = "suspended"

	MembershipActive   = "active"
	MembershipInactive = "inactive"
)

// Tenant is an agency sharing the deployment. All bookings and idempotency
// records are scoped to exactly one tenant.
type Tenant struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"unique;not null"`
	Status    string    `json:"status" gorm:"type:VARCHAR(20);not null;default:'active'"`
	CreatedAt time.Time `json:"created_at"`
}

func (tenant *Tenant) BeforeCreate(tx *gorm.DB) (err error) {
	if tenant.Id == "" {
		tenant.Id = uuid.NewString()
	}
	return
}

// TenantMembership links a user to its agency. Read-only to the gateway; rows
// are written by the account provisioning flow only.
type TenantMembership struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"index:idx_memberships_user_tenant,unique,priority:1;not null"`
	TenantID string `json:"tenant_id" gorm:"index:idx_memberships_user_tenant,unique,priority:2;not null"`
	Status   string `json:"status" gorm:"type:VARCHAR(20);not null;default:'active'"`

	CreatedAt time.Time `json:"created_at"`
}
