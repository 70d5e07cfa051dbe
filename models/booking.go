package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BookingCreated   = "created"
	BookingTicketed  = "ticketed"
	BookingCancelled = "cancelled"
)

// Booking is the local record of an order placed with the workflow engine.
// The engine owns the order itself; this row pins its owning tenant for the
// resource-scoped isolation check and feeds the agency's booking list.
type Booking struct {
	Id         string         `json:"id" gorm:"primaryKey"`
	TenantID   string         `json:"tenant_id" gorm:"index;not null"`
	OrderID    string         `json:"order_id" gorm:"size:128;uniqueIndex"` // engine order reference
	Status     string         `json:"status" gorm:"type:VARCHAR(20);not null;default:'created'"`
	Passengers datatypes.JSON `json:"passengers" gorm:"type:jsonb"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (booking *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if booking.Id == "" {
		booking.Id = uuid.NewString()
	}
	return
}
