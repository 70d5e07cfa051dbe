package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	IdempotencyPending   = "pending"
	IdempotencyCompleted = "completed"
)

// IdempotencyRecord stores the outcome of a critical mutation so a retried
// request with the same key replays the original response instead of running
// the handler again. The (tenant_id, idempotency_key) pair is unique; the
// record is created as "pending" before the handler runs and completed
// afterwards. Expired rows are reaped by the store, not by the guard.
type IdempotencyRecord struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	TenantID           string         `json:"tenant_id" gorm:"index:idx_idempotency_tenant_key,unique,priority:1;not null"`
	IdempotencyKey     string         `json:"idempotency_key" gorm:"size:255;index:idx_idempotency_tenant_key,unique,priority:2;not null"`
	OperationSignature string         `json:"operation_signature" gorm:"size:255"` // method|path
	Status             string         `json:"status" gorm:"type:VARCHAR(20);not null;default:'pending'"`
	ResponseStatus     int            `json:"response_status"` // 0 => not completed yet
	ResponseBody       datatypes.JSON `json:"-" gorm:"type:jsonb"`
	CreatedAt          time.Time      `json:"created_at"`
	ExpiresAt          time.Time      `json:"expires_at"`
}
