package models

import (
	"time"

	"gorm.io/datatypes"
)

// CorrelationLogEntry is one row of the append-only upstream audit trail.
// One entry is written per call attempt (including retries); entries are
// never updated after creation. Payloads are sanitized before they reach
// this struct.
type CorrelationLogEntry struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	CorrelationID string         `json:"correlation_id" gorm:"size:64;index;not null"`
	TenantID      string         `json:"tenant_id" gorm:"index;not null"`
	RequestType   string         `json:"request_type" gorm:"size:64;not null"` // upstream operation name
	RequestTime   time.Time      `json:"request_time"`
	ResponseTime  *time.Time     `json:"response_time"`
	LatencyMs     *int64         `json:"latency_ms"`
	RequestBody   datatypes.JSON `json:"request_payload_sanitized" gorm:"column:request_payload_sanitized;type:jsonb"`
	ResponseBody  datatypes.JSON `json:"response_payload_sanitized" gorm:"column:response_payload_sanitized;type:jsonb"`
	StatusCode    *int           `json:"status_code"`
	ExternalID    string         `json:"external_id" gorm:"size:128"`         // order_id / search_id from the engine
	BookingID     string         `json:"related_booking_id" gorm:"size:128"`
	ErrorMessage  string         `json:"error_message"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (CorrelationLogEntry) TableName() string {
	return "correlation_log"
}
