package database

import (
	"errors"
	"time"

	"buchungsportal-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The gateway components never touch gorm directly; they get these stores,
// which keep the read/write contract narrow (get-by-key, insert, update).

type TenantStore struct {
	db *gorm.DB
}

func NewTenantStore(db *gorm.DB) *TenantStore {
	return &TenantStore{db: db}
}

// GetMembership returns the membership row for (userID, tenantID), or nil
// when none exists.
func (s *TenantStore) GetMembership(userID, tenantID string) (*models.TenantMembership, error) {
	var m models.TenantMembership
	err := s.db.Where("user_id = ? AND tenant_id = ?", userID, tenantID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetTenant returns the tenant row, or nil when none exists.
func (s *TenantStore) GetTenant(id string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// BookingTenant returns the owning tenant id of a booking, or "" when the
// booking does not exist.
func (s *TenantStore) BookingTenant(bookingID string) (string, error) {
	var b models.Booking
	err := s.db.Select("tenant_id").Where("id = ?", bookingID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return b.TenantID, nil
}

type IdempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{db: db, ttl: ttl}
}

// InsertPending atomically claims (tenantID, key) with an insert that backs
// off on the unique index instead of racing a prior read. Exactly one of two
// concurrent callers gets created=true; the other receives the existing row.
func (s *IdempotencyStore) InsertPending(tenantID, key, signature string) (created bool, existing *models.IdempotencyRecord, err error) {
	now := time.Now().UTC()
	rec := models.IdempotencyRecord{
		TenantID:           tenantID,
		IdempotencyKey:     key,
		OperationSignature: signature,
		Status:             models.IdempotencyPending,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.ttl),
	}

	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(&rec)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected == 1 {
		return true, &rec, nil
	}

	// Lost the race (or a retry after completion): load the winner's row.
	var prior models.IdempotencyRecord
	if err := s.db.Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).First(&prior).Error; err != nil {
		return false, nil, err
	}
	return false, &prior, nil
}

// Complete stores the handler's response on the pending record. Called from
// the background queue; the caller's response has already been sent.
func (s *IdempotencyStore) Complete(tenantID, key string, status int, body []byte) error {
	blob := make([]byte, len(body))
	copy(blob, body)

	return s.db.Model(&models.IdempotencyRecord{}).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		Updates(map[string]any{
			"status":          models.IdempotencyCompleted,
			"response_status": status,
			"response_body":   blob,
		}).Error
}

// ReapExpired deletes records past their retention window. Run periodically;
// the guard itself never deletes.
func (s *IdempotencyStore) ReapExpired() (int64, error) {
	res := s.db.Where("expires_at < ?", time.Now().UTC()).Delete(&models.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}

type AuditStore struct {
	db *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// InsertEntry appends one attempt to the correlation log. Entries are never
// updated afterwards.
func (s *AuditStore) InsertEntry(entry *models.CorrelationLogEntry) error {
	return s.db.Create(entry).Error
}
