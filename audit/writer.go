package audit

import (
	"encoding/json"
	"time"

	"buchungsportal-backend/background"
	"buchungsportal-backend/logging"
	"buchungsportal-backend/models"

	"github.com/rs/zerolog"
)

// Store is the narrow persistence contract the writer needs.
type Store interface {
	InsertEntry(entry *models.CorrelationLogEntry) error
}

// Entry is one upstream call attempt as seen by the caller, before
// sanitization.
type Entry struct {
	CorrelationID   string
	TenantID        string
	Operation       string
	RequestTime     time.Time
	ResponseTime    *time.Time
	RequestPayload  any
	ResponsePayload any
	StatusCode      *int
	ExternalID      string
	BookingID       string
	ErrorMessage    string
}

// Writer persists PII-redacted attempt snapshots to the correlation log.
// Record is fire-and-forget: the row is written through the background
// queue and failures are logged, never returned to the request path.
type Writer struct {
	store     Store
	queue     *background.Queue
	sanitizer *Sanitizer
	log       zerolog.Logger
}

func NewWriter(store Store, queue *background.Queue, sanitizer *Sanitizer) *Writer {
	return &Writer{
		store:     store,
		queue:     queue,
		sanitizer: sanitizer,
		log:       logging.With().Str("component", "audit").Logger(),
	}
}

// Record sanitizes the entry and enqueues its insert. Never returns an error;
// a full queue or a failing insert must not alter the operation being logged.
func (w *Writer) Record(entry Entry) {
	row := w.toRow(entry)
	w.queue.Enqueue(background.Task{
		Kind: "audit",
		Run: func() error {
			return w.store.InsertEntry(row)
		},
	})
}

func (w *Writer) toRow(entry Entry) *models.CorrelationLogEntry {
	row := &models.CorrelationLogEntry{
		CorrelationID: entry.CorrelationID,
		TenantID:      entry.TenantID,
		RequestType:   entry.Operation,
		RequestTime:   entry.RequestTime,
		ResponseTime:  entry.ResponseTime,
		StatusCode:    entry.StatusCode,
		ExternalID:    entry.ExternalID,
		BookingID:     entry.BookingID,
		ErrorMessage:  entry.ErrorMessage,
		CreatedAt:     time.Now().UTC(),
	}

	if entry.ResponseTime != nil && !entry.RequestTime.IsZero() {
		ms := entry.ResponseTime.Sub(entry.RequestTime).Milliseconds()
		row.LatencyMs = &ms
	}

	row.RequestBody = w.marshalSanitized(entry.RequestPayload)
	row.ResponseBody = w.marshalSanitized(entry.ResponsePayload)
	return row
}

func (w *Writer) marshalSanitized(payload any) []byte {
	if payload == nil {
		return nil
	}
	if raw, ok := payload.([]byte); ok {
		return w.sanitizer.SanitizeJSON(raw)
	}
	out, err := json.Marshal(w.sanitizer.Sanitize(normalize(payload)))
	if err != nil {
		w.log.Error().Err(err).Msg("could not marshal sanitized payload")
		return nil
	}
	return out
}

// normalize converts structs to the map/slice shape the sanitizer walks.
func normalize(payload any) any {
	switch payload.(type) {
	case map[string]any, []any, string, float64, int, int64, bool, nil:
		return payload
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
