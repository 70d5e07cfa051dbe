package audit

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"buchungsportal-backend/background"
	"buchungsportal-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureStore struct {
	mu      sync.Mutex
	entries []*models.CorrelationLogEntry
	fail    bool
}

func (s *captureStore) InsertEntry(entry *models.CorrelationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("insert failed")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *captureStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *captureStore) first() *models.CorrelationLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[0]
}

func newTestWriter(store *captureStore) (*Writer, *background.Queue) {
	queue := background.NewQueue(16, 1)
	return NewWriter(store, queue, NewSanitizer([]string{"email", "passport"})), queue
}

func TestWriterRecordsSanitizedEntry(t *testing.T) {
	store := &captureStore{}
	w, queue := newTestWriter(store)
	defer queue.Stop()

	reqTime := time.Now().UTC()
	respTime := reqTime.Add(120 * time.Millisecond)
	status := 200

	w.Record(Entry{
		CorrelationID: "corr-1",
		TenantID:      "agency-1",
		Operation:     "create-order",
		RequestTime:   reqTime,
		ResponseTime:  &respTime,
		RequestPayload: map[string]any{
			"offer_id": "off-1",
			"email":    "max@example.com",
		},
		ResponsePayload: []byte(`{"order_id":"ord-9","passport":"P123"}`),
		StatusCode:      &status,
		ExternalID:      "ord-9",
	})

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)

	row := store.first()
	assert.Equal(t, "corr-1", row.CorrelationID)
	assert.Equal(t, "agency-1", row.TenantID)
	assert.Equal(t, "create-order", row.RequestType)
	assert.Equal(t, "ord-9", row.ExternalID)
	require.NotNil(t, row.LatencyMs)
	assert.Equal(t, int64(120), *row.LatencyMs)

	var reqBody map[string]any
	require.NoError(t, json.Unmarshal(row.RequestBody, &reqBody))
	assert.Equal(t, "off-1", reqBody["offer_id"])
	assert.Equal(t, RedactionMarker, reqBody["email"])

	var respBody map[string]any
	require.NoError(t, json.Unmarshal(row.ResponseBody, &respBody))
	assert.Equal(t, "ord-9", respBody["order_id"])
	assert.Equal(t, RedactionMarker, respBody["passport"])
}

func TestWriterLatencyNilWithoutResponseTime(t *testing.T) {
	store := &captureStore{}
	w, queue := newTestWriter(store)
	defer queue.Stop()

	w.Record(Entry{
		CorrelationID: "corr-2",
		TenantID:      "agency-1",
		Operation:     "search",
		RequestTime:   time.Now().UTC(),
		ErrorMessage:  "connection refused",
	})

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, store.first().LatencyMs)
	assert.Equal(t, "connection refused", store.first().ErrorMessage)
}

func TestWriterNeverPropagatesStoreFailure(t *testing.T) {
	store := &captureStore{fail: true}
	w, queue := newTestWriter(store)

	assert.NotPanics(t, func() {
		w.Record(Entry{CorrelationID: "corr-3", TenantID: "agency-1", Operation: "search", RequestTime: time.Now().UTC()})
	})
	queue.Stop() // drains; the failing insert is only logged
	assert.Equal(t, 0, store.count())
}
