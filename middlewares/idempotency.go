package middlewares

import (
	"regexp"
	"strings"

	"buchungsportal-backend/background"
	"buchungsportal-backend/logging"
	"buchungsportal-backend/metrics"
	"buchungsportal-backend/models"

	"github.com/gofiber/fiber/v2"
)

// IdempotencyGuardStore is the record contract for the guard. InsertPending
// must be atomic against the (tenant_id, idempotency_key) unique constraint:
// a separate read followed by an insert reopens the duplicate-execution race
// this guard exists to close.
type IdempotencyGuardStore interface {
	InsertPending(tenantID, key, signature string) (created bool, existing *models.IdempotencyRecord, err error)
	Complete(tenantID, key string, status int, body []byte) error
}

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,255}$`)

// Idempotency deduplicates retried critical mutations (ticket issuance,
// cancellation) by the client-supplied Idempotency-Key, scoped to the tenant.
//
// A completed record replays the stored status/body verbatim without running
// the handler again. A pending record means a concurrent duplicate is in
// flight; the caller gets 409 and can safely retry. Completion is enqueued
// after the response is produced and never blocks or fails the caller.
// Apply only to critical routes, AFTER IsAuthenticatedHeader().
func Idempotency(store IdempotencyGuardStore, queue *background.Queue) fiber.Handler {
	log := logging.With().Str("component", "idempotency").Logger()

	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return respondError(c, fiber.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required")
		}
		if !idempotencyKeyPattern.MatchString(key) {
			return respondError(c, fiber.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key must be 8-255 characters of [A-Za-z0-9_-]")
		}

		tenantID, _ := c.Locals("tenantID").(string)
		if tenantID == "" {
			return respondError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "auth context missing")
		}

		signature := strings.ToUpper(c.Method()) + "|" + c.Path()

		created, existing, err := store.InsertPending(tenantID, key, signature)
		if err != nil {
			log.Error().Err(err).Str("tenant_id", tenantID).Msg("idempotency insert failed")
			return respondError(c, fiber.StatusInternalServerError, "IDEMPOTENCY_CHECK_FAILED", "could not verify idempotency key")
		}

		if !created {
			if existing.Status == models.IdempotencyCompleted {
				// Replay the original outcome byte for byte.
				metrics.IdempotentReplays.Inc()
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				c.Status(existing.ResponseStatus)
				return c.Send(existing.ResponseBody)
			}
			// First submission still in flight.
			metrics.IdempotencyConflicts.Inc()
			return respondError(c, fiber.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this key is already being processed, retry shortly")
		}

		// We own the record; run the handler exactly once.
		if err := c.Next(); err != nil {
			return err
		}

		// Explicit completion hook: snapshot status/body once the pipeline
		// has produced them, then persist off the request path.
		status := c.Response().StatusCode()
		body := c.Response().Body()
		blob := make([]byte, len(body))
		copy(blob, body)

		queue.Enqueue(background.Task{
			Kind: "idempotency_complete",
			Run: func() error {
				return store.Complete(tenantID, key, status, blob)
			},
		})

		return nil
	}
}
