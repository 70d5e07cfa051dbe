package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"buchungsportal-backend/audit"
	"buchungsportal-backend/config"
	"buchungsportal-backend/logging"
	"buchungsportal-backend/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	CodeRequestFailed = "UPSTREAM_REQUEST_FAILED"
	CodeRejected      = "UPSTREAM_REJECTED"
)

// Result is the tagged outcome of a logical upstream call. The client never
// panics or returns a Go error past this boundary; callers branch on Success.
type Result struct {
	Success       bool
	Data          map[string]any
	CorrelationID string
	LatencyMs     int64
	Error         *CallError
}

// CallError describes the final failure after the retry budget is spent.
type CallError struct {
	Code          string
	Message       string
	StatusCode    int
	CorrelationID string
}

// Client sends normalized requests to the workflow engine with a per-attempt
// timeout, bounded linear-backoff retry and per-attempt audit logging. One
// correlation id covers all attempts of a logical call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	retryMax   int
	retryDelay time.Duration
	auditor    *audit.Writer
	log        zerolog.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

func NewClient(cfg *config.Config, auditor *audit.Writer) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.UpstreamBaseURL, "/"),
		httpClient: &http.Client{},
		timeout:    cfg.UpstreamTimeout,
		retryMax:   cfg.UpstreamRetryMax,
		retryDelay: cfg.UpstreamRetryDelay,
		auditor:    auditor,
		log:        logging.With().Str("component", "upstream").Logger(),
		sleep:      time.Sleep,
	}
}

// Call runs one logical operation against the engine. Retryable failures
// (transport errors, timeouts, 5xx, 429) consume the retry budget with
// linear backoff; any other 4xx returns immediately. Every attempt is
// audited before the retry decision, so a crash mid-loop still leaves a
// trace of completed attempts.
func (c *Client) Call(ctx context.Context, op Operation, payload map[string]any, tenantID string) Result {
	correlationID := uuid.NewString()

	timeout := c.timeout
	if op.Timeout > 0 {
		timeout = op.Timeout
	}
	attempts := c.retryMax + 1
	if op.NoRetry {
		attempts = 1
	}

	var last attemptOutcome
	for i := 0; i < attempts; i++ {
		if i > 0 {
			metrics.UpstreamRetries.WithLabelValues(op.Name).Inc()
			c.sleep(time.Duration(i) * c.retryDelay)
		}

		last = c.attempt(ctx, op, payload, tenantID, correlationID, timeout)
		c.recordAttempt(op, payload, tenantID, correlationID, last)

		if last.err == nil && last.status < 300 {
			c.log.Debug().
				Str("operation", op.Name).
				Str("correlation_id", correlationID).
				Int64("latency_ms", last.latencyMs()).
				Msg("upstream call succeeded")
			return Result{
				Success:       true,
				Data:          last.data,
				CorrelationID: correlationID,
				LatencyMs:     last.latencyMs(),
			}
		}
		if !last.retryable() {
			break
		}
		c.log.Warn().
			Str("operation", op.Name).
			Str("correlation_id", correlationID).
			Int("attempt", i+1).
			Int("status", last.status).
			Err(last.err).
			Msg("upstream attempt failed")
	}

	return Result{
		Success:       false,
		CorrelationID: correlationID,
		Error:         last.callError(correlationID),
	}
}

// Search, PriceQuote, CreateOrder, IssueTicket, CancelOrder and Health are
// thin payload/endpoint bindings over Call.

func (c *Client) Search(ctx context.Context, payload map[string]any, tenantID string) Result {
	return c.Call(ctx, OpSearch, payload, tenantID)
}

func (c *Client) PriceQuote(ctx context.Context, payload map[string]any, tenantID string) Result {
	return c.Call(ctx, OpPriceQuote, payload, tenantID)
}

func (c *Client) CreateOrder(ctx context.Context, payload map[string]any, tenantID string) Result {
	return c.Call(ctx, OpCreateOrder, payload, tenantID)
}

func (c *Client) IssueTicket(ctx context.Context, payload map[string]any, tenantID string) Result {
	return c.Call(ctx, OpIssueTicket, payload, tenantID)
}

func (c *Client) CancelOrder(ctx context.Context, payload map[string]any, tenantID string) Result {
	return c.Call(ctx, OpCancelOrder, payload, tenantID)
}

func (c *Client) Health(ctx context.Context, tenantID string) Result {
	return c.Call(ctx, OpHealth, map[string]any{}, tenantID)
}

// attemptOutcome captures one attempt for classification and audit.
type attemptOutcome struct {
	start    time.Time
	end      time.Time
	status   int
	data     map[string]any
	rawBody  []byte
	err      error
	errorMsg string
}

func (a attemptOutcome) latencyMs() int64 {
	return a.end.Sub(a.start).Milliseconds()
}

// retryable classifies transport errors, timeouts, 5xx and 429 as transient.
func (a attemptOutcome) retryable() bool {
	if a.err != nil {
		return true
	}
	return a.status >= 500 || a.status == http.StatusTooManyRequests
}

func (a attemptOutcome) callError(correlationID string) *CallError {
	if a.err != nil || a.retryable() {
		msg := "upstream request failed"
		if a.err != nil {
			msg = a.err.Error()
		} else if a.errorMsg != "" {
			msg = a.errorMsg
		}
		return &CallError{
			Code:          CodeRequestFailed,
			Message:       msg,
			StatusCode:    http.StatusInternalServerError,
			CorrelationID: correlationID,
		}
	}
	msg := a.errorMsg
	if msg == "" {
		msg = fmt.Sprintf("upstream rejected request with status %d", a.status)
	}
	return &CallError{
		Code:          CodeRejected,
		Message:       msg,
		StatusCode:    a.status,
		CorrelationID: correlationID,
	}
}

func (c *Client) attempt(ctx context.Context, op Operation, payload map[string]any, tenantID, correlationID string, timeout time.Duration) attemptOutcome {
	out := attemptOutcome{start: time.Now().UTC()}

	body, err := json.Marshal(payload)
	if err != nil {
		out.end = time.Now().UTC()
		out.err = fmt.Errorf("encode payload: %w", err)
		return out
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+op.Path, bytes.NewReader(body))
	if err != nil {
		out.end = time.Now().UTC()
		out.err = err
		return out
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", correlationID)
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		out.end = time.Now().UTC()
		out.err = err
		return out
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	out.end = time.Now().UTC()
	if err != nil {
		out.err = err
		return out
	}

	out.status = resp.StatusCode
	out.rawBody = raw

	// The response is opaque beyond a few well-known fields.
	var data map[string]any
	if json.Unmarshal(raw, &data) == nil {
		out.data = data
		out.errorMsg = errorMessage(data)
	}
	return out
}

func (c *Client) recordAttempt(op Operation, payload map[string]any, tenantID, correlationID string, out attemptOutcome) {
	end := out.end
	entry := audit.Entry{
		CorrelationID:  correlationID,
		TenantID:       tenantID,
		Operation:      op.Name,
		RequestTime:    out.start,
		ResponseTime:   &end,
		RequestPayload: payload,
		ExternalID:     externalID(out.data),
	}
	if out.err != nil {
		entry.ErrorMessage = out.err.Error()
	} else {
		status := out.status
		entry.StatusCode = &status
		entry.ResponsePayload = out.rawBody
		entry.ErrorMessage = out.errorMsg
	}

	outcome := "error"
	if out.err == nil && out.status < 300 {
		outcome = "success"
	}
	metrics.UpstreamAttempts.WithLabelValues(op.Name, outcome).Inc()
	metrics.UpstreamLatency.WithLabelValues(op.Name).Observe(out.end.Sub(out.start).Seconds())

	c.auditor.Record(entry)
}

// externalID pulls the engine identifiers used for cross-system tracing.
func externalID(data map[string]any) string {
	if data == nil {
		return ""
	}
	if v, ok := data["order_id"].(string); ok {
		return v
	}
	if v, ok := data["search_id"].(string); ok {
		return v
	}
	return ""
}

// errorMessage extracts the engine's error.message field when present.
func errorMessage(data map[string]any) string {
	errObj, ok := data["error"].(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := errObj["message"].(string)
	return msg
}
