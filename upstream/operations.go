package upstream

import "time"

// Operation binds a named workflow-engine call to its endpoint path. All
// operations POST JSON to {base}{Path} on the same engine.
type Operation struct {
	Name    string
	Path    string
	NoRetry bool          // health check only
	Timeout time.Duration // 0 => client default
}

var (
	OpSearch      = Operation{Name: "search", Path: "/flights/search"}
	OpPriceQuote  = Operation{Name: "price", Path: "/flights/price"}
	OpCreateOrder = Operation{Name: "create-order", Path: "/orders"}
	OpIssueTicket = Operation{Name: "issue-ticket", Path: "/orders/issue"}
	OpCancelOrder = Operation{Name: "cancel-order", Path: "/orders/cancel"}

	// Health is a liveness probe: single attempt, short timeout.
	OpHealth = Operation{Name: "health", Path: "/health", NoRetry: true, Timeout: 5 * time.Second}
)
