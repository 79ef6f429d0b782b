// Package checklog defines the domain types for the checkout log.
//
// The checkout log is a durable audit trail of every transition a checkout
// run goes through. It serves two purposes:
//
//  1. Observability: you can query the DB to see exactly how far a checkout
//     got (or where it stopped) and correlate it with a distributed trace
//     via the trace_id field.
//
//  2. Reconciliation: paid orders whose stock decrement failed part-way are
//     only surfaced here and in the logs; an operator job can scan for
//     REDUCTION_INCOMPLETE rows and repair stock levels by hand.
package checklog

import "time"

// Status represents the lifecycle state of a checkout run.
type Status string

const (
	StatusStarted             Status = "STARTED"
	StatusStockVerified       Status = "STOCK_VERIFIED"
	StatusPaid                Status = "PAID"
	StatusPaymentSkipped      Status = "PAYMENT_SKIPPED"
	StatusReductionIncomplete Status = "REDUCTION_INCOMPLETE"
	StatusConfirmed           Status = "CONFIRMED"
	StatusFailed              Status = "FAILED"
)

// Entry is a single row in the checkout_logs table.
// It captures a point-in-time snapshot of a checkout run.
type Entry struct {
	// OrderID identifies the checkout run. There is exactly one run per
	// order, so the order ID doubles as the run ID.
	OrderID string

	// Status is the lifecycle state at the time this row was written.
	Status Status

	// Stage names the step that was just completed or failed, e.g.
	// "stock_verification" or "payment_charge".
	Stage string

	// Detail carries a human-readable note: the out-of-stock item on a
	// FAILED row, the underlying error on a REDUCTION_INCOMPLETE row,
	// the formatted total on a CONFIRMED row. Empty when there is nothing
	// to say.
	Detail string

	// TraceID is the W3C trace ID extracted from the OpenTelemetry span
	// that was active when this entry was written. Lets you jump from a
	// checkout log row straight to the full trace.
	TraceID string

	// SpanID pinpoints the exact span within the trace.
	SpanID string

	// UpdatedAt is the wall-clock time of this entry.
	UpdatedAt time.Time
}
