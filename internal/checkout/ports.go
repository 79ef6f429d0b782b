package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

// The coordinator depends on these three ports, not on any concrete
// transport. Any conforming implementation is valid: the in-process adapters
// under internal/stock, internal/payment and internal/notification are what
// cmd/checkout-api wires in, but a gRPC or HTTP client works just as well.

// StockService answers availability queries and decrements stock levels.
type StockService interface {
	// CheckStock reports whether quantity units of itemID are available.
	CheckStock(ctx context.Context, itemID string, quantity int) (bool, error)

	// ReduceStock decrements the stock level of itemID by quantity.
	ReduceStock(ctx context.Context, itemID string, quantity int) error
}

// PaymentService charges the customer. The boolean is the business outcome:
// true means the charge went through, false means it was declined.
type PaymentService interface {
	Charge(ctx context.Context, amount decimal.Decimal, customerEmail, orderID string) (bool, error)
}

// NotificationService delivers customer-facing messages. Failures to deliver
// are the implementation's problem; the coordinator does not inspect them.
type NotificationService interface {
	SendOrderConfirmation(ctx context.Context, customerEmail string, details OrderDetails) error
	SendPaymentFailedNotification(ctx context.Context, customerEmail, reason string) error
}
