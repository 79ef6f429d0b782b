// Package notification provides a NotificationService that writes customer
// notifications to the structured log. A real deployment would swap in an
// email or push implementation behind the same port.
package notification

import (
	"context"
	"log/slog"

	"github.com/storefront-kit/checkout/internal/checkout"
)

var _ checkout.NotificationService = (*SlogNotifier)(nil)

// SlogNotifier logs each notification instead of delivering it.
type SlogNotifier struct {
	log *slog.Logger
}

// NewSlogNotifier returns a notifier writing to logger, or to the default
// logger when nil.
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{log: logger}
}

func (n *SlogNotifier) SendOrderConfirmation(ctx context.Context, customerEmail string, details checkout.OrderDetails) error {
	n.log.InfoContext(ctx, "order confirmation sent",
		"customer_email", customerEmail,
		"order_id", details.OrderID,
		"item_count", len(details.Items),
		"total", details.TotalAmount.StringFixed(2),
		"payment_status", details.PaymentStatus,
	)
	return nil
}

func (n *SlogNotifier) SendPaymentFailedNotification(ctx context.Context, customerEmail, reason string) error {
	n.log.WarnContext(ctx, "payment failure notification sent",
		"customer_email", customerEmail,
		"reason", reason,
	)
	return nil
}
