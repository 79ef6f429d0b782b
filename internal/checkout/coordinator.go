package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-kit/checkout/internal/checkout/checklog"
)

// discountCode is the only code ApplyDiscount accepts. It knocks 10% off.
const discountCode = "SALE10"

var discountMultiplier = decimal.NewFromFloat(0.9)

// Coordinator owns the line items and payment state of a single order and
// drives its checkout sequence against the injected collaborator services.
//
// One Coordinator processes exactly one order. It is not safe for concurrent
// use; callers invoke its methods sequentially and create a fresh instance
// for each new order.
type Coordinator struct {
	log      *slog.Logger
	stock    StockService
	payments PaymentService
	notifier NotificationService
	journal  checklog.Repository // nil-safe: audit logging skipped if nil

	orderID         string
	customerEmail   string
	items           []LineItem
	discountApplied bool
	paymentStatus   PaymentStatus
}

// NewCoordinator validates the customer email, generates a fresh order ID and
// returns a coordinator in the pending state with no items and no discount.
//
// journal may be nil — in that case checkout transitions are not persisted
// to the checkout log.
func NewCoordinator(
	logger *slog.Logger,
	customerEmail string,
	stock StockService,
	payments PaymentService,
	notifier NotificationService,
	journal checklog.Repository,
) (*Coordinator, error) {
	if customerEmail == "" || !strings.Contains(customerEmail, "@") {
		return nil, &InvalidEmailError{Email: customerEmail}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		log:           logger,
		stock:         stock,
		payments:      payments,
		notifier:      notifier,
		journal:       journal,
		orderID:       uuid.NewString(),
		customerEmail: customerEmail,
		paymentStatus: PaymentPending,
	}, nil
}

// OrderID returns the identifier generated at construction.
func (c *Coordinator) OrderID() string { return c.orderID }

// PaymentStatus returns the current payment state of the order.
func (c *Coordinator) PaymentStatus() PaymentStatus { return c.paymentStatus }

// Items returns a copy of the current line items in insertion order.
func (c *Coordinator) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// AddItem appends item to the order, preserving insertion order. Items with a
// non-positive quantity or a negative unit price are silently rejected — a
// diagnostic is logged, but the caller is not notified programmatically.
//
// If an item with the same ID already exists, only its quantity is
// incremented; the stored unit price is left unchanged.
func (c *Coordinator) AddItem(item LineItem) {
	if !item.valid() {
		c.log.Warn("rejected invalid line item",
			"order_id", c.orderID,
			"item_id", item.ID,
			"quantity", item.Quantity,
			"unit_price", item.UnitPrice,
		)
		return
	}

	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Quantity += item.Quantity
			return
		}
	}

	c.items = append(c.items, item)
}

// RemoveItem removes the first item matching itemID. Removing an ID that is
// not in the order is a no-op; a diagnostic is logged.
func (c *Coordinator) RemoveItem(itemID string) {
	for i := range c.items {
		if c.items[i].ID == itemID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}

	c.log.Warn("no such item to remove", "order_id", c.orderID, "item_id", itemID)
}

// CalculateTotal returns the sum of unit price × quantity over all items,
// reduced by 10% when the discount is applied, rounded half-away-from-zero
// to 2 decimal places. Pure; callable at any point in the order's lifecycle.
func (c *Coordinator) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	if c.discountApplied {
		total = total.Mul(discountMultiplier)
	}
	return total.Round(2)
}

// ApplyDiscount marks the order as discounted if code is valid and no
// discount has been applied yet. It reports false — with no state change —
// for a wrong code or an already-discounted order, so calling it twice with
// the valid code applies the discount only once.
func (c *Coordinator) ApplyDiscount(code string) bool {
	if code != discountCode || c.discountApplied {
		return false
	}
	c.discountApplied = true
	return true
}

// Checkout runs the checkout sequence once: stock verification for every
// item, the payment charge, best-effort stock decrement, and the
// confirmation notification. It reports whether the order ended up paid and
// confirmed. Earlier steps are never rolled back when a later step fails.
//
// Failures are not raised as errors: the boolean result, the payment status
// and the notifications sent are the only externally observable signals.
func (c *Coordinator) Checkout(ctx context.Context) bool {
	if len(c.items) == 0 {
		c.log.ErrorContext(ctx, "checkout rejected: order empty", "order_id", c.orderID)
		c.record(ctx, checklog.StatusFailed, "validation", "order empty")
		return false
	}

	c.record(ctx, checklog.StatusStarted, "validation", "")

	// Verify availability for every item before touching money or stock.
	// The first insufficiently stocked item fails the whole checkout;
	// items after it are never checked.
	for _, item := range c.items {
		available, err := c.stock.CheckStock(ctx, item.ID, item.Quantity)
		if err != nil || !available {
			c.paymentStatus = PaymentFailed
			reason := fmt.Sprintf("insufficient stock for item %s", item.ID)
			_ = c.notifier.SendPaymentFailedNotification(ctx, c.customerEmail, reason)
			c.log.ErrorContext(ctx, "checkout failed: insufficient stock",
				"order_id", c.orderID,
				"item_id", item.ID,
				"quantity", item.Quantity,
				"error", err,
			)
			c.record(ctx, checklog.StatusFailed, "stock_verification", reason)
			return false
		}
	}

	c.record(ctx, checklog.StatusStockVerified, "stock_verification", "")

	total := c.CalculateTotal()

	if total.IsZero() {
		// Nothing to charge. The order still counts as paid so the rest
		// of the sequence (stock decrement, confirmation) proceeds.
		c.paymentStatus = PaymentPaid
		c.log.WarnContext(ctx, "payment skipped: order total is zero", "order_id", c.orderID)
		c.record(ctx, checklog.StatusPaymentSkipped, "payment_charge", "")
	} else {
		charged, err := c.payments.Charge(ctx, total, c.customerEmail, c.orderID)
		if err != nil || !charged {
			c.paymentStatus = PaymentFailed
			_ = c.notifier.SendPaymentFailedNotification(ctx, c.customerEmail, c.orderID)
			c.log.ErrorContext(ctx, "checkout failed: payment declined",
				"order_id", c.orderID,
				"amount", total,
				"error", err,
			)
			c.record(ctx, checklog.StatusFailed, "payment_charge", "payment declined")
			return false
		}
		c.paymentStatus = PaymentPaid
		c.record(ctx, checklog.StatusPaid, "payment_charge", total.StringFixed(2))
	}

	// Best-effort stock decrement. Payment has already been taken, so a
	// failing reduction must not fail the checkout: log it as critical,
	// stop reducing, and carry on to the confirmation. Paid orders with
	// partially reduced stock are reconciled out of band via the checkout
	// log and the diagnostic below.
	for _, item := range c.items {
		if err := c.stock.ReduceStock(ctx, item.ID, item.Quantity); err != nil {
			c.log.ErrorContext(ctx, "CRITICAL: stock reduction failed after payment",
				"order_id", c.orderID,
				"item_id", item.ID,
				"quantity", item.Quantity,
				"error", err,
			)
			c.record(ctx, checklog.StatusReductionIncomplete, "stock_reduction",
				fmt.Sprintf("item %s: %v", item.ID, err))
			break
		}
	}

	_ = c.notifier.SendOrderConfirmation(ctx, c.customerEmail, OrderDetails{
		OrderID:       c.orderID,
		Items:         c.Items(),
		TotalAmount:   total,
		PaymentStatus: c.paymentStatus,
	})
	c.record(ctx, checklog.StatusConfirmed, "confirmation", total.StringFixed(2))

	return true
}

// OrderStatus returns a human-readable snapshot of the order. Side-effect
// free; callable at any point.
func (c *Coordinator) OrderStatus() string {
	discount := "no"
	if c.discountApplied {
		discount = "yes"
	}
	return fmt.Sprintf("order %s for %s: %d item(s), total %s, discount %s, payment %s",
		c.orderID,
		c.customerEmail,
		len(c.items),
		c.CalculateTotal().StringFixed(2),
		discount,
		c.paymentStatus,
	)
}

// record appends an entry to the checkout log, if one is configured.
// Audit logging is strictly best-effort and never affects checkout flow.
func (c *Coordinator) record(ctx context.Context, status checklog.Status, stage, detail string) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Save(ctx, checklog.NewEntry(ctx, c.orderID, status, stage, detail)); err != nil {
		c.log.WarnContext(ctx, "failed to append checkout log entry",
			"order_id", c.orderID,
			"status", status,
			"error", err,
		)
	}
}
