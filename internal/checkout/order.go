// Package checkout implements the order checkout coordinator: it accumulates
// line items, computes discounted totals, and drives the linear checkout
// sequence (stock verification → payment charge → stock decrement →
// confirmation) against three injected collaborator services.
package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the terminal classification of an order's checkout outcome.
// Transitions: pending → paid or pending → failed. Both end states are
// terminal; there is no way back to pending.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// LineItem is a single product entry in an order.
type LineItem struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns UnitPrice × Quantity, unrounded.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// valid reports whether the item may enter an order at all.
// Zero-priced items are allowed; zero or negative quantities and negative
// prices are not.
func (i LineItem) valid() bool {
	return i.Quantity > 0 && !i.UnitPrice.IsNegative()
}

// InvalidEmailError is returned by NewCoordinator when the customer email is
// empty or is missing an "@".
type InvalidEmailError struct {
	Email string
}

func (e *InvalidEmailError) Error() string {
	return fmt.Sprintf("invalid customer email %q", e.Email)
}

// OrderDetails is the confirmation payload handed to the NotificationService
// after a successful checkout.
type OrderDetails struct {
	OrderID       string
	Items         []LineItem
	TotalAmount   decimal.Decimal
	PaymentStatus PaymentStatus
}
