package checkout_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-kit/checkout/internal/checkout"
	"github.com/storefront-kit/checkout/internal/checkout/checklog"
)

const testEmail = "customer@example.com"

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

type stockCall struct {
	ItemID   string
	Quantity int
}

// fakeStock records calls and lets tests mark items unavailable or make
// reductions fail.
type fakeStock struct {
	checkCalls  []stockCall
	reduceCalls []stockCall
	unavailable map[string]bool
	reduceErr   map[string]error
}

func (f *fakeStock) CheckStock(_ context.Context, itemID string, quantity int) (bool, error) {
	f.checkCalls = append(f.checkCalls, stockCall{itemID, quantity})
	return !f.unavailable[itemID], nil
}

func (f *fakeStock) ReduceStock(_ context.Context, itemID string, quantity int) error {
	f.reduceCalls = append(f.reduceCalls, stockCall{itemID, quantity})
	return f.reduceErr[itemID]
}

type chargeCall struct {
	Amount  decimal.Decimal
	Email   string
	OrderID string
}

type fakePayments struct {
	calls   []chargeCall
	decline bool
}

func (f *fakePayments) Charge(_ context.Context, amount decimal.Decimal, email, orderID string) (bool, error) {
	f.calls = append(f.calls, chargeCall{amount, email, orderID})
	return !f.decline, nil
}

type failureNote struct {
	Email  string
	Reason string
}

type fakeNotifier struct {
	confirmations []checkout.OrderDetails
	failures      []failureNote
}

func (f *fakeNotifier) SendOrderConfirmation(_ context.Context, _ string, details checkout.OrderDetails) error {
	f.confirmations = append(f.confirmations, details)
	return nil
}

func (f *fakeNotifier) SendPaymentFailedNotification(_ context.Context, email, reason string) error {
	f.failures = append(f.failures, failureNote{email, reason})
	return nil
}

// memJournal is an in-memory checklog.Repository.
type memJournal struct {
	entries []*checklog.Entry
}

func (j *memJournal) Save(_ context.Context, entry *checklog.Entry) error {
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memJournal) statuses() []checklog.Status {
	out := make([]checklog.Status, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.Status
	}
	return out
}

type fixture struct {
	coord    *checkout.Coordinator
	stock    *fakeStock
	payments *fakePayments
	notifier *fakeNotifier
	journal  *memJournal
	logs     *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		stock:    &fakeStock{unavailable: map[string]bool{}, reduceErr: map[string]error{}},
		payments: &fakePayments{},
		notifier: &fakeNotifier{},
		journal:  &memJournal{},
		logs:     &bytes.Buffer{},
	}

	logger := slog.New(slog.NewTextHandler(f.logs, nil))

	coord, err := checkout.NewCoordinator(logger, testEmail, f.stock, f.payments, f.notifier, f.journal)
	require.NoError(t, err)
	f.coord = coord
	return f
}

func item(t *testing.T, id, price string, qty int) checkout.LineItem {
	t.Helper()
	return checkout.LineItem{ID: id, Name: "item " + id, UnitPrice: dec(t, price), Quantity: qty}
}

func TestNewCoordinatorRejectsInvalidEmail(t *testing.T) {
	for _, email := range []string{"", "not-an-email"} {
		_, err := checkout.NewCoordinator(nil, email, &fakeStock{}, &fakePayments{}, &fakeNotifier{}, nil)
		require.Error(t, err, "email %q", email)

		var invalid *checkout.InvalidEmailError
		assert.ErrorAs(t, err, &invalid)
		assert.Equal(t, email, invalid.Email)
	}
}

func TestNewCoordinatorGeneratesUniqueOrderIDs(t *testing.T) {
	a := newFixture(t)
	b := newFixture(t)
	assert.NotEmpty(t, a.coord.OrderID())
	assert.NotEqual(t, a.coord.OrderID(), b.coord.OrderID())
	assert.Equal(t, checkout.PaymentPending, a.coord.PaymentStatus())
}

func TestAddItemAndCalculateTotal(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "19.99", 2))
	f.coord.AddItem(item(t, "b", "5.00", 3))

	assert.True(t, f.coord.CalculateTotal().Equal(dec(t, "54.98")))
}

func TestAddItemMergesDuplicateIDKeepingStoredPrice(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "10.00", 1))
	f.coord.AddItem(item(t, "a", "99.00", 2))

	items := f.coord.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(dec(t, "10.00")), "stored price must win")
}

func TestAddItemSilentlyRejectsInvalidItems(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "zero-qty", "10.00", 0))
	f.coord.AddItem(item(t, "negative-qty", "10.00", -1))
	f.coord.AddItem(item(t, "negative-price", "-0.01", 1))

	assert.Empty(t, f.coord.Items())
	assert.Contains(t, f.logs.String(), "rejected invalid line item")
}

func TestAddItemAllowsZeroPrice(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "freebie", "0", 1))
	assert.Len(t, f.coord.Items(), 1)
}

func TestRemoveItemOnAbsentIDIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "10.00", 1))

	f.coord.RemoveItem("missing")

	assert.Len(t, f.coord.Items(), 1)
	assert.Contains(t, f.logs.String(), "no such item to remove")
}

func TestRemoveItemPreservesInsertionOrder(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "1.00", 1))
	f.coord.AddItem(item(t, "b", "1.00", 1))
	f.coord.AddItem(item(t, "c", "1.00", 1))

	f.coord.RemoveItem("b")

	items := f.coord.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
}

func TestApplyDiscountOnceOnly(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "100.00", 1))

	assert.False(t, f.coord.ApplyDiscount("WRONG"))
	assert.True(t, f.coord.CalculateTotal().Equal(dec(t, "100.00")))

	assert.True(t, f.coord.ApplyDiscount("SALE10"))
	assert.True(t, f.coord.CalculateTotal().Equal(dec(t, "90.00")))

	// Second application must fail and not compound.
	assert.False(t, f.coord.ApplyDiscount("SALE10"))
	assert.True(t, f.coord.CalculateTotal().Equal(dec(t, "90.00")))
}

func TestCalculateTotalRoundsToTwoDecimals(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "33.333", 1))
	f.coord.AddItem(item(t, "b", "66.666", 1))

	// 99.999 rounds half-away-from-zero to 100.00, not 99.99.
	assert.Equal(t, "100.00", f.coord.CalculateTotal().StringFixed(2))
}

func TestCheckoutEmptyOrderFailsWithoutCollaboratorCalls(t *testing.T) {
	f := newFixture(t)

	ok := f.coord.Checkout(context.Background())

	assert.False(t, ok)
	assert.Empty(t, f.stock.checkCalls)
	assert.Empty(t, f.stock.reduceCalls)
	assert.Empty(t, f.payments.calls)
	assert.Empty(t, f.notifier.confirmations)
	assert.Empty(t, f.notifier.failures)
	assert.Contains(t, f.logs.String(), "order empty")
}

func TestCheckoutStopsAtFirstOutOfStockItem(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "10.00", 1))
	f.coord.AddItem(item(t, "b", "10.00", 2))
	f.coord.AddItem(item(t, "c", "10.00", 3))
	f.stock.unavailable["b"] = true

	ok := f.coord.Checkout(context.Background())

	assert.False(t, ok)
	assert.Equal(t, checkout.PaymentFailed, f.coord.PaymentStatus())

	// "a" and "b" checked; "c" never reached.
	require.Len(t, f.stock.checkCalls, 2)
	assert.Equal(t, stockCall{"a", 1}, f.stock.checkCalls[0])
	assert.Equal(t, stockCall{"b", 2}, f.stock.checkCalls[1])

	assert.Empty(t, f.payments.calls, "no charge after stock failure")
	assert.Empty(t, f.stock.reduceCalls, "no reduction after stock failure")
	assert.Empty(t, f.notifier.confirmations)

	require.Len(t, f.notifier.failures, 1)
	assert.Equal(t, testEmail, f.notifier.failures[0].Email)
	assert.Contains(t, f.notifier.failures[0].Reason, "b")
}

func TestCheckoutPaymentDeclined(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "10.00", 1))
	f.payments.decline = true

	ok := f.coord.Checkout(context.Background())

	assert.False(t, ok)
	assert.Equal(t, checkout.PaymentFailed, f.coord.PaymentStatus())
	assert.Empty(t, f.stock.reduceCalls, "no reduction after declined payment")
	assert.Empty(t, f.notifier.confirmations, "no confirmation after declined payment")

	require.Len(t, f.notifier.failures, 1)
	assert.Equal(t, f.coord.OrderID(), f.notifier.failures[0].Reason)
}

func TestCheckoutZeroTotalSkipsPayment(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "freebie", "0", 2))

	ok := f.coord.Checkout(context.Background())

	assert.True(t, ok)
	assert.Equal(t, checkout.PaymentPaid, f.coord.PaymentStatus())
	assert.Empty(t, f.payments.calls, "charge must never be invoked for a zero total")
	assert.Contains(t, f.logs.String(), "payment skipped")

	require.Len(t, f.notifier.confirmations, 1)
	assert.True(t, f.notifier.confirmations[0].TotalAmount.IsZero())
	assert.Equal(t, checkout.PaymentPaid, f.notifier.confirmations[0].PaymentStatus)

	// Zero-total orders still decrement stock.
	require.Len(t, f.stock.reduceCalls, 1)
	assert.Equal(t, stockCall{"freebie", 2}, f.stock.reduceCalls[0])
}

func TestCheckoutContinuesAfterReductionFailure(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "10.00", 1))
	f.coord.AddItem(item(t, "b", "10.00", 1))
	cause := errors.New("stock store unreachable")
	f.stock.reduceErr["a"] = cause

	ok := f.coord.Checkout(context.Background())

	assert.True(t, ok, "checkout still succeeds past a failed reduction")
	assert.Equal(t, checkout.PaymentPaid, f.coord.PaymentStatus())

	// Iteration stops at the first failing reduction; "b" is never attempted.
	require.Len(t, f.stock.reduceCalls, 1)
	assert.Equal(t, stockCall{"a", 1}, f.stock.reduceCalls[0])

	assert.Contains(t, f.logs.String(), "CRITICAL")
	assert.Contains(t, f.logs.String(), cause.Error())

	require.Len(t, f.notifier.confirmations, 1)
	assert.Empty(t, f.notifier.failures)
}

func TestCheckoutSuccess(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "50.00", 2))
	f.coord.AddItem(item(t, "b", "75.00", 1))

	ok := f.coord.Checkout(context.Background())

	assert.True(t, ok)
	assert.Equal(t, checkout.PaymentPaid, f.coord.PaymentStatus())

	require.Len(t, f.stock.checkCalls, 2)
	assert.Equal(t, stockCall{"a", 2}, f.stock.checkCalls[0])
	assert.Equal(t, stockCall{"b", 1}, f.stock.checkCalls[1])

	require.Len(t, f.payments.calls, 1)
	assert.True(t, f.payments.calls[0].Amount.Equal(dec(t, "175.00")))
	assert.Equal(t, testEmail, f.payments.calls[0].Email)
	assert.Equal(t, f.coord.OrderID(), f.payments.calls[0].OrderID)

	require.Len(t, f.stock.reduceCalls, 2)
	assert.Equal(t, stockCall{"a", 2}, f.stock.reduceCalls[0])
	assert.Equal(t, stockCall{"b", 1}, f.stock.reduceCalls[1])

	require.Len(t, f.notifier.confirmations, 1)
	details := f.notifier.confirmations[0]
	assert.Equal(t, f.coord.OrderID(), details.OrderID)
	assert.Len(t, details.Items, 2)
	assert.True(t, details.TotalAmount.Equal(dec(t, "175.00")))
	assert.Equal(t, checkout.PaymentPaid, details.PaymentStatus)
}

func TestCheckoutJournalsLifecycle(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "50.00", 1))

	require.True(t, f.coord.Checkout(context.Background()))

	assert.Equal(t, []checklog.Status{
		checklog.StatusStarted,
		checklog.StatusStockVerified,
		checklog.StatusPaid,
		checklog.StatusConfirmed,
	}, f.journal.statuses())
	for _, entry := range f.journal.entries {
		assert.Equal(t, f.coord.OrderID(), entry.OrderID)
	}
}

func TestCheckoutWithoutJournalStillWorks(t *testing.T) {
	coord, err := checkout.NewCoordinator(
		slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		testEmail,
		&fakeStock{unavailable: map[string]bool{}, reduceErr: map[string]error{}},
		&fakePayments{},
		&fakeNotifier{},
		nil,
	)
	require.NoError(t, err)

	coord.AddItem(checkout.LineItem{ID: "a", UnitPrice: decimal.NewFromInt(5), Quantity: 1})
	assert.True(t, coord.Checkout(context.Background()))
}

func TestOrderStatusSnapshot(t *testing.T) {
	f := newFixture(t)
	f.coord.AddItem(item(t, "a", "10.555", 2))
	require.True(t, f.coord.ApplyDiscount("SALE10"))

	status := f.coord.OrderStatus()

	assert.Contains(t, status, f.coord.OrderID())
	assert.Contains(t, status, testEmail)
	assert.Contains(t, status, "1 item(s)")
	// 21.11 × 0.9 = 18.999 → 19.00
	assert.Contains(t, status, "19.00")
	assert.Contains(t, status, "discount yes")
	assert.Contains(t, status, "payment pending")
}
