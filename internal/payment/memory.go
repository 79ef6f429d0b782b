// Package payment provides an in-memory PaymentService for local development
// and tests. It declines charges above a configurable limit, which makes the
// payment-failure path easy to exercise end to end.
package payment

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/storefront-kit/checkout/internal/checkout"
)

var _ checkout.PaymentService = (*MemoryService)(nil)

// MemoryService records successful charges in memory and declines any charge
// above its limit.
type MemoryService struct {
	mu      sync.Mutex
	limit   decimal.Decimal
	charges map[string]decimal.Decimal // orderID → amount
}

// NewMemoryService returns a payment service that declines charges greater
// than limit.
func NewMemoryService(limit decimal.Decimal) *MemoryService {
	return &MemoryService{
		limit:   limit,
		charges: make(map[string]decimal.Decimal),
	}
}

// Charge approves and records the charge unless amount exceeds the limit.
func (s *MemoryService) Charge(ctx context.Context, amount decimal.Decimal, customerEmail, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount.GreaterThan(s.limit) {
		slog.WarnContext(ctx, "charge declined: amount exceeds limit",
			"order_id", orderID,
			"amount", amount,
			"limit", s.limit,
		)
		return false, nil
	}

	s.charges[orderID] = amount
	slog.InfoContext(ctx, "charge approved", "order_id", orderID, "amount", amount)
	return true, nil
}

// Charged returns the recorded amount for orderID, if any.
func (s *MemoryService) Charged(orderID string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.charges[orderID]
	return amount, ok
}
