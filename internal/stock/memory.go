// Package stock provides StockService implementations: an in-memory store
// for local development and tests, and a Redis-backed store for deployments
// where stock levels are shared across processes.
package stock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/storefront-kit/checkout/internal/checkout"
)

// Ensure the adapter satisfies the port at compile time.
var _ checkout.StockService = (*MemoryService)(nil)

// MemoryService keeps stock levels in a mutex-guarded map.
type MemoryService struct {
	mu     sync.Mutex
	levels map[string]int
}

// NewMemoryService returns an in-memory stock service seeded with the given
// levels. The map is copied; the caller may reuse it.
func NewMemoryService(levels map[string]int) *MemoryService {
	copied := make(map[string]int, len(levels))
	for id, qty := range levels {
		copied[id] = qty
	}
	return &MemoryService{levels: copied}
}

// CheckStock reports whether quantity units of itemID are available.
// Unknown products are simply unavailable, not an error.
func (s *MemoryService) CheckStock(ctx context.Context, itemID string, quantity int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	available, exists := s.levels[itemID]
	if !exists {
		slog.WarnContext(ctx, "stock check for unknown product", "item_id", itemID)
		return false, nil
	}

	return available >= quantity, nil
}

// ReduceStock decrements the level of itemID by quantity. It fails when the
// product is unknown or the level would go negative.
func (s *MemoryService) ReduceStock(ctx context.Context, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	available, exists := s.levels[itemID]
	if !exists {
		return fmt.Errorf("stock: unknown product %q", itemID)
	}
	if available < quantity {
		return fmt.Errorf("stock: reduce %q by %d: only %d available", itemID, quantity, available)
	}

	s.levels[itemID] = available - quantity
	return nil
}

// Level returns the current stock level for itemID. Intended for tests and
// the seeding endpoint.
func (s *MemoryService) Level(itemID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[itemID]
}

// Set overwrites the stock level for itemID.
func (s *MemoryService) Set(itemID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[itemID] = quantity
}
