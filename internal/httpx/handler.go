package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/storefront-kit/checkout/internal/checkout"
	"github.com/storefront-kit/checkout/internal/checkout/checklog"
	"github.com/storefront-kit/checkout/internal/httpx/middlewares"
	"github.com/storefront-kit/checkout/internal/pkg/idempotency"
)

// JournalReader is the read side of the checkout log, backing the status
// endpoints. The SQLite repository satisfies it.
type JournalReader interface {
	GetLatest(ctx context.Context, orderID string) (*checklog.Entry, error)
	History(ctx context.Context, orderID string) ([]*checklog.Entry, error)
}

// Handler exposes the checkout coordinator over HTTP. Each POST /checkout
// builds a fresh coordinator around the shared collaborator services and
// runs the checkout synchronously.
type Handler struct {
	stock    checkout.StockService
	payments checkout.PaymentService
	notifier checkout.NotificationService
	journal  checklog.Repository // may be nil: transitions not persisted
	reader   JournalReader       // may be nil: status endpoints disabled
	idemp    idempotency.Store   // may be nil: idempotency keys ignored
}

// NewHandler initialises the handler with the collaborator services shared
// by all checkouts. journal, reader and idemp may each be nil.
func NewHandler(
	stock checkout.StockService,
	payments checkout.PaymentService,
	notifier checkout.NotificationService,
	journal checklog.Repository,
	reader JournalReader,
	idemp idempotency.Store,
) *Handler {
	return &Handler{
		stock:    stock,
		payments: payments,
		notifier: notifier,
		journal:  journal,
		reader:   reader,
		idemp:    idemp,
	}
}

// Checkout builds a coordinator from the request body and runs the checkout
// sequence. 201 on success, 422 when the checkout itself fails (empty order,
// out of stock, payment declined), 400 on malformed input.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "items are required")
		return
	}

	ctx := r.Context()

	coord, err := checkout.NewCoordinator(
		slog.Default(),
		req.CustomerEmail,
		h.stock,
		h.payments,
		h.notifier,
		h.journal,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_email", err.Error())
		return
	}

	// The idempotency lock is taken only after validation, so a rejected
	// request never burns its key.
	idempKey := middlewares.IdempotencyKeyFromContext(ctx)
	if replayed := h.replayIfSeen(ctx, w, idempKey); replayed {
		return
	}

	// Invalid items are dropped by the coordinator itself (with a logged
	// diagnostic), not rejected here, so an order whose items are all
	// invalid fails checkout as an empty order.
	for _, it := range req.Items {
		coord.AddItem(checkout.LineItem{
			ID:        it.ID,
			Name:      it.Name,
			UnitPrice: decimal.NewFromFloat(it.UnitPrice),
			Quantity:  it.Quantity,
		})
	}

	discountApplied := false
	if req.DiscountCode != "" {
		discountApplied = coord.ApplyDiscount(req.DiscountCode)
	}

	requestID := middlewares.RequestIDFromContext(ctx)
	slog.InfoContext(ctx, "running checkout",
		"request_id", requestID,
		"order_id", coord.OrderID(),
		"customer_email", req.CustomerEmail,
	)

	ok := coord.Checkout(ctx)

	resp := CheckoutResponse{
		OrderID:         coord.OrderID(),
		Success:         ok,
		PaymentStatus:   string(coord.PaymentStatus()),
		Total:           coord.CalculateTotal().StringFixed(2),
		DiscountApplied: discountApplied,
		OrderStatus:     coord.OrderStatus(),
	}

	status := http.StatusCreated
	if !ok {
		status = http.StatusUnprocessableEntity
	}

	h.rememberResponse(ctx, idempKey, resp)
	writeJSON(w, status, resp)
}

// GetCheckout returns the latest checkout log entry for an order ID.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "checkout_log_disabled", "")
		return
	}

	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "")
		return
	}

	entry, err := h.reader.GetLatest(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusNotFound, "checkout_not_found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, mapEntry(entry))
}

// GetCheckoutHistory returns every checkout log entry for an order ID,
// oldest first.
func (h *Handler) GetCheckoutHistory(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "checkout_log_disabled", "")
		return
	}

	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "")
		return
	}

	entries, err := h.reader.History(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusNotFound, "checkout_not_found", err.Error())
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "checkout_not_found", "")
		return
	}

	out := make([]CheckoutLogEntryResponse, len(entries))
	for i, entry := range entries {
		out[i] = mapEntry(entry)
	}
	writeJSON(w, http.StatusOK, out)
}

// replayIfSeen serves the remembered response when the idempotency key has
// been used before. It reports true when it has written a response.
func (h *Handler) replayIfSeen(ctx context.Context, w http.ResponseWriter, key string) bool {
	if key == "" || h.idemp == nil {
		return false
	}

	locked, err := h.idemp.TryLock(ctx, "checkout", key)
	if err != nil {
		// Idempotency is best-effort: a store outage must not block checkouts.
		slog.WarnContext(ctx, "idempotency lock failed, proceeding", "error", err)
		return false
	}
	if locked {
		return false
	}

	val, found, err := h.idemp.Recall(ctx, "checkout", key)
	if err != nil {
		slog.WarnContext(ctx, "idempotency recall failed, proceeding", "error", err)
		return false
	}
	if !found {
		// Locked but not remembered: the original request is still running.
		writeError(w, http.StatusConflict, "request_in_flight", "a checkout with this idempotency key is being processed")
		return true
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(val))
	return true
}

// rememberResponse stores the serialised response under the idempotency key.
func (h *Handler) rememberResponse(ctx context.Context, key string, resp CheckoutResponse) {
	if key == "" || h.idemp == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := h.idemp.Remember(ctx, "checkout", key, string(raw)); err != nil {
		slog.WarnContext(ctx, "idempotency remember failed", "error", err)
	}
}

func mapEntry(entry *checklog.Entry) CheckoutLogEntryResponse {
	return CheckoutLogEntryResponse{
		OrderID:   entry.OrderID,
		Status:    string(entry.Status),
		Stage:     entry.Stage,
		Detail:    entry.Detail,
		TraceID:   entry.TraceID,
		UpdatedAt: entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
