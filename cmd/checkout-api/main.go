package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/storefront-kit/checkout/internal/checkout"
	checklogsqlite "github.com/storefront-kit/checkout/internal/checkout/checklog/sqlite"
	"github.com/storefront-kit/checkout/internal/httpx"
	"github.com/storefront-kit/checkout/internal/notification"
	"github.com/storefront-kit/checkout/internal/payment"
	"github.com/storefront-kit/checkout/internal/pkg/idempotency"
	"github.com/storefront-kit/checkout/internal/pkg/telemetry"
	"github.com/storefront-kit/checkout/internal/stock"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "checkout-api"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	journal, err := checklogsqlite.Open(getEnv("CHECKOUT_DB", "checkout.db"))
	if err != nil {
		slog.Error("failed to open checkout log", "error", err)
		os.Exit(1)
	}
	defer journal.Close()

	// With REDIS_ADDR set, stock levels live in Redis and checkout requests
	// are deduplicated by idempotency key. Without it, everything stays
	// in-process — handy for local development.
	var stockSvc checkout.StockService
	var idempStore idempotency.Store
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		stockSvc = stock.NewRedisService(rdb)
		idempStore = idempotency.NewRedisStore(rdb, 24*time.Hour)
		slog.Info("using redis-backed stock service", "addr", redisAddr)
	} else {
		stockSvc = stock.NewMemoryService(map[string]int{
			"prod_1": 15,
			"prod_2": 10,
			"prod_3": 0,
		})
		slog.Info("using in-memory stock service")
	}

	chargeLimit, err := decimal.NewFromString(getEnv("PAYMENT_CHARGE_LIMIT", "500.00"))
	if err != nil {
		slog.Error("invalid PAYMENT_CHARGE_LIMIT", "error", err)
		os.Exit(1)
	}

	handler := httpx.NewHandler(
		stockSvc,
		payment.NewMemoryService(chargeLimit),
		notification.NewSlogNotifier(nil),
		journal,
		journal,
		idempStore,
	)

	addr := ":" + getEnv("PORT", "8080")
	server := &http.Server{
		Addr:    addr,
		Handler: httpx.NewRouter(handler),
	}

	go func() {
		slog.Info("checkout API running", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
