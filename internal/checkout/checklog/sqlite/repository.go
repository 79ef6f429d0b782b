// Package sqlite provides a SQLite-backed implementation of checklog.Repository.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa — the checkout handler writes while the status endpoint may be
// reading the same order's history.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/storefront-kit/checkout/internal/checkout/checklog"

	// Register the pure-Go SQLite driver.
	// modernc.org/sqlite avoids CGO, which keeps Docker (Alpine) builds simple.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup.
// The table is append-only: each row is an immutable event in a checkout
// run's lifecycle. The latest row per order_id gives the current state.
const schema = `
CREATE TABLE IF NOT EXISTS checkout_logs (
    -- Surrogate primary key — auto-incremented by SQLite.
    id          INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Business identifier: the order ID. Not UNIQUE because multiple rows
    -- exist per checkout run (one per transition).
    order_id    TEXT    NOT NULL,

    -- Lifecycle state at the time this row was written.
    status      TEXT    NOT NULL,

    -- Step that just executed (e.g. "stock_verification").
    stage       TEXT    NOT NULL DEFAULT '',

    -- Human-readable note: failing item, underlying error, total.
    detail      TEXT    NOT NULL DEFAULT '',

    -- W3C trace_id (32 hex chars) from the active OTel span.
    trace_id    TEXT    NOT NULL DEFAULT '',

    -- W3C span_id (16 hex chars).
    span_id     TEXT    NOT NULL DEFAULT '',

    -- Wall-clock timestamp (RFC3339 stored as TEXT, SQLite idiom).
    updated_at  TEXT    NOT NULL
);

-- Index for the most common query: "all events for order X, in order".
CREATE INDEX IF NOT EXISTS idx_checkout_logs_order_id ON checkout_logs(order_id, updated_at);

-- Index for the observability query: "find the checkout for trace Y".
CREATE INDEX IF NOT EXISTS idx_checkout_logs_trace_id ON checkout_logs(trace_id);
`

// Repository is the SQLite implementation of checklog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
//
//	repo, err := sqlite.Open("./data/checkout.db")
func Open(path string) (*Repository, error) {
	// The pure-Go driver takes _pragma query parameters. WAL enables
	// concurrent readers; busy_timeout waits for locks instead of failing.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	// "sqlite", not "sqlite3", for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save inserts a new checkout log entry. Safe to call concurrently.
func (r *Repository) Save(ctx context.Context, entry *checklog.Entry) error {
	const q = `
		INSERT INTO checkout_logs
			(order_id, status, stage, detail, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.OrderID,
		string(entry.Status),
		entry.Stage,
		entry.Detail,
		entry.TraceID,
		entry.SpanID,
		entry.UpdatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save checkout log for %q: %w", entry.OrderID, err)
	}
	return nil
}

// GetLatest returns the most recent log entry for a given order ID.
// Backs the GET /checkout/{id} status endpoint.
func (r *Repository) GetLatest(ctx context.Context, orderID string) (*checklog.Entry, error) {
	const q = `
		SELECT order_id, status, stage, detail, trace_id, span_id, updated_at
		FROM   checkout_logs
		WHERE  order_id = ?
		ORDER  BY updated_at DESC, id DESC
		LIMIT  1`

	row := r.db.QueryRowContext(ctx, q, orderID)

	var entry checklog.Entry
	var updatedAt string
	err := row.Scan(
		&entry.OrderID,
		&entry.Status,
		&entry.Stage,
		&entry.Detail,
		&entry.TraceID,
		&entry.SpanID,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: checkout %q not found", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get latest for %q: %w", orderID, err)
	}

	entry.UpdatedAt, err = parseRFC3339(updatedAt)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// History returns every log entry for an order, oldest first.
func (r *Repository) History(ctx context.Context, orderID string) ([]*checklog.Entry, error) {
	const q = `
		SELECT order_id, status, stage, detail, trace_id, span_id, updated_at
		FROM   checkout_logs
		WHERE  order_id = ?
		ORDER  BY updated_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", orderID, err)
	}
	defer rows.Close()

	var entries []*checklog.Entry
	for rows.Next() {
		var entry checklog.Entry
		var updatedAt string
		if err := rows.Scan(
			&entry.OrderID,
			&entry.Status,
			&entry.Stage,
			&entry.Detail,
			&entry.TraceID,
			&entry.SpanID,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan history for %q: %w", orderID, err)
		}
		entry.UpdatedAt, err = parseRFC3339(updatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// applySchema runs the DDL statements once. Idempotent due to IF NOT EXISTS.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}
