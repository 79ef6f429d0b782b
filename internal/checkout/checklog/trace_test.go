package checklog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractTraceInfoWithoutSpan(t *testing.T) {
	ti := ExtractTraceInfo(context.Background())
	assert.Empty(t, ti.TraceID)
	assert.Empty(t, ti.SpanID)
}

func TestNewEntryCarriesTraceInfo(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	entry := NewEntry(ctx, "order-1", StatusPaid, "payment_charge", "175.00")

	assert.Equal(t, "order-1", entry.OrderID)
	assert.Equal(t, StatusPaid, entry.Status)
	assert.Equal(t, "payment_charge", entry.Stage)
	assert.Equal(t, "175.00", entry.Detail)
	assert.Equal(t, traceID.String(), entry.TraceID)
	assert.Equal(t, spanID.String(), entry.SpanID)
	assert.False(t, entry.UpdatedAt.IsZero())
}
