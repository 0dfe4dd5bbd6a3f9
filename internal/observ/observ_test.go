package observ

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/gderossilive/devShopDemo/internal/entity"
)

func TestPurchaseOutcome(t *testing.T) {
	assert.Equal(t, "committed", PurchaseOutcome(nil))
	assert.Equal(t, "invalid_input", PurchaseOutcome(entity.ErrInvalidQuantity))
	assert.Equal(t, "not_found", PurchaseOutcome(entity.ErrNotFound))
	assert.Equal(t, "insufficient_stock", PurchaseOutcome(&entity.InsufficientStockError{ProductID: 1}))
	assert.Equal(t, "persistence", PurchaseOutcome(entity.ErrPersistence))
	assert.Equal(t, "other", PurchaseOutcome(errors.New("x")))
}

func TestPropagationRoundTrip(t *testing.T) {
	_, err := SetupTracing(context.Background(), TracingConfig{ServiceName: "test"})
	require.NoError(t, err)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := Inject(ctx)
	require.Contains(t, headers, "traceparent")

	got := trace.SpanContextFromContext(Extract(context.Background(), headers))
	assert.Equal(t, traceID, got.TraceID())
	assert.True(t, got.IsRemote())
}
