package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/gderossilive/devShopDemo/internal/adapter/notify"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

var msg = usecase.OrderPlacedMsg{
	OrderID:       9,
	CustomerEmail: "jane@example.com",
	ProductName:   "Mug",
	Quantity:      1,
	TotalAmount:   "7.50",
	OrderDate:     time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
}

type mailerFunc func(ctx context.Context, m usecase.OrderPlacedMsg) error

func (f mailerFunc) Send(ctx context.Context, m usecase.OrderPlacedMsg) error { return f(ctx, m) }

func TestPublishingCarriesOrderAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	pub, err := newOrderPlacedPublishing(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, amqp.Persistent, pub.DeliveryMode)
	assert.Equal(t, "application/json", pub.ContentType)
	assert.Equal(t, "9", pub.MessageId)
	assert.Contains(t, pub.Headers, "traceparent")

	var got usecase.OrderPlacedMsg
	require.NoError(t, json.Unmarshal(pub.Body, &got))
	assert.Equal(t, msg.OrderID, got.OrderID)
	assert.Equal(t, "7.50", got.TotalAmount)

	// The consumer side restores the same trace.
	var seen trace.SpanContext
	h := JSONHandler[usecase.OrderPlacedMsg]{HandleFunc: func(ctx context.Context, m usecase.OrderPlacedMsg) error {
		seen = trace.SpanContextFromContext(ctx)
		return nil
	}}
	require.NoError(t, h.Handle(context.Background(), amqp.Delivery{Body: pub.Body, Headers: pub.Headers}))
	assert.Equal(t, traceID, seen.TraceID())
}

func TestJSONHandler_PoisonMessage(t *testing.T) {
	h := JSONHandler[usecase.OrderPlacedMsg]{HandleFunc: func(context.Context, usecase.OrderPlacedMsg) error {
		t.Fatal("must not be called")
		return nil
	}}
	err := h.Handle(context.Background(), amqp.Delivery{Body: []byte("{not json"), RoutingKey: RoutingKeyOrderPlaced})
	assert.ErrorIs(t, err, ErrPoison)
}

func TestOrderPlacedHandler(t *testing.T) {
	var mailed []int64
	h := NewOrderPlacedHandler(mailerFunc(func(_ context.Context, m usecase.OrderPlacedMsg) error {
		mailed = append(mailed, m.OrderID)
		return nil
	}))
	require.NoError(t, h.HandleOrderPlaced(context.Background(), msg))
	assert.Equal(t, []int64{9}, mailed)

	failing := NewOrderPlacedHandler(mailerFunc(func(context.Context, usecase.OrderPlacedMsg) error {
		return errors.New("smtp down")
	}))
	assert.Error(t, failing.HandleOrderPlaced(context.Background(), msg))
}

func TestOrderPlacedHandler_PermanentFailuresAreDropped(t *testing.T) {
	r := NewRouter(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rejected := NewOrderPlacedHandler(mailerFunc(func(context.Context, usecase.OrderPlacedMsg) error {
		return fmt.Errorf("dial and send: %w", &mail.SendError{Reason: mail.ErrSMTPRcptTo})
	}))
	err := rejected.HandleOrderPlaced(context.Background(), msg)
	require.ErrorIs(t, err, ErrPoison)
	assert.False(t, r.requeue(err))

	unbuildable := NewOrderPlacedHandler(notify.NewConfirmationSender("noreply@devshop.com", nil))
	bad := msg
	bad.CustomerEmail = "not an address"
	err = unbuildable.HandleOrderPlaced(context.Background(), bad)
	require.ErrorIs(t, err, ErrPoison)
	assert.False(t, r.requeue(err))

	down := NewOrderPlacedHandler(mailerFunc(func(context.Context, usecase.OrderPlacedMsg) error {
		return errors.New("smtp down")
	}))
	err = down.HandleOrderPlaced(context.Background(), msg)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPoison)
	assert.True(t, r.requeue(err))
}

func TestRouterRequeuePolicy(t *testing.T) {
	r := NewRouter(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.True(t, r.requeue(errors.New("smtp down")))
	assert.False(t, r.requeue(ErrPoison))

	r = NewRouter(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), WithRequeue(false))
	assert.False(t, r.requeue(errors.New("smtp down")))
}
