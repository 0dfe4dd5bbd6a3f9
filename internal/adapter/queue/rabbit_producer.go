package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gderossilive/devShopDemo/internal/observ"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

const (
	ExchangeName          = "shop.events"
	RoutingKeyOrderPlaced = "order.placed"
	QueueOrderPlaced      = "order.placed.q"
)

// DeclareTopology sets up the exchange, queue, and binding. Safe to call from
// both producer and consumer processes.
func DeclareTopology(ch *amqp.Channel) error {
	// 1. declare exchange (topic type, durable)
	if err := ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// 2. declare queue
	q, err := ch.QueueDeclare(
		QueueOrderPlaced,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// 3. bind queue → exchange
	if err := ch.QueueBind(q.Name, RoutingKeyOrderPlaced, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

// RabbitProducer publishes order.placed events. It is a notify.Sender, so the
// dispatcher's retry policy applies to broker hiccups too.
type RabbitProducer struct {
	mu sync.Mutex
	ch *amqp.Channel
}

// NewRabbitProducer declares the topology and enables publisher confirms.
func NewRabbitProducer(ch *amqp.Channel) (*RabbitProducer, error) {
	if err := DeclareTopology(ch); err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}
	return &RabbitProducer{ch: ch}, nil
}

func newOrderPlacedPublishing(ctx context.Context, msg usecase.OrderPlacedMsg) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	headers := amqp.Table{}
	for k, v := range observ.Inject(ctx) {
		headers[k] = v
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		MessageId:    strconv.FormatInt(msg.OrderID, 10),
		Timestamp:    time.Now().UTC(),
		Type:         RoutingKeyOrderPlaced,
		Headers:      headers,
		Body:         body,
	}, nil
}

// PublishOrderPlaced sends an "order.placed" event and waits for the broker ack.
func (p *RabbitProducer) PublishOrderPlaced(ctx context.Context, msg usecase.OrderPlacedMsg) error {
	pub, err := newOrderPlacedPublishing(ctx, msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	conf, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		ExchangeName,
		RoutingKeyOrderPlaced,
		false, // mandatory
		false, // immediate
		pub,
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("publish: broker nacked order %d", msg.OrderID)
	}
	return nil
}

func (p *RabbitProducer) Send(ctx context.Context, msg usecase.OrderPlacedMsg) error {
	return p.PublishOrderPlaced(ctx, msg)
}
