package queue

import (
	"context"
	"fmt"

	"github.com/gderossilive/devShopDemo/internal/adapter/notify"
	"github.com/gderossilive/devShopDemo/internal/logging"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

// ConfirmationMailer is satisfied by notify.ConfirmationSender.
type ConfirmationMailer interface {
	Send(ctx context.Context, msg usecase.OrderPlacedMsg) error
}

// OrderPlacedHandler mails the order confirmation for each order.placed event.
type OrderPlacedHandler struct {
	Mailer ConfirmationMailer
}

func NewOrderPlacedHandler(m ConfirmationMailer) *OrderPlacedHandler {
	return &OrderPlacedHandler{Mailer: m}
}

// HandleOrderPlaced is intended to be used with the JSON adapter (queue.JSONHandler[OrderPlacedMsg]).
// Permanent mail failures come back as ErrPoison so the delivery is dropped
// instead of requeued.
func (h *OrderPlacedHandler) HandleOrderPlaced(ctx context.Context, msg usecase.OrderPlacedMsg) error {
	if err := h.Mailer.Send(ctx, msg); err != nil {
		if notify.Permanent(err) {
			return fmt.Errorf("%w: order %d: %w", ErrPoison, msg.OrderID, err)
		}
		return err
	}
	logging.FromCtx(ctx).Info("order confirmation mailed", "order_id", msg.OrderID, "to", msg.CustomerEmail)
	return nil
}
