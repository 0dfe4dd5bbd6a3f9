package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/gderossilive/devShopDemo/internal/usecase"
)

const orderDateLayout = "2006-01-02 15:04"

// ErrBadMessage marks a confirmation that can never be built, such as one
// with an unparseable recipient.
var ErrBadMessage = errors.New("bad confirmation message")

// Permanent reports whether retrying err cannot succeed: the message could not
// be built or the SMTP server rejected it with a 5xx reply.
func Permanent(err error) bool {
	if errors.Is(err, ErrBadMessage) {
		return true
	}
	var se *mail.SendError
	if errors.As(err, &se) {
		return !se.IsTemp()
	}
	return false
}

// Mailer delivers a fully built message.
type Mailer interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// ConfirmationBody renders the plain-text order confirmation.
func ConfirmationBody(m usecase.OrderPlacedMsg) string {
	return fmt.Sprintf(`Dear %s %s,

Thank you for your order!

Order Details:
- Order ID: %d
- Product: %s
- Quantity: %d
- Total Amount: $%s
- Order Date: %s

Your order has been processed successfully.

Best regards,
devShop Team
`, m.CustomerFirstName, m.CustomerLastName, m.OrderID, m.ProductName, m.Quantity,
		m.TotalAmount, m.OrderDate.Format(orderDateLayout))
}

func ConfirmationSubject(orderID int64) string {
	return fmt.Sprintf("Order Confirmation - Order #%d", orderID)
}

// ConfirmationSender turns an OrderPlacedMsg into an email and hands it to a Mailer.
type ConfirmationSender struct {
	from   string
	mailer Mailer
}

func NewConfirmationSender(from string, mailer Mailer) *ConfirmationSender {
	return &ConfirmationSender{from: from, mailer: mailer}
}

func (s *ConfirmationSender) Build(m usecase.OrderPlacedMsg) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(m.CustomerEmail); err != nil {
		return nil, fmt.Errorf("to %q: %w", m.CustomerEmail, err)
	}
	msg.Subject(ConfirmationSubject(m.OrderID))
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, ConfirmationBody(m))
	return msg, nil
}

func (s *ConfirmationSender) Send(ctx context.Context, m usecase.OrderPlacedMsg) error {
	msg, err := s.Build(m)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadMessage, err)
	}
	return s.mailer.Send(ctx, msg)
}
