package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/fareledger/internal/kafka"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers booking notifications. Delivery is simulated by writing
// the rendered message to the log.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	msg, ok := Compose(event)
	if !ok {
		s.logger.Debug("no notification for event", zap.String("type", event.Type), zap.String("pnr", event.PNR))
		return nil
	}
	s.logger.Info("email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("pnr", event.PNR))
	return nil
}

// Compose renders the notification for event. It reports false when the
// event has no recipient or no template.
func Compose(event kafka.BookingEvent) (Message, bool) {
	if event.Email == "" {
		return Message{}, false
	}
	fare := fmt.Sprintf("%d.%02d", event.FareCents/100, event.FareCents%100)

	switch event.Type {
	case kafka.EventBookingCreated:
		return Message{
			To:      event.Email,
			Subject: fmt.Sprintf("Booking confirmed: %s", event.PNR),
			Body: fmt.Sprintf("Dear %s,\n\nyour booking %s on flight %d, seat %s is confirmed. Amount charged: %s.\n",
				event.Passenger, event.PNR, event.FlightID, event.SeatNumber, fare),
		}, true
	case kafka.EventBookingCancelled:
		return Message{
			To:      event.Email,
			Subject: fmt.Sprintf("Booking cancelled: %s", event.PNR),
			Body: fmt.Sprintf("Dear %s,\n\nyour booking %s has been cancelled (%s). A refund of %s is on its way.\n",
				event.Passenger, event.PNR, event.Reason, fare),
		}, true
	}
	return Message{}, false
}
