// README: Publishes committed booking transitions to Kafka, keyed by booking id.
package booking

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// TransitionMessage is the wire shape of one booking transition.
type TransitionMessage struct {
	BookingID string    `json:"bookingId"`
	RiderID   string    `json:"riderId"`
	DriverID  string    `json:"driverId,omitempty"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorRole string    `json:"actorRole"`
	ActorID   string    `json:"actorId,omitempty"`
	Fare      int64     `json:"fare"`
	At        time.Time `json:"at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	writer messageWriter
	log    *slog.Logger
}

// NewKafkaPublisher expects an async writer so Publish never blocks a request.
func NewKafkaPublisher(w *kafka.Writer, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event, b *Booking) {
	m := TransitionMessage{
		BookingID: string(e.BookingID),
		RiderID:   string(b.RiderID),
		From:      string(e.FromStatus),
		To:        string(e.ToStatus),
		ActorRole: string(e.ActorRole),
		Fare:      b.Fare.Amount,
		At:        e.CreatedAt,
	}
	if b.DriverID != nil {
		m.DriverID = string(*b.DriverID)
	}
	if e.ActorID != nil {
		m.ActorID = string(*e.ActorID)
	}
	value, err := json.Marshal(m)
	if err != nil {
		p.log.ErrorContext(ctx, "encode booking transition", slog.Any("err", err))
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(m.BookingID), Value: value}); err != nil {
		p.log.WarnContext(ctx, "publish booking transition", slog.String("booking_id", m.BookingID), slog.Any("err", err))
	}
}
