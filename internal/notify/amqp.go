// internal/notify/amqp.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/db/queries"
)

const (
	EventBookingConfirmed    = "reservation.confirmation"
	EventReservationReminder = "reservation.reminder"

	dedupHeader = "x-dedup-key"
)

// Event is the JSON body published for every notification.
type Event struct {
	ID            string    `json:"id"`
	DedupKey      string    `json:"dedup_key"`
	Type          string    `json:"type"`
	OccurredAt    time.Time `json:"occurred_at"`
	ReservationID int64     `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	CourtID       int64     `json:"court_id"`
	CourtName     string    `json:"court_name"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	TotalCost     string    `json:"total_cost"`
	DaysAhead     int       `json:"days_ahead,omitempty"`
}

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes booking events to a topic exchange. The event type
// is the routing key.
type AMQPNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	now      func() time.Time
}

// DialAMQP connects to the broker and declares a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if exchange == "" {
		return nil, fmt.Errorf("amqp exchange is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("AMQP notifier connected")
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

func newAMQPNotifier(ch channel, exchange string, now func() time.Time) *AMQPNotifier {
	return &AMQPNotifier{ch: ch, exchange: exchange, now: now}
}

func (n *AMQPNotifier) SendBookingConfirmation(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court) error {
	return n.publish(ctx, n.event(EventBookingConfirmed, user, reservation, court, 0))
}

func (n *AMQPNotifier) SendReminder(ctx context.Context, user queries.User, reservation queries.Reservation, court queries.Court, daysAhead int) error {
	return n.publish(ctx, n.event(EventReservationReminder, user, reservation, court, daysAhead))
}

func (n *AMQPNotifier) event(kind string, user queries.User, reservation queries.Reservation, court queries.Court, daysAhead int) Event {
	return Event{
		ID:            uuid.NewString(),
		DedupKey:      dedupKey(kind, reservation.ID, daysAhead),
		Type:          kind,
		OccurredAt:    n.now().UTC(),
		ReservationID: reservation.ID,
		UserID:        user.NationalID,
		Email:         user.Email,
		CourtID:       court.ID,
		CourtName:     court.Name,
		Date:          reservation.Date,
		StartTime:     reservation.StartTime,
		EndTime:       reservation.EndTime,
		TotalCost:     reservation.TotalCost.StringFixed(2),
		DaysAhead:     daysAhead,
	}
}

// dedupKey is the same for every retry of one notification. Reminders whose
// fan-out partly failed are sent again, so consumers drop repeats by it.
func dedupKey(kind string, reservationID int64, daysAhead int) string {
	return fmt.Sprintf("%s:%d:%d", kind, reservationID, daysAhead)
}

func (n *AMQPNotifier) publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch == nil {
		return fmt.Errorf("amqp notifier is closed")
	}
	err = n.ch.PublishWithContext(ctx, n.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Headers:      amqp.Table{dedupHeader: event.DedupKey},
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var err error
	if n.ch != nil {
		err = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		if cerr := n.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		n.conn = nil
	}
	return err
}
