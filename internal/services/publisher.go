package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/fossabot/hull-customerio/internal/models"
	"github.com/fossabot/hull-customerio/pkg/rabbitmq"
)

// PlatformPublisher publishes trait write-backs and tracked events for the
// platform ingestion worker.
type PlatformPublisher struct {
	conn        *amqp.Connection
	exchange    string
	connectorID string
}

// NewPlatformPublisher creates a new PlatformPublisher.
func NewPlatformPublisher(conn *amqp.Connection, connectorID string) *PlatformPublisher {
	return &PlatformPublisher{conn: conn, exchange: rabbitmq.PlatformExchange, connectorID: connectorID}
}

// Traits sets traits on the user. Null values clear the trait.
func (p *PlatformPublisher) Traits(ctx context.Context, user models.UserIdent, traits models.Attributes) error {
	return p.publish(ctx, &models.PlatformMessage{
		Type:   models.PlatformTraits,
		User:   user,
		Traits: traits,
	})
}

// Track records an event on the user.
func (p *PlatformPublisher) Track(ctx context.Context, user models.UserIdent, event models.PlatformEvent) error {
	return p.publish(ctx, &models.PlatformMessage{
		Type:  models.PlatformTrack,
		User:  user,
		Event: &event,
	})
}

func (p *PlatformPublisher) publish(ctx context.Context, msg *models.PlatformMessage) error {
	msg.RequestID = uuid.NewString()
	msg.CorrelationID = CorrelationID(ctx)
	msg.ConnectorID = p.connectorID
	msg.CreatedAt = time.Now().UTC()

	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ch.Publish(
		p.exchange, // exchange
		msg.Type,   // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			MessageId:     msg.RequestID,
			CorrelationId: msg.CorrelationID,
			Timestamp:     msg.CreatedAt,
			Body:          body,
		})
}
