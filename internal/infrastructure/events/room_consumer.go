package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/infrastructure/contracts"
	"github.com/confabhq/confab/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

var routingKeyToEventType = map[string]domain.RoomEventType{
	contracts.EventRoomCreated:  domain.EventRoomCreated,
	contracts.EventRoomArchived: domain.EventRoomArchived,
	contracts.EventMemberJoined: domain.EventMemberJoined,
	contracts.EventMemberLeft:   domain.EventMemberLeft,
}

type roomConsumer struct {
	rabbitmq  *messaging.RabbitMQ
	auditRepo domain.RoomAuditRepository
}

// NewRoomConsumer drains room lifecycle events off the broker into the
// audit log collection.
func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, auditRepo domain.RoomAuditRepository) *roomConsumer {
	return &roomConsumer{
		rabbitmq:  rabbitmq,
		auditRepo: auditRepo,
	}
}

func (c *roomConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.RoomsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			return err
		}

		var payload messaging.RoomEventData
		if err := json.Unmarshal(message.Data, &payload); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			return err
		}

		eventType, ok := routingKeyToEventType[msg.RoutingKey]
		if !ok {
			log.Printf("Unknown routing key %q, dropping", msg.RoutingKey)
			return nil
		}

		metadata := map[string]any{}
		if payload.Username != "" {
			metadata["username"] = payload.Username
		}
		if payload.Version > 0 {
			metadata["version"] = payload.Version
			metadata["participants"] = payload.Participants
			metadata["messages"] = payload.Messages
			metadata["objects"] = payload.Objects
		}

		return c.auditRepo.Log(ctx, domain.NewRoomAuditLog(message.RoomID, eventType, metadata))
	})
}
