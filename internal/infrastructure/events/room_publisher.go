package events

import (
	"context"
	"encoding/json"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/infrastructure/contracts"
	"github.com/confabhq/confab/internal/infrastructure/messaging"
)

// Publisher emits room lifecycle events to the broker. All methods are
// best-effort from the caller's perspective: a broadcast never fails
// because the broker is down.
type Publisher interface {
	PublishRoomCreated(ctx context.Context, room domain.Room) error
	PublishMemberJoined(ctx context.Context, roomID, username string) error
	PublishMemberLeft(ctx context.Context, roomID, username string) error
	PublishRoomArchived(ctx context.Context, record domain.HistoricalMeeting) error
}

type RoomPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) publish(ctx context.Context, routingKey, roomID string, payload messaging.RoomEventData) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		RoomID: roomID,
		Data:   data,
	})
}

func (p *RoomPublisher) PublishRoomCreated(ctx context.Context, room domain.Room) error {
	return p.publish(ctx, contracts.EventRoomCreated, room.RoomID, messaging.RoomEventData{
		RoomID:  room.RoomID,
		Creator: room.Creator,
	})
}

func (p *RoomPublisher) PublishMemberJoined(ctx context.Context, roomID, username string) error {
	return p.publish(ctx, contracts.EventMemberJoined, roomID, messaging.RoomEventData{
		RoomID:   roomID,
		Username: username,
	})
}

func (p *RoomPublisher) PublishMemberLeft(ctx context.Context, roomID, username string) error {
	return p.publish(ctx, contracts.EventMemberLeft, roomID, messaging.RoomEventData{
		RoomID:   roomID,
		Username: username,
	})
}

func (p *RoomPublisher) PublishRoomArchived(ctx context.Context, record domain.HistoricalMeeting) error {
	return p.publish(ctx, contracts.EventRoomArchived, record.RoomID, messaging.RoomEventData{
		RoomID:       record.RoomID,
		Creator:      record.Creator,
		Version:      record.Version,
		Participants: len(record.Participants),
		Messages:     len(record.Messages),
		Objects:      len(record.Whiteboard),
	})
}

// NopPublisher is used when the broker is disabled by configuration.
type NopPublisher struct{}

func (NopPublisher) PublishRoomCreated(context.Context, domain.Room) error { return nil }

func (NopPublisher) PublishMemberJoined(context.Context, string, string) error { return nil }

func (NopPublisher) PublishMemberLeft(context.Context, string, string) error { return nil }

func (NopPublisher) PublishRoomArchived(context.Context, domain.HistoricalMeeting) error {
	return nil
}
