// Package archive turns an emptied room's ephemeral state into an
// immutable versioned history record.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/infrastructure/events"
)

type Service struct {
	rooms      domain.RoomRepository
	messages   domain.MessageRepository
	whiteboard domain.WhiteboardRepository
	history    domain.HistoryRepository
	users      domain.UserRepository
	publisher  events.Publisher
	logger     *zap.SugaredLogger
}

func NewService(
	rooms domain.RoomRepository,
	messages domain.MessageRepository,
	whiteboard domain.WhiteboardRepository,
	history domain.HistoryRepository,
	users domain.UserRepository,
	publisher events.Publisher,
	logger *zap.SugaredLogger,
) *Service {
	return &Service{
		rooms:      rooms,
		messages:   messages,
		whiteboard: whiteboard,
		history:    history,
		users:      users,
		publisher:  publisher,
		logger:     logger,
	}
}

// Archive reads the room's transcript and whiteboard, persists a
// versioned history record, and only then destroys the live data. Any
// failure before the history insert aborts with the room still intact,
// so an archive can be retried but the room can never be lost without a
// record.
func (s *Service) Archive(ctx context.Context, roomID string, participants []string) error {
	room, err := s.rooms.GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			// Already archived by another path.
			return nil
		}
		return fmt.Errorf("load room %s: %w", roomID, err)
	}

	messages, err := s.messages.GetByRoomID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("load transcript for room %s: %w", roomID, err)
	}

	objects, err := s.whiteboard.GetByRoomID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("load whiteboard for room %s: %w", roomID, err)
	}

	participants = s.withCreator(ctx, room, participants)

	last, err := s.history.LatestVersion(ctx, roomID)
	if err != nil {
		return fmt.Errorf("resolve version for room %s: %w", roomID, err)
	}

	record := domain.NewHistoricalMeeting(room, last+1, participants, archivedMessages(messages), boardShapes(objects))

	if err := s.history.Insert(ctx, record); err != nil {
		return fmt.Errorf("persist history for room %s: %w", roomID, err)
	}

	// The record is durable; from here the live data is redundant and
	// delete failures are logged but do not undo the archive.
	if err := s.rooms.Delete(ctx, roomID); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		s.logger.Errorw("failed to delete archived room", "roomId", roomID, "error", err)
	}
	if err := s.messages.DeleteByRoomID(ctx, roomID); err != nil {
		s.logger.Errorw("failed to delete archived messages", "roomId", roomID, "error", err)
	}
	if err := s.whiteboard.DeleteByRoomID(ctx, roomID); err != nil {
		s.logger.Errorw("failed to delete archived whiteboard", "roomId", roomID, "error", err)
	}

	if err := s.publisher.PublishRoomArchived(ctx, *record); err != nil {
		s.logger.Warnw("failed to publish room archived", "roomId", roomID, "error", err)
	}

	s.logger.Infow("room archived", "roomId", roomID, "version", record.Version,
		"participants", len(record.Participants), "messages", len(record.Messages))

	return nil
}

// withCreator prepends the creator's display name when it is not already
// in the participant list. The creator may have built the room without
// ever joining it.
func (s *Service) withCreator(ctx context.Context, room *domain.Room, participants []string) []string {
	creator, err := s.users.GetByID(ctx, room.Creator)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Warnw("failed to resolve creator", "creator", room.Creator, "error", err)
		}
		return participants
	}

	for _, name := range participants {
		if name == creator.Username {
			return participants
		}
	}
	return append([]string{creator.Username}, participants...)
}

func archivedMessages(messages []domain.ChatMessage) []domain.ArchivedMessage {
	out := make([]domain.ArchivedMessage, len(messages))
	for i, m := range messages {
		out[i] = domain.ArchivedMessage{
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Body:       m.Body,
			SentAt:     m.SentAt,
		}
	}
	return out
}

func boardShapes(objects []domain.BoardObject) []json.RawMessage {
	out := make([]json.RawMessage, len(objects))
	for i, obj := range objects {
		out[i] = obj.Shape
	}
	return out
}
