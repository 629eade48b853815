package chat

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/itda-project/itda-chat-api/models"
)

// Directory composes the store, registry and receipt engine into the
// room-list views. It holds no state of its own: every summary field
// is derived by calling the other components, and the first error
// encountered is propagated without partial results.
type Directory struct {
	store    *RoomStore
	registry *Registry
	receipts *ReceiptEngine
}

// NewDirectory wires the directory over the other core components
func NewDirectory(store *RoomStore, registry *Registry, receipts *ReceiptEngine) *Directory {
	return &Directory{store: store, registry: registry, receipts: receipts}
}

// MyRooms lists the requesting user's active rooms, newest
// conversation first, each with participant and unread counts
func (d *Directory) MyRooms(ctx context.Context, userID string) ([]models.RoomSummary, error) {
	rooms, err := d.store.ListActiveRoomsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return d.summarize(ctx, rooms, userID)
}

// AllRooms lists rooms matching the filter. Unread counts are filled
// in only for rooms the requesting user belongs to; for the rest the
// user has no read position, and the summary shows zero.
func (d *Directory) AllRooms(ctx context.Context, filter RoomFilter, userID string) ([]models.RoomSummary, error) {
	rooms, err := d.store.ListRooms(ctx, filter)
	if err != nil {
		return nil, err
	}
	return d.summarize(ctx, rooms, userID)
}

// RoomSummary builds the summary view of a single room
func (d *Directory) RoomSummary(ctx context.Context, roomID primitive.ObjectID, userID string) (*models.RoomSummary, error) {
	room, err := d.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	summaries, err := d.summarize(ctx, []models.ChatRoom{*room}, userID)
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

func (d *Directory) summarize(ctx context.Context, rooms []models.ChatRoom, userID string) ([]models.RoomSummary, error) {
	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		count, err := d.registry.ParticipantCount(ctx, room.ID)
		if err != nil {
			return nil, err
		}

		unread, err := d.receipts.UnreadCount(ctx, room.ID, userID)
		if err != nil && !errors.Is(err, ErrNotMember) {
			return nil, err
		}

		summaries = append(summaries, models.RoomSummary{
			RoomID:           room.ID,
			MeetingID:        room.MeetingID,
			RoomName:         room.RoomName,
			ParticipantCount: count,
			MaxParticipants:  room.MaxParticipants,
			Category:         room.Category,
			LocationName:     room.LocationName,
			ImageURL:         room.ImageURL,
			Notice:           room.Notice,
			IsActive:         room.IsActive,
			LastMessage:      room.LastMessage,
			LastMessageAt:    room.LastMessageAt,
			UnreadCount:      unread,
		})
	}
	return summaries, nil
}
