package chat

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/itda-project/itda-chat-api/databases"
	"github.com/itda-project/itda-chat-api/models"
)

// ReceiptEngine derives unread counts and read indicators by comparing
// message timestamps against the read positions the Registry records.
// It holds no state of its own, so counts are always computed against
// the current read position: as a user reads more, their count only
// goes down.
type ReceiptEngine struct {
	rooms        databases.ChatRoomDatabase
	participants databases.ParticipantDatabase
	messages     databases.MessageDatabase
}

// NewReceiptEngine wires a receipt engine over the given collections
func NewReceiptEngine(rooms databases.ChatRoomDatabase, participants databases.ParticipantDatabase, messages databases.MessageDatabase) *ReceiptEngine {
	return &ReceiptEngine{rooms: rooms, participants: participants, messages: messages}
}

// UnreadCount counts the messages in the room strictly newer than the
// participant's read position. A nil position counts every message,
// including ones older than the join: unread status depends only on
// the read position, never on join time. A room without messages
// yields zero for everyone.
func (e *ReceiptEngine) UnreadCount(ctx context.Context, roomID primitive.ObjectID, userID string) (int64, error) {
	participant, err := e.participants.FindOne(ctx, bson.M{"roomId": roomID, "userId": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrNotMember
		}
		return 0, err
	}

	filter := bson.M{"roomId": roomID}
	if participant.LastReadAt != nil {
		filter["createdAt"] = bson.M{"$gt": *participant.LastReadAt}
	}
	return e.messages.CountDocuments(ctx, filter)
}

// ReadersAsOf counts participants whose read position is strictly past
// the given message timestamp, for "read by N" indicators. The room
// must exist; asking about an unknown room is ErrRoomNotFound, not a
// zero count.
func (e *ReceiptEngine) ReadersAsOf(ctx context.Context, roomID primitive.ObjectID, at time.Time) (int64, error) {
	if _, err := e.rooms.FindOne(ctx, bson.M{"_id": roomID}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrRoomNotFound
		}
		return 0, err
	}
	return e.participants.CountDocuments(ctx, bson.M{
		"roomId":     roomID,
		"lastReadAt": bson.M{"$gt": at},
	})
}

// UnreadByAsOf is the complement of ReadersAsOf: how many current
// participants have not read past the timestamp
func (e *ReceiptEngine) UnreadByAsOf(ctx context.Context, roomID primitive.ObjectID, at time.Time) (int64, error) {
	readers, err := e.ReadersAsOf(ctx, roomID, at)
	if err != nil {
		return 0, err
	}
	total, err := e.participants.CountDocuments(ctx, bson.M{"roomId": roomID})
	if err != nil {
		return 0, err
	}
	unread := total - readers
	if unread < 0 {
		unread = 0
	}
	return unread, nil
}

// DecorateMessages attaches the per-message unread-by counts a chat
// screen renders next to each bubble. Read positions are fetched once
// for the whole page.
func (e *ReceiptEngine) DecorateMessages(ctx context.Context, roomID primitive.ObjectID, messages []models.ChatMessage) ([]models.ChatMessageView, error) {
	participants, err := e.participants.Find(ctx, bson.M{"roomId": roomID})
	if err != nil {
		return nil, err
	}

	views := make([]models.ChatMessageView, 0, len(messages))
	for _, msg := range messages {
		var readers int64
		for _, p := range participants {
			if p.LastReadAt != nil && p.LastReadAt.After(msg.CreatedAt) {
				readers++
			}
		}
		unread := int64(len(participants)) - readers
		if unread < 0 {
			unread = 0
		}
		views = append(views, models.ChatMessageView{ChatMessage: msg, UnreadBy: unread})
	}
	return views, nil
}
