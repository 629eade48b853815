package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/itda-project/itda-chat-api/databases"
	"github.com/itda-project/itda-chat-api/models"
)

// previewLimit bounds the last-message preview stored on the room
const previewLimit = 80

// Messages is the append-only message log service. Messages never
// change after insert; corrections to poll or bill state arrive as new
// *_UPDATE messages referencing the original.
type Messages struct {
	rooms        databases.ChatRoomDatabase
	participants databases.ParticipantDatabase
	messages     databases.MessageDatabase
	receipts     *ReceiptEngine
	ingestor     *Ingestor
	notifier     *Notifier
	locks        *roomLocks
}

// NewMessages wires the message service
func NewMessages(rooms databases.ChatRoomDatabase, participants databases.ParticipantDatabase, messages databases.MessageDatabase, receipts *ReceiptEngine, ingestor *Ingestor, notifier *Notifier, locks *roomLocks) *Messages {
	return &Messages{
		rooms:        rooms,
		participants: participants,
		messages:     messages,
		receipts:     receipts,
		ingestor:     ingestor,
		notifier:     notifier,
		locks:        locks,
	}
}

// SendMessageParams carries one outgoing message
type SendMessageParams struct {
	RoomID   primitive.ObjectID
	SenderID string                 `validate:"required"`
	Type     models.MessageType     `validate:"required"`
	Content  string                 `validate:"required"`
	FileURL  string
	Metadata map[string]interface{}
}

// Send stores a message and hands the room's last-message update to
// the ingest worker. The sender must be a participant and the room
// must be active. The active check and the insert run under the room
// lock, so a send cannot land in a room a concurrent Deactivate has
// already retired.
func (m *Messages) Send(ctx context.Context, p SendMessageParams) (*models.ChatMessage, error) {
	if !p.Type.Valid() {
		return nil, ErrInvalidMessageType
	}

	unlock := m.locks.Lock(p.RoomID)
	defer unlock()

	room, err := m.findRoom(ctx, p.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrRoomInactive
	}
	if _, err := m.participants.FindOne(ctx, bson.M{"roomId": p.RoomID, "userId": p.SenderID}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	now := time.Now().UTC()
	msg := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		RoomID:    p.RoomID,
		SenderID:  p.SenderID,
		Type:      p.Type,
		Content:   p.Content,
		FileURL:   p.FileURL,
		Metadata:  p.Metadata,
		CreatedAt: now,
	}
	if _, err := m.messages.InsertOne(ctx, msg); err != nil {
		return nil, err
	}

	messagesStored.Inc()
	m.ingestor.Enqueue(p.RoomID, now, preview(msg))
	m.notifier.Emit(models.EventMessageSent, p.RoomID.Hex(), p.SenderID, "", now)
	return &msg, nil
}

// GetMessages returns one page of the room's log, oldest first within
// the page, each message carrying its unread-by count
func (m *Messages) GetMessages(ctx context.Context, roomID primitive.ObjectID, page, size int) ([]models.ChatMessageView, error) {
	if _, err := m.findRoom(ctx, roomID); err != nil {
		return nil, err
	}

	opts := databases.PageOpts(size, page)
	opts.SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	msgs, err := m.messages.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	reverse(msgs)
	return m.receipts.DecorateMessages(ctx, roomID, msgs)
}

// GetMessage returns a single message or ErrMessageNotFound
func (m *Messages) GetMessage(ctx context.Context, messageID primitive.ObjectID) (*models.ChatMessage, error) {
	msg, err := m.messages.FindOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

// ToggleBillStatus flips the paid flag of one share in a BILL message.
// Messages are immutable, so the change lands as a new BILL_UPDATE
// message carrying the full updated metadata plus a reference to the
// original bill.
func (m *Messages) ToggleBillStatus(ctx context.Context, messageID primitive.ObjectID, actorID, targetUserID string) (*models.ChatMessage, error) {
	bill, err := m.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if bill.Type != models.MessageBill {
		return nil, ErrInvalidMessageType
	}

	metadata, ok := toggledBill(bill.Metadata, targetUserID)
	if !ok {
		return nil, ErrParticipantNotFound
	}
	metadata["billMessageId"] = bill.ID.Hex()

	return m.Send(ctx, SendMessageParams{
		RoomID:   bill.RoomID,
		SenderID: actorID,
		Type:     models.MessageBillUpdate,
		Content:  bill.Content,
		Metadata: metadata,
	})
}

// UpdateVoteMetadata publishes the new tally of the poll identified by
// voteID. Messages are immutable, so the replacement metadata lands as
// a new VOTE_UPDATE message carrying a reference to the original poll.
func (m *Messages) UpdateVoteMetadata(ctx context.Context, roomID primitive.ObjectID, voteID, actorID string, metadata map[string]interface{}) (*models.ChatMessage, error) {
	polls, err := m.messages.Find(ctx, bson.M{"roomId": roomID, "type": models.MessagePoll})
	if err != nil {
		return nil, err
	}
	var poll *models.ChatMessage
	for i := range polls {
		if polls[i].Metadata == nil {
			continue
		}
		if fmt.Sprintf("%v", polls[i].Metadata["voteId"]) == voteID {
			poll = &polls[i]
			break
		}
	}
	if poll == nil {
		return nil, ErrMessageNotFound
	}

	out := make(map[string]interface{}, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	out["voteId"] = voteID
	out["voteMessageId"] = poll.ID.Hex()

	return m.Send(ctx, SendMessageParams{
		RoomID:   roomID,
		SenderID: actorID,
		Type:     models.MessageVoteUpdate,
		Content:  poll.Content,
		Metadata: out,
	})
}

func (m *Messages) findRoom(ctx context.Context, roomID primitive.ObjectID) (*models.ChatRoom, error) {
	room, err := m.rooms.FindOne(ctx, bson.M{"_id": roomID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// toggledBill returns a copy of the bill metadata with the target
// share's isPaid flag flipped; ok is false when the target holds no share
func toggledBill(metadata map[string]interface{}, targetUserID string) (map[string]interface{}, bool) {
	if metadata == nil {
		return nil, false
	}
	raw, ok := metadata["participants"].([]interface{})
	if !ok {
		return nil, false
	}

	out := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}

	found := false
	shares := make([]interface{}, 0, len(raw))
	for _, entry := range raw {
		share, ok := entry.(map[string]interface{})
		if !ok {
			shares = append(shares, entry)
			continue
		}
		if fmt.Sprintf("%v", share["userId"]) == targetUserID {
			copied := make(map[string]interface{}, len(share))
			for k, v := range share {
				copied[k] = v
			}
			paid, _ := copied["isPaid"].(bool)
			copied["isPaid"] = !paid
			shares = append(shares, copied)
			found = true
			continue
		}
		shares = append(shares, share)
	}
	if !found {
		return nil, false
	}
	out["participants"] = shares
	return out, true
}

func preview(msg models.ChatMessage) string {
	text := msg.Content
	switch msg.Type {
	case models.MessageImage:
		text = "(image)"
	case models.MessageFile:
		text = "(file)"
	case models.MessageLocation:
		text = "(location)"
	}
	runes := []rune(text)
	if len(runes) > previewLimit {
		return string(runes[:previewLimit])
	}
	return text
}

func reverse(msgs []models.ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
