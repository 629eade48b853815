package chat

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/itda-project/itda-chat-api/databases"
	"github.com/itda-project/itda-chat-api/models"
)

// RoomStore owns room records and their lifecycle:
// CREATED -> ACTIVE -> INACTIVE, with no way back. Participant records
// are owned by the Registry; the store only reads them to resolve a
// user's rooms.
type RoomStore struct {
	rooms        databases.ChatRoomDatabase
	participants databases.ParticipantDatabase
	locks        *roomLocks
	notifier     *Notifier
}

// NewRoomStore wires a room store over the given collections
func NewRoomStore(rooms databases.ChatRoomDatabase, participants databases.ParticipantDatabase, locks *roomLocks, notifier *Notifier) *RoomStore {
	return &RoomStore{rooms: rooms, participants: participants, locks: locks, notifier: notifier}
}

// CreateRoomParams carries the fields needed to open a room
type CreateRoomParams struct {
	MeetingID       *string
	RoomName        string `validate:"required,max=200"`
	HostID          string `validate:"required"`
	MaxParticipants int
	Category        string
	Description     string
	LocationName    string
}

// CreateRoom opens a room and seats the meeting organizer as HOST.
// A meeting can have at most one room; a second create for the same
// meeting fails with ErrMeetingRoomExists. The host's read position is
// initialized to the creation time, so the empty room starts fully read.
func (s *RoomStore) CreateRoom(ctx context.Context, p CreateRoomParams) (*models.ChatRoom, error) {
	if p.MaxParticipants <= 0 {
		p.MaxParticipants = models.DefaultMaxParticipants
	}

	if p.MeetingID != nil {
		_, err := s.rooms.FindOne(ctx, bson.M{"meetingId": *p.MeetingID})
		if err == nil {
			return nil, ErrMeetingRoomExists
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}

	now := time.Now().UTC()
	room := models.ChatRoom{
		ID:              primitive.NewObjectID(),
		MeetingID:       p.MeetingID,
		RoomName:        p.RoomName,
		MaxParticipants: p.MaxParticipants,
		Category:        p.Category,
		Description:     p.Description,
		LocationName:    p.LocationName,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := s.rooms.InsertOne(ctx, room); err != nil {
		return nil, err
	}

	host := models.Participant{
		ID:         primitive.NewObjectID(),
		RoomID:     room.ID,
		UserID:     p.HostID,
		Role:       models.RoleHost,
		LastReadAt: &now,
		JoinedAt:   now,
	}
	if _, err := s.participants.InsertOne(ctx, host); err != nil {
		return nil, err
	}

	zap.S().Infow("chat room created",
		"room", room.ID.Hex(),
		"host", p.HostID,
	)
	s.notifier.Emit(models.EventRoomCreated, room.ID.Hex(), p.HostID, "", now)
	return &room, nil
}

// GetRoom returns the room or ErrRoomNotFound
func (s *RoomStore) GetRoom(ctx context.Context, roomID primitive.ObjectID) (*models.ChatRoom, error) {
	room, err := s.rooms.FindOne(ctx, bson.M{"_id": roomID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// Deactivate retires a room. The operation is idempotent and never
// deletes participants or messages; they stay readable. There is no
// way to reactivate. Taking the room lock orders the flag flip against
// in-flight joins and sends, so nothing lands in the room after the
// deactivation commits.
func (s *RoomStore) Deactivate(ctx context.Context, roomID primitive.ObjectID, actorID string) error {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	now := time.Now().UTC()
	res, err := s.rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	// only the transition emits; repeated deactivations stay silent
	if res.ModifiedCount > 0 {
		zap.S().Infow("chat room deactivated", "room", roomID.Hex())
		s.notifier.Emit(models.EventRoomDeactivated, roomID.Hex(), actorID, "", now)
	}
	return nil
}

// RecordIncomingMessage folds a message event into the room's
// last-message fields. The per-room lock keeps concurrent sends from
// regressing the preview: only a strictly newer timestamp wins.
func (s *RoomStore) RecordIncomingMessage(ctx context.Context, roomID primitive.ObjectID, at time.Time, preview string) error {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return ErrRoomInactive
	}
	if room.LastMessageAt != nil && !at.After(*room.LastMessageAt) {
		return nil
	}

	_, err = s.rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{
			"lastMessage":   preview,
			"lastMessageAt": at,
			"updatedAt":     time.Now().UTC(),
		}},
	)
	return err
}

// ListActiveRoomsForUser returns the active rooms the user belongs to,
// newest conversation first
func (s *RoomStore) ListActiveRoomsForUser(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	memberships, err := s.participants.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	roomIDs := lo.Map(memberships, func(p models.Participant, _ int) primitive.ObjectID {
		return p.RoomID
	})
	rooms, err := s.rooms.Find(ctx, bson.M{"_id": bson.M{"$in": roomIDs}, "isActive": true})
	if err != nil {
		return nil, err
	}
	sortRoomsByLastMessage(rooms)
	return rooms, nil
}

// RoomFilter narrows the all-rooms listing
type RoomFilter struct {
	Category   string
	ActiveOnly bool
}

// ListRooms returns rooms matching the filter, newest conversation first
func (s *RoomStore) ListRooms(ctx context.Context, f RoomFilter) ([]models.ChatRoom, error) {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	rooms, err := s.rooms.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	sortRoomsByLastMessage(rooms)
	return rooms, nil
}

// UpdateNotice replaces the room notice. Host only, active rooms only.
func (s *RoomStore) UpdateNotice(ctx context.Context, roomID primitive.ObjectID, userID, notice string) error {
	if err := s.requireHost(ctx, roomID, userID); err != nil {
		return err
	}
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return ErrRoomInactive
	}
	_, err = s.rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{"notice": notice, "updatedAt": time.Now().UTC()}},
	)
	return err
}

// SetRoomImage stores the uploaded room image url. Host only.
func (s *RoomStore) SetRoomImage(ctx context.Context, roomID primitive.ObjectID, userID, imageURL string) error {
	if err := s.requireHost(ctx, roomID, userID); err != nil {
		return err
	}
	res, err := s.rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{"imageUrl": imageURL, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *RoomStore) requireHost(ctx context.Context, roomID primitive.ObjectID, userID string) error {
	participant, err := s.participants.FindOne(ctx, bson.M{"roomId": roomID, "userId": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotMember
		}
		return err
	}
	if participant.Role != models.RoleHost {
		return ErrNotHost
	}
	return nil
}

// sortRoomsByLastMessage orders newest conversation first; rooms that
// never saw a message sort last, by creation time
func sortRoomsByLastMessage(rooms []models.ChatRoom) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i].LastMessageAt, rooms[j].LastMessageAt
		switch {
		case a == nil && b == nil:
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
