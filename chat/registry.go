package chat

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/itda-project/itda-chat-api/databases"
	"github.com/itda-project/itda-chat-api/models"
)

// Registry owns participant records: who sits in which room, with
// which role, and how far they have read. The per-room lock makes the
// capacity check atomic against concurrent joins; read positions
// advance through an atomic $max so concurrent marks converge to the
// newest timestamp instead of racing.
type Registry struct {
	rooms        databases.ChatRoomDatabase
	participants databases.ParticipantDatabase
	locks        *roomLocks
	notifier     *Notifier
}

// NewRegistry wires a participant registry over the given collections
func NewRegistry(rooms databases.ChatRoomDatabase, participants databases.ParticipantDatabase, locks *roomLocks, notifier *Notifier) *Registry {
	return &Registry{rooms: rooms, participants: participants, locks: locks, notifier: notifier}
}

// Join seats userID in the room. The room must be active and below
// capacity, the user must not already participate, and a second HOST
// is rejected. A new participant starts with a nil read position:
// everything in the room counts as unread until their first mark-read,
// regardless of when they joined. That is deliberate room-history
// semantics, not an oversight.
func (r *Registry) Join(ctx context.Context, roomID primitive.ObjectID, userID string, role models.ChatRole) (*models.Participant, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	unlock := r.locks.Lock(roomID)
	defer unlock()

	room, err := r.findRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrRoomInactive
	}

	if _, err := r.participants.FindOne(ctx, bson.M{"roomId": roomID, "userId": userID}); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	count, err := r.participants.CountDocuments(ctx, bson.M{"roomId": roomID})
	if err != nil {
		return nil, err
	}
	if count >= int64(room.MaxParticipants) {
		return nil, ErrRoomFull
	}

	if role == models.RoleHost {
		hosts, err := r.participants.CountDocuments(ctx, bson.M{"roomId": roomID, "role": models.RoleHost})
		if err != nil {
			return nil, err
		}
		if hosts > 0 {
			return nil, ErrHostExists
		}
	}

	now := time.Now().UTC()
	participant := models.Participant{
		ID:       primitive.NewObjectID(),
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: now,
	}
	if _, err := r.participants.InsertOne(ctx, participant); err != nil {
		return nil, err
	}

	roomJoins.Inc()
	zap.S().Debugw("user joined room", "room", roomID.Hex(), "user", userID)
	r.notifier.Emit(models.EventUserJoined, roomID.Hex(), userID, "", now)
	return &participant, nil
}

// Leave removes userID's membership. When the departing participant is
// the HOST and members remain, the host seat moves: to successorID
// when given (it must name a remaining member), otherwise to the
// earliest-joined remaining member. A failed leave changes nothing.
func (r *Registry) Leave(ctx context.Context, roomID primitive.ObjectID, userID, successorID string) error {
	unlock := r.locks.Lock(roomID)
	defer unlock()

	if _, err := r.findRoom(ctx, roomID); err != nil {
		return err
	}

	departing, err := r.participants.FindOne(ctx, bson.M{"roomId": roomID, "userId": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotMember
		}
		return err
	}

	// resolve the successor before mutating anything, so a bad
	// successor leaves membership untouched
	var successor *models.Participant
	if departing.Role == models.RoleHost {
		remaining, err := r.participants.Find(ctx, bson.M{"roomId": roomID})
		if err != nil {
			return err
		}
		successor = pickSuccessor(remaining, userID, successorID)
		if successorID != "" && successor == nil {
			return ErrNotMember
		}
	}

	if _, err := r.participants.DeleteOne(ctx, bson.M{"roomId": roomID, "userId": userID}); err != nil {
		return err
	}

	now := time.Now().UTC()
	if successor != nil {
		_, err = r.participants.UpdateOne(ctx,
			bson.M{"roomId": roomID, "userId": successor.UserID},
			bson.M{"$set": bson.M{"role": models.RoleHost}},
		)
		if err != nil {
			return err
		}
		zap.S().Infow("host seat transferred",
			"room", roomID.Hex(),
			"from", userID,
			"to", successor.UserID,
		)
		r.notifier.Emit(models.EventHostChanged, roomID.Hex(), userID, successor.UserID, now)
	}

	roomLeaves.Inc()
	r.notifier.Emit(models.EventUserLeft, roomID.Hex(), userID, "", now)
	return nil
}

// MarkRead advances userID's read position to at. The $max update
// means stale or out-of-order calls can never move the position
// backward; concurrent calls converge to the maximum.
func (r *Registry) MarkRead(ctx context.Context, roomID primitive.ObjectID, userID string, at time.Time) error {
	room, err := r.findRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return ErrRoomInactive
	}

	res, err := r.participants.UpdateOne(ctx,
		bson.M{"roomId": roomID, "userId": userID},
		bson.M{"$max": bson.M{"lastReadAt": at.UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotMember
	}

	readMarks.Inc()
	r.notifier.Emit(models.EventRoomRead, roomID.Hex(), userID, "", at.UTC())
	return nil
}

// GetParticipants returns the room's membership, earliest joiner first
func (r *Registry) GetParticipants(ctx context.Context, roomID primitive.ObjectID) ([]models.Participant, error) {
	if _, err := r.findRoom(ctx, roomID); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "joinedAt", Value: 1}})
	return r.participants.Find(ctx, bson.M{"roomId": roomID}, opts)
}

// GetParticipant returns one membership record or ErrNotMember
func (r *Registry) GetParticipant(ctx context.Context, roomID primitive.ObjectID, userID string) (*models.Participant, error) {
	participant, err := r.participants.FindOne(ctx, bson.M{"roomId": roomID, "userId": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return participant, nil
}

// ParticipantCount returns the current number of members in the room
func (r *Registry) ParticipantCount(ctx context.Context, roomID primitive.ObjectID) (int64, error) {
	return r.participants.CountDocuments(ctx, bson.M{"roomId": roomID})
}

// Invite emits an invitation event for the notification layer without
// touching membership; acceptance later runs through Join.
func (r *Registry) Invite(ctx context.Context, roomID primitive.ObjectID, inviterID, targetID string) error {
	room, err := r.findRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return ErrRoomInactive
	}
	if _, err := r.GetParticipant(ctx, roomID, inviterID); err != nil {
		return err
	}
	if _, err := r.GetParticipant(ctx, roomID, targetID); err == nil {
		return ErrAlreadyMember
	} else if !errors.Is(err, ErrNotMember) {
		return err
	}

	r.notifier.Emit(models.EventInviteSent, roomID.Hex(), inviterID, targetID, time.Now().UTC())
	return nil
}

func (r *Registry) findRoom(ctx context.Context, roomID primitive.ObjectID) (*models.ChatRoom, error) {
	room, err := r.rooms.FindOne(ctx, bson.M{"_id": roomID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// pickSuccessor chooses the next host among the remaining members.
// Named successor wins; otherwise the earliest-joined member.
func pickSuccessor(all []models.Participant, departingID, successorID string) *models.Participant {
	remaining := make([]models.Participant, 0, len(all))
	for _, p := range all {
		if p.UserID != departingID {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		return nil
	}
	if successorID != "" {
		for i := range remaining {
			if remaining[i].UserID == successorID {
				return &remaining[i]
			}
		}
		return nil
	}
	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].JoinedAt.Before(remaining[j].JoinedAt)
	})
	return &remaining[0]
}
