package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatRole is the role a participant holds inside a room. The set is
// closed: every decision point switches over these two values.
type ChatRole string

// The available chat roles
const (
	RoleHost   ChatRole = "HOST"
	RoleMember ChatRole = "MEMBER"
)

// Valid reports whether the role is one of the known values
func (r ChatRole) Valid() bool {
	switch r {
	case RoleHost, RoleMember:
		return true
	}
	return false
}

// Participant is a user's membership record in a room. The pair
// (roomId, userId) is unique; a nil LastReadAt means the user has
// never read the room.
type Participant struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	RoomID     primitive.ObjectID `json:"roomId" bson:"roomId"`
	UserID     string             `json:"userId" bson:"userId"`
	Role       ChatRole           `json:"role" bson:"role"`
	LastReadAt *time.Time         `json:"lastReadAt,omitempty" bson:"lastReadAt,omitempty"`
	JoinedAt   time.Time          `json:"joinedAt" bson:"joinedAt"`
}

// ParticipantView decorates a participant with presence info for the
// participant list endpoint
type ParticipantView struct {
	Participant `bson:",inline"`
	Online      bool `json:"online"`
}
