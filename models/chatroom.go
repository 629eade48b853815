package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatRoom contains the room details for a meeting chat room.
// A room is optionally tied to a single meeting; at most one room
// exists per meeting. Once deactivated a room never becomes active
// again, but its participants and messages stay readable.
type ChatRoom struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id"`
	MeetingID       *string            `json:"meetingId,omitempty" bson:"meetingId,omitempty"`
	RoomName        string             `json:"roomName" bson:"roomName"`
	MaxParticipants int                `json:"maxParticipants" bson:"maxParticipants"`
	Category        string             `json:"category,omitempty" bson:"category,omitempty"`
	Description     string             `json:"description,omitempty" bson:"description,omitempty"`
	LocationName    string             `json:"locationName,omitempty" bson:"locationName,omitempty"`
	ImageURL        string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Notice          string             `json:"notice,omitempty" bson:"notice,omitempty"`
	IsActive        bool               `json:"isActive" bson:"isActive"`
	LastMessage     string             `json:"lastMessage,omitempty" bson:"lastMessage,omitempty"`
	LastMessageAt   *time.Time         `json:"lastMessageAt,omitempty" bson:"lastMessageAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// DefaultMaxParticipants is applied when a room is created without an
// explicit capacity.
const DefaultMaxParticipants = 10
