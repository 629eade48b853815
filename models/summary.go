package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoomSummary is the room-list view of a chat room. Participant and
// unread counts are derived on demand, never stored.
type RoomSummary struct {
	RoomID           primitive.ObjectID `json:"roomId"`
	MeetingID        *string            `json:"meetingId,omitempty"`
	RoomName         string             `json:"roomName"`
	ParticipantCount int64              `json:"participantCount"`
	MaxParticipants  int                `json:"maxParticipants"`
	Category         string             `json:"category,omitempty"`
	LocationName     string             `json:"locationName,omitempty"`
	ImageURL         string             `json:"imageUrl,omitempty"`
	Notice           string             `json:"notice,omitempty"`
	IsActive         bool               `json:"isActive"`
	LastMessage      string             `json:"lastMessage,omitempty"`
	LastMessageAt    *time.Time         `json:"lastMessageAt,omitempty"`
	UnreadCount      int64              `json:"unreadCount"`
}

// RoomListResponse groups the two room listings the lobby screen needs
type RoomListResponse struct {
	MyRooms  []RoomSummary `json:"myRooms"`
	AllRooms []RoomSummary `json:"allRooms"`
}
