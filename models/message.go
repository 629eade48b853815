package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageType classifies a chat message. The enumeration is closed;
// unknown values are rejected at the API boundary.
type MessageType string

// The available message types
const (
	MessageText             MessageType = "TEXT"
	MessageTalk             MessageType = "TALK"
	MessageImage            MessageType = "IMAGE"
	MessageFile             MessageType = "FILE"
	MessageSystem           MessageType = "SYSTEM"
	MessagePoll             MessageType = "POLL"
	MessageVote             MessageType = "VOTE"
	MessageBill             MessageType = "BILL"
	MessageLocation         MessageType = "LOCATION"
	MessageNotice           MessageType = "NOTICE"
	MessageVoteUpdate       MessageType = "VOTE_UPDATE"
	MessageBillUpdate       MessageType = "BILL_UPDATE"
	MessageAIRecommendation MessageType = "AI_RECOMMENDATION"
	MessageRead             MessageType = "READ"
)

// Valid reports whether the message type is one of the known values
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageTalk, MessageImage, MessageFile, MessageSystem,
		MessagePoll, MessageVote, MessageBill, MessageLocation, MessageNotice,
		MessageVoteUpdate, MessageBillUpdate, MessageAIRecommendation, MessageRead:
		return true
	}
	return false
}

// ChatMessage is an immutable chat event. Messages are ordered by
// CreatedAt within a room; the ObjectID breaks ties between messages
// stored in the same millisecond.
type ChatMessage struct {
	ID        primitive.ObjectID     `json:"_id" bson:"_id"`
	RoomID    primitive.ObjectID     `json:"roomId" bson:"roomId"`
	SenderID  string                 `json:"senderId" bson:"senderId"`
	Type      MessageType            `json:"type" bson:"type"`
	Content   string                 `json:"content" bson:"content"`
	FileURL   string                 `json:"fileUrl,omitempty" bson:"fileUrl,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
}

// ChatMessageView is a message decorated with the number of
// participants that have not read it yet, for "unread by N" badges
type ChatMessageView struct {
	ChatMessage
	UnreadBy int64 `json:"unreadBy"`
}
