package models

import "time"

// RoomEventType names the membership and message events the core
// emits for the notification fan-out layer.
type RoomEventType string

// The emitted room event types
const (
	EventRoomCreated     RoomEventType = "room.created"
	EventRoomDeactivated RoomEventType = "room.deactivated"
	EventUserJoined      RoomEventType = "room.joined"
	EventUserLeft        RoomEventType = "room.left"
	EventHostChanged     RoomEventType = "room.host_changed"
	EventMessageSent     RoomEventType = "room.message"
	EventRoomRead        RoomEventType = "room.read"
	EventInviteSent      RoomEventType = "room.invite"
)

// RoomEvent is the tuple handed to the notification layer whenever a
// join/leave/message/read event occurs. The core does not own delivery.
type RoomEvent struct {
	ID        string        `json:"id"`
	RoomID    string        `json:"roomId"`
	Type      RoomEventType `json:"type"`
	ActorID   string        `json:"actorId"`
	TargetID  string        `json:"targetId,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
