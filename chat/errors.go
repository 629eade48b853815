// Package chat implements the room membership and read-receipt core:
// room lifecycle, participant roles, read positions and the unread
// counts derived from them.
package chat

import "errors"

// Sentinel errors surfaced by the chat core. All of them are
// recoverable; handlers map them onto HTTP status codes.
var (
	ErrRoomNotFound        = errors.New("chat room not found")
	ErrParticipantNotFound = errors.New("chat participant not found")
	ErrMessageNotFound     = errors.New("chat message not found")
	ErrMeetingRoomExists   = errors.New("meeting already has a chat room")
	ErrAlreadyMember       = errors.New("user already participates in this room")
	ErrNotMember           = errors.New("user is not a participant of this room")
	ErrRoomFull            = errors.New("room has reached its max participants")
	ErrRoomInactive        = errors.New("room is no longer active")
	ErrHostExists          = errors.New("room already has a host")
	ErrNotHost             = errors.New("operation is restricted to the room host")
	ErrInvalidMessageType  = errors.New("unknown message type")
	ErrInvalidRole         = errors.New("unknown chat role")
)
