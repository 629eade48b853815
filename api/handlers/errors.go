package handlers

import (
	"errors"
	"net/http"

	"github.com/itda-project/itda-chat-api/chat"
)

var errMissingUserID = errors.New("user_id query parameter is required")

// statusForError maps the chat core's sentinel errors onto HTTP status
// codes. Everything unrecognized is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, chat.ErrRoomNotFound),
		errors.Is(err, chat.ErrParticipantNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, chat.ErrNotMember):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrMeetingRoomExists),
		errors.Is(err, chat.ErrAlreadyMember),
		errors.Is(err, chat.ErrRoomFull),
		errors.Is(err, chat.ErrHostExists),
		errors.Is(err, chat.ErrRoomInactive):
		return http.StatusConflict
	case errors.Is(err, chat.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrInvalidMessageType),
		errors.Is(err, chat.ErrInvalidRole):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
