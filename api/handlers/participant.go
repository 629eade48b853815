package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/itda-project/itda-chat-api/chat"
	"github.com/itda-project/itda-chat-api/config"
	"github.com/itda-project/itda-chat-api/models"
)

// Participant struct mostly used for mocking tests
type Participant struct {
	Core     *chat.Core
	Presence *chat.Presence
	Validate *validator.Validate
}

// JoinRequest is the payload for joining a room
type JoinRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role"`
}

// JoinRoomHandler seats a user in a room
func (p Participant) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := p.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid join request", http.StatusBadRequest, w, err)
		return
	}
	role := models.ChatRole(req.Role)
	if req.Role == "" {
		role = models.RoleMember
	}

	participant, err := p.Core.Registry.Join(context.Background(), roomID, req.UserID, role)
	if err != nil {
		config.ErrorStatus("failed to join room", statusForError(err), w, err)
		return
	}

	b, err := json.Marshal(participant)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// LeaveRequest is the payload for leaving a room. SuccessorID is only
// meaningful when the departing user is the host.
type LeaveRequest struct {
	UserID      string `json:"userId" validate:"required"`
	SuccessorID string `json:"successorId"`
}

// LeaveRoomHandler removes a user's membership
func (p Participant) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := p.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid leave request", http.StatusBadRequest, w, err)
		return
	}

	if err := p.Core.Registry.Leave(context.Background(), roomID, req.UserID, req.SuccessorID); err != nil {
		config.ErrorStatus("failed to leave room", statusForError(err), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"response": "left room"}`))
}

// MarkReadRequest is the payload for advancing a read position. A
// missing timestamp means "now".
type MarkReadRequest struct {
	UserID string     `json:"userId" validate:"required"`
	At     *time.Time `json:"at,omitempty"`
}

// MarkReadHandler advances the caller's read position in a room
func (p Participant) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := p.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid mark read request", http.StatusBadRequest, w, err)
		return
	}
	at := time.Now().UTC()
	if req.At != nil {
		at = *req.At
	}

	if err := p.Core.Registry.MarkRead(context.Background(), roomID, req.UserID, at); err != nil {
		config.ErrorStatus("failed to mark read", statusForError(err), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"response": "read position updated"}`))
}

// ParticipantsHandler lists a room's members with their online flags
func (p Participant) ParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}

	participants, err := p.Core.Registry.GetParticipants(context.Background(), roomID)
	if err != nil {
		config.ErrorStatus("failed to list participants", statusForError(err), w, err)
		return
	}

	views := make([]models.ParticipantView, 0, len(participants))
	for _, participant := range participants {
		online := false
		if p.Presence != nil {
			online, err = p.Presence.Online(context.Background(), roomID.Hex(), participant.UserID)
			if err != nil {
				config.ErrorStatus("failed to check presence", http.StatusInternalServerError, w, err)
				return
			}
		}
		views = append(views, models.ParticipantView{Participant: participant, Online: online})
	}
	writeJSON(w, views)
}

// UnreadCountHandler returns the caller's unread count for a room.
// Works for inactive rooms too; history stays queryable.
func (p Participant) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		config.ErrorStatus("user_id is required", http.StatusBadRequest, w, errMissingUserID)
		return
	}

	unread, err := p.Core.Receipts.UnreadCount(context.Background(), roomID, userID)
	if err != nil {
		config.ErrorStatus("failed to compute unread count", statusForError(err), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fmt.Sprintf(`{"roomId": "%s", "unreadCount": %d}`, roomID.Hex(), unread)))
}

// ReadersHandler returns how many participants have read past the
// given timestamp, for "read by N" indicators
func (p Participant) ReadersHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	at, err := time.Parse(time.RFC3339, r.URL.Query().Get("at"))
	if err != nil {
		config.ErrorStatus("failed to parse at timestamp", http.StatusBadRequest, w, err)
		return
	}

	readers, err := p.Core.Receipts.ReadersAsOf(context.Background(), roomID, at)
	if err != nil {
		config.ErrorStatus("failed to count readers", statusForError(err), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fmt.Sprintf(`{"roomId": "%s", "readers": %d}`, roomID.Hex(), readers)))
}
