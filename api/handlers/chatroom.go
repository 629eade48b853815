package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/itda-project/itda-chat-api/chat"
	"github.com/itda-project/itda-chat-api/config"
	"github.com/itda-project/itda-chat-api/models"
)

// ChatRoom struct mostly used for mocking tests
type ChatRoom struct {
	Core     *chat.Core
	Validate *validator.Validate
}

// CreateRoomRequest is the payload for opening a room
type CreateRoomRequest struct {
	MeetingID       *string `json:"meetingId,omitempty"`
	RoomName        string  `json:"roomName" validate:"required,max=200"`
	HostID          string  `json:"hostId" validate:"required"`
	MaxParticipants int     `json:"maxParticipants" validate:"gte=0,lte=500"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
	LocationName    string  `json:"locationName"`
}

// CreateRoomHandler opens a chat room for a meeting
func (c ChatRoom) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := c.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid create room request", http.StatusBadRequest, w, err)
		return
	}

	room, err := c.Core.Store.CreateRoom(context.Background(), chat.CreateRoomParams{
		MeetingID:       req.MeetingID,
		RoomName:        req.RoomName,
		HostID:          req.HostID,
		MaxParticipants: req.MaxParticipants,
		Category:        req.Category,
		Description:     req.Description,
		LocationName:    req.LocationName,
	})
	if err != nil {
		config.ErrorStatus("failed to create room", statusForError(err), w, err)
		return
	}

	b, err := json.Marshal(room)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// RoomHandler returns the summary view of a room given a roomID
func (c ChatRoom) RoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")

	summary, err := c.Core.Directory.RoomSummary(context.Background(), roomID, userID)
	if err != nil {
		config.ErrorStatus("failed to get room", statusForError(err), w, err)
		return
	}

	b, err := json.Marshal(summary)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeactivateRoomHandler retires a room once its meeting concluded.
// Repeat calls are fine; the room never comes back.
func (c ChatRoom) DeactivateRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")

	if err := c.Core.Store.Deactivate(context.Background(), roomID, userID); err != nil {
		config.ErrorStatus("failed to deactivate room", statusForError(err), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"response": "room deactivated"}`))
}

// MyRoomsHandler lists the requesting user's active rooms with unread counts
func (c ChatRoom) MyRoomsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		config.ErrorStatus("user_id is required", http.StatusBadRequest, w, errMissingUserID)
		return
	}

	summaries, err := c.Core.Directory.MyRooms(context.Background(), userID)
	if err != nil {
		config.ErrorStatus("failed to list my rooms", statusForError(err), w, err)
		return
	}
	writeJSON(w, summaries)
}

// AllRoomsHandler lists rooms, optionally narrowed by category and
// active flag
func (c ChatRoom) AllRoomsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	filter := chat.RoomFilter{
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: r.URL.Query().Get("active") != "false",
	}

	summaries, err := c.Core.Directory.AllRooms(context.Background(), filter, userID)
	if err != nil {
		config.ErrorStatus("failed to list rooms", statusForError(err), w, err)
		return
	}
	writeJSON(w, summaries)
}

// RoomListHandler returns the lobby payload: my rooms plus all rooms
func (c ChatRoom) RoomListHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		config.ErrorStatus("user_id is required", http.StatusBadRequest, w, errMissingUserID)
		return
	}

	mine, err := c.Core.Directory.MyRooms(context.Background(), userID)
	if err != nil {
		config.ErrorStatus("failed to list my rooms", statusForError(err), w, err)
		return
	}
	all, err := c.Core.Directory.AllRooms(context.Background(), chat.RoomFilter{ActiveOnly: true}, userID)
	if err != nil {
		config.ErrorStatus("failed to list rooms", statusForError(err), w, err)
		return
	}
	writeJSON(w, models.RoomListResponse{MyRooms: mine, AllRooms: all})
}

// UpdateNoticeRequest is the payload for replacing the room notice
type UpdateNoticeRequest struct {
	UserID string `json:"userId" validate:"required"`
	Notice string `json:"notice" validate:"required"`
}

// UpdateNoticeHandler replaces the room notice; host only
func (c ChatRoom) UpdateNoticeHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	var req UpdateNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := c.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid notice request", http.StatusBadRequest, w, err)
		return
	}

	if err := c.Core.Store.UpdateNotice(context.Background(), roomID, req.UserID, req.Notice); err != nil {
		config.ErrorStatus("failed to update notice", statusForError(err), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"response": "notice updated"}`))
}

// InviteRequest is the payload for inviting a user into a room
type InviteRequest struct {
	InviterID string `json:"inviterId" validate:"required"`
	TargetID  string `json:"targetId" validate:"required"`
}

// InviteHandler emits a chat invite notification; membership changes
// only when the target later joins
func (c ChatRoom) InviteHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := c.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid invite request", http.StatusBadRequest, w, err)
		return
	}

	if err := c.Core.Registry.Invite(context.Background(), roomID, req.InviterID, req.TargetID); err != nil {
		config.ErrorStatus("failed to invite user", statusForError(err), w, err)
		return
	}
	zap.S().Infow("chat invite sent", "room", roomID.Hex(), "target", req.TargetID)
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"response": "invite sent"}`))
}

func roomIDFromRequest(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	roomID, err := primitive.ObjectIDFromHex(mux.Vars(r)["room_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return primitive.NilObjectID, false
	}
	return roomID, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
