package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/itda-project/itda-chat-api/chat"
	"github.com/itda-project/itda-chat-api/config"
	"github.com/itda-project/itda-chat-api/models"
)

// Message struct mostly used for mocking tests
type Message struct {
	Core     *chat.Core
	Validate *validator.Validate
}

// SendMessageRequest is the payload for posting a message to a room
type SendMessageRequest struct {
	SenderID string                 `json:"senderId" validate:"required"`
	Type     string                 `json:"type" validate:"required"`
	Content  string                 `json:"content" validate:"required"`
	FileURL  string                 `json:"fileUrl"`
	Metadata map[string]interface{} `json:"metadata"`
}

// SendMessageHandler stores a message in a room's log
func (m Message) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := m.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid send message request", http.StatusBadRequest, w, err)
		return
	}

	msg, err := m.Core.Messages.Send(context.Background(), chat.SendMessageParams{
		RoomID:   roomID,
		SenderID: req.SenderID,
		Type:     models.MessageType(req.Type),
		Content:  req.Content,
		FileURL:  req.FileURL,
		Metadata: req.Metadata,
	})
	if err != nil {
		config.ErrorStatus("failed to send message", statusForError(err), w, err)
		return
	}

	b, err := json.Marshal(msg)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// MessagesHandler returns a page of a room's log with unread-by counts
func (m Message) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	views, err := m.Core.Messages.GetMessages(context.Background(), roomID, page, size)
	if err != nil {
		config.ErrorStatus("failed to list messages", statusForError(err), w, err)
		return
	}
	writeJSON(w, views)
}

// VoteUpdateRequest is the payload for publishing a poll's new tally
type VoteUpdateRequest struct {
	ActorID  string                 `json:"actorId" validate:"required"`
	Metadata map[string]interface{} `json:"metadata" validate:"required"`
}

// VoteUpdateHandler replaces the tally of the poll carrying vote_id.
// The original POLL message stays untouched; the new tally lands as a
// VOTE_UPDATE.
func (m Message) VoteUpdateHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	voteID := mux.Vars(r)["vote_id"]
	var req VoteUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := m.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid vote update request", http.StatusBadRequest, w, err)
		return
	}

	update, err := m.Core.Messages.UpdateVoteMetadata(context.Background(), roomID, voteID, req.ActorID, req.Metadata)
	if err != nil {
		config.ErrorStatus("failed to update vote", statusForError(err), w, err)
		return
	}

	b, err := json.Marshal(update)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// BillStatusRequest is the payload for flipping a settlement share
type BillStatusRequest struct {
	ActorID      string `json:"actorId" validate:"required"`
	TargetUserID string `json:"targetUserId" validate:"required"`
}

// BillStatusHandler toggles one share of a BILL message. The original
// bill message stays untouched; the change lands as a BILL_UPDATE.
func (m Message) BillStatusHandler(w http.ResponseWriter, r *http.Request) {
	messageID, err := primitive.ObjectIDFromHex(mux.Vars(r)["message_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	var req BillStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := m.Validate.Struct(req); err != nil {
		config.ErrorStatus("invalid bill status request", http.StatusBadRequest, w, err)
		return
	}

	update, err := m.Core.Messages.ToggleBillStatus(context.Background(), messageID, req.ActorID, req.TargetUserID)
	if err != nil {
		config.ErrorStatus("failed to update bill status", statusForError(err), w, err)
		return
	}

	b, err := json.Marshal(update)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}
