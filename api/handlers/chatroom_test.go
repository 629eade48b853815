package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/itda-project/itda-chat-api/api/handlers"
	"github.com/itda-project/itda-chat-api/chat"
	"github.com/itda-project/itda-chat-api/databases/mocks"
	"github.com/itda-project/itda-chat-api/models"
)

func newMockedCore() (*chat.Core, *mocks.ChatRoomDatabase, *mocks.ParticipantDatabase, *mocks.MessageDatabase) {
	rooms := &mocks.ChatRoomDatabase{}
	participants := &mocks.ParticipantDatabase{}
	messages := &mocks.MessageDatabase{}
	core := chat.NewCore(rooms, participants, messages, chat.NewNotifier(8))
	return core, rooms, participants, messages
}

func roomRouter(path string, handler http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(path, handler)
	return r
}

func TestChatRoom_RoomHandlerBadID(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/rooms/asdf", nil)
	if err != nil {
		t.Fatal(err)
	}

	core, _, _, _ := newMockedCore()
	c := handlers.ChatRoom{Core: core, Validate: validator.New()}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(c.RoomHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := `{"response": "failed to get objectID from Hex, the provided hex string is not a valid ObjectID"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestChatRoom_RoomHandlerNotFound(t *testing.T) {
	roomID := primitive.NewObjectID()
	req, err := http.NewRequest("GET", "/api/v1/rooms/"+roomID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}

	core, rooms, _, _ := newMockedCore()
	rooms.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	c := handlers.ChatRoom{Core: core, Validate: validator.New()}

	rr := httptest.NewRecorder()
	roomRouter("/api/v1/rooms/{room_id}", c.RoomHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
	}

	expected := `{"response": "failed to get room, chat room not found"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestChatRoom_CreateRoomHandler(t *testing.T) {
	body, _ := json.Marshal(handlers.CreateRoomRequest{
		RoomName:        "friday drinks",
		HostID:          "alice",
		MaxParticipants: 8,
		Category:        "SOCIAL",
	})
	req, err := http.NewRequest("POST", "/api/v1/rooms", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	core, rooms, participants, _ := newMockedCore()
	rooms.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	participants.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	c := handlers.ChatRoom{Core: core, Validate: validator.New()}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateRoomHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v, body %v", status, http.StatusCreated, rr.Body.String())
	}

	var room models.ChatRoom
	if err := json.Unmarshal(rr.Body.Bytes(), &room); err != nil {
		t.Fatal(err)
	}
	if room.RoomName != "friday drinks" {
		t.Errorf("unexpected room name: got %v", room.RoomName)
	}
	if room.MaxParticipants != 8 {
		t.Errorf("unexpected max participants: got %v", room.MaxParticipants)
	}
	if !room.IsActive {
		t.Error("expected a freshly created room to be active")
	}
}

func TestChatRoom_CreateRoomHandlerDecodeError(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/rooms", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}

	core, _, _, _ := newMockedCore()
	c := handlers.ChatRoom{Core: core, Validate: validator.New()}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateRoomHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
}

func TestChatRoom_CreateRoomHandlerMeetingConflict(t *testing.T) {
	meetingID := "meeting-42"
	body, _ := json.Marshal(handlers.CreateRoomRequest{
		MeetingID: &meetingID,
		RoomName:  "friday drinks",
		HostID:    "alice",
	})
	req, err := http.NewRequest("POST", "/api/v1/rooms", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	core, rooms, _, _ := newMockedCore()
	rooms.On("FindOne", mock.Anything, mock.Anything).Return(&models.ChatRoom{ID: primitive.NewObjectID()}, nil)

	c := handlers.ChatRoom{Core: core, Validate: validator.New()}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateRoomHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}

	expected := `{"response": "failed to create room, meeting already has a chat room"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestChatRoom_MyRoomsHandlerMissingUserID(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/rooms/my", nil)
	if err != nil {
		t.Fatal(err)
	}

	core, _, _, _ := newMockedCore()
	c := handlers.ChatRoom{Core: core, Validate: validator.New()}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.MyRoomsHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := `{"response": "user_id is required, user_id query parameter is required"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestChatRoom_DeactivateRoomHandlerIdempotent(t *testing.T) {
	roomID := primitive.NewObjectID()
	req, err := http.NewRequest("DELETE", "/api/v1/rooms/"+roomID.Hex()+"?user_id=alice", nil)
	if err != nil {
		t.Fatal(err)
	}

	core, rooms, _, _ := newMockedCore()
	// already inactive, matched but not modified
	rooms.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 0}, nil)

	c := handlers.ChatRoom{Core: core, Validate: validator.New()}

	rr := httptest.NewRecorder()
	roomRouter("/api/v1/rooms/{room_id}", c.DeactivateRoomHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v, body %v", status, http.StatusOK, rr.Body.String())
	}

	expected := `{"response": "room deactivated"}`
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}
