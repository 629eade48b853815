// Package docs Itda Chat API.
//
// Documentation of the Itda chat room and read receipt API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//     Host: https://itda-chat-api.herokuapp.com
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//
// swagger:meta
package docs

import (
	"github.com/itda-project/itda-chat-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/rooms rooms createRoom
// Creates a chat room and seats the creator as HOST.
// responses:
//   201: roomResponse

// swagger:route GET /api/v1/rooms/{room_id} rooms roomByID
// Gets a single chat room by ID.
// responses:
//   200: roomResponse

// Shows a single chat room by the given {ID}
// swagger:response roomResponse
type roomResponseWrapper struct {
	// in:body
	Body models.ChatRoom
}

// swagger:route GET /api/v1/rooms/directory rooms roomDirectory
// Lists the caller's rooms plus the public directory.
// responses:
//   200: roomDirectoryResponse

// The lobby payload with my rooms ordered by latest activity.
// swagger:response roomDirectoryResponse
type roomDirectoryResponseWrapper struct {
	// in:body
	Body models.RoomListResponse
}

// swagger:route GET /api/v1/rooms/{room_id}/participants rooms roomParticipants
// Lists a room's participants with live presence flags.
// responses:
//   200: participantsResponse

// swagger:response participantsResponse
type participantsResponseWrapper struct {
	// in:body
	Body []models.ParticipantView
}

// swagger:route GET /api/v1/rooms/{room_id}/messages messages roomMessages
// Lists a page of the room's messages with unread-by counts.
// responses:
//   200: messagesResponse

// swagger:response messagesResponse
type messagesResponseWrapper struct {
	// in:body
	Body []models.ChatMessageView
}
