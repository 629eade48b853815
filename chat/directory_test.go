package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/itda-project/itda-chat-api/models"
)

func TestMyRooms_CountsAndOrdering(t *testing.T) {
	core, _, _, messages := newTestCore()

	quiet, err := core.Store.CreateRoom(context.Background(), CreateRoomParams{
		RoomName: "book club", HostID: "alice", MaxParticipants: 5,
	})
	require.NoError(t, err)
	busy, err := core.Store.CreateRoom(context.Background(), CreateRoomParams{
		RoomName: "friday drinks", HostID: "alice", MaxParticipants: 5,
	})
	require.NoError(t, err)
	_, err = core.Registry.Join(context.Background(), busy.ID, "bob", models.RoleMember)
	require.NoError(t, err)

	// conversation moves in busy, so it sorts first
	at := time.Now().UTC().Add(time.Minute)
	storeMessage(messages, busy.ID, "bob", at)
	require.NoError(t, core.Store.RecordIncomingMessage(context.Background(), busy.ID, at, "see you at 7"))

	summaries, err := core.Directory.MyRooms(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, busy.ID, summaries[0].RoomID)
	assert.Equal(t, int64(2), summaries[0].ParticipantCount)
	assert.Equal(t, int64(1), summaries[0].UnreadCount)
	assert.Equal(t, "see you at 7", summaries[0].LastMessage)

	assert.Equal(t, quiet.ID, summaries[1].RoomID)
	assert.Equal(t, int64(1), summaries[1].ParticipantCount)
	assert.Equal(t, int64(0), summaries[1].UnreadCount)
}

func TestMyRooms_ExcludesRoomsUserLeft(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "alice", 3)
	_, err := core.Registry.Join(context.Background(), room.ID, "bob", models.RoleMember)
	require.NoError(t, err)
	require.NoError(t, core.Registry.Leave(context.Background(), room.ID, "bob", ""))

	summaries, err := core.Directory.MyRooms(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestAllRooms_NonMemberSeesZeroUnread(t *testing.T) {
	core, _, _, messages := newTestCore()
	room := createRoom(t, core, "alice", 3)
	storeMessage(messages, room.ID, "alice", time.Now().UTC().Add(time.Minute))

	summaries, err := core.Directory.AllRooms(context.Background(), RoomFilter{ActiveOnly: true}, "stranger")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(0), summaries[0].UnreadCount)
	assert.Equal(t, int64(1), summaries[0].ParticipantCount)
}

func TestAllRooms_CategoryFilter(t *testing.T) {
	core, _, _, _ := newTestCore()
	_, err := core.Store.CreateRoom(context.Background(), CreateRoomParams{
		RoomName: "morning hike", HostID: "alice", MaxParticipants: 10, Category: "OUTDOOR",
	})
	require.NoError(t, err)
	board, err := core.Store.CreateRoom(context.Background(), CreateRoomParams{
		RoomName: "board games", HostID: "bob", MaxParticipants: 10, Category: "GAMES",
	})
	require.NoError(t, err)

	summaries, err := core.Directory.AllRooms(context.Background(), RoomFilter{Category: "GAMES"}, "bob")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, board.ID, summaries[0].RoomID)
	assert.Equal(t, "GAMES", summaries[0].Category)
}

func TestRoomSummary_SingleRoom(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "alice", 4)
	_, err := core.Registry.Join(context.Background(), room.ID, "bob", models.RoleMember)
	require.NoError(t, err)

	summary, err := core.Directory.RoomSummary(context.Background(), room.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, room.ID, summary.RoomID)
	assert.Equal(t, "midnight ramen run", summary.RoomName)
	assert.Equal(t, int64(2), summary.ParticipantCount)
	assert.Equal(t, 4, summary.MaxParticipants)
	assert.True(t, summary.IsActive)
}

func TestRoomSummary_NotFound(t *testing.T) {
	core, _, _, _ := newTestCore()

	_, err := core.Directory.RoomSummary(context.Background(), primitive.NewObjectID(), "alice")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
