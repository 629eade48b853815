package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/itda-project/itda-chat-api/databases"
	"github.com/itda-project/itda-chat-api/models"
)

func TestCreateRoom_SeatsHostFullyRead(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "host", 0)

	assert.Equal(t, models.DefaultMaxParticipants, room.MaxParticipants)
	assert.True(t, room.IsActive)

	host, err := core.Registry.GetParticipant(context.Background(), room.ID, "host")
	require.NoError(t, err)
	assert.Equal(t, models.RoleHost, host.Role)
	require.NotNil(t, host.LastReadAt)
	assert.True(t, host.LastReadAt.Equal(room.CreatedAt))
}

func TestCreateRoom_MeetingDedupe(t *testing.T) {
	core, _, _, _ := newTestCore()
	meetingID := "meeting-42"

	_, err := core.Store.CreateRoom(context.Background(), CreateRoomParams{
		MeetingID: &meetingID,
		RoomName:  "hiking crew",
		HostID:    "host",
	})
	require.NoError(t, err)

	_, err = core.Store.CreateRoom(context.Background(), CreateRoomParams{
		MeetingID: &meetingID,
		RoomName:  "second room for the same meetup",
		HostID:    "other",
	})
	assert.ErrorIs(t, err, ErrMeetingRoomExists)
}

func TestGetRoom_NotFound(t *testing.T) {
	core, _, _, _ := newTestCore()

	_, err := core.Store.GetRoom(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDeactivate_Idempotent(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "host", 5)

	require.NoError(t, core.Store.Deactivate(context.Background(), room.ID, "host"))
	require.NoError(t, core.Store.Deactivate(context.Background(), room.ID, "host"))

	got, err := core.Store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeactivate_NotFound(t *testing.T) {
	core, _, _, _ := newTestCore()

	err := core.Store.Deactivate(context.Background(), primitive.NewObjectID(), "host")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDeactivate_KeepsHistoryReadable(t *testing.T) {
	core, _, _, messages := newTestCore()
	room := createRoom(t, core, "host", 5)
	messages.docs = append(messages.docs, models.ChatMessage{
		ID:        primitive.NewObjectID(),
		RoomID:    room.ID,
		SenderID:  "host",
		Type:      models.MessageText,
		Content:   "see you there",
		CreatedAt: time.Now().UTC(),
	})

	require.NoError(t, core.Store.Deactivate(context.Background(), room.ID, "host"))

	// writes are rejected but reads keep working
	_, err := core.Messages.Send(context.Background(), SendMessageParams{
		RoomID: room.ID, SenderID: "host", Type: models.MessageText, Content: "late",
	})
	assert.ErrorIs(t, err, ErrRoomInactive)

	views, err := core.Messages.GetMessages(context.Background(), room.ID, 1, 50)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	got, err := core.Registry.GetParticipants(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// hookedParticipants runs a callback before each insert, to interleave
// other operations inside a membership change
type hookedParticipants struct {
	*memParticipants
	onInsert func()
}

func (h *hookedParticipants) InsertOne(ctx context.Context, p models.Participant, opts ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	if h.onInsert != nil {
		h.onInsert()
	}
	return h.memParticipants.InsertOne(ctx, p, opts...)
}

func TestDeactivate_WaitsForInFlightJoin(t *testing.T) {
	rooms := &memRooms{}
	participants := &memParticipants{}
	hooked := &hookedParticipants{memParticipants: participants}
	core := NewCore(rooms, hooked, &memMessages{}, NewNotifier(64))

	room := createRoom(t, core, "alice", 5)

	deactivated := make(chan error, 1)
	hooked.onInsert = func() {
		hooked.onInsert = nil
		// fire the deactivation while the join still holds the room
		go func() {
			deactivated <- core.Store.Deactivate(context.Background(), room.ID, "alice")
		}()
		time.Sleep(50 * time.Millisecond)

		got, err := core.Store.GetRoom(context.Background(), room.ID)
		require.NoError(t, err)
		assert.True(t, got.IsActive, "deactivation must not commit under an in-flight join")
	}

	_, err := core.Registry.Join(context.Background(), room.ID, "bob", models.RoleMember)
	require.NoError(t, err)
	require.NoError(t, <-deactivated)

	// serial order is join then deactivate: bob is seated, room retired
	got, err := core.Store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	count, err := core.Registry.ParticipantCount(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRecordIncomingMessage_OnlyNewerWins(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "host", 5)

	t1 := time.Now().UTC()
	t2 := t1.Add(time.Minute)

	require.NoError(t, core.Store.RecordIncomingMessage(context.Background(), room.ID, t2, "newer"))
	// an out-of-order update must not regress the preview
	require.NoError(t, core.Store.RecordIncomingMessage(context.Background(), room.ID, t1, "older"))

	got, err := core.Store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, "newer", got.LastMessage)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, got.LastMessageAt.Equal(t2))
}

func TestRecordIncomingMessage_InactiveRoom(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "host", 5)
	require.NoError(t, core.Store.Deactivate(context.Background(), room.ID, "host"))

	err := core.Store.RecordIncomingMessage(context.Background(), room.ID, time.Now(), "late")
	assert.ErrorIs(t, err, ErrRoomInactive)
}

func TestListActiveRoomsForUser_NewestConversationFirst(t *testing.T) {
	core, _, _, _ := newTestCore()

	quiet := createRoom(t, core, "u1", 5)
	busy := createRoom(t, core, "u1", 5)
	fresh := createRoom(t, core, "u1", 5)
	retired := createRoom(t, core, "u1", 5)

	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, core.Store.RecordIncomingMessage(context.Background(), quiet.ID, old, "a while ago"))
	require.NoError(t, core.Store.RecordIncomingMessage(context.Background(), busy.ID, time.Now().UTC(), "just now"))
	require.NoError(t, core.Store.Deactivate(context.Background(), retired.ID, "u1"))

	rooms, err := core.Store.ListActiveRoomsForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, busy.ID, rooms[0].ID)
	assert.Equal(t, quiet.ID, rooms[1].ID)
	// never-messaged rooms sort last
	assert.Equal(t, fresh.ID, rooms[2].ID)
}

func TestListRooms_CategoryFilter(t *testing.T) {
	core, _, _, _ := newTestCore()

	a, err := core.Store.CreateRoom(context.Background(), CreateRoomParams{
		RoomName: "board games", HostID: "h1", Category: "GAMES",
	})
	require.NoError(t, err)
	_, err = core.Store.CreateRoom(context.Background(), CreateRoomParams{
		RoomName: "book club", HostID: "h2", Category: "BOOKS",
	})
	require.NoError(t, err)

	got, err := core.Store.ListRooms(context.Background(), RoomFilter{Category: "GAMES", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestUpdateNotice_HostOnly(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "host", 5)
	_, err := core.Registry.Join(context.Background(), room.ID, "u1", models.RoleMember)
	require.NoError(t, err)

	err = core.Store.UpdateNotice(context.Background(), room.ID, "u1", "bring snacks")
	assert.ErrorIs(t, err, ErrNotHost)

	err = core.Store.UpdateNotice(context.Background(), room.ID, "stranger", "bring snacks")
	assert.ErrorIs(t, err, ErrNotMember)

	require.NoError(t, core.Store.UpdateNotice(context.Background(), room.ID, "host", "bring snacks"))
	got, err := core.Store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, "bring snacks", got.Notice)
}

func TestUpdateNotice_InactiveRoom(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "host", 5)
	require.NoError(t, core.Store.Deactivate(context.Background(), room.ID, "host"))

	err := core.Store.UpdateNotice(context.Background(), room.ID, "host", "too late")
	assert.ErrorIs(t, err, ErrRoomInactive)
}

func TestSetRoomImage_HostOnly(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "host", 5)
	_, err := core.Registry.Join(context.Background(), room.ID, "u1", models.RoleMember)
	require.NoError(t, err)

	err = core.Store.SetRoomImage(context.Background(), room.ID, "u1", "https://img.example/x.png")
	assert.ErrorIs(t, err, ErrNotHost)

	require.NoError(t, core.Store.SetRoomImage(context.Background(), room.ID, "host", "https://img.example/x.png"))
	got, err := core.Store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/x.png", got.ImageURL)
}
