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

func TestNotifier_DeliversToSinks(t *testing.T) {
	first := &collectSink{}
	second := &collectSink{}
	notifier := NewNotifier(8, first, second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notifier.Run(ctx)

	roomID := primitive.NewObjectID().Hex()
	notifier.Emit(models.EventUserJoined, roomID, "bob", "", time.Now().UTC())
	notifier.Emit(models.EventMessageSent, roomID, "bob", "", time.Now().UTC())

	require.Eventually(t, func() bool {
		return len(first.types()) == 2 && len(second.types()) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []models.RoomEventType{models.EventUserJoined, models.EventMessageSent}, first.types())

	first.mu.Lock()
	event := first.events[0]
	first.mu.Unlock()
	assert.Equal(t, roomID, event.RoomID)
	assert.Equal(t, "bob", event.ActorID)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestNotifier_FullQueueDropsWithoutBlocking(t *testing.T) {
	// no Run loop consuming, so the queue fills up
	notifier := NewNotifier(1, &collectSink{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			notifier.Emit(models.EventMessageSent, "room", "alice", "", time.Now().UTC())
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}
}

func TestNotifier_SinkErrorDoesNotStopDelivery(t *testing.T) {
	failing := &failSink{}
	ok := &collectSink{}
	notifier := NewNotifier(8, failing, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notifier.Run(ctx)

	notifier.Emit(models.EventUserLeft, "room", "alice", "", time.Now().UTC())

	require.Eventually(t, func() bool {
		return len(ok.types()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestIngestor_AppliesQueuedUpdates(t *testing.T) {
	core, _, _, _ := newTestCore()
	room := createRoom(t, core, "alice", 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Ingestor.Run(ctx)

	at := time.Now().UTC().Add(time.Minute)
	core.Ingestor.Enqueue(room.ID, at, "last call for ramen")

	require.Eventually(t, func() bool {
		got, err := core.Store.GetRoom(context.Background(), room.ID)
		return err == nil && got.LastMessage == "last call for ramen"
	}, time.Second, 5*time.Millisecond)

	got, err := core.Store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, got.LastMessageAt.Equal(at))
}

func TestIngestor_FullQueueDropsWithoutBlocking(t *testing.T) {
	core, _, _, _ := newTestCore()
	ingestor := NewIngestor(core.Store, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			ingestor.Enqueue(primitive.NewObjectID(), time.Now().UTC(), "hi")
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

type failSink struct{}

func (failSink) Publish(ctx context.Context, event models.RoomEvent) error {
	return assert.AnError
}
