package chat

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type roomUpdate struct {
	roomID  primitive.ObjectID
	at      time.Time
	preview string
}

// Ingestor decouples last-message bookkeeping from the send path. The
// transport hands updates in fire-and-forget; when the queue is full
// the update is dropped and counted rather than stalling the producer.
// A dropped update only delays the room preview until the next message.
type Ingestor struct {
	store *RoomStore
	queue chan roomUpdate
}

// NewIngestor creates an ingestor with the given queue size
func NewIngestor(store *RoomStore, queueSize int) *Ingestor {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Ingestor{store: store, queue: make(chan roomUpdate, queueSize)}
}

// Enqueue hands a last-message update to the worker without blocking
func (i *Ingestor) Enqueue(roomID primitive.ObjectID, at time.Time, preview string) {
	select {
	case i.queue <- roomUpdate{roomID: roomID, at: at, preview: preview}:
	default:
		ingestDropped.Inc()
		zap.S().Warnw("ingest queue full, dropping last-message update", "room", roomID.Hex())
	}
}

// Run applies queued updates until ctx is cancelled
func (i *Ingestor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-i.queue:
			if !ok {
				return nil
			}
			err := i.store.RecordIncomingMessage(ctx, u.roomID, u.at, u.preview)
			switch {
			case err == nil:
			case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrRoomInactive):
				// the room went away between send and apply; nothing to do
				zap.S().Debugw("skipped last-message update", "room", u.roomID.Hex(), "reason", err)
			default:
				zap.S().Errorw("failed to apply last-message update", "room", u.roomID.Hex(), "error", err)
			}
		}
	}
}
