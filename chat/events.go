package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itda-project/itda-chat-api/models"
)

// EventSink receives room events for delivery. The notification layer
// (kafka topic, websocket hub) plugs in here; the core never blocks on
// a sink.
type EventSink interface {
	Publish(ctx context.Context, event models.RoomEvent) error
}

// Notifier decouples event emission from delivery with a buffered
// queue. Emit never blocks; when the queue is full the event is
// dropped and counted, which keeps a slow consumer from stalling the
// membership and message paths.
type Notifier struct {
	queue chan models.RoomEvent
	sinks []EventSink
}

// NewNotifier creates a notifier with the given queue size and sinks
func NewNotifier(queueSize int, sinks ...EventSink) *Notifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Notifier{
		queue: make(chan models.RoomEvent, queueSize),
		sinks: sinks,
	}
}

// Emit queues a room event for fan-out, fire-and-forget
func (n *Notifier) Emit(eventType models.RoomEventType, roomID, actorID, targetID string, at time.Time) {
	event := models.RoomEvent{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Type:      eventType,
		ActorID:   actorID,
		TargetID:  targetID,
		Timestamp: at,
	}
	select {
	case n.queue <- event:
	default:
		eventsDropped.Inc()
		zap.S().Warnw("event queue full, dropping room event",
			"room", roomID,
			"type", eventType,
		)
	}
}

// Run drains the queue into the sinks until ctx is cancelled
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-n.queue:
			if !ok {
				return nil
			}
			for _, sink := range n.sinks {
				if err := sink.Publish(ctx, event); err != nil {
					zap.S().Errorw("failed to publish room event",
						"room", event.RoomID,
						"type", event.Type,
						"error", err,
					)
				}
			}
		}
	}
}
