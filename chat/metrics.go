package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itda_chat_messages_stored_total",
		Help: "Messages persisted to the message log.",
	})
	roomJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itda_chat_room_joins_total",
		Help: "Successful room joins.",
	})
	roomLeaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itda_chat_room_leaves_total",
		Help: "Successful room leaves.",
	})
	readMarks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itda_chat_read_marks_total",
		Help: "Accepted mark-read calls.",
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itda_chat_events_dropped_total",
		Help: "Room events dropped because the fan-out queue was full.",
	})
	ingestDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itda_chat_ingest_dropped_total",
		Help: "Last-message updates dropped because the ingest queue was full.",
	})
)
