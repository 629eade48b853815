package chat

import (
	"github.com/itda-project/itda-chat-api/databases"
)

// Core bundles the chat components over one set of collections and a
// shared per-room lock table, so handlers wire a single value.
type Core struct {
	Store     *RoomStore
	Registry  *Registry
	Receipts  *ReceiptEngine
	Messages  *Messages
	Directory *Directory
	Ingestor  *Ingestor
	Notifier  *Notifier
}

// NewCore wires the chat core over the given collections and sinks
func NewCore(rooms databases.ChatRoomDatabase, participants databases.ParticipantDatabase, messages databases.MessageDatabase, notifier *Notifier) *Core {
	locks := newRoomLocks()

	store := NewRoomStore(rooms, participants, locks, notifier)
	registry := NewRegistry(rooms, participants, locks, notifier)
	receipts := NewReceiptEngine(rooms, participants, messages)
	ingestor := NewIngestor(store, 0)
	messageSvc := NewMessages(rooms, participants, messages, receipts, ingestor, notifier, locks)
	directory := NewDirectory(store, registry, receipts)

	return &Core{
		Store:     store,
		Registry:  registry,
		Receipts:  receipts,
		Messages:  messageSvc,
		Directory: directory,
		Ingestor:  ingestor,
		Notifier:  notifier,
	}
}
