package chat

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// roomLocks hands out one mutex per room so that capacity checks,
// membership changes, message sends, last-message updates and
// deactivation on the same room are serialized while different rooms
// proceed independently.
type roomLocks struct {
	mu    sync.Mutex
	locks map[primitive.ObjectID]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[primitive.ObjectID]*sync.Mutex)}
}

// Lock acquires the mutex for roomID and returns the unlock func
func (r *roomLocks) Lock(roomID primitive.ObjectID) func() {
	r.mu.Lock()
	l, ok := r.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[roomID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
