package chat

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Presence tracks which users currently hold a live connection to a
// room. The set lives in redis so every api instance sees the same
// view. Presence is advisory display state, not membership: it never
// affects unread counts.
type Presence struct {
	rdb *redis.Client
}

// NewPresence returns a redis-backed presence tracker
func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{rdb: rdb}
}

func presenceKey(roomID string) string {
	return "presence:room:" + roomID
}

// Connect records userID as online in roomID
func (p *Presence) Connect(ctx context.Context, roomID, userID string) error {
	return p.rdb.SAdd(ctx, presenceKey(roomID), userID).Err()
}

// Disconnect removes userID from roomID's online set
func (p *Presence) Disconnect(ctx context.Context, roomID, userID string) error {
	return p.rdb.SRem(ctx, presenceKey(roomID), userID).Err()
}

// ConnectedCount returns how many users are online in roomID
func (p *Presence) ConnectedCount(ctx context.Context, roomID string) (int64, error) {
	return p.rdb.SCard(ctx, presenceKey(roomID)).Result()
}

// Online reports whether userID is currently connected to roomID
func (p *Presence) Online(ctx context.Context, roomID, userID string) (bool, error) {
	return p.rdb.SIsMember(ctx, presenceKey(roomID), userID).Result()
}
