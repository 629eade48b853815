package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/itda-project/itda-chat-api/databases"
	"github.com/itda-project/itda-chat-api/models"
)

// In-memory stand-ins for the collection interfaces. They interpret
// the bson filters and update operators the core actually issues, so
// the stateful membership and receipt flows can run end to end without
// a live mongod.

type memInsertResult struct{ id interface{} }

func (r memInsertResult) Decode() interface{} { return r.id }

type memRooms struct {
	mu   sync.Mutex
	docs []models.ChatRoom
}

func roomMatches(doc models.ChatRoom, filter bson.M) bool {
	for key, want := range filter {
		switch key {
		case "_id":
			switch w := want.(type) {
			case primitive.ObjectID:
				if doc.ID != w {
					return false
				}
			case bson.M:
				ids, _ := w["$in"].([]primitive.ObjectID)
				found := false
				for _, id := range ids {
					if doc.ID == id {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
		case "meetingId":
			if want == nil {
				if doc.MeetingID != nil {
					return false
				}
			} else if doc.MeetingID == nil || *doc.MeetingID != want.(string) {
				return false
			}
		case "isActive":
			if doc.IsActive != want.(bool) {
				return false
			}
		case "category":
			if doc.Category != want.(string) {
				return false
			}
		}
	}
	return true
}

func (m *memRooms) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if roomMatches(m.docs[i], filter.(bson.M)) {
			room := m.docs[i]
			return &room, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memRooms) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatRoom
	for i := range m.docs {
		if roomMatches(m.docs[i], filter.(bson.M)) {
			out = append(out, m.docs[i])
		}
	}
	return out, nil
}

func (m *memRooms) InsertOne(ctx context.Context, room models.ChatRoom, opts ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, room)
	return memInsertResult{id: room.ID}, nil
}

func (m *memRooms) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &mongo.UpdateResult{}
	set, _ := update.(bson.M)["$set"].(bson.M)
	for i := range m.docs {
		if !roomMatches(m.docs[i], filter.(bson.M)) {
			continue
		}
		res.MatchedCount++
		modified := false
		for key, value := range set {
			switch key {
			case "isActive":
				if m.docs[i].IsActive != value.(bool) {
					m.docs[i].IsActive = value.(bool)
					modified = true
				}
			case "notice":
				m.docs[i].Notice = value.(string)
				modified = true
			case "imageUrl":
				m.docs[i].ImageURL = value.(string)
				modified = true
			case "lastMessage":
				m.docs[i].LastMessage = value.(string)
				modified = true
			case "lastMessageAt":
				at := value.(time.Time)
				m.docs[i].LastMessageAt = &at
				modified = true
			case "updatedAt":
				m.docs[i].UpdatedAt = value.(time.Time)
			}
		}
		if modified {
			res.ModifiedCount++
		}
		break
	}
	return res, nil
}

func (m *memRooms) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.docs {
		if roomMatches(m.docs[i], filter.(bson.M)) {
			n++
		}
	}
	return n, nil
}

type memParticipants struct {
	mu   sync.Mutex
	docs []models.Participant
}

func participantMatches(doc models.Participant, filter bson.M) bool {
	for key, want := range filter {
		switch key {
		case "roomId":
			if doc.RoomID != want.(primitive.ObjectID) {
				return false
			}
		case "userId":
			if doc.UserID != want.(string) {
				return false
			}
		case "role":
			if doc.Role != want.(models.ChatRole) {
				return false
			}
		case "lastReadAt":
			after, _ := want.(bson.M)["$gt"].(time.Time)
			if doc.LastReadAt == nil || !doc.LastReadAt.After(after) {
				return false
			}
		}
	}
	return true
}

func (m *memParticipants) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if participantMatches(m.docs[i], filter.(bson.M)) {
			p := m.docs[i]
			return &p, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memParticipants) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Participant
	for i := range m.docs {
		if participantMatches(m.docs[i], filter.(bson.M)) {
			out = append(out, m.docs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (m *memParticipants) InsertOne(ctx context.Context, participant models.Participant, opts ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, participant)
	return memInsertResult{id: participant.ID}, nil
}

func (m *memParticipants) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &mongo.UpdateResult{}
	up := update.(bson.M)
	for i := range m.docs {
		if !participantMatches(m.docs[i], filter.(bson.M)) {
			continue
		}
		res.MatchedCount++
		if set, ok := up["$set"].(bson.M); ok {
			if role, ok := set["role"].(models.ChatRole); ok && m.docs[i].Role != role {
				m.docs[i].Role = role
				res.ModifiedCount++
			}
		}
		if max, ok := up["$max"].(bson.M); ok {
			if at, ok := max["lastReadAt"].(time.Time); ok {
				if m.docs[i].LastReadAt == nil || at.After(*m.docs[i].LastReadAt) {
					m.docs[i].LastReadAt = &at
					res.ModifiedCount++
				}
			}
		}
		break
	}
	return res, nil
}

func (m *memParticipants) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &mongo.DeleteResult{}
	for i := range m.docs {
		if participantMatches(m.docs[i], filter.(bson.M)) {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			res.DeletedCount = 1
			break
		}
	}
	return res, nil
}

func (m *memParticipants) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.docs {
		if participantMatches(m.docs[i], filter.(bson.M)) {
			n++
		}
	}
	return n, nil
}

type memMessages struct {
	mu   sync.Mutex
	docs []models.ChatMessage
}

func messageMatches(doc models.ChatMessage, filter bson.M) bool {
	for key, want := range filter {
		switch key {
		case "_id":
			if doc.ID != want.(primitive.ObjectID) {
				return false
			}
		case "roomId":
			if doc.RoomID != want.(primitive.ObjectID) {
				return false
			}
		case "type":
			if doc.Type != want.(models.MessageType) {
				return false
			}
		case "createdAt":
			after, _ := want.(bson.M)["$gt"].(time.Time)
			if !doc.CreatedAt.After(after) {
				return false
			}
		}
	}
	return true
}

func (m *memMessages) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if messageMatches(m.docs[i], filter.(bson.M)) {
			msg := m.docs[i]
			return &msg, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memMessages) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatMessage
	for i := range m.docs {
		if messageMatches(m.docs[i], filter.(bson.M)) {
			out = append(out, m.docs[i])
		}
	}
	for _, opt := range opts {
		if opt.Sort != nil {
			sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		}
		if opt.Skip != nil {
			skip := int(*opt.Skip)
			if skip > len(out) {
				skip = len(out)
			}
			out = out[skip:]
		}
		if opt.Limit != nil && int(*opt.Limit) < len(out) {
			out = out[:int(*opt.Limit)]
		}
	}
	return out, nil
}

func (m *memMessages) InsertOne(ctx context.Context, message models.ChatMessage, opts ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, message)
	return memInsertResult{id: message.ID}, nil
}

func (m *memMessages) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.docs {
		if messageMatches(m.docs[i], filter.(bson.M)) {
			n++
		}
	}
	return n, nil
}

// collectSink buffers published events for assertions
type collectSink struct {
	mu     sync.Mutex
	events []models.RoomEvent
}

func (s *collectSink) Publish(ctx context.Context, event models.RoomEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *collectSink) types() []models.RoomEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RoomEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// newTestCore builds a core over the in-memory collections
func newTestCore() (*Core, *memRooms, *memParticipants, *memMessages) {
	rooms := &memRooms{}
	participants := &memParticipants{}
	messages := &memMessages{}
	core := NewCore(rooms, participants, messages, NewNotifier(64))
	return core, rooms, participants, messages
}
