package databases

// go generate: mockery --name MessageDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/itda-project/itda-chat-api/models"
)

const messageCollectionName = "chatmessages"

// MessageDatabase contains the methods to use with the chat message
// database. Messages are append-only; there is no update or delete.
type MessageDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ChatMessage, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ChatMessage, error)
	InsertOne(ctx context.Context, message models.ChatMessage, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type messageDatabase struct {
	db DatabaseHelper
}

// NewMessageDatabase initializes a new instance of message database with the provided db connection
func NewMessageDatabase(db DatabaseHelper) MessageDatabase {
	return &messageDatabase{
		db: db,
	}
}

func (m *messageDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{}
	err := m.db.Collection(messageCollectionName).FindOne(ctx, filter, opts...).Decode(msg)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (m *messageDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	curr, err := m.db.Collection(messageCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (m *messageDatabase) InsertOne(ctx context.Context, message models.ChatMessage, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return m.db.Collection(messageCollectionName).InsertOne(ctx, message, opts...)
}

func (m *messageDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return m.db.Collection(messageCollectionName).CountDocuments(ctx, filter, opts...)
}
