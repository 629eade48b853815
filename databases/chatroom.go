package databases

// go generate: mockery --name ChatRoomDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/itda-project/itda-chat-api/models"
)

const chatRoomCollectionName = "chatrooms"

// ChatRoomDatabase contains the methods to use with the chat room database
type ChatRoomDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ChatRoom, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ChatRoom, error)
	InsertOne(ctx context.Context, room models.ChatRoom, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type chatRoomDatabase struct {
	db DatabaseHelper
}

// NewChatRoomDatabase initializes a new instance of chat room database with the provided db connection
func NewChatRoomDatabase(db DatabaseHelper) ChatRoomDatabase {
	return &chatRoomDatabase{
		db: db,
	}
}

func (c *chatRoomDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.ChatRoom, error) {
	room := &models.ChatRoom{}
	err := c.db.Collection(chatRoomCollectionName).FindOne(ctx, filter, opts...).Decode(room)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (c *chatRoomDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	curr, err := c.db.Collection(chatRoomCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &rooms)
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *chatRoomDatabase) InsertOne(ctx context.Context, room models.ChatRoom, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(chatRoomCollectionName).InsertOne(ctx, room, opts...)
}

func (c *chatRoomDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.db.Collection(chatRoomCollectionName).UpdateOne(ctx, filter, update, opts...)
}

func (c *chatRoomDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(chatRoomCollectionName).CountDocuments(ctx, filter, opts...)
}
