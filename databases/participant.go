package databases

// go generate: mockery --name ParticipantDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/itda-project/itda-chat-api/models"
)

const participantCollectionName = "chatparticipants"

// ParticipantDatabase contains the methods to use with the chat participant
// database. The collection carries a unique index on (roomId, userId).
type ParticipantDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Participant, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Participant, error)
	InsertOne(ctx context.Context, participant models.Participant, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type participantDatabase struct {
	db DatabaseHelper
}

// NewParticipantDatabase initializes a new instance of participant database with the provided db connection
func NewParticipantDatabase(db DatabaseHelper) ParticipantDatabase {
	return &participantDatabase{
		db: db,
	}
}

func (p *participantDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Participant, error) {
	participant := &models.Participant{}
	err := p.db.Collection(participantCollectionName).FindOne(ctx, filter, opts...).Decode(participant)
	if err != nil {
		return nil, err
	}
	return participant, nil
}

func (p *participantDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Participant, error) {
	var participants []models.Participant
	curr, err := p.db.Collection(participantCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &participants)
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (p *participantDatabase) InsertOne(ctx context.Context, participant models.Participant, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return p.db.Collection(participantCollectionName).InsertOne(ctx, participant, opts...)
}

func (p *participantDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return p.db.Collection(participantCollectionName).UpdateOne(ctx, filter, update, opts...)
}

func (p *participantDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return p.db.Collection(participantCollectionName).DeleteOne(ctx, filter, opts...)
}

func (p *participantDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return p.db.Collection(participantCollectionName).CountDocuments(ctx, filter, opts...)
}
