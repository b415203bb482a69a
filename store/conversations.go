package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ChatSync/model"
	"ChatSync/tools/errs"
)

type ConversationStore struct {
	coll *mongo.Collection
}

func NewConversationStore(db *mongo.Database) *ConversationStore {
	return &ConversationStore{coll: db.Collection(model.ConversationTableName)}
}

func (s *ConversationStore) FindByID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, errs.ErrConversationNotFound.WrapMsg(conversationID)
	}
	var c model.Conversation
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.ErrConversationNotFound.WrapMsg(conversationID)
		}
		return nil, errs.Wrap(err)
	}
	return &c, nil
}

// IDsForUser resolves every conversation the user durably participates in.
// Sorted by _id so repeated calls return identical order.
func (s *ConversationStore) IDsForUser(ctx context.Context, userID string) ([]primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, errs.ErrUserNotFound.WrapMsg(userID)
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"participants": oid}, opts)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)

	var out []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, errs.Wrap(err)
		}
		out = append(out, row.ID)
	}
	return out, errs.Wrap(cur.Err())
}
