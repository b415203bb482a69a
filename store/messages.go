package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ChatSync/model"
	"ChatSync/tools/errs"
)

// MissedMessageCap bounds a single catch-up read. Clients needing more
// page via conversation history, not the sync path.
const MissedMessageCap = 500

type MessageStore struct {
	coll *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{coll: db.Collection(model.MessageTableName)}
}

func (s *MessageStore) Insert(ctx context.Context, m *model.Message) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.UpdatedAt = m.CreatedAt
	_, err := s.coll.InsertOne(ctx, m)
	return errs.Wrap(err)
}

// missedSort keeps catch-up reads deterministic: createdAt ascending with
// _id as tiebreak for equal timestamps.
func missedSort() bson.D {
	return bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
}

// MissedSince returns messages in the given conversations created strictly
// after since, excluding those sent by excludeSender, oldest first, capped.
func (s *MessageStore) MissedSince(ctx context.Context, conversationIDs []primitive.ObjectID, since time.Time, excludeSender string, limit int64) ([]*model.Message, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > MissedMessageCap {
		limit = MissedMessageCap
	}
	filter := bson.M{
		"conversation": bson.M{"$in": conversationIDs},
		"created_at":   bson.M{"$gt": since},
	}
	if excludeSender != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeSender); err == nil {
			filter["sender"] = bson.M{"$ne": oid}
		}
	}
	opts := options.Find().SetSort(missedSort()).SetLimit(limit)
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)

	var out []*model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

// MissedForConversation is MissedSince scoped to one conversation, without
// the sender exclusion (the caller already passed the participant check).
func (s *MessageStore) MissedForConversation(ctx context.Context, conversationID primitive.ObjectID, since time.Time, limit int64) ([]*model.Message, error) {
	if limit <= 0 || limit > MissedMessageCap {
		limit = MissedMessageCap
	}
	filter := bson.M{
		"conversation": conversationID,
		"created_at":   bson.M{"$gt": since},
	}
	opts := options.Find().SetSort(missedSort()).SetLimit(limit)
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)

	var out []*model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}
