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

type ViewStore struct {
	coll *mongo.Collection
}

func NewViewStore(db *mongo.Database) *ViewStore {
	return &ViewStore{coll: db.Collection(model.ConversationViewTableName)}
}

// UpdateView upserts the user's read marker for a conversation. An empty
// messageID refreshes lastViewedAt without moving the seen pointer.
func (s *ViewStore) UpdateView(ctx context.Context, userID, conversationID, messageID string) error {
	user, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return errs.ErrUserNotFound.WrapMsg(userID)
	}
	conv, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return errs.ErrConversationNotFound.WrapMsg(conversationID)
	}

	now := time.Now().UTC()
	set := bson.M{
		"last_viewed_at": now,
		"updated_at":     now,
	}
	if messageID != "" {
		msg, err := primitive.ObjectIDFromHex(messageID)
		if err != nil {
			return errs.ErrMessageNotFound.WrapMsg(messageID)
		}
		set["last_message_seen"] = msg
	}

	_, err = s.coll.UpdateOne(ctx,
		bson.M{"user": user, "conversation": conv},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

// LastView returns the user's read marker, or nil when they never viewed
// the conversation.
func (s *ViewStore) LastView(ctx context.Context, userID, conversationID string) (*model.ConversationView, error) {
	user, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, errs.ErrUserNotFound.WrapMsg(userID)
	}
	conv, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, errs.ErrConversationNotFound.WrapMsg(conversationID)
	}

	var v model.ConversationView
	if err := s.coll.FindOne(ctx, bson.M{"user": user, "conversation": conv}).Decode(&v); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, errs.Wrap(err)
	}
	return &v, nil
}
