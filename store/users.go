package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ChatSync/model"
	"ChatSync/tools/errs"
)

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(model.UserTableName)}
}

func (s *UserStore) FindByID(ctx context.Context, userID string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, errs.ErrUserNotFound.WrapMsg(userID)
	}
	var u model.User
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.ErrUserNotFound.WrapMsg(userID)
		}
		return nil, errs.Wrap(err)
	}
	return &u, nil
}

// MarkOnline flips the durable status on the first live connection.
func (s *UserStore) MarkOnline(ctx context.Context, userID string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return errs.ErrUserNotFound.WrapMsg(userID)
	}
	_, err = s.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"status":    model.UserStatusOnline,
		"last_seen": time.Now().UTC(),
	}})
	return errs.Wrap(err)
}

// MarkOffline persists lastSeen when the last connection closes.
func (s *UserStore) MarkOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return errs.ErrUserNotFound.WrapMsg(userID)
	}
	_, err = s.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"status":    model.UserStatusOffline,
		"last_seen": lastSeen.UTC(),
	}})
	return errs.Wrap(err)
}
