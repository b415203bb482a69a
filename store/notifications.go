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

const MissedNotificationCap = 200

type NotificationStore struct {
	coll *mongo.Collection
}

func NewNotificationStore(db *mongo.Database) *NotificationStore {
	return &NotificationStore{coll: db.Collection(model.NotificationTableName)}
}

func (s *NotificationStore) Insert(ctx context.Context, n *model.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.coll.InsertOne(ctx, n)
	return errs.Wrap(err)
}

// MissedSince returns the recipient's notifications created strictly after
// since, oldest first, capped.
func (s *NotificationStore) MissedSince(ctx context.Context, recipient string, since time.Time, limit int64) ([]*model.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(recipient)
	if err != nil {
		return nil, errs.ErrUserNotFound.WrapMsg(recipient)
	}
	if limit <= 0 || limit > MissedNotificationCap {
		limit = MissedNotificationCap
	}
	filter := bson.M{
		"recipient":  oid,
		"created_at": bson.M{"$gt": since},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)

	var out []*model.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

// MarkRead flips the read flag; the row itself is never rewritten.
func (s *NotificationStore) MarkRead(ctx context.Context, notificationID string) error {
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return errs.ErrPayloadInvalid.WrapMsg(notificationID)
	}
	now := time.Now().UTC()
	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": now}})
	return errs.Wrap(err)
}
