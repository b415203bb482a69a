package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const NotificationTableName = "notifications"

const (
	NotifyMessage       = "message"
	NotifyGroupAdd      = "group_add"
	NotifyGroupRemove   = "group_remove"
	NotifyGroupChange   = "group_change"
	NotifyRoleChange    = "role_change"
	NotifyReaction      = "reaction"
	NotifyMessageDelete = "message_delete"
)

// Notification is the durable per-recipient record behind notification:new.
// The REST layer writes it alongside the primary mutation; the push to a
// live socket is only a latency shortcut on top of this row.
type Notification struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Recipient    primitive.ObjectID  `bson:"recipient" json:"recipient"`
	Sender       *primitive.ObjectID `bson:"sender,omitempty" json:"sender,omitempty"`
	Type         string              `bson:"type" json:"type"`
	Conversation *primitive.ObjectID `bson:"conversation,omitempty" json:"conversation,omitempty"`
	Message      *primitive.ObjectID `bson:"message,omitempty" json:"message,omitempty"`
	Content      string              `bson:"content" json:"content"`
	Data         map[string]any      `bson:"data,omitempty" json:"data,omitempty"`
	Read         bool                `bson:"read" json:"read"`
	ReadAt       *time.Time          `bson:"read_at,omitempty" json:"readAt,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"createdAt"`
}

func (*Notification) TableName() string { return NotificationTableName }
