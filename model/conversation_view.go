package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ConversationViewTableName = "conversation_views"

// ConversationView is the per-user read marker: when the user last looked
// at a conversation and the newest message they saw. Unique on
// (user, conversation).
type ConversationView struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	User            primitive.ObjectID  `bson:"user" json:"user"`
	Conversation    primitive.ObjectID  `bson:"conversation" json:"conversation"`
	LastViewedAt    time.Time           `bson:"last_viewed_at" json:"lastViewedAt"`
	LastMessageSeen *primitive.ObjectID `bson:"last_message_seen,omitempty" json:"lastMessageSeen,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updatedAt"`
}

func (*ConversationView) TableName() string { return ConversationViewTableName }
