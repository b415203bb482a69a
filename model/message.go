package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MessageTableName = "messages"

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeVideo  = "video"
	MessageTypeFile   = "file"
	MessageTypeAudio  = "audio"
	MessageTypeSystem = "system"
)

const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// Reaction is one emoji from one user; a user has at most one per message.
type Reaction struct {
	User  primitive.ObjectID `bson:"user" json:"user"`
	Emoji string             `bson:"emoji" json:"emoji"`
	At    time.Time          `bson:"at" json:"at"`
}

type ReadReceipt struct {
	User   primitive.ObjectID `bson:"user" json:"user"`
	ReadAt time.Time          `bson:"read_at" json:"readAt"`
}

type DeliveryReceipt struct {
	User        primitive.ObjectID `bson:"user" json:"user"`
	DeliveredAt time.Time          `bson:"delivered_at" json:"deliveredAt"`
}

type Message struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Conversation primitive.ObjectID `bson:"conversation" json:"conversation"`
	Sender       primitive.ObjectID `bson:"sender,omitempty" json:"sender"`
	Content      string             `bson:"content" json:"content"`
	Type         string             `bson:"type" json:"type"`

	MediaURL     string `bson:"media_url,omitempty" json:"mediaUrl,omitempty"`
	FileName     string `bson:"file_name,omitempty" json:"fileName,omitempty"`
	MimeType     string `bson:"mime_type,omitempty" json:"mimeType,omitempty"`
	ThumbnailURL string `bson:"thumbnail_url,omitempty" json:"thumbnailUrl,omitempty"`

	Status      string               `bson:"status" json:"status"`
	ReadBy      []ReadReceipt        `bson:"read_by,omitempty" json:"readBy,omitempty"`
	DeliveredTo []DeliveryReceipt    `bson:"delivered_to,omitempty" json:"deliveredTo,omitempty"`
	Reactions   []Reaction           `bson:"reactions,omitempty" json:"reactions,omitempty"`
	ReplyTo     *primitive.ObjectID  `bson:"reply_to,omitempty" json:"replyTo,omitempty"`
	DeletedFor  []primitive.ObjectID `bson:"deleted_for,omitempty" json:"deletedFor,omitempty"`
	Deleted     bool                 `bson:"deleted" json:"deleted"`
	EditedAt    *time.Time           `bson:"edited_at,omitempty" json:"editedAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (*Message) TableName() string { return MessageTableName }
