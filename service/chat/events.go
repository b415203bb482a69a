package chat

import (
	"time"

	"ChatSync/model"
)

// Kind enumerates every domain event the fan-out engine understands. The
// value doubles as the outbound wire event name.
type Kind string

const (
	KindMessageNew      Kind = "message:new"
	KindMessageEdited   Kind = "message:edited"
	KindMessageDeleted  Kind = "message:deleted"
	KindReactionAdded   Kind = "reaction:added"
	KindReactionRemoved Kind = "reaction:removed"
	KindTypingStart     Kind = "typing:start"
	KindTypingStop      Kind = "typing:stop"

	KindMessageDelivered Kind = "message:delivered"
	KindMessageRead      Kind = "message:read"

	KindConversationViewed Kind = "conversation:viewed"

	KindConversationUpdated  Kind = "conversation:updated"
	KindConversationArchived Kind = "conversation:archived"
	KindConversationDeleted  Kind = "conversation:deleted"

	KindGroupMemberAdded     Kind = "group:member_added"
	KindGroupMemberRemoved   Kind = "group:member_removed"
	KindGroupRoleChanged     Kind = "group:role_changed"
	KindGroupSettingsUpdated Kind = "group:settings_updated"

	KindNotificationNew Kind = "notification:new"

	KindUserOnline  Kind = "user:online"
	KindUserOffline Kind = "user:offline"
)

// Delivery is the audience class a kind maps to.
type Delivery int

const (
	DeliveryUnknown Delivery = iota
	// every connection subscribed to conversation:<id>
	DeliveryRoom
	// every connection of each user in Targets
	DeliveryUser
	// every connection except those of the origin user
	DeliveryGlobal
)

// DeliveryOf is the dispatch table; unknown kinds resolve to
// DeliveryUnknown and are logged and dropped by the engine.
func DeliveryOf(k Kind) Delivery {
	switch k {
	case KindMessageNew, KindMessageEdited, KindMessageDeleted,
		KindReactionAdded, KindReactionRemoved,
		KindTypingStart, KindTypingStop,
		KindMessageDelivered, KindMessageRead,
		KindConversationViewed,
		KindGroupMemberAdded, KindGroupMemberRemoved,
		KindGroupRoleChanged, KindGroupSettingsUpdated:
		return DeliveryRoom
	case KindConversationUpdated, KindConversationArchived,
		KindConversationDeleted, KindNotificationNew:
		return DeliveryUser
	case KindUserOnline, KindUserOffline:
		return DeliveryGlobal
	default:
		return DeliveryUnknown
	}
}

// Event is one immutable domain fact handed to the engine after the
// durable write committed. It is derived state, never stored.
type Event struct {
	Kind           Kind      `json:"kind"`
	ConversationID string    `json:"conversationId,omitempty"`
	Origin         string    `json:"origin,omitempty"` // user ID that caused the event
	Targets        []string  `json:"targets,omitempty"`
	TS             time.Time `json:"ts"`
	Data           any       `json:"data"`

	// ExcludeConn suppresses echo to the originating connection for
	// relayed events (typing, receipts). Local concern only; a remote
	// node cannot hold the origin connection.
	ExcludeConn string `json:"-"`
}

// ---- typed payloads, one per kind ----

type MessageNewData struct {
	Message        *model.Message `json:"message"`
	ConversationID string         `json:"conversationId"`
}

type MessageEditedData struct {
	Message        *model.Message `json:"message"`
	ConversationID string         `json:"conversationId"`
}

type MessageDeletedData struct {
	MessageID         string `json:"messageId"`
	ConversationID    string `json:"conversationId"`
	DeleteForEveryone bool   `json:"deleteForEveryone"`
	DeletedBy         string `json:"deletedBy"`
}

type ReactionAddedData struct {
	MessageID      string             `json:"messageId"`
	ConversationID string             `json:"conversationId"`
	Emoji          string             `json:"emoji"`
	User           model.UserSnapshot `json:"user"`
}

type ReactionRemovedData struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

type TypingData struct {
	ConversationID string             `json:"conversationId"`
	User           model.UserSnapshot `json:"user"`
	Timestamp      time.Time          `json:"timestamp"`
}

type DeliveredData struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	DeliveredBy    string    `json:"deliveredBy"`
	DeliveredAt    time.Time `json:"deliveredAt"`
}

type ReadData struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	ReadBy         string    `json:"readBy"`
	ReadAt         time.Time `json:"readAt"`
}

type ConversationViewedData struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	MessageID      string    `json:"messageId,omitempty"`
	ViewedAt       time.Time `json:"viewedAt"`
}

type ConversationData struct {
	Conversation *model.Conversation `json:"conversation"`
}

type ConversationGoneData struct {
	ConversationID string `json:"conversationId"`
	By             string `json:"by,omitempty"`
}

type MemberData struct {
	ConversationID string `json:"conversationId"`
	MemberID       string `json:"memberId"`
	By             string `json:"by"`
	NewRole        string `json:"newRole,omitempty"`
}

type GroupSettingsData struct {
	ConversationID string               `json:"conversationId"`
	Settings       *model.GroupSettings `json:"settings"`
	UpdatedBy      string               `json:"updatedBy"`
}

type NotificationData struct {
	Notification *model.Notification `json:"notification"`
}

type UserOnlineData struct {
	UserID    string             `json:"userId"`
	User      model.UserSnapshot `json:"user"`
	Timestamp time.Time          `json:"timestamp"`
}

type UserOfflineData struct {
	UserID    string    `json:"userId"`
	LastSeen  time.Time `json:"lastSeen"`
	Timestamp time.Time `json:"timestamp"`
}

// ---- constructors ----

func NewMessageEvent(msg *model.Message) *Event {
	convID := msg.Conversation.Hex()
	return &Event{
		Kind:           KindMessageNew,
		ConversationID: convID,
		Origin:         msg.Sender.Hex(),
		TS:             time.Now().UTC(),
		Data:           &MessageNewData{Message: msg, ConversationID: convID},
	}
}

func MessageEditedEvent(msg *model.Message) *Event {
	convID := msg.Conversation.Hex()
	return &Event{
		Kind:           KindMessageEdited,
		ConversationID: convID,
		Origin:         msg.Sender.Hex(),
		TS:             time.Now().UTC(),
		Data:           &MessageEditedData{Message: msg, ConversationID: convID},
	}
}

func MessageDeletedEvent(messageID, conversationID, deletedBy string, forEveryone bool) *Event {
	return &Event{
		Kind:           KindMessageDeleted,
		ConversationID: conversationID,
		Origin:         deletedBy,
		TS:             time.Now().UTC(),
		Data: &MessageDeletedData{
			MessageID:         messageID,
			ConversationID:    conversationID,
			DeleteForEveryone: forEveryone,
			DeletedBy:         deletedBy,
		},
	}
}

func TypingEvent(start bool, conversationID, originConn string, user model.UserSnapshot) *Event {
	kind := KindTypingStop
	if start {
		kind = KindTypingStart
	}
	return &Event{
		Kind:           kind,
		ConversationID: conversationID,
		Origin:         user.ID,
		ExcludeConn:    originConn,
		TS:             time.Now().UTC(),
		Data: &TypingData{
			ConversationID: conversationID,
			User:           user,
			Timestamp:      time.Now().UTC(),
		},
	}
}

func ReceiptEvent(kind Kind, conversationID, messageID, userID, originConn string) *Event {
	now := time.Now().UTC()
	var data any
	if kind == KindMessageRead {
		data = &ReadData{
			MessageID:      messageID,
			ConversationID: conversationID,
			ReadBy:         userID,
			ReadAt:         now,
		}
	} else {
		data = &DeliveredData{
			MessageID:      messageID,
			ConversationID: conversationID,
			DeliveredBy:    userID,
			DeliveredAt:    now,
		}
	}
	return &Event{
		Kind:           kind,
		ConversationID: conversationID,
		Origin:         userID,
		ExcludeConn:    originConn,
		TS:             now,
		Data:           data,
	}
}

func ConversationViewedEvent(conversationID, userID, messageID, originConn string) *Event {
	now := time.Now().UTC()
	return &Event{
		Kind:           KindConversationViewed,
		ConversationID: conversationID,
		Origin:         userID,
		ExcludeConn:    originConn,
		TS:             now,
		Data: &ConversationViewedData{
			ConversationID: conversationID,
			UserID:         userID,
			MessageID:      messageID,
			ViewedAt:       now,
		},
	}
}

func NotificationEvent(n *model.Notification) *Event {
	origin := ""
	if n.Sender != nil {
		origin = n.Sender.Hex()
	}
	return &Event{
		Kind:    KindNotificationNew,
		Origin:  origin,
		Targets: []string{n.Recipient.Hex()},
		TS:      time.Now().UTC(),
		Data:    &NotificationData{Notification: n},
	}
}

func UserOnlineEvent(u *model.User) *Event {
	now := time.Now().UTC()
	return &Event{
		Kind:   KindUserOnline,
		Origin: u.ID.Hex(),
		TS:     now,
		Data: &UserOnlineData{
			UserID:    u.ID.Hex(),
			User:      u.Snapshot(),
			Timestamp: now,
		},
	}
}

func UserOfflineEvent(userID string, lastSeen time.Time) *Event {
	return &Event{
		Kind:   KindUserOffline,
		Origin: userID,
		TS:     lastSeen,
		Data: &UserOfflineData{
			UserID:    userID,
			LastSeen:  lastSeen,
			Timestamp: lastSeen,
		},
	}
}
